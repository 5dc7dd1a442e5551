package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"scholar-console/internal/httpclient"
)

// Envelope is the backend's response wrapper. Data stays raw until unwrap
// so a missing or null payload can be told apart from a zero value.
type Envelope[T any] struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ErrNoData is wrapped when a 2xx envelope reports success without data.
var ErrNoData = errors.New("response carried no data")

// ErrRejected is wrapped when a 2xx envelope reports success=false.
var ErrRejected = errors.New("request rejected")

// unwrap returns Data only for a successful envelope that carries it.
// Rejections keep the backend's text, if any, so callers can fall back to
// their own message.
func (e Envelope[T]) unwrap() (T, error) {
	var zero T
	if !e.Success {
		return zero, rejected(e.Error, e.Message)
	}
	raw := bytes.TrimSpace(e.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return zero, &httpclient.Error{Status: http.StatusOK, Err: ErrNoData}
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, &httpclient.Error{Status: http.StatusOK, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return v, nil
}

// Ack is the reply of side-effect endpoints. An empty body counts as
// success; an envelope must say success=true.
type Ack struct {
	Success *bool  `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (a Ack) err() error {
	if a.Success == nil || *a.Success {
		return nil
	}
	return rejected(a.Error, a.Message)
}

func rejected(errText, message string) error {
	msg := strings.TrimSpace(errText)
	if msg == "" {
		msg = strings.TrimSpace(message)
	}
	return &httpclient.Error{Status: http.StatusOK, Message: msg, Err: ErrRejected}
}

// Page is a paged list as returned inside Envelope.Data.
type Page[T any] struct {
	Content          []T  `json:"content"`
	Number           int  `json:"number"`
	Size             int  `json:"size"`
	TotalElements    int  `json:"totalElements"`
	TotalPages       int  `json:"totalPages"`
	First            bool `json:"first"`
	Last             bool `json:"last"`
	NumberOfElements int  `json:"numberOfElements"`
	Empty            bool `json:"empty"`
}

type AuthenticationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Session is the authentication response.
type Session struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type TenantStatus string

const (
	TenantActive    TenantStatus = "ACTIVE"
	TenantInactive  TenantStatus = "INACTIVE"
	TenantSuspended TenantStatus = "SUSPENDED"
)

type TenantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Tenant struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Status TenantStatus `json:"status"`
}

type TenantDashboard struct {
	TotalCVs             int            `json:"totalCvs"`
	TotalMatches         int            `json:"totalMatches"`
	TotalCampaigns       int            `json:"totalCampaigns"`
	TotalEmailsSent      int            `json:"totalEmailsSent"`
	TotalEmailsFailed    int            `json:"totalEmailsFailed"`
	SmtpConfigured       bool           `json:"smtpConfigured"`
	CampaignStatusCounts map[string]int `json:"campaignStatusCounts"`
}

type IncomingEmail struct {
	From         string `json:"from"`
	Subject      string `json:"subject"`
	BodyPreview  string `json:"bodyPreview"`
	ReceivedDate string `json:"receivedDate"`
}

type ParsingStatus string

const (
	ParsingPending    ParsingStatus = "PENDING"
	ParsingInProgress ParsingStatus = "IN_PROGRESS"
	ParsingCompleted  ParsingStatus = "COMPLETED"
	ParsingFailed     ParsingStatus = "FAILED"
)

// IsTerminal reports whether parsing has finished one way or the other.
func (s ParsingStatus) IsTerminal() bool {
	return s == ParsingCompleted || s == ParsingFailed
}

func (s ParsingStatus) Valid() bool {
	switch s {
	case ParsingPending, ParsingInProgress, ParsingCompleted, ParsingFailed:
		return true
	}
	return false
}

// CV timestamps are kept as the backend's zone-less local date-time strings.
type CV struct {
	ID               string        `json:"id"`
	OriginalFilename string        `json:"originalFilename"`
	FileSizeBytes    int64         `json:"fileSizeBytes"`
	MimeType         string        `json:"mimeType"`
	ParsingStatus    ParsingStatus `json:"parsingStatus"`
	ParsedAt         string        `json:"parsedAt,omitempty"`
	UploadedAt       string        `json:"uploadedAt"`
	KeywordCount     int           `json:"keywordCount,omitempty"`
}

type ProfessorSummary struct {
	ID                string `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	Department        string `json:"department"`
	UniversityName    string `json:"universityName"`
	UniversityCountry string `json:"universityCountry"`
}

// FullName joins first and last name.
func (p ProfessorSummary) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Match struct {
	ID                     string           `json:"id"`
	Professor              ProfessorSummary `json:"professor"`
	MatchScore             float64          `json:"matchScore"`
	MatchedKeywords        string           `json:"matchedKeywords"`
	TotalCVKeywords        int              `json:"totalCvKeywords"`
	TotalProfessorKeywords int              `json:"totalProfessorKeywords"`
	TotalMatchedKeywords   int              `json:"totalMatchedKeywords"`
	IsEmailed              bool             `json:"isEmailed,omitempty"`
}

type CampaignStatus string

const (
	CampaignDraft      CampaignStatus = "DRAFT"
	CampaignScheduled  CampaignStatus = "SCHEDULED"
	CampaignInProgress CampaignStatus = "IN_PROGRESS"
	CampaignCompleted  CampaignStatus = "COMPLETED"
	CampaignCancelled  CampaignStatus = "CANCELLED"
	CampaignFailed     CampaignStatus = "FAILED"
)

func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignCompleted || s == CampaignCancelled || s == CampaignFailed
}

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignScheduled, CampaignInProgress, CampaignCompleted, CampaignCancelled, CampaignFailed:
		return true
	}
	return false
}

type CreateCampaignRequest struct {
	CVID          string  `json:"cvId"`
	Name          string  `json:"name"`
	Subject       string  `json:"subject"`
	BodyTemplate  string  `json:"bodyTemplate"`
	MinMatchScore float64 `json:"minMatchScore"`
}

type Campaign struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Subject         string         `json:"subject"`
	MinMatchScore   float64        `json:"minMatchScore"`
	Status          CampaignStatus `json:"status"`
	TotalRecipients int            `json:"totalRecipients"`
	SentCount       int            `json:"sentCount"`
	FailedCount     int            `json:"failedCount"`
	ScheduledAt     string         `json:"scheduledAt,omitempty"`
	StartedAt       string         `json:"startedAt,omitempty"`
	CompletedAt     string         `json:"completedAt,omitempty"`
	CreatedAt       string         `json:"createdAt"`
}

type EmailStatus string

const (
	EmailPending EmailStatus = "PENDING"
	EmailSent    EmailStatus = "SENT"
	EmailFailed  EmailStatus = "FAILED"
	EmailBounced EmailStatus = "BOUNCED"
)

func (s EmailStatus) IsTerminal() bool {
	return s == EmailSent || s == EmailBounced
}

func (s EmailStatus) Valid() bool {
	switch s {
	case EmailPending, EmailSent, EmailFailed, EmailBounced:
		return true
	}
	return false
}

type EmailLog struct {
	ID              string      `json:"id"`
	RecipientEmail  string      `json:"recipientEmail"`
	Subject         string      `json:"subject"`
	Body            string      `json:"body,omitempty"`
	AlternateBodies string      `json:"alternateBodies,omitempty"`
	Status          EmailStatus `json:"status"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	RetryCount      int         `json:"retryCount"`
	SentAt          string      `json:"sentAt,omitempty"`
	CreatedAt       string      `json:"createdAt"`
	ProfessorID     string      `json:"professorId"`
	ProfessorName   string      `json:"professorName,omitempty"`
}

type UpdateDraftRequest struct {
	Body string `json:"body"`
}

type SmtpStatus string

const (
	SmtpActive   SmtpStatus = "ACTIVE"
	SmtpInactive SmtpStatus = "INACTIVE"
	SmtpFailed   SmtpStatus = "FAILED"
)

type SmtpAccountRequest struct {
	Email    string `json:"email"`
	SmtpHost string `json:"smtpHost"`
	SmtpPort int    `json:"smtpPort"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	UseTLS   bool   `json:"useTls"`
	UseSSL   bool   `json:"useSsl"`
	FromName string `json:"fromName,omitempty"`
}

type SmtpAccount struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	SmtpHost string     `json:"smtpHost"`
	SmtpPort int        `json:"smtpPort"`
	Username string     `json:"username"`
	UseTLS   bool       `json:"useTls"`
	UseSSL   bool       `json:"useSsl"`
	FromName string     `json:"fromName,omitempty"`
	Status   SmtpStatus `json:"status"`
}
