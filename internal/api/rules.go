package api

import "strings"

// PlaceholderBody is the body the backend stores while a draft is still
// being generated.
const PlaceholderBody = "Generating..."

// IsGenerated reports whether a draft body holds real generated content.
func IsGenerated(body string) bool {
	trimmed := strings.TrimSpace(body)
	return trimmed != "" && trimmed != PlaceholderBody
}

// CountGenerated counts logs whose draft is ready.
func CountGenerated(logs []EmailLog) int {
	n := 0
	for _, l := range logs {
		if IsGenerated(l.Body) {
			n++
		}
	}
	return n
}

func CanParse(cv CV) bool {
	return cv.ParsingStatus == ParsingPending
}

// CanFindMatches is true only once parsing has completed.
func CanFindMatches(cv CV) bool {
	return cv.ParsingStatus == ParsingCompleted
}

func CanExecute(c Campaign) bool {
	return c.Status == CampaignDraft
}

func CanCancel(c Campaign) bool {
	return c.Status == CampaignScheduled
}

func CanSchedule(c Campaign) bool {
	return c.Status == CampaignDraft
}

// CanEditBody is true until the email has been sent.
func CanEditBody(l EmailLog) bool {
	return l.Status != EmailSent
}

func CanSend(l EmailLog) bool {
	return l.Status != EmailSent
}
