package validate

import (
	"regexp"
	"sort"
	"strings"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Errors maps form fields to their validation message. A nil or empty
// Errors means the input is valid.
type Errors map[string]string

// Add records msg for field unless the field already has a message.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; ok {
		return
	}
	e[field] = msg
}

// OK reports whether no field failed.
func (e Errors) OK() bool {
	return len(e) == 0
}

// Error lists failing fields in a stable order.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns e as an error, or nil when e is empty.
func (e Errors) Err() error {
	if e.OK() {
		return nil
	}
	return e
}

// Required records msg when value is blank.
func (e Errors) Required(field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, msg)
	}
}

// Email records "Email is required" or "Invalid email format".
func (e Errors) Email(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "Email is required")
		return
	}
	if !emailPattern.MatchString(value) {
		e.Add(field, "Invalid email format")
	}
}
