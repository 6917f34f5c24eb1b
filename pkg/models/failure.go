package models

import "fmt"

// Failure codes surfaced to callers. These are validation-level errors;
// generation and persistence problems are recovered internally.
const (
	CodeInvalidParticipants = "INVALID_PARTICIPANTS"
	CodeContactNotAvailable = "CONTACT_NOT_AVAILABLE"
	CodeInvalidMessage      = "INVALID_MESSAGE"
	CodeThreadNotFound      = "THREAD_NOT_FOUND"
	CodeInvalidContact      = "INVALID_CONTACT"
)

// Failure is a structured, caller-visible error.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (f *Failure) Error() string {
	if f.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", f.Code, f.Message, f.Details)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// NewFailure builds a Failure with an optional details string.
func NewFailure(code, message string, details ...string) *Failure {
	f := &Failure{Code: code, Message: message}
	if len(details) > 0 {
		f.Details = details[0]
	}
	return f
}
