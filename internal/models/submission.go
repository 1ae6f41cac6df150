package models

import "time"

// SubmissionState is a step of the submission state machine.
type SubmissionState string

const (
	StateIdle       SubmissionState = "IDLE"
	StateValidating SubmissionState = "VALIDATING"
	StatePreparing  SubmissionState = "PREPARING"
	StateSubmitting SubmissionState = "SUBMITTING"
	StateRetrying   SubmissionState = "RETRYING"
	StateSucceeded  SubmissionState = "SUCCEEDED"
	StateFailed     SubmissionState = "FAILED"
)

// ErrorKind classifies why a submission did not succeed.
type ErrorKind string

const (
	ErrorKindValidation  ErrorKind = "validation"
	ErrorKindArtifact    ErrorKind = "artifact_generation"
	ErrorKindRejected    ErrorKind = "rejected"
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindOffline     ErrorKind = "offline"
	ErrorKindServer      ErrorKind = "server"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether the kind is transient.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindTimeout, ErrorKindOffline, ErrorKindServer, ErrorKindRateLimited:
		return true
	default:
		return false
	}
}

// StateTransition is emitted to observers on every state change.
type StateTransition struct {
	FormType    FormType        `json:"formType"`
	From        SubmissionState `json:"from"`
	To          SubmissionState `json:"to"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"maxAttempts"`
	ErrorKind   ErrorKind       `json:"errorKind,omitempty"`
}

// ArtifactLink points at an archived copy of a generated artifact.
type ArtifactLink struct {
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SubmissionOutcome is the terminal result of one submission sequence.
type SubmissionOutcome struct {
	Success      bool              `json:"success"`
	Reference    string            `json:"reference,omitempty"`
	SubmissionID string            `json:"submissionId,omitempty"`
	TicketNumber string            `json:"ticketNumber,omitempty"`
	Message      string            `json:"message"`
	ErrorKind    ErrorKind         `json:"errorKind,omitempty"`
	Attempts     int               `json:"attempts"`
	DraftSaved   bool              `json:"draftSaved"`
	FieldErrors  map[string]string `json:"fieldErrors,omitempty"`
	Artifacts    []ArtifactLink    `json:"artifacts,omitempty"`
}

// ValidationResult is the outcome of one validation pass.
type ValidationResult struct {
	FieldErrors       map[string]string `json:"fieldErrors"`
	FirstInvalidField string            `json:"firstInvalidField,omitempty"`
	IsValid           bool              `json:"isValid"`
}
