// Package backend delivers captured requests to a submission endpoint.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/fvu-intake/internal/models"
)

// Attachment is one generated artifact sent alongside the fields.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request is everything a transport needs for one attempt.
type Request struct {
	Fields       models.FieldSet
	PDF          Attachment
	Record       Attachment
	RecordDigest string
}

// Response is the normalised success payload of an endpoint.
type Response struct {
	SubmissionID string
	TicketNumber string
	Message      string
}

// Transport sends one request. Implementations must honour ctx cancellation.
type Transport interface {
	Name() string
	Submit(ctx context.Context, req Request) (*Response, error)
}

// StatusError reports a non-2xx HTTP reply. Message is only set from a JSON
// envelope and may be shown to users; Body is a raw excerpt for logs.
type StatusError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *StatusError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("endpoint returned %d: %s", e.StatusCode, e.Message)
	case e.Body != "":
		return fmt.Sprintf("endpoint returned %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests
}

// RejectedError is an explicit application-level failure payload.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "submission rejected"
	}
	return "submission rejected: " + e.Message
}

// MalformedResponseError wraps a reply that could not be understood.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed endpoint response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ErrMissingEndpoint is returned when a transport has no URL configured.
var ErrMissingEndpoint = errors.New("submission endpoint url not configured")

// NewHTTPClient returns the client used by both transports. Per-attempt
// deadlines come from the caller's context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newStatusError(status int, body []byte) *StatusError {
	return &StatusError{StatusCode: status, Message: serverMessage(body), Body: truncate(string(body), 200)}
}

// serverMessage extracts the message of a JSON error envelope. Any other
// body yields "" so HTML error pages never reach users.
func serverMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return truncate(firstNonEmpty(env.Message, env.Error), 200)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
