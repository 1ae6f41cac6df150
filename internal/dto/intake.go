package dto

import (
	"time"

	"github.com/noah-isme/fvu-intake/internal/models"
)

// ValidationResponse is returned by the validate endpoint.
type ValidationResponse struct {
	models.ValidationResult
	CompletionPercent int      `json:"completionPercent"`
	VisibleCompanions []string `json:"visibleCompanions"`
}

// SubmissionResponse carries the outcome and the transitions that led to it.
type SubmissionResponse struct {
	models.SubmissionOutcome
	Transitions []models.StateTransition `json:"transitions"`
}

// DraftResponse describes a restored draft.
type DraftResponse struct {
	FormType  models.FormType `json:"formType"`
	Fields    map[string]any  `json:"fields"`
	SavedAt   time.Time       `json:"savedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Age       string          `json:"age"`
}

// DraftScheduledResponse acknowledges a debounced autosave.
type DraftScheduledResponse struct {
	Scheduled bool `json:"scheduled"`
}

// NewDraftResponse flattens a draft into the same shape the intake endpoints accept.
func NewDraftResponse(draft models.Draft, age string) DraftResponse {
	fields := make(map[string]any, len(draft.Data)+1)
	for k, v := range draft.Data {
		fields[k] = v
	}
	if len(draft.Locations) > 0 {
		locations := make([]map[string]string, len(draft.Locations))
		copy(locations, draft.Locations)
		fields["locations"] = locations
	}
	return DraftResponse{
		FormType:  draft.FormType,
		Fields:    fields,
		SavedAt:   time.UnixMilli(draft.SavedAtEpochMs).UTC(),
		ExpiresAt: time.UnixMilli(draft.ExpiresAtEpochMs).UTC(),
		Age:       age,
	}
}
