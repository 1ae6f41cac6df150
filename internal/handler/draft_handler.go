package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fvu-intake/internal/dto"
	"github.com/noah-isme/fvu-intake/internal/models"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
	"github.com/noah-isme/fvu-intake/pkg/response"
)

type draftStore interface {
	Load(ctx context.Context, scope string, formType models.FormType) (*models.Draft, error)
	Save(ctx context.Context, scope string, fs models.FieldSet) (models.Draft, error)
	ScheduleSave(scope string, fs models.FieldSet) bool
	Clear(ctx context.Context, scope string, formType models.FormType) error
	AgeOf(draft models.Draft) string
}

// DraftHandler saves and restores in-progress forms.
type DraftHandler struct {
	drafts draftStore
}

// NewDraftHandler constructs the handler.
func NewDraftHandler(drafts draftStore) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// Get godoc
// @Summary Restore the saved draft
// @Tags Drafts
// @Produce json
// @Param type path string true "Form type"
// @Param X-Session-ID header string false "Session key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /drafts/{type} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	formType, err := formTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	draft, err := h.drafts.Load(c.Request.Context(), sessionScope(c), formType)
	if err != nil {
		response.Error(c, err)
		return
	}
	if draft == nil {
		response.Error(c, appErrors.ErrDraftNotFound)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewDraftResponse(*draft, h.drafts.AgeOf(*draft)))
}

// Put godoc
// @Summary Save a draft
// @Description Schedules a debounced autosave. With mode=now the draft is written before responding.
// @Tags Drafts
// @Accept json
// @Produce json
// @Param type path string true "Form type"
// @Param mode query string false "now for an immediate save"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /drafts/{type} [put]
func (h *DraftHandler) Put(c *gin.Context) {
	fs, err := bindFieldSet(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	scope := sessionScope(c)
	if c.Query("mode") == "now" {
		draft, err := h.drafts.Save(c.Request.Context(), scope, fs)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dto.NewDraftResponse(draft, h.drafts.AgeOf(draft)))
		return
	}
	if !h.drafts.ScheduleSave(scope, fs) {
		response.Error(c, appErrors.ErrSubmissionInFlight)
		return
	}
	response.Accepted(c, dto.DraftScheduledResponse{Scheduled: true})
}

// Delete godoc
// @Summary Discard the saved draft
// @Tags Drafts
// @Param type path string true "Form type"
// @Success 204
// @Router /drafts/{type} [delete]
func (h *DraftHandler) Delete(c *gin.Context) {
	formType, err := formTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.drafts.Clear(c.Request.Context(), sessionScope(c), formType); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
