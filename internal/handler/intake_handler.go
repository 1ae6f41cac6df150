package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fvu-intake/internal/dto"
	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/internal/service"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
	"github.com/noah-isme/fvu-intake/pkg/response"
)

type fieldValidator interface {
	Validate(fs models.FieldSet) models.ValidationResult
	CompletionPercent(fs models.FieldSet) int
	VisibleCompanions(fs models.FieldSet) []string
}

type documentBuilder interface {
	Build(fs models.FieldSet) (models.DocumentModel, error)
	EncodeRecord(rec models.JSONRecord) ([]byte, string, error)
}

type reportRenderer interface {
	Render(ctx context.Context, report models.Report) ([]byte, error)
}

type reportFlattener interface {
	Render(report models.Report) ([]byte, error)
}

type submitter interface {
	Submit(ctx context.Context, scope string, fs models.FieldSet, observe service.Observer) (models.SubmissionOutcome, error)
}

// IntakeHandler exposes validation, preview and submission of request forms.
type IntakeHandler struct {
	validation  fieldValidator
	documents   documentBuilder
	pdf         reportRenderer
	csv         reportFlattener
	submissions submitter
	clock       clock.Clock
}

// NewIntakeHandler constructs the handler.
func NewIntakeHandler(validation fieldValidator, documents documentBuilder, pdf reportRenderer, csv reportFlattener, submissions submitter, clk clock.Clock) *IntakeHandler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &IntakeHandler{validation: validation, documents: documents, pdf: pdf, csv: csv, submissions: submissions, clock: clk}
}

// Validate godoc
// @Summary Validate captured fields
// @Tags Intake
// @Accept json
// @Produce json
// @Param type path string true "Form type (upload, analysis, recovery)"
// @Success 200 {object} response.Envelope
// @Router /forms/{type}/validate [post]
func (h *IntakeHandler) Validate(c *gin.Context) {
	fs, err := bindFieldSet(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result := h.validation.Validate(fs)
	response.JSON(c, http.StatusOK, dto.ValidationResponse{
		ValidationResult:  result,
		CompletionPercent: h.validation.CompletionPercent(fs),
		VisibleCompanions: h.validation.VisibleCompanions(fs),
	})
}

// buildValid gates document generation on a clean validation pass.
func (h *IntakeHandler) buildValid(c *gin.Context) (models.FieldSet, models.DocumentModel, bool) {
	fs, err := bindFieldSet(c)
	if err != nil {
		response.Error(c, err)
		return fs, models.DocumentModel{}, false
	}
	if result := h.validation.Validate(fs); !result.IsValid {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, result.FieldErrors))
		return fs, models.DocumentModel{}, false
	}
	model, err := h.documents.Build(fs)
	if err != nil {
		response.Error(c, artifactError(err))
		return fs, models.DocumentModel{}, false
	}
	return fs, model, true
}

// Preview godoc
// @Summary Render the request report
// @Description Returns the PDF report, or a flat CSV of the same sections with format=csv.
// @Tags Intake
// @Accept json
// @Produce application/pdf
// @Param type path string true "Form type"
// @Param format query string false "pdf or csv"
// @Success 200 {file} binary
// @Router /forms/{type}/preview [post]
func (h *IntakeHandler) Preview(c *gin.Context) {
	fs, model, ok := h.buildValid(c)
	if !ok {
		return
	}
	base := service.AttachmentBaseName(fs, h.clock.Now())
	if c.Query("format") == "csv" {
		data, err := h.csv.Render(model.Report)
		if err != nil {
			response.Error(c, artifactError(err))
			return
		}
		response.Attachment(c, base+".csv", "text/csv", data)
		return
	}
	data, err := h.pdf.Render(c.Request.Context(), model.Report)
	if err != nil {
		response.Error(c, artifactError(err))
		return
	}
	response.Attachment(c, base+".pdf", "application/pdf", data)
}

// Record godoc
// @Summary Produce the canonical JSON record
// @Tags Intake
// @Accept json
// @Produce json
// @Param type path string true "Form type"
// @Success 200 {object} map[string]interface{}
// @Router /forms/{type}/record [post]
func (h *IntakeHandler) Record(c *gin.Context) {
	_, model, ok := h.buildValid(c)
	if !ok {
		return
	}
	data, digest, err := h.documents.EncodeRecord(model.Record)
	if err != nil {
		response.Error(c, artifactError(err))
		return
	}
	c.Header("X-Record-Digest", digest)
	c.Data(http.StatusOK, "application/json", data)
}

// Submit godoc
// @Summary Submit a request
// @Description Validates, renders and transmits the request. Transient failures are retried; a failed submission is kept as a draft.
// @Tags Intake
// @Accept json
// @Produce json
// @Param type path string true "Form type"
// @Param X-Session-ID header string false "Session key"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /forms/{type}/submit [post]
func (h *IntakeHandler) Submit(c *gin.Context) {
	fs, err := bindFieldSet(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var (
		mu          sync.Mutex
		transitions []models.StateTransition
	)
	observe := func(t models.StateTransition) {
		mu.Lock()
		transitions = append(transitions, t)
		mu.Unlock()
	}
	outcome, err := h.submissions.Submit(c.Request.Context(), sessionScope(c), fs, observe)
	if err != nil {
		response.Error(c, err)
		return
	}
	mu.Lock()
	defer mu.Unlock()
	response.JSON(c, outcomeStatus(outcome), dto.SubmissionResponse{SubmissionOutcome: outcome, Transitions: transitions})
}

func artifactError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrArtifactGeneration.Code, appErrors.ErrArtifactGeneration.Status, appErrors.ErrArtifactGeneration.Message)
}

func outcomeStatus(outcome models.SubmissionOutcome) int {
	if outcome.Success {
		return http.StatusCreated
	}
	switch outcome.ErrorKind {
	case models.ErrorKindValidation:
		return http.StatusUnprocessableEntity
	case models.ErrorKindRejected:
		return appErrors.ErrSubmissionRejected.Status
	case models.ErrorKindArtifact:
		return appErrors.ErrArtifactGeneration.Status
	case models.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return appErrors.ErrSubmissionExhausted.Status
	}
}
