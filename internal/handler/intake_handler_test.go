package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/internal/service"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
	"github.com/noah-isme/fvu-intake/pkg/export"
)

var handlerNow = time.Date(2024, 3, 10, 18, 45, 0, 0, time.FixedZone("EST", -5*3600))

type submitterMock struct {
	outcome models.SubmissionOutcome
	err     error
	scope   string
	fields  models.FieldSet
}

func (m *submitterMock) Submit(_ context.Context, scope string, fs models.FieldSet, observe service.Observer) (models.SubmissionOutcome, error) {
	m.scope = scope
	m.fields = fs
	if m.err != nil {
		return models.SubmissionOutcome{}, m.err
	}
	observe(models.StateTransition{FormType: fs.Type, From: models.StateIdle, To: models.StateValidating})
	return m.outcome, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func analysisBody(overrides map[string]any) []byte {
	body := map[string]any{
		"rName":           "Jane Doe",
		"badge":           "1234",
		"requestingPhone": "905-555-0100",
		"requestingEmail": "jane.doe@peelpolice.ca",
		"occNumber":       "PR240001",
		"offenceType":     "Robbery",
		"serviceRequired": "Video Enhancement",
		"videoLocation":   "Evidence Locker",
		"fileNames":       "cam1.mp4",
		"requestDetails":  "Enhance the plate",
	}
	for k, v := range overrides {
		body[k] = v
	}
	data, _ := json.Marshal(body)
	return data
}

func newIntakeHandlerForTest(sub *submitterMock) *IntakeHandler {
	calc := service.NewCalculationService(clock.Fixed(handlerNow), service.CalculationConfig{Location: handlerNow.Location()})
	validation := service.NewValidationService(nil, calc, service.ValidationConfig{}, nil)
	documents := service.NewDocumentService(calc, validation, service.DocumentConfig{SchemaVersion: "1.0"}, nil)
	return NewIntakeHandler(validation, documents, export.NewPDFRenderer("FVU"), export.NewCSVExporter(), sub, clock.Fixed(handlerNow))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestIntakeValidateReportsErrorsAndCompletion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIntakeHandlerForTest(&submitterMock{})

	c, w := newGinContext(http.MethodPost, "/forms/analysis/validate", analysisBody(map[string]any{"serviceRequired": "Other"}))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	h.Validate(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	require.Equal(t, false, data["isValid"])
	require.Equal(t, "serviceRequiredOther", data["firstInvalidField"])
	require.Contains(t, data["visibleCompanions"], "serviceRequiredOther")
	require.Less(t, data["completionPercent"].(float64), 100.0)
}

func TestIntakeRejectsUnknownFormAndFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIntakeHandlerForTest(&submitterMock{})

	c, w := newGinContext(http.MethodPost, "/forms/parcel/validate", analysisBody(nil))
	c.Params = gin.Params{{Key: "type", Value: "parcel"}}
	h.Validate(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodPost, "/forms/analysis/validate", analysisBody(map[string]any{"mediaTypo": "USB"}))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	h.Validate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]any)
	require.Equal(t, appErrors.ErrValidation.Code, errBody["code"])
}

func TestIntakePreviewRendersPDFAndCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIntakeHandlerForTest(&submitterMock{})

	c, w := newGinContext(http.MethodPost, "/forms/analysis/preview", analysisBody(nil))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	h.Preview(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "analysis_PR240001_20240310.pdf")
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	c, w = newGinContext(http.MethodPost, "/forms/analysis/preview?format=csv", analysisBody(nil))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	h.Preview(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Request Details")
}

func TestIntakePreviewRefusesInvalidData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIntakeHandlerForTest(&submitterMock{})

	c, w := newGinContext(http.MethodPost, "/forms/analysis/preview", analysisBody(map[string]any{"occNumber": "123"}))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	h.Preview(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decodeEnvelope(t, w)["error"].(map[string]any)["details"].(map[string]any)
	require.Contains(t, details, "occNumber")
}

func TestIntakeRecordSetsDigest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIntakeHandlerForTest(&submitterMock{})

	c, w := newGinContext(http.MethodPost, "/forms/analysis/record", analysisBody(nil))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	h.Record(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Header().Get("X-Record-Digest"), 64)

	var record map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	require.Equal(t, "analysis", record["metadata"].(map[string]any)["formType"])
}

func TestIntakeSubmitMapsOutcomes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sub := &submitterMock{outcome: models.SubmissionOutcome{Success: true, SubmissionID: "sub-1", Attempts: 1}}
	h := newIntakeHandlerForTest(sub)

	c, w := newGinContext(http.MethodPost, "/forms/analysis/submit", analysisBody(nil))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	c.Request.Header.Set("X-Session-ID", "desk-7")
	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "desk-7", sub.scope)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	require.Equal(t, "sub-1", data["submissionId"])
	require.Len(t, data["transitions"], 1)

	sub.outcome = models.SubmissionOutcome{ErrorKind: models.ErrorKindServer, Attempts: 3, DraftSaved: true}
	c, w = newGinContext(http.MethodPost, "/forms/analysis/submit", analysisBody(nil))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	h.Submit(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "anonymous", sub.scope)

	sub.err = appErrors.ErrSubmissionInFlight
	c, w = newGinContext(http.MethodPost, "/forms/analysis/submit", analysisBody(nil))
	c.Params = gin.Params{{Key: "type", Value: "analysis"}}
	h.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestOutcomeStatus(t *testing.T) {
	require.Equal(t, http.StatusUnprocessableEntity, outcomeStatus(models.SubmissionOutcome{ErrorKind: models.ErrorKindRejected}))
	require.Equal(t, http.StatusInternalServerError, outcomeStatus(models.SubmissionOutcome{ErrorKind: models.ErrorKindArtifact}))
	require.Equal(t, http.StatusGatewayTimeout, outcomeStatus(models.SubmissionOutcome{ErrorKind: models.ErrorKindTimeout}))
}
