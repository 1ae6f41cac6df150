package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ajg/form"

	"github.com/noah-isme/fvu-intake/internal/models"
)

// legacyFieldNames maps internal field names to the names the legacy
// endpoint accepts. Fields missing from the table are sent unchanged.
var legacyFieldNames = map[models.Field]string{
	models.FieldRequestingName:       "requestingOfficer",
	models.FieldBadge:                "badgeNumber",
	models.FieldRequestingPhone:      "phoneNumber",
	models.FieldRequestingEmail:      "emailAddress",
	models.FieldOccurrenceNum:        "occurrenceNumber",
	models.FieldOffenceType:          "offenceType",
	models.FieldOffenceOther:         "offenceTypeOther",
	models.FieldMediaType:            "typeOfMedia",
	models.FieldMediaTypeOther:       "typeOfMediaOther",
	models.FieldLockerNumber:         "lockerNumber",
	models.FieldEvidenceSubmitted:    "evidenceSubmitted",
	models.FieldServiceRequired:      "serviceRequired",
	models.FieldServiceRequiredOther: "serviceRequiredOther",
	models.FieldVideoLocation:        "videoSeizedFrom",
	models.FieldVideoLocationOther:   "videoSeizedFromOther",
	models.FieldFileNames:            "fileNames",
	models.FieldRequestDetails:       "requestDetails",
	models.FieldDVRMake:              "dvrMakeModel",
	models.FieldContactName:          "siteContactName",
	models.FieldContactPhone:         "siteContactPhone",
	models.FieldCameraDetails:        "cameraDetails",
	models.FieldExtractionDetails:    "extractionDetails",
	models.FieldOtherInfo:            "additionalInformation",
}

// legacyLocationNames are suffixed with the 1-based location number.
var legacyLocationNames = map[models.LocationField]string{
	models.LocBusinessName:    "businessName",
	models.LocAddress:         "locationAddress",
	models.LocCity:            "city",
	models.LocCityOther:       "cityOther",
	models.LocVideoStart:      "videoStart",
	models.LocVideoEnd:        "videoEnd",
	models.LocTimeCorrect:     "timeSyncCorrect",
	models.LocTimeOffset:      "timeOffset",
	models.LocDVREarliestDate: "dvrRetention",
}

// LegacyFields flattens a field set into the legacy endpoint's names.
// Empty values are dropped.
func LegacyFields(fs models.FieldSet) map[string]string {
	out := make(map[string]string)
	for f := range fs.Values() {
		v := fs.Get(f)
		if v == "" {
			continue
		}
		name, ok := legacyFieldNames[f]
		if !ok {
			name = string(f)
		}
		out[name] = v
	}
	for i, loc := range fs.Locations() {
		for f := range loc.Values {
			v := loc.Get(f)
			if v == "" {
				continue
			}
			name, ok := legacyLocationNames[f]
			if !ok {
				name = string(f)
			}
			out[fmt.Sprintf("%s_%d", name, i+1)] = v
		}
	}
	if len(fs.Locations()) > 0 {
		out["locationCount"] = fmt.Sprint(len(fs.Locations()))
	}
	return out
}

type legacyReply struct {
	Success      bool   `json:"success"`
	TicketNumber string `json:"ticketNumber"`
	Message      string `json:"message"`
}

// LegacyTransport posts form-encoded fields with base64 attachments.
type LegacyTransport struct {
	endpoint string
	client   *http.Client
}

// NewLegacyTransport constructs a legacy transport.
func NewLegacyTransport(endpoint string, client *http.Client) *LegacyTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &LegacyTransport{endpoint: endpoint, client: client}
}

// Name implements Transport.
func (t *LegacyTransport) Name() string { return "legacy" }

// Submit implements Transport.
func (t *LegacyTransport) Submit(ctx context.Context, req Request) (*Response, error) {
	if t.endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	fields := LegacyFields(req.Fields)
	fields["formType"] = string(req.Fields.Type)
	fields["pdfFileName"] = req.PDF.Filename
	fields["pdfFile"] = base64.StdEncoding.EncodeToString(req.PDF.Data)
	fields["jsonFileName"] = req.Record.Filename
	fields["jsonFile"] = base64.StdEncoding.EncodeToString(req.Record.Data)
	fields["recordDigest"] = req.RecordDigest

	values, err := form.EncodeToValues(fields)
	if err != nil {
		return nil, fmt.Errorf("encode legacy form: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build legacy request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp.StatusCode, body)
	}

	var reply legacyReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	if !reply.Success {
		return nil, &RejectedError{Message: reply.Message}
	}
	if reply.TicketNumber == "" {
		return nil, &MalformedResponseError{Err: fmt.Errorf("success reply without ticket number")}
	}
	return &Response{TicketNumber: reply.TicketNumber, Message: reply.Message}, nil
}
