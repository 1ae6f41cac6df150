package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fvu-intake/internal/models"
)

func sampleRequest() Request {
	fs := models.NewFieldSet(models.FormTypeUpload, map[models.Field]string{
		models.FieldRequestingName:  "Jane Doe",
		models.FieldRequestingPhone: "9055550100",
		models.FieldMediaType:       "USB",
		models.FieldOtherInfo:       "",
		models.FieldOffenceOther:    models.PlaceholderValue,
	}, []models.Location{
		{Values: map[models.LocationField]string{models.LocVideoStart: "2024-03-09T10:00", models.LocTimeCorrect: "Yes"}},
		{Values: map[models.LocationField]string{models.LocDVREarliestDate: "2024-03-07"}},
	})
	return Request{
		Fields:       fs,
		PDF:          Attachment{Filename: "upload.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")},
		Record:       Attachment{Filename: "upload.json", ContentType: "application/json", Data: []byte(`{"a":1}`)},
		RecordDigest: "abc123",
	}
}

func TestLegacyFieldsRemap(t *testing.T) {
	got := LegacyFields(sampleRequest().Fields)
	require.Equal(t, map[string]string{
		"requestingOfficer": "Jane Doe",
		"phoneNumber":       "9055550100",
		"typeOfMedia":       "USB",
		"videoStart_1":      "2024-03-09T10:00",
		"timeSyncCorrect_1": "Yes",
		"dvrRetention_2":    "2024-03-07",
		"locationCount":     "2",
	}, got)
}

func TestLegacyTransportSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "Jane Doe", r.PostForm.Get("requestingOfficer"))
		require.Equal(t, "upload", r.PostForm.Get("formType"))
		pdf, err := base64.StdEncoding.DecodeString(r.PostForm.Get("pdfFile"))
		require.NoError(t, err)
		require.Equal(t, "%PDF-1.3", string(pdf))
		require.Equal(t, "abc123", r.PostForm.Get("recordDigest"))
		_, _ = w.Write([]byte(`{"success":true,"ticketNumber":"FVU-2024-0042"}`))
	}))
	defer srv.Close()

	resp, err := NewLegacyTransport(srv.URL, srv.Client()).Submit(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, "FVU-2024-0042", resp.TicketNumber)
}

func TestLegacyTransportFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"rejected", http.StatusOK, `{"success":false,"message":"Occurrence not found"}`, func(t *testing.T, err error) {
			var rejected *RejectedError
			require.ErrorAs(t, err, &rejected)
			require.Equal(t, "Occurrence not found", rejected.Message)
		}},
		{"malformed", http.StatusOK, `<html>`, func(t *testing.T, err error) {
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
		}},
		{"unavailable", http.StatusServiceUnavailable, "down for maintenance", func(t *testing.T, err error) {
			var status *StatusError
			require.ErrorAs(t, err, &status)
			require.Equal(t, http.StatusServiceUnavailable, status.StatusCode)
			require.True(t, status.Temporary())
		}},
		{"bad request", http.StatusBadRequest, `{"message":"missing field"}`, func(t *testing.T, err error) {
			var status *StatusError
			require.ErrorAs(t, err, &status)
			require.False(t, status.Temporary())
			require.Equal(t, "missing field", status.Message)
		}},
		{"html error page", http.StatusNotFound, "<html><body>Apache/2.4 at 10.0.0.5</body></html>", func(t *testing.T, err error) {
			var status *StatusError
			require.ErrorAs(t, err, &status)
			require.Empty(t, status.Message)
			require.Contains(t, status.Body, "Apache/2.4")
			require.Contains(t, err.Error(), "404")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewLegacyTransport(srv.URL, srv.Client()).Submit(context.Background(), sampleRequest())
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestCloudTransportSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload cloudPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "upload", payload.FormType)
		require.Equal(t, "Jane Doe", payload.Fields["rName"])
		require.NotContains(t, payload.Fields, "otherInfo")
		require.Len(t, payload.Locations, 2)
		require.Equal(t, []byte("%PDF-1.3"), payload.Attachments["pdf"].Data)
		require.JSONEq(t, `{"a":1}`, string(payload.Record))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"submissionId":"sub-123","message":"queued"}`))
	}))
	defer srv.Close()

	resp, err := NewCloudTransport(srv.URL, srv.Client()).Submit(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, "sub-123", resp.SubmissionID)
}

func TestCloudTransportStatusMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	_, err := NewCloudTransport(srv.URL, srv.Client()).Submit(context.Background(), sampleRequest())
	var status *StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, "slow down", status.Message)
	require.True(t, status.Temporary())
}

func TestTransportsRequireEndpoint(t *testing.T) {
	_, err := NewCloudTransport("", nil).Submit(context.Background(), sampleRequest())
	require.True(t, errors.Is(err, ErrMissingEndpoint))
	_, err = NewLegacyTransport("", nil).Submit(context.Background(), sampleRequest())
	require.True(t, errors.Is(err, ErrMissingEndpoint))
}
