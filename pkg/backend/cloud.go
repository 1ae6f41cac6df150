package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type cloudAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type cloudPayload struct {
	FormType     string                     `json:"formType"`
	Fields       map[string]string          `json:"fields"`
	Locations    []map[string]string        `json:"locations,omitempty"`
	Attachments  map[string]cloudAttachment `json:"attachments"`
	RecordDigest string                     `json:"recordDigest"`
	Record       json.RawMessage            `json:"record"`
}

type cloudReply struct {
	Success      *bool  `json:"success"`
	SubmissionID string `json:"submissionId"`
	Message      string `json:"message"`
	Error        string `json:"error"`
}

// CloudTransport posts a structured JSON document.
type CloudTransport struct {
	endpoint string
	client   *http.Client
}

// NewCloudTransport constructs a cloud transport.
func NewCloudTransport(endpoint string, client *http.Client) *CloudTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &CloudTransport{endpoint: endpoint, client: client}
}

// Name implements Transport.
func (t *CloudTransport) Name() string { return "cloud" }

// Submit implements Transport.
func (t *CloudTransport) Submit(ctx context.Context, req Request) (*Response, error) {
	if t.endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	payload := cloudPayload{
		FormType:     string(req.Fields.Type),
		Fields:       make(map[string]string),
		RecordDigest: req.RecordDigest,
		Attachments: map[string]cloudAttachment{
			"pdf":  {Filename: req.PDF.Filename, ContentType: req.PDF.ContentType, Data: req.PDF.Data},
			"json": {Filename: req.Record.Filename, ContentType: req.Record.ContentType, Data: req.Record.Data},
		},
	}
	if json.Valid(req.Record.Data) {
		payload.Record = req.Record.Data
	}
	for f := range req.Fields.Values() {
		if v := req.Fields.Get(f); v != "" {
			payload.Fields[string(f)] = v
		}
	}
	for _, loc := range req.Fields.Locations() {
		m := make(map[string]string, len(loc.Values))
		for f := range loc.Values {
			if v := loc.Get(f); v != "" {
				m[string(f)] = v
			}
		}
		payload.Locations = append(payload.Locations, m)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode cloud payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build cloud request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp.StatusCode, raw)
	}

	var reply cloudReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	if reply.Success != nil && !*reply.Success {
		return nil, &RejectedError{Message: firstNonEmpty(reply.Message, reply.Error)}
	}
	if reply.SubmissionID == "" {
		return nil, &MalformedResponseError{Err: fmt.Errorf("success reply without submission id")}
	}
	return &Response{SubmissionID: reply.SubmissionID, Message: reply.Message}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
