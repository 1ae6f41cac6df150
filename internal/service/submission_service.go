package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/pkg/backend"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
)

type pdfRenderer interface {
	Render(ctx context.Context, report models.Report) ([]byte, error)
}

// SubmissionConfig is the retry policy and the I/O deadlines of a submission.
type SubmissionConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	RenderTimeout  time.Duration
}

// Observer receives every state transition of a submission.
type Observer func(models.StateTransition)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SubmissionService validates, renders and transmits a request, retrying
// transient failures and falling back to a draft when it gives up.
type SubmissionService struct {
	validation *ValidationService
	documents  *DocumentService
	renderer   pdfRenderer
	transport  backend.Transport
	drafts     *DraftService
	identity   *IdentityService
	artifacts  *ArtifactService
	metrics    *MetricsService
	clock      clock.Clock
	cfg        SubmissionConfig
	logger     *zap.Logger
	sleep      Sleeper

	mu     sync.Mutex
	guards map[slotKey]*semaphore.Weighted
}

// NewSubmissionService wires the pipeline. identity, artifacts and metrics may be nil.
func NewSubmissionService(
	validation *ValidationService,
	documents *DocumentService,
	renderer pdfRenderer,
	transport backend.Transport,
	drafts *DraftService,
	identity *IdentityService,
	artifacts *ArtifactService,
	metrics *MetricsService,
	clk clock.Clock,
	cfg SubmissionConfig,
	logger *zap.Logger,
) *SubmissionService {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = 30 * cfg.BaseDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 15 * time.Second
	}
	return &SubmissionService{
		validation: validation,
		documents:  documents,
		renderer:   renderer,
		transport:  transport,
		drafts:     drafts,
		identity:   identity,
		artifacts:  artifacts,
		metrics:    metrics,
		clock:      clk,
		cfg:        cfg,
		logger:     logger,
		sleep:      sleepContext,
		guards:     make(map[slotKey]*semaphore.Weighted),
	}
}

// UseSleeper replaces the backoff sleeper.
func (s *SubmissionService) UseSleeper(sleep Sleeper) {
	if sleep != nil {
		s.sleep = sleep
	}
}

// MaxAttempts is the attempt budget of one submission.
func (s *SubmissionService) MaxAttempts() int {
	return s.cfg.MaxAttempts
}

func (s *SubmissionService) guard(scope string, formType models.FormType) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey{scope: scope, formType: formType}
	g, ok := s.guards[key]
	if !ok {
		g = semaphore.NewWeighted(1)
		s.guards[key] = g
	}
	return g
}

// submissionRun tracks the state of one submission for its observer.
type submissionRun struct {
	formType    models.FormType
	maxAttempts int
	state       models.SubmissionState
	observe     Observer
}

func (r *submissionRun) to(state models.SubmissionState, attempt int, kind models.ErrorKind) {
	t := models.StateTransition{
		FormType:    r.formType,
		From:        r.state,
		To:          state,
		Attempt:     attempt,
		MaxAttempts: r.maxAttempts,
		ErrorKind:   kind,
	}
	r.state = state
	if r.observe != nil {
		r.observe(t)
	}
}

// Submit runs one submission sequence for (scope, fs.Type). A second call
// for the same pair while one is active fails with ErrSubmissionInFlight.
// Every other failure is reported in the outcome.
func (s *SubmissionService) Submit(ctx context.Context, scope string, fs models.FieldSet, observe Observer) (models.SubmissionOutcome, error) {
	guard := s.guard(scope, fs.Type)
	if !guard.TryAcquire(1) {
		return models.SubmissionOutcome{}, appErrors.ErrSubmissionInFlight
	}
	defer guard.Release(1)

	hold := s.drafts.Hold(scope, fs.Type)
	defer hold.Release()

	started := time.Now()
	run := &submissionRun{formType: fs.Type, maxAttempts: s.cfg.MaxAttempts, state: models.StateIdle, observe: observe}
	outcome := s.run(ctx, scope, s.identity.Prefill(ctx, scope, fs), hold, run)
	s.metrics.ObserveSubmission(fs.Type, outcome, time.Since(started))
	return outcome, nil
}

func (s *SubmissionService) run(ctx context.Context, scope string, fs models.FieldSet, hold *DraftHold, run *submissionRun) models.SubmissionOutcome {
	log := s.logger.With(zap.String("scope", scope), zap.String("form_type", string(fs.Type)))

	run.to(models.StateValidating, 0, "")
	result := s.validation.Validate(fs)
	if !result.IsValid {
		run.to(models.StateIdle, 0, models.ErrorKindValidation)
		return models.SubmissionOutcome{
			Message:     "Please correct the highlighted fields before submitting.",
			ErrorKind:   models.ErrorKindValidation,
			FieldErrors: result.FieldErrors,
		}
	}
	defer func() {
		if err := s.identity.Remember(context.WithoutCancel(ctx), scope, fs); err != nil {
			log.Warn("remember identity failed", zap.Error(err))
		}
	}()

	run.to(models.StatePreparing, 0, "")
	req, err := s.prepare(ctx, fs)
	if err != nil {
		log.Error("artifact generation failed", zap.Error(err))
		return s.fail(ctx, fs, hold, run, 0, models.ErrorKindArtifact, err, log)
	}

	reference := uuid.NewString()
	log = log.With(zap.String("reference", reference), zap.String("transport", s.transport.Name()))
	for attempt := 1; ; attempt++ {
		run.to(models.StateSubmitting, attempt, "")
		resp, err := s.attempt(ctx, req)
		if err == nil {
			s.metrics.ObserveSubmissionAttempt(s.transport.Name(), "")
			return s.succeed(ctx, reference, resp, req, hold, run, attempt, log)
		}

		kind := ClassifyError(err)
		s.metrics.ObserveSubmissionAttempt(s.transport.Name(), kind)
		if !kind.Retryable() || attempt >= s.cfg.MaxAttempts || ctx.Err() != nil {
			log.Error("submission attempt failed", zap.Int("attempt", attempt), zap.Int("max_attempts", s.cfg.MaxAttempts), zap.String("error_kind", string(kind)), zap.Error(err))
			return s.fail(ctx, fs, hold, run, attempt, kind, err, log)
		}

		delay := RetryBackoff(attempt, s.cfg.BaseDelay, s.cfg.MaxDelay)
		log.Warn("submission attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.MaxAttempts),
			zap.String("error_kind", string(kind)),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		run.to(models.StateRetrying, attempt, kind)
		if err := s.sleep(ctx, delay); err != nil {
			return s.fail(ctx, fs, hold, run, attempt, kind, err, log)
		}
	}
}

func (s *SubmissionService) prepare(ctx context.Context, fs models.FieldSet) (backend.Request, error) {
	model, err := s.documents.Build(fs)
	if err != nil {
		return backend.Request{}, fmt.Errorf("build document: %w", err)
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
	defer cancel()
	started := time.Now()
	pdf, err := s.renderer.Render(renderCtx, model.Report)
	s.metrics.ObserveRender(time.Since(started))
	if err != nil {
		return backend.Request{}, fmt.Errorf("render report: %w", err)
	}

	data, digest, err := s.documents.EncodeRecord(model.Record)
	if err != nil {
		return backend.Request{}, fmt.Errorf("encode record: %w", err)
	}

	base := AttachmentBaseName(fs, s.clock.Now())
	return backend.Request{
		Fields:       fs,
		PDF:          backend.Attachment{Filename: base + ".pdf", ContentType: "application/pdf", Data: pdf},
		Record:       backend.Attachment{Filename: base + ".json", ContentType: "application/json", Data: data},
		RecordDigest: digest,
	}, nil
}

func (s *SubmissionService) attempt(ctx context.Context, req backend.Request) (*backend.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()
	return s.transport.Submit(attemptCtx, req)
}

func (s *SubmissionService) succeed(ctx context.Context, reference string, resp *backend.Response, req backend.Request, hold *DraftHold, run *submissionRun, attempts int, log *zap.Logger) models.SubmissionOutcome {
	run.to(models.StateSucceeded, attempts, "")
	persistCtx := context.WithoutCancel(ctx)
	if err := hold.Clear(persistCtx); err != nil {
		log.Warn("clear draft after submission failed", zap.Error(err))
	}

	outcome := models.SubmissionOutcome{
		Success:      true,
		Reference:    reference,
		SubmissionID: resp.SubmissionID,
		TicketNumber: resp.TicketNumber,
		Attempts:     attempts,
		Message:      successMessage(resp),
	}
	links, err := s.artifacts.Archive(reference, req.PDF, req.Record)
	if err != nil {
		log.Warn("archive artifacts failed", zap.Error(err))
	}
	outcome.Artifacts = links
	log.Info("submission succeeded", zap.Int("attempts", attempts), zap.String("submission_id", resp.SubmissionID), zap.String("ticket_number", resp.TicketNumber))
	return outcome
}

func (s *SubmissionService) fail(ctx context.Context, fs models.FieldSet, hold *DraftHold, run *submissionRun, attempts int, kind models.ErrorKind, cause error, log *zap.Logger) models.SubmissionOutcome {
	_, err := hold.Save(context.WithoutCancel(ctx), fs)
	saved := err == nil
	if err != nil {
		log.Error("fallback draft write failed", zap.Error(err))
	} else {
		log.Info("fallback draft saved", zap.String("error_kind", string(kind)))
	}
	run.to(models.StateFailed, attempts, kind)
	return models.SubmissionOutcome{
		Message:    FailureMessage(kind, cause, saved),
		ErrorKind:  kind,
		Attempts:   attempts,
		DraftSaved: saved,
	}
}

func successMessage(resp *backend.Response) string {
	switch {
	case resp.TicketNumber != "":
		return fmt.Sprintf("Request submitted. Ticket number: %s", resp.TicketNumber)
	case resp.SubmissionID != "":
		return fmt.Sprintf("Request submitted. Submission ID: %s", resp.SubmissionID)
	default:
		return "Request submitted."
	}
}

// FailureMessage picks the user-facing text for a failed submission. Only a
// rejection quotes the server; transport details stay in the logs.
func FailureMessage(kind models.ErrorKind, cause error, draftSaved bool) string {
	var msg string
	switch kind {
	case models.ErrorKindArtifact:
		msg = "The request documents could not be generated."
	case models.ErrorKindRejected:
		msg = "The request was rejected."
		if server := rejectionMessage(cause); server != "" {
			msg = "The request was rejected: " + server
		}
	case models.ErrorKindTimeout:
		msg = "The submission service did not respond in time."
	case models.ErrorKindOffline:
		msg = "The submission service could not be reached. Check your network connection."
	case models.ErrorKindServer:
		msg = "The submission service is having problems."
	case models.ErrorKindRateLimited:
		msg = "The submission service is busy. Wait a moment before trying again."
	default:
		msg = "The request could not be submitted."
	}
	if draftSaved {
		return msg + " Your entries were saved as a draft."
	}
	return msg + " Your entries could not be saved as a draft, keep this page open."
}

func rejectionMessage(err error) string {
	var rejected *backend.RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	var status *backend.StatusError
	if errors.As(err, &status) {
		return status.Message
	}
	return ""
}

// ClassifyError maps a transport failure onto the error taxonomy.
func ClassifyError(err error) models.ErrorKind {
	if err == nil {
		return ""
	}
	var (
		rejected  *backend.RejectedError
		status    *backend.StatusError
		malformed *backend.MalformedResponseError
	)
	switch {
	case errors.As(err, &rejected):
		return models.ErrorKindRejected
	case errors.As(err, &status):
		switch {
		case status.StatusCode == http.StatusRequestTimeout:
			return models.ErrorKindTimeout
		case status.StatusCode == http.StatusTooManyRequests:
			return models.ErrorKindRateLimited
		case status.StatusCode >= 500:
			return models.ErrorKindServer
		default:
			return models.ErrorKindRejected
		}
	case errors.As(err, &malformed):
		return models.ErrorKindServer
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrorKindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrorKindTimeout
	}
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return models.ErrorKindOffline
	}
	return models.ErrorKindUnknown
}

// RetryBackoff is the delay after the given 1-based attempt: base doubled
// per prior attempt, capped at limit.
func RetryBackoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= limit || delay <= 0 {
			return limit
		}
	}
	if delay > limit {
		return limit
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
