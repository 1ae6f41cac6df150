package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
)

type draftRepository interface {
	Get(ctx context.Context, scope string, formType models.FormType) (*models.Draft, error)
	Save(ctx context.Context, scope string, draft models.Draft, ttl time.Duration) error
	Delete(ctx context.Context, scope string, formType models.FormType) error
}

// Draft write reasons reported to metrics.
const (
	DraftWriteManual   = "manual"
	DraftWriteAutosave = "autosave"
	DraftWriteFallback = "fallback"
)

// DraftConfig tunes draft persistence.
type DraftConfig struct {
	TTL          time.Duration
	Debounce     time.Duration
	WriteTimeout time.Duration
}

type slotKey struct {
	scope    string
	formType models.FormType
}

// draftSlot serialises every write to one (scope, form type) draft.
// write is held for each store write and for the whole of a submission.
type draftSlot struct {
	write sync.Mutex

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pending    *models.FieldSet
	held       bool
	// holds counts Hold calls so a writer queued behind a submission can
	// tell that one ran while it waited.
	holds uint64
}

// DraftService saves, restores and expires drafts. Debounced autosaves and
// submissions share one slot per (scope, form type).
type DraftService struct {
	repo    draftRepository
	clock   clock.Clock
	cfg     DraftConfig
	metrics *MetricsService
	logger  *zap.Logger

	mu      sync.Mutex
	slots   map[slotKey]*draftSlot
	flushes sync.WaitGroup
	closed  bool
}

// NewDraftService constructs a DraftService.
func NewDraftService(repo draftRepository, clk clock.Clock, cfg DraftConfig, metrics *MetricsService, logger *zap.Logger) *DraftService {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &DraftService{
		repo:    repo,
		clock:   clk,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		slots:   make(map[slotKey]*draftSlot),
	}
}

func (s *DraftService) slot(scope string, formType models.FormType) *draftSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey{scope: scope, formType: formType}
	sl, ok := s.slots[key]
	if !ok {
		sl = &draftSlot{}
		s.slots[key] = sl
	}
	return sl
}

// cancelPending drops a scheduled autosave. Callers hold sl.mu.
func (s *DraftService) cancelPending(sl *draftSlot) {
	sl.generation++
	sl.pending = nil
	if sl.timer != nil {
		if sl.timer.Stop() {
			s.flushes.Done()
		}
		sl.timer = nil
	}
}

// Save writes a draft immediately, superseding any scheduled autosave.
func (s *DraftService) Save(ctx context.Context, scope string, fs models.FieldSet) (models.Draft, error) {
	sl := s.slot(scope, fs.Type)
	if err := s.lockForWrite(sl); err != nil {
		return models.Draft{}, err
	}
	defer sl.write.Unlock()
	return s.write(ctx, scope, fs, DraftWriteManual)
}

// lockForWrite cancels any scheduled autosave and takes the slot's write
// lock. It fails when a submission holds the slot, or took it while the
// caller waited, since that submission's write must stay the last one.
func (s *DraftService) lockForWrite(sl *draftSlot) error {
	sl.mu.Lock()
	if sl.held {
		sl.mu.Unlock()
		return appErrors.ErrSubmissionInFlight
	}
	s.cancelPending(sl)
	holds := sl.holds
	sl.mu.Unlock()

	sl.write.Lock()
	sl.mu.Lock()
	superseded := sl.held || sl.holds != holds
	sl.mu.Unlock()
	if superseded {
		sl.write.Unlock()
		return appErrors.ErrSubmissionInFlight
	}
	return nil
}

func (s *DraftService) write(ctx context.Context, scope string, fs models.FieldSet, reason string) (models.Draft, error) {
	draft := models.DraftFromFieldSet(fs, s.clock.Now(), s.cfg.TTL)
	if err := s.repo.Save(ctx, scope, draft, s.cfg.TTL); err != nil {
		return models.Draft{}, fmt.Errorf("save draft: %w", err)
	}
	s.metrics.ObserveDraftWrite(reason)
	s.logger.Debug("draft saved", zap.String("scope", scope), zap.String("form_type", string(fs.Type)), zap.String("reason", reason))
	return draft, nil
}

// ScheduleSave debounces an autosave: only the last snapshot within the
// debounce window is written. It reports false when the slot is held by a
// submission and the snapshot was discarded.
func (s *DraftService) ScheduleSave(scope string, fs models.FieldSet) bool {
	sl := s.slot(scope, fs.Type)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.held {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.flushes.Add(1)
	s.mu.Unlock()

	s.cancelPending(sl)
	snapshot := fs
	sl.pending = &snapshot
	gen := sl.generation
	sl.timer = time.AfterFunc(s.cfg.Debounce, func() {
		defer s.flushes.Done()
		s.flush(scope, sl, gen)
	})
	return true
}

func (s *DraftService) flush(scope string, sl *draftSlot, gen uint64) {
	sl.write.Lock()
	defer sl.write.Unlock()

	sl.mu.Lock()
	if sl.generation != gen || sl.pending == nil {
		sl.mu.Unlock()
		return
	}
	fs := *sl.pending
	sl.pending = nil
	sl.timer = nil
	sl.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	if _, err := s.write(ctx, scope, fs, DraftWriteAutosave); err != nil {
		s.logger.Warn("autosave failed", zap.String("scope", scope), zap.String("form_type", string(fs.Type)), zap.Error(err))
	}
}

// Load returns the stored draft, or nil when none exists. Expired drafts are
// purged and reported as absent.
func (s *DraftService) Load(ctx context.Context, scope string, formType models.FormType) (*models.Draft, error) {
	draft, err := s.repo.Get(ctx, scope, formType)
	if err != nil {
		if errors.Is(err, appErrors.ErrDraftNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if draft.Expired(s.clock.Now()) {
		if err := s.repo.Delete(ctx, scope, formType); err != nil {
			s.logger.Warn("purge expired draft failed", zap.String("scope", scope), zap.Error(err))
		}
		return nil, nil
	}
	return draft, nil
}

// Clear removes the draft and any scheduled autosave.
func (s *DraftService) Clear(ctx context.Context, scope string, formType models.FormType) error {
	sl := s.slot(scope, formType)
	if err := s.lockForWrite(sl); err != nil {
		return err
	}
	defer sl.write.Unlock()
	return s.repo.Delete(ctx, scope, formType)
}

// AgeOf describes how long ago a draft was saved.
func (s *DraftService) AgeOf(draft models.Draft) string {
	return HumanizeAge(draft.SavedAt(), s.clock.Now())
}

// HumanizeAge renders the distance between then and now in coarse units.
func HumanizeAge(then, now time.Time) string {
	d := now.Sub(then)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	default:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
}

// DraftHold is exclusive ownership of a draft slot for one submission.
type DraftHold struct {
	svc      *DraftService
	slot     *draftSlot
	scope    string
	formType models.FormType
	once     sync.Once
}

// Hold cancels any scheduled autosave and locks the slot until Release.
// While held, autosaves are discarded and manual writes are refused, so the
// holder's own Save or Clear is the last write.
func (s *DraftService) Hold(scope string, formType models.FormType) *DraftHold {
	sl := s.slot(scope, formType)
	sl.mu.Lock()
	s.cancelPending(sl)
	sl.held = true
	sl.holds++
	sl.mu.Unlock()

	sl.write.Lock()
	return &DraftHold{svc: s, slot: sl, scope: scope, formType: formType}
}

// Save persists the fallback draft.
func (h *DraftHold) Save(ctx context.Context, fs models.FieldSet) (models.Draft, error) {
	return h.svc.write(ctx, h.scope, fs, DraftWriteFallback)
}

// Clear removes the draft after a successful submission.
func (h *DraftHold) Clear(ctx context.Context) error {
	return h.svc.repo.Delete(ctx, h.scope, h.formType)
}

// Release returns the slot. It is safe to call more than once.
func (h *DraftHold) Release() {
	h.once.Do(func() {
		h.slot.mu.Lock()
		h.slot.held = false
		h.slot.mu.Unlock()
		h.slot.write.Unlock()
	})
}

// Close cancels scheduled autosaves and waits for running ones.
func (s *DraftService) Close() {
	s.mu.Lock()
	s.closed = true
	slots := make([]*draftSlot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.Unlock()

	for _, sl := range slots {
		sl.mu.Lock()
		s.cancelPending(sl)
		sl.mu.Unlock()
	}
	s.flushes.Wait()
}
