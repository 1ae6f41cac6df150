package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
)

type memoryDraftRepo struct {
	mu      sync.Mutex
	drafts  map[string]models.Draft
	saves   int
	deletes int
}

func newMemoryDraftRepo() *memoryDraftRepo {
	return &memoryDraftRepo{drafts: make(map[string]models.Draft)}
}

func (r *memoryDraftRepo) key(scope string, formType models.FormType) string {
	return scope + ":" + string(formType)
}

func (r *memoryDraftRepo) Get(_ context.Context, scope string, formType models.FormType) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[r.key(scope, formType)]
	if !ok {
		return nil, appErrors.ErrDraftNotFound
	}
	return &d, nil
}

func (r *memoryDraftRepo) Save(_ context.Context, scope string, draft models.Draft, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[r.key(scope, draft.FormType)] = draft
	r.saves++
	return nil
}

func (r *memoryDraftRepo) Delete(_ context.Context, scope string, formType models.FormType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, r.key(scope, formType))
	r.deletes++
	return nil
}

func (r *memoryDraftRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newDraftForTest(repo draftRepository, clk clock.Clock) *DraftService {
	return NewDraftService(repo, clk, DraftConfig{TTL: 7 * 24 * time.Hour, Debounce: 10 * time.Millisecond}, nil, nil)
}

func TestDraftSaveAndLoad(t *testing.T) {
	defer goleak.VerifyNone(t)
	repo := newMemoryDraftRepo()
	svc := newDraftForTest(repo, clock.Fixed(fixtureNow))
	defer svc.Close()

	fs := validUpload()
	saved, err := svc.Save(context.Background(), "desk-1", fs)
	require.NoError(t, err)
	require.Equal(t, fixtureNow.UnixMilli(), saved.SavedAtEpochMs)

	loaded, err := svc.Load(context.Background(), "desk-1", models.FormTypeUpload)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	restored := loaded.FieldSet()
	require.Equal(t, fs.Get(models.FieldOccurrenceNum), restored.Get(models.FieldOccurrenceNum))
	require.Len(t, restored.Locations(), 1)

	missing, err := svc.Load(context.Background(), "desk-2", models.FormTypeUpload)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDraftLoadPurgesExpired(t *testing.T) {
	repo := newMemoryDraftRepo()
	clk := &movableClock{now: fixtureNow}
	svc := newDraftForTest(repo, clk)
	defer svc.Close()

	_, err := svc.Save(context.Background(), "desk-1", validRecovery())
	require.NoError(t, err)

	clk.Advance(8 * 24 * time.Hour)
	loaded, err := svc.Load(context.Background(), "desk-1", models.FormTypeRecovery)
	require.NoError(t, err)
	require.Nil(t, loaded)
	require.Equal(t, 1, repo.deletes)
	require.Empty(t, repo.drafts)
}

func TestScheduleSaveCoalescesBursts(t *testing.T) {
	defer goleak.VerifyNone(t)
	repo := newMemoryDraftRepo()
	svc := newDraftForTest(repo, clock.Fixed(fixtureNow))

	for _, occ := range []string{"PR1", "PR12", "PR123"} {
		require.True(t, svc.ScheduleSave("desk-1", validUpload().With(models.FieldOccurrenceNum, occ)))
	}

	require.Eventually(t, func() bool { return repo.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	svc.Close()

	loaded, err := svc.Load(context.Background(), "desk-1", models.FormTypeUpload)
	require.NoError(t, err)
	require.Equal(t, "PR123", loaded.Data[string(models.FieldOccurrenceNum)])
	require.Equal(t, 1, repo.saveCount())
}

func TestManualSaveSupersedesScheduled(t *testing.T) {
	defer goleak.VerifyNone(t)
	repo := newMemoryDraftRepo()
	svc := NewDraftService(repo, clock.Fixed(fixtureNow), DraftConfig{Debounce: time.Hour}, nil, nil)

	require.True(t, svc.ScheduleSave("desk-1", validUpload().With(models.FieldOccurrenceNum, "PR1")))
	_, err := svc.Save(context.Background(), "desk-1", validUpload().With(models.FieldOccurrenceNum, "PR2"))
	require.NoError(t, err)
	svc.Close()

	require.Equal(t, 1, repo.saveCount())
	require.Equal(t, "PR2", repo.drafts["desk-1:upload"].Data[string(models.FieldOccurrenceNum)])
}

func TestHoldCancelsAutosaveAndRefusesWrites(t *testing.T) {
	defer goleak.VerifyNone(t)
	repo := newMemoryDraftRepo()
	svc := NewDraftService(repo, clock.Fixed(fixtureNow), DraftConfig{Debounce: time.Hour}, nil, nil)
	defer svc.Close()

	require.True(t, svc.ScheduleSave("desk-1", validUpload()))
	hold := svc.Hold("desk-1", models.FormTypeUpload)

	require.False(t, svc.ScheduleSave("desk-1", validUpload()))
	_, err := svc.Save(context.Background(), "desk-1", validUpload())
	require.ErrorIs(t, err, appErrors.ErrSubmissionInFlight)
	require.ErrorIs(t, svc.Clear(context.Background(), "desk-1", models.FormTypeUpload), appErrors.ErrSubmissionInFlight)

	// Other form types are independent.
	_, err = svc.Save(context.Background(), "desk-1", validAnalysis())
	require.NoError(t, err)

	_, err = hold.Save(context.Background(), validUpload())
	require.NoError(t, err)
	hold.Release()
	hold.Release()

	require.Equal(t, 2, repo.saveCount())
	require.NoError(t, svc.Clear(context.Background(), "desk-1", models.FormTypeUpload))
	require.NotContains(t, repo.drafts, "desk-1:upload")
}

// gatedDraftRepo parks the first Save until gate is closed.
type gatedDraftRepo struct {
	*memoryDraftRepo
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func (r *gatedDraftRepo) Save(ctx context.Context, scope string, draft models.Draft, ttl time.Duration) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.gate
	})
	return r.memoryDraftRepo.Save(ctx, scope, draft, ttl)
}

func TestQueuedSaveYieldsToSubmissionThatTookSlot(t *testing.T) {
	defer goleak.VerifyNone(t)
	repo := &gatedDraftRepo{memoryDraftRepo: newMemoryDraftRepo(), entered: make(chan struct{}), gate: make(chan struct{})}
	svc := NewDraftService(repo, clock.Fixed(fixtureNow), DraftConfig{Debounce: time.Hour}, nil, nil)
	defer svc.Close()
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := svc.Save(ctx, "desk-1", validUpload().With(models.FieldOccurrenceNum, "PR1"))
		first <- err
	}()
	<-repo.entered

	queued := make(chan error, 1)
	go func() {
		_, err := svc.Save(ctx, "desk-1", validUpload().With(models.FieldOccurrenceNum, "PR2"))
		queued <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cleared := make(chan error, 1)
	go func() {
		hold := svc.Hold("desk-1", models.FormTypeUpload)
		defer hold.Release()
		cleared <- hold.Clear(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	close(repo.gate)

	require.NoError(t, <-first)
	require.NoError(t, <-cleared)
	require.ErrorIs(t, <-queued, appErrors.ErrSubmissionInFlight)

	loaded, err := svc.Load(ctx, "desk-1", models.FormTypeUpload)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestScheduleSaveAfterCloseIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)
	repo := newMemoryDraftRepo()
	svc := newDraftForTest(repo, clock.Fixed(fixtureNow))
	svc.Close()

	require.False(t, svc.ScheduleSave("desk-1", validUpload()))
	require.Zero(t, repo.saveCount())
}

func TestHumanizeAge(t *testing.T) {
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HumanizeAge(fixtureNow.Add(-tc.ago), fixtureNow), tc.want)
	}
}
