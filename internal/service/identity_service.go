package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
)

type identityRepository interface {
	Get(ctx context.Context, scope string) (*models.Identity, error)
	Upsert(ctx context.Context, identity *models.Identity) error
}

// IdentityService remembers the investigator contact block between requests.
// A nil repository or a disabled service turns every call into a no-op.
type IdentityService struct {
	repo    identityRepository
	enabled bool
	clock   clock.Clock
	logger  *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(repo identityRepository, enabled bool, clk clock.Clock, logger *zap.Logger) *IdentityService {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{repo: repo, enabled: enabled && repo != nil, clock: clk, logger: logger}
}

// Enabled reports whether identity memory is active.
func (s *IdentityService) Enabled() bool {
	return s != nil && s.enabled
}

// Get returns the remembered identity of a scope.
func (s *IdentityService) Get(ctx context.Context, scope string) (*models.Identity, error) {
	if !s.Enabled() {
		return nil, appErrors.ErrNotFound
	}
	return s.repo.Get(ctx, scope)
}

// Prefill copies remembered values into empty contact fields. Lookup failures
// are logged and the field set is returned unchanged.
func (s *IdentityService) Prefill(ctx context.Context, scope string, fs models.FieldSet) models.FieldSet {
	if !s.Enabled() {
		return fs
	}
	identity, err := s.repo.Get(ctx, scope)
	if err != nil {
		if !errors.Is(err, appErrors.ErrNotFound) {
			s.logger.Warn("identity lookup failed", zap.String("scope", scope), zap.Error(err))
		}
		return fs
	}
	fill := func(fs models.FieldSet, f models.Field, value string) models.FieldSet {
		if fs.Get(f) == "" && value != "" {
			return fs.With(f, value)
		}
		return fs
	}
	fs = fill(fs, models.FieldRequestingName, identity.Name)
	fs = fill(fs, models.FieldBadge, identity.Badge)
	fs = fill(fs, models.FieldRequestingPhone, identity.Phone)
	fs = fill(fs, models.FieldRequestingEmail, identity.Email)
	return fs
}

// Remember stores the contact block of fs. Empty blocks are ignored.
func (s *IdentityService) Remember(ctx context.Context, scope string, fs models.FieldSet) error {
	if !s.Enabled() {
		return nil
	}
	identity := models.IdentityFromFieldSet(scope, fs)
	if identity.Empty() {
		return nil
	}
	identity.UpdatedAt = s.clock.Now().UTC()
	return s.repo.Upsert(ctx, &identity)
}
