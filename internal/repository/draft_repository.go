package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/fvu-intake/internal/models"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
)

// ErrDraftStoreUnavailable reports a draft write with no backing store.
var ErrDraftStoreUnavailable = errors.New("draft store unavailable")

// RedisDraftRepository keeps one draft per (scope, form type) under a TTL.
type RedisDraftRepository struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisDraftRepository constructs the repository.
func NewRedisDraftRepository(client *redis.Client, prefix string, logger *zap.Logger) *RedisDraftRepository {
	if prefix == "" {
		prefix = "fvu:draft"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisDraftRepository{client: client, prefix: prefix, logger: logger}
}

// Key returns the Redis key of a draft slot.
func (r *RedisDraftRepository) Key(scope string, formType models.FormType) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, scope, formType)
}

// Get loads a draft. A missing key yields ErrDraftNotFound.
func (r *RedisDraftRepository) Get(ctx context.Context, scope string, formType models.FormType) (*models.Draft, error) {
	if r.client == nil {
		return nil, appErrors.ErrDraftNotFound
	}
	key := r.Key(scope, formType)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrDraftNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft %s: %w", key, err)
	}
	return &draft, nil
}

// Save stores a draft, replacing any previous one. ttl <= 0 keeps it forever.
func (r *RedisDraftRepository) Save(ctx context.Context, scope string, draft models.Draft, ttl time.Duration) error {
	if r.client == nil {
		return ErrDraftStoreUnavailable
	}
	key := r.Key(scope, draft.FormType)
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a draft slot.
func (r *RedisDraftRepository) Delete(ctx context.Context, scope string, formType models.FormType) error {
	if r.client == nil {
		return nil
	}
	key := r.Key(scope, formType)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
}

// FileDraftRepository keeps drafts as JSON files. Expiry is enforced by the
// caller from the draft's own timestamps.
type FileDraftRepository struct {
	store  fileStore
	logger *zap.Logger
}

// NewFileDraftRepository constructs the repository.
func NewFileDraftRepository(store fileStore, logger *zap.Logger) *FileDraftRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileDraftRepository{store: store, logger: logger}
}

// Filename returns the relative path of a draft slot. Scopes are encoded so
// arbitrary session identifiers map to safe, distinct names.
func (r *FileDraftRepository) Filename(scope string, formType models.FormType) string {
	return fmt.Sprintf("%s/%s.json", base64.RawURLEncoding.EncodeToString([]byte(scope)), formType)
}

// Get loads a draft. A missing file yields ErrDraftNotFound.
func (r *FileDraftRepository) Get(_ context.Context, scope string, formType models.FormType) (*models.Draft, error) {
	name := r.Filename(scope, formType)
	raw, err := r.store.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.ErrDraftNotFound
		}
		return nil, err
	}
	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft %s: %w", name, err)
	}
	return &draft, nil
}

// Save writes a draft file.
func (r *FileDraftRepository) Save(_ context.Context, scope string, draft models.Draft, _ time.Duration) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = r.store.Save(r.Filename(scope, draft.FormType), payload)
	return err
}

// Delete removes a draft file.
func (r *FileDraftRepository) Delete(_ context.Context, scope string, formType models.FormType) error {
	return r.store.Delete(r.Filename(scope, formType))
}
