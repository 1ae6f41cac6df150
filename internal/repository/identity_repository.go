package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fvu-intake/internal/models"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
)

// IdentityRepository persists the last-used investigator contact per scope.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository constructs the repository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

const identitySchema = `CREATE TABLE IF NOT EXISTS investigator_identities (
    scope TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    badge TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the identity table when missing.
func (r *IdentityRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, identitySchema); err != nil {
		return fmt.Errorf("ensure identity schema: %w", err)
	}
	return nil
}

// Get fetches the identity of a scope.
func (r *IdentityRepository) Get(ctx context.Context, scope string) (*models.Identity, error) {
	const query = `SELECT scope, name, badge, phone, email, updated_at FROM investigator_identities WHERE scope = $1`
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}

// Upsert inserts or replaces the identity of a scope.
func (r *IdentityRepository) Upsert(ctx context.Context, identity *models.Identity) error {
	const query = `INSERT INTO investigator_identities (scope, name, badge, phone, email, updated_at)
VALUES (:scope, :name, :badge, :phone, :email, :updated_at)
ON CONFLICT (scope)
DO UPDATE SET name = EXCLUDED.name, badge = EXCLUDED.badge, phone = EXCLUDED.phone,
              email = EXCLUDED.email, updated_at = EXCLUDED.updated_at`
	if identity.UpdatedAt.IsZero() {
		identity.UpdatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, identity); err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// Delete forgets the identity of a scope.
func (r *IdentityRepository) Delete(ctx context.Context, scope string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM investigator_identities WHERE scope = $1`, scope); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
