// Package postgres holds the SQL repositories for profiles and complaint
// reports.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/feedback-gateway/internal/disposition"
)

// ErrProfileNotFound is returned when a profile ID resolves to no row.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepo reads profiles referenced by verified identity tokens.
type ProfileRepo struct{ db *sql.DB }

// NewProfileRepo creates a Postgres-backed profile repository.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// GetByID loads one profile by its ID.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*disposition.Profile, error) {
	var p disposition.Profile
	var authBackend sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, is_muted, auth_backend
		FROM profile
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Email, &p.IsMuted, &authBackend)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.AuthBackend = authBackend.String
	return &p, nil
}
