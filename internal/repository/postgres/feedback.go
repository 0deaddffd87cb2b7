package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/feedback-gateway/internal/disposition"
)

// FeedbackStore persists disposition write sets and answers suppression
// lookups.
type FeedbackStore struct{ db *sql.DB }

// NewFeedbackStore creates a Postgres-backed feedback store.
func NewFeedbackStore(db *sql.DB) *FeedbackStore { return &FeedbackStore{db: db} }

// Apply executes every write in the plan inside one transaction. Either the
// profile mute, the profile report, and all global reports commit together,
// or none do.
func (s *FeedbackStore) Apply(ctx context.Context, plan disposition.Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin disposition tx: %w", err)
	}
	defer tx.Rollback()

	if plan.MuteProfile {
		if _, err := tx.ExecContext(ctx,
			`UPDATE profile SET is_muted = true WHERE id = $1`,
			plan.ProfileID,
		); err != nil {
			return fmt.Errorf("mute profile: %w", err)
		}
	}

	if plan.ProfileReport != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profile_complaint_report (id, profile_id, type, content, created_at)
			VALUES ($1, $2, $3, $4, NOW())
		`, uuid.New(), plan.ProfileReport.ProfileID, plan.ProfileReport.Type, plan.ProfileReport.Content); err != nil {
			return fmt.Errorf("insert profile report: %w", err)
		}
	}

	for _, g := range plan.GlobalReports {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO global_complaint_report (email, created_at, content)
			VALUES ($1, NOW(), $2)
		`, g.Email, g.Content); err != nil {
			return fmt.Errorf("insert global report for %s: %w", g.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit disposition tx: %w", err)
	}
	return nil
}

// GlobalExists reports whether any global suppression row exists for the
// address. Presence of a row is a hard suppression signal for the sending
// path.
func (s *FeedbackStore) GlobalExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM global_complaint_report WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check global suppression: %w", err)
	}
	return exists, nil
}

// ProfileReport is one row of a profile's complaint history.
type ProfileReport struct {
	ID        string          `json:"id"`
	ProfileID string          `json:"profile_id"`
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListProfileReports returns the most recent non-expired complaint history
// for a profile, newest first.
func (s *FeedbackStore) ListProfileReports(ctx context.Context, profileID string, limit int) ([]ProfileReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, type, content, created_at
		FROM profile_complaint_report
		WHERE profile_id = $1 AND is_expired = false
		ORDER BY created_at DESC
		LIMIT $2
	`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("list profile reports: %w", err)
	}
	defer rows.Close()

	var out []ProfileReport
	for rows.Next() {
		var r ProfileReport
		if err := rows.Scan(&r.ID, &r.ProfileID, &r.Type, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExpireProfileReports flags profile complaint rows older than the window as
// expired and returns how many were flagged. Global rows are never aged out.
func (s *FeedbackStore) ExpireProfileReports(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profile_complaint_report
		SET is_expired = true
		WHERE is_expired = false AND created_at < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int64(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("expire profile reports: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
