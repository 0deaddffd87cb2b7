// Package disposition decides what durable writes a feedback report
// produces and applies them as one atomic unit.
//
// The decision is a pure function of (report kind, profile presence,
// self-match) so the full branch table is testable without a database:
//
//	profile absent            -> no writes, warning
//	bounce, self-match        -> mute profile + profile report
//	bounce permanent          -> profile report + global report per external recipient
//	bounce transient          -> profile report only
//	complaint, self-match     -> mute profile + profile report
//	complaint                 -> profile report + global report per recipient
//	other                     -> no writes, warning
package disposition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/feedback-gateway/internal/notification"
	"github.com/ignite/feedback-gateway/internal/pkg/logger"
)

// CategoryPermanent is the bounce category that triggers global suppression
// of external recipients.
const CategoryPermanent = "permanent"

// Profile is the subject on whose behalf the bounced/complained mail was
// sent.
type Profile struct {
	ID          string
	Email       string
	IsMuted     bool
	AuthBackend string
}

// ProfileReportInsert is one row for the per-profile complaint history.
type ProfileReportInsert struct {
	ProfileID string
	Type      string
	Content   []byte
}

// GlobalReportInsert is one row for the global do-not-email list, keyed by
// the harmed recipient address, never by the profile.
type GlobalReportInsert struct {
	Email   string
	Content []byte
}

// Plan is the write set a single report produces. An empty plan carries the
// reason nothing is written.
type Plan struct {
	MuteProfile   bool
	ProfileID     string
	ProfileReport *ProfileReportInsert
	GlobalReports []GlobalReportInsert
	SkipReason    string
}

// Empty reports whether the plan performs no durable writes.
func (p Plan) Empty() bool {
	return !p.MuteProfile && p.ProfileReport == nil && len(p.GlobalReports) == 0
}

// Decide maps a normalized report and an optionally resolved profile to the
// write set from the branch table above. It performs no I/O.
func Decide(report *notification.Report, profile *Profile) Plan {
	if profile == nil {
		return Plan{SkipReason: "no verified profile identity on message"}
	}

	switch report.Kind {
	case notification.KindBounce, notification.KindComplaint:
	default:
		return Plan{SkipReason: fmt.Sprintf("unrecognized notification type %q", report.Category)}
	}

	content, err := json.Marshal(report)
	if err != nil {
		// Report is built from decoded JSON, so this should not happen.
		return Plan{SkipReason: fmt.Sprintf("report not serializable: %v", err)}
	}

	plan := Plan{
		ProfileID: profile.ID,
		ProfileReport: &ProfileReportInsert{
			ProfileID: profile.ID,
			Type:      string(report.Kind),
			Content:   content,
		},
	}

	if selfMatch(report, profile) {
		// The profile is blocking mail sent to itself; mute it and record
		// nothing against third-party addresses.
		plan.MuteProfile = true
		return plan
	}

	if report.Kind == notification.KindBounce && report.Category != CategoryPermanent {
		// Transient bounces never trigger global suppression.
		return plan
	}

	seen := make(map[string]struct{}, len(report.Recipients))
	for _, r := range report.Recipients {
		email := strings.ToLower(strings.TrimSpace(r.Email))
		if email == "" || strings.EqualFold(email, profile.Email) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		plan.GlobalReports = append(plan.GlobalReports, GlobalReportInsert{Email: email, Content: content})
	}
	return plan
}

func selfMatch(report *notification.Report, profile *Profile) bool {
	for _, r := range report.Recipients {
		if strings.EqualFold(r.Email, profile.Email) {
			return true
		}
	}
	return false
}

// Store applies a plan inside a single transaction.
type Store interface {
	Apply(ctx context.Context, plan Plan) error
}

// SuppressionSink is notified after a global suppression row commits, e.g.
// to prime a cache or mirror the address to a provider-side list.
type SuppressionSink interface {
	SuppressionRecorded(ctx context.Context, email, kind string)
}

// Engine runs the decide/apply pair for one report.
type Engine struct {
	store Store
	sinks []SuppressionSink
}

// NewEngine creates an engine writing through store and notifying sinks
// after commit.
func NewEngine(store Store, sinks ...SuppressionSink) *Engine {
	return &Engine{store: store, sinks: sinks}
}

// Process decides and applies the write set for one report. Empty plans are
// logged as warnings and succeed. A storage failure rolls back every write
// and is returned to the caller; the webhook still acknowledges the
// provider, so the error exists for operator logs only.
func (e *Engine) Process(ctx context.Context, report *notification.Report, profile *Profile) (Plan, error) {
	plan := Decide(report, profile)
	if plan.Empty() {
		logger.Warn("feedback report produced no writes",
			"reason", plan.SkipReason,
			"kind", string(report.Kind),
			"feedback_id", report.FeedbackID,
		)
		return plan, nil
	}

	start := time.Now()
	if err := e.store.Apply(ctx, plan); err != nil {
		return plan, fmt.Errorf("apply disposition: %w", err)
	}

	logger.Info("feedback report recorded",
		"profile_id", plan.ProfileID,
		"kind", string(report.Kind),
		"muted", plan.MuteProfile,
		"global_reports", len(plan.GlobalReports),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	for _, g := range plan.GlobalReports {
		for _, sink := range e.sinks {
			sink.SuppressionRecorded(ctx, g.Email, string(report.Kind))
		}
	}
	return plan, nil
}
