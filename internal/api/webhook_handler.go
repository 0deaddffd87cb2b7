package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ignite/feedback-gateway/internal/disposition"
	"github.com/ignite/feedback-gateway/internal/identity"
	"github.com/ignite/feedback-gateway/internal/notification"
	"github.com/ignite/feedback-gateway/internal/pkg/logger"
	"github.com/ignite/feedback-gateway/internal/repository/postgres"
	"github.com/ignite/feedback-gateway/internal/suppression"
)

// Handlers holds the wired dependencies for the HTTP surface.
type Handlers struct {
	profiles      *postgres.ProfileRepo
	feedback      *postgres.FeedbackStore
	extractor     *identity.Extractor
	engine        *disposition.Engine
	checker       *suppression.Checker
	confirmClient *http.Client
	maxBodyBytes  int64
	pinger        Pinger
}

// Pinger is the health-check slice of *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHandlers wires the webhook and operator handlers.
func NewHandlers(
	profiles *postgres.ProfileRepo,
	feedback *postgres.FeedbackStore,
	extractor *identity.Extractor,
	engine *disposition.Engine,
	checker *suppression.Checker,
	confirmClient *http.Client,
	maxBodyBytes int64,
	pinger Pinger,
) *Handlers {
	if confirmClient == nil {
		confirmClient = &http.Client{Timeout: 10 * time.Second}
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 5 * 1024 * 1024
	}
	return &Handlers{
		profiles:      profiles,
		feedback:      feedback,
		extractor:     extractor,
		engine:        engine,
		checker:       checker,
		confirmClient: confirmClient,
		maxBodyBytes:  maxBodyBytes,
		pinger:        pinger,
	}
}

// HandleFeedbackWebhook receives provider delivery notifications. The
// provider contract requires a 200 response no matter what happens
// internally; a non-200 would only trigger retry storms that cannot fix any
// of the failure classes below. All failure detail goes to logs.
func (h *Handlers) HandleFeedbackWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("webhook body read failed", "error", err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}

	env := notification.Decode(body)
	switch env.Kind {
	case notification.EnvelopeSubscriptionConfirmation:
		h.confirmSubscription(env.SubscribeURL)
	case notification.EnvelopeNotification:
		h.processNotification(r.Context(), []byte(env.Message))
	default:
		logger.Warn("unrecognized webhook envelope", "body", string(env.Raw))
	}

	w.WriteHeader(http.StatusOK)
}

// confirmSubscription issues the one-time outbound confirmation call.
// Best-effort: the provider re-sends the confirmation if this fails.
func (h *Handlers) confirmSubscription(subscribeURL string) {
	if subscribeURL == "" {
		logger.Warn("subscription confirmation without SubscribeURL")
		return
	}
	resp, err := h.confirmClient.Get(subscribeURL)
	if err != nil {
		logger.Error("subscription confirmation failed", "error", err.Error())
		return
	}
	resp.Body.Close()
	logger.Info("webhook subscription confirmed", "status", resp.StatusCode)
}

func (h *Handlers) processNotification(ctx context.Context, message []byte) {
	report, err := notification.Normalize(message)
	if errors.Is(err, notification.ErrIncompleteNotification) {
		// Provider is not configured to forward full headers; without them
		// identity extraction is impossible. Operator problem, not input
		// noise.
		logger.Error("notification missing mail block", "message", string(message))
		return
	}
	if err != nil {
		logger.Warn("undecodable notification message", "error", err.Error())
		return
	}

	var profile *disposition.Profile
	if profileID, ok := h.extractor.Extract(ctx, report.Mail.Headers); ok {
		p, err := h.profiles.GetByID(ctx, profileID)
		if err != nil {
			logger.Warn("verified identity resolves to no profile",
				"profile_id", profileID, "error", err.Error())
		} else {
			profile = p
			report.ProfileID = profileID
		}
	}

	if _, err := h.engine.Process(ctx, report, profile); err != nil {
		logger.Error("feedback disposition failed",
			"kind", string(report.Kind),
			"feedback_id", report.FeedbackID,
			"error", err.Error(),
		)
	}
}
