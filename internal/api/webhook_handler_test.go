package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/feedback-gateway/internal/disposition"
	"github.com/ignite/feedback-gateway/internal/identity"
	"github.com/ignite/feedback-gateway/internal/repository/postgres"
	"github.com/ignite/feedback-gateway/internal/suppression"
)

type stubVerifier struct {
	subject string
	err     error
}

func (s stubVerifier) Verify(_ context.Context, _, _ string) (string, error) {
	return s.subject, s.err
}

func setupHandlers(t *testing.T, verifier identity.Verifier) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	profiles := postgres.NewProfileRepo(db)
	feedback := postgres.NewFeedbackStore(db)
	extractor := identity.NewExtractor(verifier, "")
	engine := disposition.NewEngine(feedback)
	checker := suppression.NewChecker(feedback, nil, 0)

	h := NewHandlers(profiles, feedback, extractor, engine, checker, nil, 0, db)
	return h, mock
}

// notificationBody wraps an inner SES message into the SNS envelope the
// provider actually POSTs.
func notificationBody(t *testing.T, inner string) string {
	t.Helper()
	encoded, err := json.Marshal(inner)
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf(`{"Type": "Notification", "Message": %s}`, encoded)
}

func bounceMessage(bounceType, recipient string) string {
	return fmt.Sprintf(`{
		"notificationType": "Bounce",
		"bounce": {
			"bounceType": %q,
			"bounceSubType": "General",
			"bouncedRecipients": [{"emailAddress": %q}]
		},
		"mail": {
			"source": "news@sender.example",
			"destination": [%q],
			"headers": [{"name": "X-Ignite-Profile-Data", "value": "signed-token"}]
		}
	}`, bounceType, recipient, recipient)
}

func postWebhook(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/feedback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleFeedbackWebhook(rec, req)
	return rec
}

func expectProfileLookup(mock sqlmock.Sqlmock, id, email string) {
	mock.ExpectQuery(`SELECT id, email, is_muted, auth_backend`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "email", "is_muted", "auth_backend"},
		).AddRow(id, email, false, nil))
}

func TestWebhookPermanentBounceExternalRecipient(t *testing.T) {
	h, mock := setupHandlers(t, stubVerifier{subject: "p-1"})

	expectProfileLookup(mock, "p-1", "attacker@example.com")
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO profile_complaint_report`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO global_complaint_report`).
		WithArgs("victim@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := postWebhook(t, h, notificationBody(t, bounceMessage("Permanent", "Victim@Example.com")))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWebhookBounceSelfMatchMutesProfile(t *testing.T) {
	h, mock := setupHandlers(t, stubVerifier{subject: "p-1"})

	// Same bounce, but the profile's own address is the one bouncing:
	// mute + profile record, zero global rows.
	expectProfileLookup(mock, "p-1", "victim@example.com")
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE profile SET is_muted = true`).
		WithArgs("p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO profile_complaint_report`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := postWebhook(t, h, notificationBody(t, bounceMessage("Permanent", "Victim@Example.com")))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWebhookUnverifiableIdentityNoWrites(t *testing.T) {
	h, mock := setupHandlers(t, stubVerifier{err: errors.New("bad signature")})

	rec := postWebhook(t, h, notificationBody(t, bounceMessage("Permanent", "victim@example.com")))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	// No profile lookup, no transaction.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestWebhookMissingMailBlockNoWrites(t *testing.T) {
	h, mock := setupHandlers(t, stubVerifier{subject: "p-1"})

	inner := `{"notificationType": "Bounce", "bounce": {"bounceType": "Permanent"}}`
	rec := postWebhook(t, h, notificationBody(t, inner))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 even for incomplete notification", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("incomplete notification must never reach the store: %v", err)
	}
}

func TestWebhookMalformedBodyStillAcknowledged(t *testing.T) {
	h, mock := setupHandlers(t, stubVerifier{subject: "p-1"})

	rec := postWebhook(t, h, "this is not json")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestWebhookStorageFailureStillAcknowledged(t *testing.T) {
	h, mock := setupHandlers(t, stubVerifier{subject: "p-1"})

	expectProfileLookup(mock, "p-1", "attacker@example.com")
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO profile_complaint_report`).
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	rec := postWebhook(t, h, notificationBody(t, bounceMessage("Permanent", "victim@example.com")))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite storage failure", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWebhookSubscriptionConfirmation(t *testing.T) {
	confirmed := make(chan struct{}, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		confirmed <- struct{}{}
	}))
	defer ts.Close()

	h, mock := setupHandlers(t, stubVerifier{})

	body := fmt.Sprintf(`{"Type": "SubscriptionConfirmation", "SubscribeURL": %q}`, ts.URL)
	rec := postWebhook(t, h, body)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	select {
	case <-confirmed:
	default:
		t.Error("SubscribeURL was not fetched")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestWebhookComplaintExternalRecipients(t *testing.T) {
	h, mock := setupHandlers(t, stubVerifier{subject: "p-9"})

	inner := `{
		"notificationType": "Complaint",
		"complaint": {
			"complaintFeedbackType": "abuse",
			"complainedRecipients": [
				{"emailAddress": "One@Example.com"},
				{"emailAddress": "two@example.com"}
			]
		},
		"mail": {
			"source": "news@sender.example",
			"headers": [{"name": "x-ignite-profile-data", "value": "signed-token"}]
		}
	}`

	expectProfileLookup(mock, "p-9", "owner@example.com")
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO profile_complaint_report`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO global_complaint_report`).
		WithArgs("one@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO global_complaint_report`).
		WithArgs("two@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := postWebhook(t, h, notificationBody(t, inner))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
