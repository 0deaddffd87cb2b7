package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteNotification is returned when a notification message carries
// no mail block. Without the original headers the profile identity cannot be
// extracted, so this is a configuration fault on the provider side, not a
// normal degraded input.
var ErrIncompleteNotification = errors.New("incomplete notification: missing mail block")

type sesRecipient struct {
	EmailAddress   string `json:"emailAddress"`
	Status         string `json:"status"`
	Action         string `json:"action"`
	DiagnosticCode string `json:"diagnosticCode"`
}

type sesBounce struct {
	BounceType        string         `json:"bounceType"`
	BounceSubType     string         `json:"bounceSubType"`
	BouncedRecipients []sesRecipient `json:"bouncedRecipients"`
	FeedbackID        string         `json:"feedbackId"`
	Timestamp         string         `json:"timestamp"`
}

type sesComplaint struct {
	ComplaintFeedbackType string         `json:"complaintFeedbackType"`
	ComplaintSubType      string         `json:"complaintSubType"`
	ComplainedRecipients  []sesRecipient `json:"complainedRecipients"`
	FeedbackID            string         `json:"feedbackId"`
	UserAgent             string         `json:"userAgent"`
	ArrivalDate           string         `json:"arrivalDate"`
}

type sesMail struct {
	Source        string   `json:"source"`
	Destination   []string `json:"destination"`
	Timestamp     string   `json:"timestamp"`
	CommonHeaders struct {
		Subject string `json:"subject"`
	} `json:"commonHeaders"`
	Headers []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
}

type sesMessage struct {
	NotificationType string        `json:"notificationType"`
	Bounce           *sesBounce    `json:"bounce"`
	Complaint        *sesComplaint `json:"complaint"`
	Mail             *sesMail      `json:"mail"`
}

// Normalize maps a decoded inner notification message into a Report.
// Recipient addresses and type/subtype strings are lower-cased so downstream
// matching against stored addresses is case-insensitive. A message without a
// mail block fails with ErrIncompleteNotification before any write can
// happen.
func Normalize(raw []byte) (*Report, error) {
	var msg sesMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("parse notification message: %w", err)
	}
	if msg.Mail == nil {
		return nil, ErrIncompleteNotification
	}

	headers := make(map[string]string, len(msg.Mail.Headers))
	for _, h := range msg.Mail.Headers {
		headers[strings.ToLower(h.Name)] = h.Value
	}

	report := &Report{
		Mail: Mail{
			Source:      msg.Mail.Source,
			Destination: msg.Mail.Destination,
			Timestamp:   msg.Mail.Timestamp,
			Subject:     msg.Mail.CommonHeaders.Subject,
			Headers:     headers,
		},
	}

	switch msg.NotificationType {
	case "Bounce":
		report.Kind = KindBounce
		if b := msg.Bounce; b != nil {
			report.Category = strings.ToLower(b.BounceType)
			report.SubType = strings.ToLower(b.BounceSubType)
			report.FeedbackID = b.FeedbackID
			report.Timestamp = b.Timestamp
			report.Recipients = normalizeRecipients(b.BouncedRecipients)
		}
	case "Complaint":
		report.Kind = KindComplaint
		if c := msg.Complaint; c != nil {
			report.Category = strings.ToLower(c.ComplaintFeedbackType)
			report.SubType = strings.ToLower(c.ComplaintSubType)
			report.FeedbackID = c.FeedbackID
			report.UserAgent = c.UserAgent
			report.ArrivalDate = c.ArrivalDate
			report.Recipients = normalizeRecipients(c.ComplainedRecipients)
		}
	default:
		report.Kind = KindOther
		report.Category = strings.ToLower(msg.NotificationType)
		report.Raw = json.RawMessage(raw)
	}

	return report, nil
}

func normalizeRecipients(in []sesRecipient) []Recipient {
	out := make([]Recipient, 0, len(in))
	for _, r := range in {
		out = append(out, Recipient{
			Email:          strings.ToLower(strings.TrimSpace(r.EmailAddress)),
			Status:         r.Status,
			Action:         r.Action,
			DiagnosticCode: r.DiagnosticCode,
		})
	}
	return out
}
