package notification

import "encoding/json"

// EnvelopeKind discriminates the transport-level push from the provider.
type EnvelopeKind string

const (
	EnvelopeSubscriptionConfirmation EnvelopeKind = "subscription_confirmation"
	EnvelopeNotification             EnvelopeKind = "notification"
	EnvelopeUnrecognized             EnvelopeKind = "unrecognized"
)

// Envelope is the decoded provider push. It is never persisted; the inner
// Message is a JSON string that requires a second decode pass.
type Envelope struct {
	Kind         EnvelopeKind
	Message      string
	SubscribeURL string
	TopicArn     string
	Raw          json.RawMessage
}

// ReportKind tags the normalized feedback event.
type ReportKind string

const (
	KindBounce    ReportKind = "bounce"
	KindComplaint ReportKind = "complaint"
	KindOther     ReportKind = "other"
)

// Recipient is one affected address from a bounce or complaint payload.
// Status/Action/DiagnosticCode are only populated for bounces.
type Recipient struct {
	Email          string `json:"email"`
	Status         string `json:"status,omitempty"`
	Action         string `json:"action,omitempty"`
	DiagnosticCode string `json:"diagnostic_code,omitempty"`
}

// Mail carries the original message context. Headers are folded into a
// single map with lower-cased names, last write wins.
type Mail struct {
	Source      string            `json:"source"`
	Destination []string          `json:"destination"`
	Timestamp   string            `json:"timestamp"`
	Subject     string            `json:"subject"`
	Headers     map[string]string `json:"headers"`
}

// Report is the uniform internal feedback record. It is the sole input to
// persistence decisions and is embedded verbatim (as JSON) into the rows it
// produces.
type Report struct {
	Kind        ReportKind      `json:"kind"`
	Category    string          `json:"category,omitempty"`
	SubType     string          `json:"sub_type,omitempty"`
	Recipients  []Recipient     `json:"recipients,omitempty"`
	FeedbackID  string          `json:"feedback_id,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	ArrivalDate string          `json:"arrival_date,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	Mail        Mail            `json:"mail"`
	ProfileID   string          `json:"profile_id,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}
