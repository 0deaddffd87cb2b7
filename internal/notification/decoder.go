// Package notification decodes SNS-style provider pushes and normalizes
// SES bounce/complaint payloads into typed feedback reports.
package notification

import "encoding/json"

// snsEnvelope mirrors the SNS wrapper the provider POSTs to the webhook.
type snsEnvelope struct {
	Type         string `json:"Type"`
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
	TopicArn     string `json:"TopicArn"`
}

// Decode parses a raw webhook body into an Envelope. Malformed bodies and
// unknown Type strings degrade to an unrecognized envelope; the caller logs
// and acknowledges, the provider is never asked to retry.
func Decode(raw []byte) Envelope {
	var env snsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{Kind: EnvelopeUnrecognized, Raw: json.RawMessage(raw)}
	}

	switch env.Type {
	case "SubscriptionConfirmation":
		return Envelope{
			Kind:         EnvelopeSubscriptionConfirmation,
			SubscribeURL: env.SubscribeURL,
			TopicArn:     env.TopicArn,
			Raw:          json.RawMessage(raw),
		}
	case "Notification":
		return Envelope{
			Kind:     EnvelopeNotification,
			Message:  env.Message,
			TopicArn: env.TopicArn,
			Raw:      json.RawMessage(raw),
		}
	default:
		return Envelope{Kind: EnvelopeUnrecognized, Raw: json.RawMessage(raw)}
	}
}
