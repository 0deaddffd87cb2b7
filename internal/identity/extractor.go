package identity

import (
	"context"
	"strings"

	"github.com/ignite/feedback-gateway/internal/pkg/logger"
)

// DefaultHeader is the custom mail header carrying the signed profile token.
const DefaultHeader = "x-ignite-profile-data"

// Extractor pulls the identity header out of a normalized header map and
// resolves it through the verifier.
type Extractor struct {
	verifier Verifier
	header   string
}

// NewExtractor creates an extractor for the given header name. An empty name
// falls back to DefaultHeader.
func NewExtractor(verifier Verifier, header string) *Extractor {
	if header == "" {
		header = DefaultHeader
	}
	return &Extractor{verifier: verifier, header: strings.ToLower(header)}
}

// Extract returns the profile ID carried by the identity header, or false
// when the header is missing or the token does not verify. An unverifiable
// identity is operationally equivalent to a missing one, so verifier
// failures are logged and swallowed, never propagated.
func (e *Extractor) Extract(ctx context.Context, headers map[string]string) (string, bool) {
	token := headerValue(headers, e.header)
	if token == "" {
		return "", false
	}

	profileID, err := e.verifier.Verify(ctx, token, Issuer)
	if err != nil {
		logger.Warn("identity token rejected", "error", err.Error())
		return "", false
	}
	return profileID, true
}

// headerValue does a case-insensitive lookup. The normalizer already folds
// header names to lower case, but callers outside that path may not.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
