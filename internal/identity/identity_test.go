package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-signing-secret"

func signToken(t *testing.T, issuer, subject, secret string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenVerifierRoundTrip(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := signToken(t, Issuer, "profile-42", testSecret)

	sub, err := v.Verify(context.Background(), token, Issuer)
	require.NoError(t, err)
	assert.Equal(t, "profile-42", sub)
}

func TestTokenVerifierRejects(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	ctx := context.Background()

	cases := map[string]string{
		"wrong issuer":    signToken(t, "some-other-issuer", "profile-42", testSecret),
		"wrong key":       signToken(t, Issuer, "profile-42", "different-secret"),
		"missing subject": signToken(t, Issuer, "", testSecret),
		"garbage":         "not.a.token",
	}
	for name, token := range cases {
		_, err := v.Verify(ctx, token, Issuer)
		assert.ErrorIs(t, err, ErrVerification, name)
	}
}

type stubVerifier struct {
	subject string
	err     error
}

func (s stubVerifier) Verify(_ context.Context, _, _ string) (string, error) {
	return s.subject, s.err
}

func TestExtractorMissingHeader(t *testing.T) {
	e := NewExtractor(stubVerifier{subject: "should-not-be-called"}, "")

	_, ok := e.Extract(context.Background(), map[string]string{"subject": "hello"})
	assert.False(t, ok)
}

func TestExtractorResolves(t *testing.T) {
	e := NewExtractor(stubVerifier{subject: "profile-7"}, "")

	id, ok := e.Extract(context.Background(), map[string]string{
		DefaultHeader: "opaque-token",
	})
	require.True(t, ok)
	assert.Equal(t, "profile-7", id)
}

func TestExtractorCaseInsensitiveHeader(t *testing.T) {
	e := NewExtractor(stubVerifier{subject: "profile-7"}, "X-Ignite-Profile-Data")

	id, ok := e.Extract(context.Background(), map[string]string{
		"X-IGNITE-PROFILE-DATA": "opaque-token",
	})
	require.True(t, ok)
	assert.Equal(t, "profile-7", id)
}

func TestExtractorVerifierFailureIsAbsent(t *testing.T) {
	e := NewExtractor(stubVerifier{err: errors.New("expired")}, "")

	_, ok := e.Extract(context.Background(), map[string]string{
		DefaultHeader: "expired-token",
	})
	assert.False(t, ok, "verifier failure must read as absent identity, not an error")
}
