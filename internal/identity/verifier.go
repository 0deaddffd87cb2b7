// Package identity resolves the signed profile-identity token embedded in
// outbound mail headers back to a profile ID.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the expected issuer claim on profile-identity tokens.
const Issuer = "profile-identity"

// ErrVerification covers every way a token can fail to verify: bad
// signature, expiry, wrong issuer, missing subject. Callers treat all of
// them the same way, as an absent identity.
var ErrVerification = errors.New("identity token verification failed")

// Verifier resolves a signed token to a profile ID. Kept narrow so tests can
// substitute a stub without a real signing key.
type Verifier interface {
	Verify(ctx context.Context, token, issuer string) (string, error)
}

// TokenVerifier verifies HMAC-signed JWTs whose subject claim carries the
// profile ID.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier using the shared signing secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token against the given issuer and returns
// the subject claim.
func (v *TokenVerifier) Verify(_ context.Context, token, issuer string) (string, error) {
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerification, err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrVerification)
	}
	return sub, nil
}
