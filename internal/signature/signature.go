// Package signature signs and verifies webhook bodies with a shared secret.
//
// The signature is the standard base64 encoding of HMAC-SHA256 over the
// exact bytes on the wire. Callers must sign the same byte slice they send.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/rs/zerolog"
)

// Header carries the signature on inbound jobs and outbound callbacks.
const Header = "X-OCSP-Signature"

// Sign returns the base64 HMAC-SHA256 of body keyed with secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verifier checks inbound signatures against a configured secret.
type Verifier struct {
	secret string
	logger zerolog.Logger
}

// NewVerifier creates a Verifier. An empty secret rejects everything.
func NewVerifier(secret string, logger zerolog.Logger) *Verifier {
	return &Verifier{secret: secret, logger: logger.With().Str("component", "signature").Logger()}
}

// Verify reports whether provided is the signature of body.
func (v *Verifier) Verify(body []byte, provided string) bool {
	if v.secret == "" {
		v.logger.Error().Msg("webhook secret not configured")
		return false
	}
	return Verify(body, provided, v.secret)
}

// Sign signs body with the verifier's secret.
func (v *Verifier) Sign(body []byte) string {
	return Sign(body, v.secret)
}

// Verify reports whether provided is the signature of body under secret.
// It never succeeds with an empty secret.
func Verify(body []byte, provided, secret string) bool {
	if secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(provided))
}
