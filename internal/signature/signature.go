package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// Zoom webhook headers.
const (
	ZoomSignatureHeader = "x-zm-signature"
	ZoomTimestampHeader = "x-zm-request-timestamp"
)

var (
	// ErrSecretNotConfigured is returned when no shared secret is available server-side.
	ErrSecretNotConfigured = errors.New("signing secret not configured")
	// ErrMissingHeaders is returned when the signature or timestamp header is absent.
	ErrMissingHeaders = errors.New("missing signature headers")
	// ErrInvalidSignature is returned when the computed signature does not match.
	ErrInvalidSignature = errors.New("invalid signature")
)

// VerifyZoom checks a Zoom webhook signature over the raw request body.
// The expected value is "v0=" + hex(HMAC-SHA256(secret, "v0:"+timestamp+":"+body)).
func VerifyZoom(body []byte, sig, timestamp, secret string) error {
	if secret == "" {
		return ErrSecretNotConfigured
	}
	if sig == "" || timestamp == "" {
		return ErrMissingHeaders
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}

// ChallengeResponse is the body returned for an endpoint.url_validation event.
type ChallengeResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// Challenge answers the Zoom URL validation handshake.
func Challenge(plainToken, secret string) (ChallengeResponse, error) {
	if secret == "" {
		return ChallengeResponse{}, ErrSecretNotConfigured
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plainToken))
	return ChallengeResponse{
		PlainToken:     plainToken,
		EncryptedToken: hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

// VerifySlack checks a Slack request signature. Requests whose timestamp is
// more than five minutes away from now are rejected by the verifier.
func VerifySlack(header http.Header, body []byte, secret string) error {
	if secret == "" {
		return ErrSecretNotConfigured
	}
	if header.Get("X-Slack-Signature") == "" || header.Get("X-Slack-Request-Timestamp") == "" {
		return ErrMissingHeaders
	}

	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("hashing body: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}
