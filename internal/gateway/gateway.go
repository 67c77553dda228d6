// Package gateway verifies and decodes payment provider webhooks.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrEventIgnored     = errors.New("webhook event ignored")
	ErrProviderNotFound = errors.New("payment gateway not found")
	ErrInvalidConfig    = errors.New("invalid gateway config")
)

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
)

// Event is the provider-neutral view of a charge notification.
type Event struct {
	Type             EventType
	RawType          string
	Reference        string
	GatewayReference string
	FailureReason    string
	Data             json.RawMessage
}

type Adapter interface {
	Name() string
	// SignatureHeader names the request header carrying the signature.
	SignatureHeader() string
	Verify(payload []byte, headers http.Header) error
	Parse(payload []byte) (*Event, error)
}

// Sign returns the lower-case hex HMAC-SHA512 of payload keyed by secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the HMAC-SHA512 of payload in constant time.
// An empty signature or secret never verifies.
func VerifySignature(payload []byte, signature, secret string) error {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" || secret == "" {
		return ErrInvalidSignature
	}
	expected := Sign(payload, secret)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func decodeEnvelope(payload []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return envelope{}, ErrInvalidPayload
	}
	if strings.TrimSpace(env.Event) == "" {
		return envelope{}, ErrInvalidPayload
	}
	return env, nil
}
