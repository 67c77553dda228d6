package gateway

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nclexkeys/backend/internal/config"
)

const testSecret = "sk_test_secret"

func signedHeaders(adapter Adapter, payload []byte, secret string) http.Header {
	h := http.Header{}
	h.Set(adapter.SignatureHeader(), Sign(payload, secret))
	return h
}

func TestPaystackVerify(t *testing.T) {
	p, err := NewPaystack(testSecret)
	require.NoError(t, err)
	payload := []byte(`{"event":"charge.success","data":{"reference":"PAY-1"}}`)

	assert.NoError(t, p.Verify(payload, signedHeaders(p, payload, testSecret)))
	assert.ErrorIs(t, p.Verify(payload, signedHeaders(p, payload, "other")), ErrInvalidSignature)
	assert.ErrorIs(t, p.Verify(payload, http.Header{}), ErrInvalidSignature)

	tampered := []byte(`{"event":"charge.success","data":{"reference":"PAY-2"}}`)
	assert.ErrorIs(t, p.Verify(tampered, signedHeaders(p, payload, testSecret)), ErrInvalidSignature)
}

func TestVerifySignatureAcceptsUpperCaseHex(t *testing.T) {
	payload := []byte(`{}`)
	sig := Sign(payload, testSecret)
	assert.NoError(t, VerifySignature(payload, " "+strings.ToUpper(sig)+" ", testSecret))
	assert.ErrorIs(t, VerifySignature(payload, sig, ""), ErrInvalidSignature)
}

func TestPaystackParse(t *testing.T) {
	p, err := NewPaystack(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		want    EventType
		reason  string
		wantErr error
	}{
		{
			name:    "charge success",
			payload: `{"event":"charge.success","data":{"id":302961,"reference":"PAY-1","status":"success"}}`,
			want:    EventPaymentSucceeded,
		},
		{
			name:    "charge failed",
			payload: `{"event":"charge.failed","data":{"id":7,"reference":"PAY-1","gateway_response":"Declined"}}`,
			want:    EventPaymentFailed,
			reason:  "Declined",
		},
		{
			name:    "other event",
			payload: `{"event":"transfer.success","data":{}}`,
			wantErr: ErrEventIgnored,
		},
		{
			name:    "not json",
			payload: `not-json`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "missing reference",
			payload: `{"event":"charge.success","data":{"id":1}}`,
			wantErr: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := p.Parse([]byte(tt.payload))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.Type)
			assert.Equal(t, "PAY-1", event.Reference)
			assert.Equal(t, tt.reason, event.FailureReason)
			assert.NotEmpty(t, event.GatewayReference)
		})
	}
}

func TestFlutterwaveParse(t *testing.T) {
	f, err := NewFlutterwave(testSecret)
	require.NoError(t, err)

	event, err := f.Parse([]byte(`{"event":"charge.completed","data":{"id":4,"tx_ref":"PAY-9","flw_ref":"FLW-1","status":"successful"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Equal(t, "PAY-9", event.Reference)
	assert.Equal(t, "FLW-1", event.GatewayReference)

	event, err = f.Parse([]byte(`{"event":"charge.completed","data":{"id":4,"tx_ref":"PAY-9","status":"failed"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, event.Type)
	assert.Equal(t, "4", event.GatewayReference)

	_, err = f.Parse([]byte(`{"event":"transfer.completed","data":{}}`))
	assert.ErrorIs(t, err, ErrEventIgnored)
}

func TestRegistryFromConfig(t *testing.T) {
	registry, err := NewRegistryFromConfig(config.PaymentsConfig{
		Gateways: map[string]config.GatewayConfig{
			"paystack":    {SecretKey: "a"},
			"flutterwave": {SecretKey: "b"},
			"Unused":      {},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"flutterwave", "paystack"}, registry.Names())

	adapter, err := registry.Get("PayStack")
	require.NoError(t, err)
	assert.Equal(t, PaystackName, adapter.Name())

	_, err = registry.Get("stripe")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	_, err = NewRegistryFromConfig(config.PaymentsConfig{
		Gateways: map[string]config.GatewayConfig{"stripe": {SecretKey: "x"}},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
