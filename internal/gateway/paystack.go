package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const PaystackName = "paystack"

type Paystack struct {
	secretKey string
}

func NewPaystack(secretKey string) (*Paystack, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, fmt.Errorf("%w: paystack secret key is required", ErrInvalidConfig)
	}
	return &Paystack{secretKey: secretKey}, nil
}

func (p *Paystack) Name() string { return PaystackName }

func (p *Paystack) SignatureHeader() string { return "X-Paystack-Signature" }

func (p *Paystack) Verify(payload []byte, headers http.Header) error {
	return VerifySignature(payload, headers.Get(p.SignatureHeader()), p.secretKey)
}

type paystackCharge struct {
	ID              json.Number `json:"id"`
	Reference       string      `json:"reference"`
	Status          string      `json:"status"`
	GatewayResponse string      `json:"gateway_response"`
}

func (p *Paystack) Parse(payload []byte) (*Event, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}

	var eventType EventType
	switch env.Event {
	case "charge.success":
		eventType = EventPaymentSucceeded
	case "charge.failed":
		eventType = EventPaymentFailed
	default:
		return &Event{RawType: env.Event}, ErrEventIgnored
	}

	var charge paystackCharge
	if err := json.Unmarshal(env.Data, &charge); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(charge.Reference) == "" {
		return nil, ErrInvalidPayload
	}

	event := &Event{
		Type:             eventType,
		RawType:          env.Event,
		Reference:        charge.Reference,
		GatewayReference: charge.ID.String(),
		Data:             env.Data,
	}
	if eventType == EventPaymentFailed {
		event.FailureReason = charge.GatewayResponse
		if event.FailureReason == "" {
			event.FailureReason = "Payment failed"
		}
	}
	return event, nil
}
