package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const FlutterwaveName = "flutterwave"

type Flutterwave struct {
	secretKey string
}

func NewFlutterwave(secretKey string) (*Flutterwave, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, fmt.Errorf("%w: flutterwave secret key is required", ErrInvalidConfig)
	}
	return &Flutterwave{secretKey: secretKey}, nil
}

func (f *Flutterwave) Name() string { return FlutterwaveName }

func (f *Flutterwave) SignatureHeader() string { return "Verif-Hash" }

func (f *Flutterwave) Verify(payload []byte, headers http.Header) error {
	return VerifySignature(payload, headers.Get(f.SignatureHeader()), f.secretKey)
}

type flutterwaveCharge struct {
	ID                json.Number `json:"id"`
	TxRef             string      `json:"tx_ref"`
	FlwRef            string      `json:"flw_ref"`
	Status            string      `json:"status"`
	ProcessorResponse string      `json:"processor_response"`
}

func (f *Flutterwave) Parse(payload []byte) (*Event, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	if env.Event != "charge.completed" {
		return &Event{RawType: env.Event}, ErrEventIgnored
	}

	var charge flutterwaveCharge
	if err := json.Unmarshal(env.Data, &charge); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(charge.TxRef) == "" {
		return nil, ErrInvalidPayload
	}

	event := &Event{
		RawType:          env.Event,
		Reference:        charge.TxRef,
		GatewayReference: charge.FlwRef,
		Data:             env.Data,
	}
	if event.GatewayReference == "" {
		event.GatewayReference = charge.ID.String()
	}

	switch strings.ToLower(charge.Status) {
	case "successful":
		event.Type = EventPaymentSucceeded
	case "failed":
		event.Type = EventPaymentFailed
		event.FailureReason = charge.ProcessorResponse
		if event.FailureReason == "" {
			event.FailureReason = "Payment failed"
		}
	default:
		return event, ErrEventIgnored
	}
	return event, nil
}
