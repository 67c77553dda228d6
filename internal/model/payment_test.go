package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPaymentGatewayFee(t *testing.T) {
	paystack := PaymentGateway{
		FeePercentage:  decimal.RequireFromString("0.015"),
		FeeCap:         decimal.NewNullDecimal(decimal.NewFromInt(2000)),
		FeeCapCurrency: "NGN",
	}
	uncapped := PaymentGateway{FeePercentage: decimal.RequireFromString("0.014")}
	anyCurrencyCap := PaymentGateway{
		FeePercentage: decimal.RequireFromString("0.015"),
		FeeCap:        decimal.NewNullDecimal(decimal.NewFromInt(2000)),
	}

	tests := []struct {
		name     string
		gateway  PaymentGateway
		amount   string
		currency string
		want     string
	}{
		{"under cap", paystack, "30000", "NGN", "450"},
		{"capped in cap currency", paystack, "200000", "NGN", "2000"},
		{"cap currency compared case-insensitively", paystack, "200000", "ngn", "2000"},
		{"other currency not capped", paystack, "200000", "USD", "3000"},
		{"no cap", uncapped, "200000", "NGN", "2800"},
		{"cap without currency applies to all", anyCurrencyCap, "200000", "GBP", "2000"},
		{"rounded to two places", uncapped, "33.33", "USD", "0.47"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.gateway.Fee(decimal.RequireFromString(tt.amount), tt.currency)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), got.String())
		})
	}
}
