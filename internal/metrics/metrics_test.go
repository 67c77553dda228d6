package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncCodeOperationNormalizesLabels(t *testing.T) {
	before := testutil.ToFloat64(codeOperations.WithLabelValues("consume", "ok"))
	IncCodeOperation(" Consume ", "OK")
	assert.Equal(t, before+1, testutil.ToFloat64(codeOperations.WithLabelValues("consume", "ok")))
}

func TestIncWebhook(t *testing.T) {
	before := testutil.ToFloat64(webhookEvents.WithLabelValues("paystack", "ignored"))
	IncWebhook("Paystack", "ignored")
	assert.Equal(t, before+1, testutil.ToFloat64(webhookEvents.WithLabelValues("paystack", "ignored")))
}
