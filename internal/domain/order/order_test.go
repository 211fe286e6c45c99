package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMethod(t *testing.T) {
	for _, s := range []string{"cod", "card", "esewa", "khalti"} {
		m, err := ParsePaymentMethod(s)
		require.NoError(t, err, s)
		assert.Equal(t, PaymentMethod(s), m)
	}
}

func TestParsePaymentMethod_Invalid(t *testing.T) {
	for _, s := range []string{"", "paypal", "CARD", "cash", "cod "} {
		_, err := ParsePaymentMethod(s)
		assert.ErrorIs(t, err, ErrInvalidPaymentMethod, "%q", s)
	}
}
