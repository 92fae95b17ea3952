package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" transfer ")
	assert.NoError(t, err)
	assert.Equal(t, MethodTransfer, m)

	_, err = ParseMethod("BITCOIN")
	assert.ErrorIs(t, err, ErrInvalidMethod)
	assert.Equal(t, "Mercado Pago", MethodMercadoPago.Label())
}
