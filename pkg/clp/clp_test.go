package clp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "$0", Format(0))
	assert.Equal(t, "$950", Format(950))
	assert.Equal(t, "$89.250", Format(89250))
	assert.Equal(t, "$1.234.567", Format(1234567))
	assert.Equal(t, "$1.000", Format(1000))
	assert.Equal(t, "$10.000.000.000", Format(10000000000))
	assert.Equal(t, "-$14.250", Format(-14250))
}
