package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToDecimalPrecision(t *testing.T) {
	assert.Equal(t, 0.01, RoundToDecimalPrecision(0.0199, 2))
	assert.Equal(t, 1.23456789, RoundToDecimalPrecision(1.234567899, 8))
	assert.Equal(t, 0.0, RoundToDecimalPrecision(0.0001, 2))
}
