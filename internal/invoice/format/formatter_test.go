package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentNumber(t *testing.T) {
	at := time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)

	out, err := DocumentNumber("F{YYYY}{MM}{DD}-{ID6}", at, 42)
	require.NoError(t, err)
	assert.Equal(t, "F20240307-000042", out)

	out, err = DocumentNumber("", at, 36)
	require.NoError(t, err)
	assert.Equal(t, "F2024-10", out)

	_, err = DocumentNumber("F-{SEQ}", at, 1)
	assert.Error(t, err)

	_, err = DocumentNumber("F-{ID}", at, 0)
	assert.Error(t, err)
}

func TestMoneyAndPercent(t *testing.T) {
	assert.Equal(t, "20.80 EUR", Money(decimal.RequireFromString("20.8"), ""))
	assert.Equal(t, "21%", Percent(decimal.RequireFromString("21.00")))
}
