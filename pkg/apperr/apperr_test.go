package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errTableTaken = New(ErrConflict, "table_taken", "table already has an open ticket")

func TestErrorMatchesKindAndSentinel(t *testing.T) {
	wrapped := fmt.Errorf("open ticket: %w", errTableTaken)

	assert.ErrorIs(t, wrapped, errTableTaken)
	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.NotErrorIs(t, wrapped, ErrValidation)
	assert.Equal(t, ErrConflict, KindOf(wrapped))

	code, msg := Describe(wrapped)
	assert.Equal(t, "table_taken", code)
	assert.Equal(t, "table already has an open ticket", msg)
}

func TestStorageKeepsClassifiedErrors(t *testing.T) {
	assert.Nil(t, Storage(nil))
	assert.Same(t, errTableTaken, Storage(errTableTaken))

	raw := errors.New("connection reset")
	err := Storage(raw)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, raw)
	assert.Equal(t, "storage_failure: connection reset", err.Error())
}

func TestDescribeForeignError(t *testing.T) {
	code, _ := Describe(errors.New("boom"))
	assert.Equal(t, "storage_failure", code)
	assert.Nil(t, KindOf(errors.New("boom")))
}
