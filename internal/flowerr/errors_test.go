package flowerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotAvailable(t *testing.T) {
	err := NotAvailable("job")
	assert.Equal(t, "Context job is not available", err.Error())
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.NotErrorIs(t, err, ErrValidation)

	var na *NotAvailableError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &na)
	assert.Equal(t, "job", na.Context)
}

func TestValidation(t *testing.T) {
	t.Run("reason and subjects", func(t *testing.T) {
		err := Validation("unknown dependency", "batch-2", "nope")
		assert.Equal(t, `unknown dependency: "batch-2", "nope"`, err.Error())
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("wrapping keeps the cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := WrapValidation(cause, "bad expression", "image")
		assert.Equal(t, `bad expression: "image": boom`, err.Error())
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapValidation(nil, "anything"))
	})
}

func TestInternal(t *testing.T) {
	err := Internalf("placed %d of %d nodes", 1, 3)
	assert.Equal(t, "internal error: placed 1 of 3 nodes", err.Error())
	assert.ErrorIs(t, err, ErrInternal)
}
