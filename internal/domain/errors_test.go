package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchByCode(t *testing.T) {
	// A decoded copy matches the sentinel.
	decoded := FromCode(CodeNotFound, "order not found")
	assert.ErrorIs(t, decoded, ErrNotFound)
	assert.NotErrorIs(t, decoded, ErrValidation)

	// A wrapped sentinel still matches.
	wrapped := fmt.Errorf("checkout-order: %w", ErrRemoteTimeout)
	assert.ErrorIs(t, wrapped, ErrRemoteTimeout)
}

func TestCodeOfAndMessageOf(t *testing.T) {
	assert.Equal(t, CodeInvalidQuantity, CodeOf(ErrInvalidQuantity))
	assert.Equal(t, CodeRemoteError, CodeOf(errors.New("plain")))

	assert.Equal(t, "order quantity is not valid", MessageOf(ErrInvalidQuantity))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
}

func TestFromCodeDefaults(t *testing.T) {
	err := FromCode("", "")
	assert.Equal(t, CodeRemoteError, err.Code)
	assert.Equal(t, "remote error", err.Message)

	custom := FromCode(CodeSubscriptionExpired, "subscription expired")
	assert.ErrorIs(t, custom, ErrSubscriptionExpired)
}

func TestValidationHelper(t *testing.T) {
	err := Validation("totalAmount is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "VALIDATION_ERROR: totalAmount is required", err.Error())
}
