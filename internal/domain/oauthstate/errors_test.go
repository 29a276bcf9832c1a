package oauthstate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidStateError(t *testing.T) {
	err := NewInvalidStateError("The state value is already expired")
	assert.EqualError(t, err, "The state value is already expired")

	var ise *InvalidStateError
	assert.True(t, errors.As(err, &ise))
	assert.Equal(t, InvalidStateErrorCode, ise.Code)
}

func TestIsInvalidState(t *testing.T) {
	err := NewInvalidStateError("Failed to load the data represented by the state parameter")
	assert.True(t, IsInvalidState(err))
	assert.True(t, IsInvalidState(fmt.Errorf("verify failed: %w", err)))
	assert.False(t, IsInvalidState(errors.New("boom")))
	assert.False(t, IsInvalidState(nil))
}
