package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidOrder, GetCode(New(ErrCodeInvalidOrder, "bad order")))
	assert.Equal(t, ErrCodeUnknown, GetCode(fmt.Errorf("socket closed")))
	assert.Equal(t, ErrCodeUnknown, GetCode(nil))
}

func TestIsVenueError(t *testing.T) {
	venueErr := New(ErrCodeVenueRejected, "order rejected")
	assert.True(t, IsVenueError(venueErr))

	// Dispatch wraps hide the venue code behind their own; the band must
	// still be visible through the cause chain.
	wrapped := Wrapf(ErrCodeOrderDispatchFailed, venueErr, "failed to dispatch order %d", 7)
	assert.True(t, IsVenueError(wrapped))

	doubleWrapped := Wrap(ErrCodeEngineInitFailed, "startup", wrapped)
	assert.True(t, IsVenueError(doubleWrapped))

	assert.False(t, IsVenueError(New(ErrCodeInvalidOrder, "bad order")))
	assert.False(t, IsVenueError(Wrapf(ErrCodeOrderDispatchFailed, fmt.Errorf("socket closed"), "failed to dispatch order %d", 7)))
	assert.False(t, IsVenueError(fmt.Errorf("socket closed")))
	assert.False(t, IsVenueError(nil))
}
