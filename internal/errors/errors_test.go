package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormError(t *testing.T) {
	t.Run("message formatting", func(t *testing.T) {
		err := NewConfigError(ErrCodeInvalidPort, "port out of range").WithComponent("config")

		assert.Equal(t, "[ERR_INVALID_PORT] component:config port out of range", err.Error())
		assert.False(t, err.Recoverable)
		assert.True(t, IsConfigError(err))
	})

	t.Run("cause is unwrapped", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewTransportError(ErrCodeBadMessage, "read failed", cause)

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection reset")
		assert.True(t, IsRecoverable(err))
	})

	t.Run("is compares type and code", func(t *testing.T) {
		a := NewSessionError(ErrCodeSessionLimit, "too many")
		b := NewSessionError(ErrCodeSessionLimit, "different text")
		c := NewSessionError(ErrCodeShutdown, "too many")

		assert.True(t, errors.Is(a, b))
		assert.False(t, errors.Is(a, c))
	})

	t.Run("context", func(t *testing.T) {
		err := NewInternalError("ERR_X", "boom", nil).WithContext("session", "abc")

		assert.Equal(t, "abc", err.Context["session"])
	})

	t.Run("wrap nil returns nil", func(t *testing.T) {
		assert.Nil(t, WrapConfig(nil, ErrCodeConfigLoad, "x"))
		assert.Nil(t, WrapTransport(nil, ErrCodeBadMessage, "x"))
	})

	t.Run("wrapped through fmt", func(t *testing.T) {
		err := fmt.Errorf("serve: %w", WrapConfig(errors.New("bad yaml"), ErrCodeConfigLoad, "load failed"))

		assert.True(t, IsConfigError(err))
		assert.False(t, IsRecoverable(err))
	})
}

func TestFieldError(t *testing.T) {
	err := RequiredFieldMissing("fullName", "Full Name is required")

	assert.Equal(t, "fullName: Full Name is required", err.Error())
	assert.True(t, IsRecoverable(err))
	assert.True(t, errors.Is(err, RequiredFieldMissing("fullName", "")))
	assert.False(t, errors.Is(err, InvalidFormat("fullName", "")))

	fe, ok := AsFieldError(fmt.Errorf("wrapped: %w", InvalidFormat("email", "Invalid email format")))
	require.True(t, ok)
	assert.Equal(t, KindInvalidFormat, fe.Kind)
	assert.Equal(t, "email", fe.Field)

	_, ok = AsFieldError(errors.New("plain"))
	assert.False(t, ok)
}
