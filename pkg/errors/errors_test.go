package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap("transport_failure", "Could not fetch weather data.", cause)

	require.True(t, IsCode(err, "transport_failure"))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "Could not fetch weather data.: dial tcp: timeout", err.Error())
	require.Equal(t, "Could not fetch weather data.", MessageOf(err))
}

func TestCodeOfWrappedChain(t *testing.T) {
	err := fmt.Errorf("submit: %w", Wrap("conflict", "busy", nil))
	require.Equal(t, "conflict", CodeOf(err))
	require.False(t, IsCode(errors.New("plain"), ""))
	require.Equal(t, "plain", MessageOf(errors.New("plain")))
}
