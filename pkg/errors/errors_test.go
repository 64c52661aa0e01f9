package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelayErrorFormatting(t *testing.T) {
	cause := stderrors.New("net::ERR_NAME_NOT_RESOLVED")
	err := NewNavigation("https://www.alphabot.app/_/proj", "goto failed", cause)

	assert.Equal(t, ErrorTypeNavigation, err.Type)
	assert.Contains(t, err.Error(), "[navigation]")
	assert.Contains(t, err.Error(), "goto failed")
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
	assert.True(t, stderrors.Is(err, cause))
	assert.False(t, err.Time.IsZero())
}

func TestConfigurationError(t *testing.T) {
	err := NewConfiguration("DISCORD_WEBHOOK_URL is required", nil)

	assert.Equal(t, ErrorTypeConfiguration, err.Type)
	assert.Equal(t, "[configuration] : DISCORD_WEBHOOK_URL is required", err.Error())

	var relayErr *RelayError
	wrapped := error(err)
	assert.True(t, stderrors.As(wrapped, &relayErr))
	assert.Nil(t, relayErr.Unwrap())
}
