package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("relay_test_key", []byte("test_value"), 1500*time.Millisecond)
	assert.NoError(t, err)

	value, err := mc.Get("relay_test_key")
	assert.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	assert.NoError(t, mc.Delete("relay_test_key"))
	assert.NoError(t, mc.Delete("relay_test_key"))

	_, err = mc.Get("relay_test_key")
	assert.ErrorIs(t, err, ErrMiss)
}
