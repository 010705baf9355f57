package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewConnRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("conn1"))
	}
	assert.False(t, rl.Allow("conn1"))
	assert.True(t, rl.Allow("conn2"), "limits are per connection")
}

func TestRateLimiterForget(t *testing.T) {
	rl := NewConnRateLimiter(1, time.Minute)
	assert.True(t, rl.Allow("conn1"))
	assert.False(t, rl.Allow("conn1"))

	rl.Forget("conn1")
	assert.True(t, rl.Allow("conn1"))
}
