package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/hostbroker/pkg/config"
)

func TestLimiterDisabledAlwaysAllows(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{Enabled: false})
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("requestMachines"))
	}
}

func TestLimiterEnabledExhaustsBurst(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.0001, Burst: 2})

	assert.True(t, l.Allow("requestMachines"))
	assert.True(t, l.Allow("requestMachines"))
	assert.False(t, l.Allow("requestMachines"))
}

func TestLimiterKeysByOperationIndependently(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.0001, Burst: 1})

	assert.True(t, l.Allow("requestMachines"))
	assert.False(t, l.Allow("requestMachines"))
	assert.True(t, l.Allow("getAvailableTemplates"), "a different operation has its own bucket")
}

func TestLimiterNilReceiverAllows(t *testing.T) {
	var l *Limiter
	assert.True(t, l.Allow("requestMachines"))
}
