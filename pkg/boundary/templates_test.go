package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hostbroker/pkg/config"
)

func TestGetAvailableTemplatesLists(t *testing.T) {
	svc, _ := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})

	out, failure := svc.GetAvailableTemplates(false)
	require.Nil(t, failure)
	require.Len(t, out.Templates, 1)
	assert.Equal(t, "small-ondemand", out.Templates[0].TemplateID)
	assert.Empty(t, out.Templates[0].SubnetID)
}

func TestGetAvailableTemplatesLongIncludesNetworkDetails(t *testing.T) {
	svc, _ := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})

	out, failure := svc.GetAvailableTemplates(true)
	require.Nil(t, failure)
	require.Len(t, out.Templates, 1)
	assert.Equal(t, "subnet-abc123", out.Templates[0].SubnetID)
	assert.Equal(t, []string{"sg-1"}, out.Templates[0].SecurityGroupIDs)
}

func TestGetAvailableTemplatesRateLimited(t *testing.T) {
	svc, _ := newTestService(t, &fakeHandler{}, config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.0001, Burst: 1})

	_, failure := svc.GetAvailableTemplates(false)
	require.Nil(t, failure)

	_, failure = svc.GetAvailableTemplates(false)
	require.NotNil(t, failure)
	assert.Equal(t, "RateLimitExceeded", failure.Error)
}
