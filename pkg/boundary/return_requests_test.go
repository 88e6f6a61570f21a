package boundary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hostbroker/pkg/config"
	"github.com/cuemby/hostbroker/pkg/types"
)

func TestGetReturnRequestsListsWithDefaultGracePeriod(t *testing.T) {
	svc, strategy := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})
	saveTestMachine(t, strategy, &types.Machine{
		MachineID:          "m-1",
		Status:             types.MachineRunning,
		Strategy:           types.StrategyDirectLaunch,
		ProviderResourceID: "res-1",
		PriceTier:          types.PriceOnDemand,
	})
	returnOut, failure := svc.RequestReturnMachines(context.Background(), RequestReturnMachinesInput{MachineIDs: []string{"m-1"}})
	require.Nil(t, failure)

	out, failure := svc.GetReturnRequests()
	require.Nil(t, failure)
	require.Len(t, out.Requests, 1)
	assert.Equal(t, *returnOut.RequestID, out.Requests[0].RequestID)
	assert.Equal(t, defaultGracePeriodSeconds, out.Requests[0].GracePeriodSeconds)
}

func TestGetReturnRequestsUsesSpotGracePeriod(t *testing.T) {
	svc, strategy := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})
	saveTestMachine(t, strategy, &types.Machine{
		MachineID:          "m-1",
		Status:             types.MachineRunning,
		Strategy:           types.StrategyDirectLaunch,
		ProviderResourceID: "res-1",
		PriceTier:          types.PriceSpot,
	})
	_, failure := svc.RequestReturnMachines(context.Background(), RequestReturnMachinesInput{MachineIDs: []string{"m-1"}})
	require.Nil(t, failure)

	out, failure := svc.GetReturnRequests()
	require.Nil(t, failure)
	require.Len(t, out.Requests, 1)
	assert.Equal(t, spotGracePeriodSeconds, out.Requests[0].GracePeriodSeconds)
}

func TestGetReturnRequestsCachesWithinTTL(t *testing.T) {
	svc, strategy := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})
	saveTestMachine(t, strategy, &types.Machine{
		MachineID:          "m-1",
		Status:             types.MachineRunning,
		Strategy:           types.StrategyDirectLaunch,
		ProviderResourceID: "res-1",
	})
	_, failure := svc.RequestReturnMachines(context.Background(), RequestReturnMachinesInput{MachineIDs: []string{"m-1"}})
	require.Nil(t, failure)

	first, failure := svc.GetReturnRequests()
	require.Nil(t, failure)
	require.Len(t, first.Requests, 1)

	// A second return request created after the first read must not show
	// up until the cache expires.
	saveTestMachine(t, strategy, &types.Machine{
		MachineID:          "m-2",
		Status:             types.MachineRunning,
		Strategy:           types.StrategyDirectLaunch,
		ProviderResourceID: "res-2",
	})
	_, failure = svc.RequestReturnMachines(context.Background(), RequestReturnMachinesInput{MachineIDs: []string{"m-2"}})
	require.Nil(t, failure)

	second, failure := svc.GetReturnRequests()
	require.Nil(t, failure)
	assert.Len(t, second.Requests, 1, "cached result should still be served")

	svc.returnRequestsCacheMu.Lock()
	svc.returnRequestsCachedAt = time.Now().Add(-returnRequestsCacheTTL - time.Second)
	svc.returnRequestsCacheMu.Unlock()

	third, failure := svc.GetReturnRequests()
	require.Nil(t, failure)
	assert.Len(t, third.Requests, 2, "expired cache should be refreshed")
}
