package boundary

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hostbroker/pkg/config"
	"github.com/cuemby/hostbroker/pkg/provider"
	"github.com/cuemby/hostbroker/pkg/types"
)

func TestGetRequestStatusSuccess(t *testing.T) {
	svc, _ := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})

	reqOut, failure := svc.RequestMachines(context.Background(), RequestMachinesInput{TemplateID: "small-ondemand", MachineCount: 1})
	require.Nil(t, failure)

	out, failure := svc.GetRequestStatus(context.Background(), GetRequestStatusInput{RequestIDs: []string{reqOut.RequestID}})
	require.Nil(t, failure)
	require.Len(t, out.Requests, 1)
	assert.Equal(t, reqOut.RequestID, out.Requests[0].RequestID)
	assert.Empty(t, out.Errors)
}

func TestGetRequestStatusOnlyUnknownIDFailsWholeCall(t *testing.T) {
	svc, _ := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})

	out, failure := svc.GetRequestStatus(context.Background(), GetRequestStatusInput{RequestIDs: []string{"does-not-exist"}})
	require.NotNil(t, failure)
	assert.Empty(t, out.Requests)
	assert.Equal(t, "RequestNotFoundError", failure.Error)
}

func TestGetRequestStatusPartialFailureKeepsSuccessfulOnes(t *testing.T) {
	svc, _ := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})

	reqOut, failure := svc.RequestMachines(context.Background(), RequestMachinesInput{TemplateID: "small-ondemand", MachineCount: 1})
	require.Nil(t, failure)

	out, failure := svc.GetRequestStatus(context.Background(), GetRequestStatusInput{RequestIDs: []string{reqOut.RequestID, "does-not-exist"}})
	require.Nil(t, failure)
	require.Len(t, out.Requests, 1)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "does-not-exist", out.Errors[0].RequestID)
	assert.Equal(t, "RequestNotFoundError", out.Errors[0].Error)
}

func TestGetRequestStatusAllListsActiveAcquireRequests(t *testing.T) {
	svc, _ := newTestService(t, &fakeHandler{}, config.RateLimitConfig{})

	_, failure := svc.RequestMachines(context.Background(), RequestMachinesInput{TemplateID: "small-ondemand", MachineCount: 1})
	require.Nil(t, failure)

	out, failure := svc.GetRequestStatus(context.Background(), GetRequestStatusInput{All: true})
	require.Nil(t, failure)
	assert.Len(t, out.Requests, 1)
}

// TestGetRequestStatusRetriesOnTransientThenSucceeds exercises
// pollRequestStatus's retry loop: the first two polls hit a failing
// provider check (wrapped as a Transient error by StatusReconciliation),
// the third succeeds.
func TestGetRequestStatusRetriesOnTransientThenSucceeds(t *testing.T) {
	attempts := 0
	handler := &fakeHandler{
		checkHostsStatusFn: func(ctx context.Context, req *types.Request) ([]provider.InstanceRecord, error) {
			attempts++
			if attempts < statusPollMaxRetries {
				return nil, fmt.Errorf("transient blip")
			}
			return nil, nil
		},
	}
	svc, _ := newTestService(t, handler, config.RateLimitConfig{})

	reqOut, failure := svc.RequestMachines(context.Background(), RequestMachinesInput{TemplateID: "small-ondemand", MachineCount: 1})
	require.Nil(t, failure)

	out, failure := svc.GetRequestStatus(context.Background(), GetRequestStatusInput{RequestIDs: []string{reqOut.RequestID}})
	require.Nil(t, failure)
	require.Len(t, out.Requests, 1)
	assert.Equal(t, statusPollMaxRetries, attempts)
}

func TestGetRequestStatusExhaustsRetriesOnPersistentTransientError(t *testing.T) {
	handler := &fakeHandler{
		checkHostsStatusFn: func(ctx context.Context, req *types.Request) ([]provider.InstanceRecord, error) {
			return nil, fmt.Errorf("provider unreachable")
		},
	}
	svc, _ := newTestService(t, handler, config.RateLimitConfig{})

	reqOut, failure := svc.RequestMachines(context.Background(), RequestMachinesInput{TemplateID: "small-ondemand", MachineCount: 1})
	require.Nil(t, failure)

	out, failure := svc.GetRequestStatus(context.Background(), GetRequestStatusInput{RequestIDs: []string{reqOut.RequestID}})
	require.NotNil(t, failure)
	assert.Empty(t, out.Requests)
	assert.Equal(t, "InfrastructureError", failure.Error)
}
