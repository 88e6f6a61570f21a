package provider

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hostbroker/pkg/types"
)

type stubHandler struct {
	acquireCalls int
	acquireErr   error
}

func (s *stubHandler) CreateLaunchTemplate(context.Context, *types.Template, *types.Request) (string, string, error) {
	return "lt-1", "1", nil
}
func (s *stubHandler) AcquireHosts(context.Context, *types.Request, *types.Template) (string, error) {
	s.acquireCalls++
	return "r-1", s.acquireErr
}
func (s *stubHandler) CheckHostsStatus(context.Context, *types.Request) ([]InstanceRecord, error) {
	return nil, nil
}
func (s *stubHandler) ReleaseHosts(context.Context, *types.Request, []string) error { return nil }

func TestRegistryDispatchUnknownStrategyErrors(t *testing.T) {
	r := NewRegistry(DefaultRetryPolicy)
	_, err := r.Dispatch(types.StrategyDirectLaunch)
	assert.Error(t, err)
}

func TestRegistryDispatchReturnsRetryWrappedHandler(t *testing.T) {
	stub := &stubHandler{acquireErr: &smithyAPIErrorStub{code: "Throttling"}}
	r := NewRegistry(RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond})
	r.Register(types.StrategyDirectLaunch, stub)

	handler, err := r.Dispatch(types.StrategyDirectLaunch)
	require.NoError(t, err)

	_, err = handler.AcquireHosts(context.Background(), &types.Request{}, &types.Template{})
	assert.Error(t, err) // every attempt fails transiently; retries exhaust into a terminal error
	assert.Equal(t, 3, stub.acquireCalls)
}

func TestDirectLaunchSatisfiesHandlerViaRegistry(t *testing.T) {
	r := NewRegistry(DefaultRetryPolicy)
	r.Register(types.StrategyDirectLaunch, &DirectLaunchHandler{Client: &AWSClient{EC2: &fakeEC2{
		runInstancesFn: func(*ec2.RunInstancesInput) (*ec2.RunInstancesOutput, error) {
			return &ec2.RunInstancesOutput{}, nil
		},
	}}})

	handler, err := r.Dispatch(types.StrategyDirectLaunch)
	require.NoError(t, err)
	_, err = handler.AcquireHosts(context.Background(), &types.Request{RequestedCount: 1}, &types.Template{})
	assert.NoError(t, err)
}
