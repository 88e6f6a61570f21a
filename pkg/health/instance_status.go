package health

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// ec2API is the narrow subset of *ec2.Client the instance-status and
// system-status checkers call.
type ec2API interface {
	DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
}

// InstanceStatusChecker reports AWS's own instance-status check for one
// EC2 instance (hypervisor/network/OS reachability from the instance's own
// point of view).
type InstanceStatusChecker struct {
	Client     ec2API
	InstanceID string
}

// NewInstanceStatusChecker builds a checker for instanceID using client.
func NewInstanceStatusChecker(client ec2API, instanceID string) *InstanceStatusChecker {
	return &InstanceStatusChecker{Client: client, InstanceID: instanceID}
}

func (c *InstanceStatusChecker) Check(ctx context.Context) Result {
	start := time.Now()
	status, err := describeStatus(ctx, c.Client, c.InstanceID)
	if err != nil {
		return Result{Healthy: false, Message: err.Error(), CheckedAt: start, Duration: time.Since(start)}
	}
	if status == nil {
		return Result{Healthy: false, Message: "no status reported for instance", CheckedAt: start, Duration: time.Since(start)}
	}

	healthy := status.InstanceStatus != nil && status.InstanceStatus.Status == ec2types.SummaryStatusOk
	message := "instance status ok"
	if status.InstanceStatus != nil {
		message = fmt.Sprintf("instance status: %s", status.InstanceStatus.Status)
	}
	return Result{Healthy: healthy, Message: message, CheckedAt: start, Duration: time.Since(start)}
}

func (c *InstanceStatusChecker) Type() CheckType { return CheckTypeInstanceStatus }

// SystemStatusChecker reports AWS's system-status check for one EC2
// instance (underlying hardware/hypervisor health, independent of
// whatever the instance's own OS is doing).
type SystemStatusChecker struct {
	Client     ec2API
	InstanceID string
}

// NewSystemStatusChecker builds a checker for instanceID using client.
func NewSystemStatusChecker(client ec2API, instanceID string) *SystemStatusChecker {
	return &SystemStatusChecker{Client: client, InstanceID: instanceID}
}

func (c *SystemStatusChecker) Check(ctx context.Context) Result {
	start := time.Now()
	status, err := describeStatus(ctx, c.Client, c.InstanceID)
	if err != nil {
		return Result{Healthy: false, Message: err.Error(), CheckedAt: start, Duration: time.Since(start)}
	}
	if status == nil {
		return Result{Healthy: false, Message: "no status reported for instance", CheckedAt: start, Duration: time.Since(start)}
	}

	healthy := status.SystemStatus != nil && status.SystemStatus.Status == ec2types.SummaryStatusOk
	message := "system status ok"
	if status.SystemStatus != nil {
		message = fmt.Sprintf("system status: %s", status.SystemStatus.Status)
	}
	return Result{Healthy: healthy, Message: message, CheckedAt: start, Duration: time.Since(start)}
}

func (c *SystemStatusChecker) Type() CheckType { return CheckTypeSystemStatus }

func describeStatus(ctx context.Context, client ec2API, instanceID string) (*ec2types.InstanceStatus, error) {
	out, err := client.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, fmt.Errorf("describe instance status: %w", err)
	}
	if len(out.InstanceStatuses) == 0 {
		return nil, nil
	}
	return &out.InstanceStatuses[0], nil
}
