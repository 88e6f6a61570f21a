package provider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/smithy-go"
)

// smithyAPIErrorStub implements smithy.APIError for tests exercising
// classifyTerminal/isAlreadyGone/withRetry without a real SDK error value.
type smithyAPIErrorStub struct {
	code string
}

func (e *smithyAPIErrorStub) Error() string        { return fmt.Sprintf("%s: stub error", e.code) }
func (e *smithyAPIErrorStub) ErrorCode() string    { return e.code }
func (e *smithyAPIErrorStub) ErrorMessage() string { return "stub error" }
func (e *smithyAPIErrorStub) ErrorFault() smithy.ErrorFault {
	return smithy.FaultUnknown
}

// fakeEC2 is a minimal in-memory stand-in for ec2API, letting each test
// script its own canned responses/errors per call without standing up the
// real SDK client or an HTTP server.
type fakeEC2 struct {
	createLaunchTemplateFn   func(*ec2.CreateLaunchTemplateInput) (*ec2.CreateLaunchTemplateOutput, error)
	runInstancesFn           func(*ec2.RunInstancesInput) (*ec2.RunInstancesOutput, error)
	describeInstancesFn      func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
	terminateInstancesFn     func(*ec2.TerminateInstancesInput) (*ec2.TerminateInstancesOutput, error)
	createFleetFn            func(*ec2.CreateFleetInput) (*ec2.CreateFleetOutput, error)
	describeFleetInstFn      func(*ec2.DescribeFleetInstancesInput) (*ec2.DescribeFleetInstancesOutput, error)
	deleteFleetsFn           func(*ec2.DeleteFleetsInput) (*ec2.DeleteFleetsOutput, error)
	modifyFleetFn            func(*ec2.ModifyFleetInput) (*ec2.ModifyFleetOutput, error)
	describeInstanceStatusFn func(*ec2.DescribeInstanceStatusInput) (*ec2.DescribeInstanceStatusOutput, error)
}

func (f *fakeEC2) CreateLaunchTemplate(_ context.Context, in *ec2.CreateLaunchTemplateInput, _ ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateOutput, error) {
	return f.createLaunchTemplateFn(in)
}
func (f *fakeEC2) RunInstances(_ context.Context, in *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	return f.runInstancesFn(in)
}
func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return f.describeInstancesFn(in)
}
func (f *fakeEC2) TerminateInstances(_ context.Context, in *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	return f.terminateInstancesFn(in)
}
func (f *fakeEC2) CreateFleet(_ context.Context, in *ec2.CreateFleetInput, _ ...func(*ec2.Options)) (*ec2.CreateFleetOutput, error) {
	return f.createFleetFn(in)
}
func (f *fakeEC2) DescribeFleetInstances(_ context.Context, in *ec2.DescribeFleetInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeFleetInstancesOutput, error) {
	return f.describeFleetInstFn(in)
}
func (f *fakeEC2) DeleteFleets(_ context.Context, in *ec2.DeleteFleetsInput, _ ...func(*ec2.Options)) (*ec2.DeleteFleetsOutput, error) {
	return f.deleteFleetsFn(in)
}
func (f *fakeEC2) ModifyFleet(_ context.Context, in *ec2.ModifyFleetInput, _ ...func(*ec2.Options)) (*ec2.ModifyFleetOutput, error) {
	return f.modifyFleetFn(in)
}
func (f *fakeEC2) DescribeInstanceStatus(_ context.Context, in *ec2.DescribeInstanceStatusInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error) {
	return f.describeInstanceStatusFn(in)
}

// fakeAutoScaling is a minimal stand-in for autoScalingAPI.
type fakeAutoScaling struct {
	createGroupFn   func(*autoscaling.CreateAutoScalingGroupInput) (*autoscaling.CreateAutoScalingGroupOutput, error)
	describeGroupFn func(*autoscaling.DescribeAutoScalingGroupsInput) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	detachFn        func(*autoscaling.DetachInstancesInput) (*autoscaling.DetachInstancesOutput, error)
	deleteGroupFn   func(*autoscaling.DeleteAutoScalingGroupInput) (*autoscaling.DeleteAutoScalingGroupOutput, error)
}

func (f *fakeAutoScaling) CreateAutoScalingGroup(_ context.Context, in *autoscaling.CreateAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.CreateAutoScalingGroupOutput, error) {
	return f.createGroupFn(in)
}
func (f *fakeAutoScaling) DescribeAutoScalingGroups(_ context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	return f.describeGroupFn(in)
}
func (f *fakeAutoScaling) DetachInstances(_ context.Context, in *autoscaling.DetachInstancesInput, _ ...func(*autoscaling.Options)) (*autoscaling.DetachInstancesOutput, error) {
	return f.detachFn(in)
}
func (f *fakeAutoScaling) DeleteAutoScalingGroup(_ context.Context, in *autoscaling.DeleteAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.DeleteAutoScalingGroupOutput, error) {
	return f.deleteGroupFn(in)
}

// fakeIAM is a minimal stand-in for iamAPI.
type fakeIAM struct {
	getRoleFn func(*iam.GetRoleInput) (*iam.GetRoleOutput, error)
}

func (f *fakeIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	return f.getRoleFn(in)
}
