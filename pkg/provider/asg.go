package provider

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/cuemby/hostbroker/pkg/types"
)

// AutoScalingGroupHandler acquires hosts by creating an Auto Scaling group
// with min=max=desired=count, and releases by detach-then-terminate
// (partial) or group deletion (full) (spec §4.6 "AutoScalingGroup").
type AutoScalingGroupHandler struct {
	Client *AWSClient
}

var _ Handler = (*AutoScalingGroupHandler)(nil)

func (h *AutoScalingGroupHandler) CreateLaunchTemplate(ctx context.Context, tmpl *types.Template, req *types.Request) (string, string, error) {
	return ensureLaunchTemplate(ctx, h.Client.EC2, tmpl, req)
}

func (h *AutoScalingGroupHandler) AcquireHosts(ctx context.Context, req *types.Request, tmpl *types.Template) (string, error) {
	groupName := fmt.Sprintf("hostbroker-%s", req.RequestID)
	count := int32(req.RequestedCount)

	input := &autoscaling.CreateAutoScalingGroupInput{
		AutoScalingGroupName: awssdk.String(groupName),
		MinSize:              awssdk.Int32(count),
		MaxSize:              awssdk.Int32(count),
		DesiredCapacity:      awssdk.Int32(count),
		LaunchTemplate: &asgtypes.LaunchTemplateSpecification{
			LaunchTemplateId: awssdk.String(req.LaunchTemplateID),
			Version:          awssdk.String(req.LaunchTemplateVersion),
		},
		Tags: asgTags(tmpl, req, groupName),
	}
	if subnet := subnetFor(tmpl); subnet != "" {
		input.VPCZoneIdentifier = awssdk.String(subnet)
	}

	if _, err := h.Client.AutoScaling.CreateAutoScalingGroup(ctx, input); err != nil {
		return "", err
	}
	return groupName, nil
}

func (h *AutoScalingGroupHandler) CheckHostsStatus(ctx context.Context, req *types.Request) ([]InstanceRecord, error) {
	groupsOut, err := h.Client.AutoScaling.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{req.ProviderResourceID},
	})
	if err != nil {
		return nil, err
	}
	if len(groupsOut.AutoScalingGroups) == 0 {
		return nil, nil
	}

	group := groupsOut.AutoScalingGroups[0]
	ids := make([]string, 0, len(group.Instances))
	for _, inst := range group.Instances {
		ids = append(ids, awssdk.ToString(inst.InstanceId))
	}
	if len(ids) == 0 {
		return nil, nil
	}

	descOut, err := h.Client.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids})
	if err != nil {
		return nil, err
	}

	var records []InstanceRecord
	for _, reservation := range descOut.Reservations {
		for _, inst := range reservation.Instances {
			records = append(records, instanceRecordFrom(inst))
		}
	}
	return records, nil
}

func (h *AutoScalingGroupHandler) ReleaseHosts(ctx context.Context, req *types.Request, machineIDs []string) error {
	if len(machineIDs) == 0 {
		_, err := h.Client.AutoScaling.DeleteAutoScalingGroup(ctx, &autoscaling.DeleteAutoScalingGroupInput{
			AutoScalingGroupName: awssdk.String(req.ProviderResourceID),
			ForceDelete:          awssdk.Bool(true),
		})
		if isAlreadyGone(err) {
			return nil
		}
		return err
	}

	_, err := h.Client.AutoScaling.DetachInstances(ctx, &autoscaling.DetachInstancesInput{
		AutoScalingGroupName:           awssdk.String(req.ProviderResourceID),
		InstanceIds:                    machineIDs,
		ShouldDecrementDesiredCapacity: awssdk.Bool(true),
	})
	if err != nil && !isAlreadyGone(err) {
		return err
	}

	_, err = h.Client.EC2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: machineIDs})
	if isAlreadyGone(err) {
		return nil
	}
	return err
}

func asgTags(tmpl *types.Template, req *types.Request, groupName string) []asgtypes.Tag {
	tags := []asgtypes.Tag{
		{Key: awssdk.String("hostbroker:request-id"), Value: awssdk.String(req.RequestID), ResourceId: awssdk.String(groupName), ResourceType: awssdk.String("auto-scaling-group"), PropagateAtLaunch: awssdk.Bool(true)},
		{Key: awssdk.String("hostbroker:template-id"), Value: awssdk.String(tmpl.TemplateID), ResourceId: awssdk.String(groupName), ResourceType: awssdk.String("auto-scaling-group"), PropagateAtLaunch: awssdk.Bool(true)},
	}
	return tags
}
