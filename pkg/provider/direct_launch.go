package provider

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cuemby/hostbroker/pkg/types"
)

// DirectLaunchHandler acquires hosts with a single RunInstances call and
// releases them by direct termination (spec §4.6 "DirectLaunch").
type DirectLaunchHandler struct {
	Client *AWSClient
}

var _ Handler = (*DirectLaunchHandler)(nil)

func (h *DirectLaunchHandler) CreateLaunchTemplate(ctx context.Context, tmpl *types.Template, req *types.Request) (string, string, error) {
	return ensureLaunchTemplate(ctx, h.Client.EC2, tmpl, req)
}

func (h *DirectLaunchHandler) AcquireHosts(ctx context.Context, req *types.Request, tmpl *types.Template) (string, error) {
	input := &ec2.RunInstancesInput{
		MinCount: awssdk.Int32(int32(req.RequestedCount)),
		MaxCount: awssdk.Int32(int32(req.RequestedCount)),
		LaunchTemplate: &ec2types.LaunchTemplateSpecification{
			LaunchTemplateId: awssdk.String(req.LaunchTemplateID),
			Version:          awssdk.String(req.LaunchTemplateVersion),
		},
		TagSpecifications: tagSpecifications(tmpl, req, ec2types.ResourceTypeInstance),
	}
	if subnet := subnetFor(tmpl); subnet != "" {
		input.SubnetId = awssdk.String(subnet)
	}

	out, err := h.Client.EC2.RunInstances(ctx, input)
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.ReservationId), nil
}

func (h *DirectLaunchHandler) CheckHostsStatus(ctx context.Context, req *types.Request) ([]InstanceRecord, error) {
	out, err := h.Client.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: awssdk.String("tag:hostbroker:request-id"), Values: []string{req.RequestID}},
		},
	})
	if err != nil {
		return nil, err
	}

	var records []InstanceRecord
	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			records = append(records, instanceRecordFrom(inst))
		}
	}
	return records, nil
}

func (h *DirectLaunchHandler) ReleaseHosts(ctx context.Context, req *types.Request, machineIDs []string) error {
	ids := machineIDs
	if len(ids) == 0 {
		ids = req.MachineIDs
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := h.Client.EC2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: ids})
	if isAlreadyGone(err) {
		return nil
	}
	return err
}
