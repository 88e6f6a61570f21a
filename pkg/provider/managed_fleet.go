package provider

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cuemby/hostbroker/pkg/types"
)

// ManagedFleetHandler creates an asynchronous (request-type) EC2 Fleet;
// instances arrive over subsequent status polls rather than in the
// creation response (spec §4.6 "ManagedFleet").
type ManagedFleetHandler struct {
	Client *AWSClient
}

var _ Handler = (*ManagedFleetHandler)(nil)

func (h *ManagedFleetHandler) CreateLaunchTemplate(ctx context.Context, tmpl *types.Template, req *types.Request) (string, string, error) {
	return ensureLaunchTemplate(ctx, h.Client.EC2, tmpl, req)
}

func (h *ManagedFleetHandler) AcquireHosts(ctx context.Context, req *types.Request, tmpl *types.Template) (string, error) {
	out, err := h.Client.EC2.CreateFleet(ctx, &ec2.CreateFleetInput{
		Type:                  ec2types.FleetTypeRequest,
		LaunchTemplateConfigs: fleetLaunchTemplateConfigs(req, tmpl),
		TargetCapacitySpecification: &ec2types.TargetCapacitySpecificationRequest{
			TotalTargetCapacity:       awssdk.Int32(int32(req.RequestedCount)),
			DefaultTargetCapacityType: priceTierCapacityType(tmpl),
		},
		TagSpecifications: tagSpecifications(tmpl, req, ec2types.ResourceTypeFleet, ec2types.ResourceTypeInstance),
	})
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.FleetId), nil
}

func (h *ManagedFleetHandler) CheckHostsStatus(ctx context.Context, req *types.Request) ([]InstanceRecord, error) {
	return describeFleetInstances(ctx, h.Client.EC2, req.ProviderResourceID)
}

// ReleaseHosts reduces target capacity and terminates the named instances
// for a partial release, or deletes the fleet outright (terminating every
// instance) for a full release.
func (h *ManagedFleetHandler) ReleaseHosts(ctx context.Context, req *types.Request, machineIDs []string) error {
	if len(machineIDs) == 0 {
		_, err := h.Client.EC2.DeleteFleets(ctx, &ec2.DeleteFleetsInput{
			FleetIds:           []string{req.ProviderResourceID},
			TerminateInstances: awssdk.Bool(true),
		})
		if isAlreadyGone(err) {
			return nil
		}
		return err
	}

	remaining := len(req.MachineIDs) - len(machineIDs)
	if remaining < 0 {
		remaining = 0
	}
	_, err := h.Client.EC2.ModifyFleet(ctx, &ec2.ModifyFleetInput{
		FleetId: awssdk.String(req.ProviderResourceID),
		TargetCapacitySpecification: &ec2types.TargetCapacitySpecificationRequest{
			TotalTargetCapacity: awssdk.Int32(int32(remaining)),
		},
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
