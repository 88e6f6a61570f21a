package provider

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cuemby/hostbroker/pkg/types"
)

// InstantFleetHandler creates a single synchronous EC2 Fleet whose
// allocated instances are returned in the CreateFleet response itself
// (spec §4.6 "InstantFleet").
type InstantFleetHandler struct {
	Client *AWSClient
}

var _ Handler = (*InstantFleetHandler)(nil)

func (h *InstantFleetHandler) CreateLaunchTemplate(ctx context.Context, tmpl *types.Template, req *types.Request) (string, string, error) {
	return ensureLaunchTemplate(ctx, h.Client.EC2, tmpl, req)
}

func (h *InstantFleetHandler) AcquireHosts(ctx context.Context, req *types.Request, tmpl *types.Template) (string, error) {
	out, err := h.Client.EC2.CreateFleet(ctx, &ec2.CreateFleetInput{
		Type:                  ec2types.FleetTypeInstant,
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

func (h *InstantFleetHandler) CheckHostsStatus(ctx context.Context, req *types.Request) ([]InstanceRecord, error) {
	return describeFleetInstances(ctx, h.Client.EC2, req.ProviderResourceID)
}

func (h *InstantFleetHandler) ReleaseHosts(ctx context.Context, req *types.Request, machineIDs []string) error {
	_, err := h.Client.EC2.DeleteFleets(ctx, &ec2.DeleteFleetsInput{
		FleetIds:           []string{req.ProviderResourceID},
		TerminateInstances: awssdk.Bool(true),
	})
	if isAlreadyGone(err) {
		return nil
	}
	return err
}

// fleetLaunchTemplateConfigs builds the LaunchTemplateConfigs EC2 Fleet and
// Spot Fleet both take, honoring a Template's weighted machine-type map
// when present.
func fleetLaunchTemplateConfigs(req *types.Request, tmpl *types.Template) []ec2types.FleetLaunchTemplateConfigRequest {
	spec := ec2types.FleetLaunchTemplateSpecificationRequest{
		LaunchTemplateId: awssdk.String(req.LaunchTemplateID),
		Version:          awssdk.String(req.LaunchTemplateVersion),
	}
	cfg := ec2types.FleetLaunchTemplateConfigRequest{LaunchTemplateSpecification: &spec}

	if len(tmpl.MachineType.TypeWeight) > 0 {
		for instanceType, weight := range tmpl.MachineType.TypeWeight {
			cfg.Overrides = append(cfg.Overrides, ec2types.FleetLaunchTemplateOverridesRequest{
				InstanceType:     ec2types.InstanceType(instanceType),
				WeightedCapacity: awssdk.Float64(weight),
			})
		}
	}
	return []ec2types.FleetLaunchTemplateConfigRequest{cfg}
}

func priceTierCapacityType(tmpl *types.Template) ec2types.DefaultTargetCapacityType {
	if tmpl.Strategy == types.StrategySpotFleet {
		return ec2types.DefaultTargetCapacityTypeSpot
	}
	return ec2types.DefaultTargetCapacityTypeOnDemand
}

// describeFleetInstances lists a fleet's currently active instances via
// DescribeFleetInstances, shared by InstantFleet and ManagedFleet.
func describeFleetInstances(ctx context.Context, client ec2API, fleetID string) ([]InstanceRecord, error) {
	fleetOut, err := client.DescribeFleetInstances(ctx, &ec2.DescribeFleetInstancesInput{FleetId: awssdk.String(fleetID)})
	if err != nil {
		return nil, err
	}
	if len(fleetOut.ActiveInstances) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(fleetOut.ActiveInstances))
	for _, active := range fleetOut.ActiveInstances {
		ids = append(ids, awssdk.ToString(active.InstanceId))
	}

	descOut, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids})
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
