package provider

import (
	"context"
	"regexp"
	"strconv"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/types"
)

var spotRoleARNPattern = regexp.MustCompile(`^arn:aws:iam::\d{12}:role/.+$`)

// SpotFleetHandler has the same acquire/release/status shape as
// ManagedFleet, plus the additional role, price, and allocation-strategy
// requirements spot variants carry (spec §4.6 "SpotFleet").
type SpotFleetHandler struct {
	Client *AWSClient
}

var _ Handler = (*SpotFleetHandler)(nil)

func (h *SpotFleetHandler) CreateLaunchTemplate(ctx context.Context, tmpl *types.Template, req *types.Request) (string, string, error) {
	if err := h.validateRole(ctx, tmpl); err != nil {
		return "", "", err
	}
	return ensureLaunchTemplate(ctx, h.Client.EC2, tmpl, req)
}

// validateRole checks the role-ARN pattern, or resolves the service-linked
// role name via IAM, before any acquisition proceeds (spec §4.6).
func (h *SpotFleetHandler) validateRole(ctx context.Context, tmpl *types.Template) error {
	if tmpl.SpotRoleARN == "" {
		return brokererr.Validation("template %q: spot variants require a role reference", tmpl.TemplateID)
	}
	if spotRoleARNPattern.MatchString(tmpl.SpotRoleARN) {
		return nil
	}
	// Not a full ARN: treat it as a role name and resolve it via IAM.
	_, err := h.Client.IAM.GetRole(ctx, &iam.GetRoleInput{RoleName: awssdk.String(tmpl.SpotRoleARN)})
	return err
}

func (h *SpotFleetHandler) AcquireHosts(ctx context.Context, req *types.Request, tmpl *types.Template) (string, error) {
	input := &ec2.CreateFleetInput{
		Type:                  ec2types.FleetTypeRequest,
		LaunchTemplateConfigs: fleetLaunchTemplateConfigs(req, tmpl),
		TargetCapacitySpecification: &ec2types.TargetCapacitySpecificationRequest{
			TotalTargetCapacity:       awssdk.Int32(int32(req.RequestedCount)),
			DefaultTargetCapacityType: ec2types.DefaultTargetCapacityTypeSpot,
		},
		SpotOptions: &ec2types.SpotOptionsRequest{
			AllocationStrategy: spotAllocationStrategy(tmpl.AllocationStrategy),
		},
		TagSpecifications: tagSpecifications(tmpl, req, ec2types.ResourceTypeFleet, ec2types.ResourceTypeInstance),
	}
	if tmpl.MaxPrice != nil {
		input.SpotOptions.MaxTotalPrice = awssdk.String(strconv.FormatFloat(*tmpl.MaxPrice, 'f', -1, 64))
	}

	out, err := h.Client.EC2.CreateFleet(ctx, input)
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.FleetId), nil
}

func (h *SpotFleetHandler) CheckHostsStatus(ctx context.Context, req *types.Request) ([]InstanceRecord, error) {
	return describeFleetInstances(ctx, h.Client.EC2, req.ProviderResourceID)
}

func (h *SpotFleetHandler) ReleaseHosts(ctx context.Context, req *types.Request, machineIDs []string) error {
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

func spotAllocationStrategy(strategy types.AllocationStrategy) ec2types.SpotAllocationStrategy {
	switch strategy {
	case types.AllocationDiversified:
		return ec2types.SpotAllocationStrategyDiversified
	case types.AllocationCapacityOpt:
		return ec2types.SpotAllocationStrategyCapacityOptimized
	case types.AllocationPriceCapacity:
		return ec2types.SpotAllocationStrategyCapacityOptimizedPrioritized
	default:
		return ec2types.SpotAllocationStrategyLowestPrice
	}
}
