package provider

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cuemby/hostbroker/pkg/types"
)

// instanceTags builds the tag set every acquired instance carries,
// correlating it back to its owning Request and Template (grounded on
// base_handler.py's _create_launch_template_data tag block).
func instanceTags(tmpl *types.Template, req *types.Request) []ec2types.Tag {
	tags := []ec2types.Tag{
		{Key: awssdk.String("Name"), Value: awssdk.String(fmt.Sprintf("hostbroker-%s", req.RequestID))},
		{Key: awssdk.String("hostbroker:request-id"), Value: awssdk.String(req.RequestID)},
		{Key: awssdk.String("hostbroker:template-id"), Value: awssdk.String(tmpl.TemplateID)},
	}
	for k, v := range tmpl.Tags {
		tags = append(tags, ec2types.Tag{Key: awssdk.String(k), Value: awssdk.String(v)})
	}
	for k, v := range req.Tags {
		tags = append(tags, ec2types.Tag{Key: awssdk.String(k), Value: awssdk.String(v)})
	}
	return tags
}

// tagSpecifications wraps instanceTags for the resource types EC2 requires
// them tagged on at creation time.
func tagSpecifications(tmpl *types.Template, req *types.Request, resourceTypes ...ec2types.ResourceType) []ec2types.TagSpecification {
	tags := instanceTags(tmpl, req)
	specs := make([]ec2types.TagSpecification, 0, len(resourceTypes))
	for _, rt := range resourceTypes {
		specs = append(specs, ec2types.TagSpecification{ResourceType: rt, Tags: tags})
	}
	return specs
}

// launchTemplateData builds the shared launch template request data every
// provider strategy variant's CreateLaunchTemplate populates identically;
// fleet/ASG-specific fields (allocation strategy, weights) are layered on
// by the caller.
func launchTemplateData(tmpl *types.Template, req *types.Request) *ec2types.RequestLaunchTemplateData {
	data := &ec2types.RequestLaunchTemplateData{
		ImageId: awssdk.String(tmpl.ImageID),
		Monitoring: &ec2types.LaunchTemplatesMonitoringRequest{
			Enabled: awssdk.Bool(true),
		},
		MetadataOptions: &ec2types.LaunchTemplateInstanceMetadataOptionsRequest{
			HttpTokens:              ec2types.LaunchTemplateHttpTokensStateRequired,
			HttpPutResponseHopLimit: awssdk.Int32(2),
		},
		TagSpecifications: tagSpecifications(tmpl, req, ec2types.ResourceTypeInstance),
	}

	if tmpl.MachineType.SingleType != "" {
		data.InstanceType = ec2types.InstanceType(tmpl.MachineType.SingleType)
	}
	if len(tmpl.SecurityGroupIDs) > 0 {
		data.SecurityGroupIds = tmpl.SecurityGroupIDs
	}
	if tmpl.KeyName != "" {
		data.KeyName = awssdk.String(tmpl.KeyName)
	}
	if tmpl.UserData != "" {
		data.UserData = awssdk.String(tmpl.UserData)
	}
	if tmpl.Network.SingleSubnet != "" {
		data.NetworkInterfaces = []ec2types.LaunchTemplateInstanceNetworkInterfaceSpecificationRequest{
			{
				DeviceIndex:              awssdk.Int32(0),
				SubnetId:                 awssdk.String(tmpl.Network.SingleSubnet),
				AssociatePublicIpAddress: awssdk.Bool(true),
			},
		}
	}
	return data
}

// ensureLaunchTemplate creates a launch template named after the Template's
// id and returns its id and the version just created; handler variants
// call this from CreateLaunchTemplate.
func ensureLaunchTemplate(ctx context.Context, client ec2API, tmpl *types.Template, req *types.Request) (templateID, version string, err error) {
	out, err := client.CreateLaunchTemplate(ctx, &ec2.CreateLaunchTemplateInput{
		LaunchTemplateName: awssdk.String(fmt.Sprintf("hostbroker-%s-%s", tmpl.TemplateID, req.RequestID)),
		LaunchTemplateData: launchTemplateData(tmpl, req),
	})
	if err != nil {
		return "", "", err
	}
	lt := out.LaunchTemplate
	return awssdk.ToString(lt.LaunchTemplateId), fmt.Sprintf("%d", awssdk.ToInt64(lt.LatestVersionNumber)), nil
}

// subnetFor picks the subnet a single-instance request launches into:
// the single subnet if set, otherwise the first candidate of the subnet
// set (round-robin across a request's own instances is left to the
// provider's own fleet placement logic for fleet-based variants).
func subnetFor(tmpl *types.Template) string {
	if tmpl.Network.SingleSubnet != "" {
		return tmpl.Network.SingleSubnet
	}
	if len(tmpl.Network.SubnetSet) > 0 {
		return tmpl.Network.SubnetSet[0]
	}
	return ""
}

func instanceRecordFrom(inst ec2types.Instance) InstanceRecord {
	rec := InstanceRecord{
		InstanceID: awssdk.ToString(inst.InstanceId),
		State:      string(inst.State.Name),
		DNSName:    awssdk.ToString(inst.PublicDnsName),
		ImageID:    awssdk.ToString(inst.ImageId),
		VPCID:      awssdk.ToString(inst.VpcId),
		SubnetID:   awssdk.ToString(inst.SubnetId),
	}
	if inst.PrivateIpAddress != nil {
		rec.PrivateAddress = *inst.PrivateIpAddress
	}
	if inst.PublicIpAddress != nil {
		rec.PublicAddress = *inst.PublicIpAddress
	}
	if inst.InstanceType != "" {
		rec.MachineType = string(inst.InstanceType)
	}
	if inst.LaunchTime != nil {
		rec.LaunchedAt = *inst.LaunchTime
	}
	if inst.Placement != nil {
		rec.AvailabilityZone = awssdk.ToString(inst.Placement.AvailabilityZone)
	}
	if inst.InstanceLifecycle == ec2types.InstanceLifecycleTypeSpot {
		rec.Spot = true
	}
	if len(inst.Tags) > 0 {
		rec.Tags = make(map[string]string, len(inst.Tags))
		for _, t := range inst.Tags {
			rec.Tags[awssdk.ToString(t.Key)] = awssdk.ToString(t.Value)
		}
	}
	return rec
}
