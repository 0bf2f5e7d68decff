package aws

import (
	"context"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

const instanceWaitTimeout = 10 * time.Minute

// instanceAdapter manages EC2 instances.
type instanceAdapter struct {
	p *Provider
}

func (a *instanceAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Instance",
		Immutable: []string{"image_id", "subnet_id", "availability_zone"},
		Computed:  []string{"id", "private_ip", "public_ip", "state"},
	}
}

func (a *instanceAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	input := &ec2.RunInstancesInput{
		ImageId:           awssdk.String(strAttr(attrs, "image_id")),
		InstanceType:      ec2types.InstanceType(strAttr(attrs, "instance_type")),
		MinCount:          awssdk.Int32(1),
		MaxCount:          awssdk.Int32(1),
		TagSpecifications: nameTags(ec2types.ResourceTypeInstance, strAttr(attrs, "name")),
	}
	if subnetID := strAttr(attrs, "subnet_id"); subnetID != "" {
		input.SubnetId = awssdk.String(subnetID)
	}
	if groups := strSliceAttr(attrs, "security_group_ids"); len(groups) > 0 {
		input.SecurityGroupIds = groups
	}
	if keyName := strAttr(attrs, "key_name"); keyName != "" {
		input.KeyName = awssdk.String(keyName)
	}
	if userData := strAttr(attrs, "user_data"); userData != "" {
		input.UserData = awssdk.String(userData)
	}

	out, err := a.p.ec2Client.RunInstances(ctx, input)
	if err != nil {
		return nil, classify("create instance", err)
	}

	instanceID := awssdk.ToString(out.Instances[0].InstanceId)

	waiter := ec2.NewInstanceRunningWaiter(a.p.ec2Client)
	err = waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, instanceWaitTimeout)
	if err != nil {
		return nil, classify("wait for instance", err)
	}

	return a.Read(ctx, instanceID)
}

func (a *instanceAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read instance", err)
	}
	if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
		return nil, nil
	}
	inst := out.Reservations[0].Instances[0]
	if inst.State != nil && inst.State.Name == ec2types.InstanceStateNameTerminated {
		return nil, nil
	}

	attrs := adapter.Attrs{
		"id":            awssdk.ToString(inst.InstanceId),
		"image_id":      awssdk.ToString(inst.ImageId),
		"instance_type": string(inst.InstanceType),
		"subnet_id":     awssdk.ToString(inst.SubnetId),
		"private_ip":    awssdk.ToString(inst.PrivateIpAddress),
	}
	if inst.PublicIpAddress != nil {
		attrs["public_ip"] = awssdk.ToString(inst.PublicIpAddress)
	}
	if inst.State != nil {
		attrs["state"] = string(inst.State.Name)
	}
	return attrs, nil
}

// Update covers instance type changes, which require a stop/start cycle.
func (a *instanceAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if newType := strAttr(changed, "instance_type"); newType != "" {
		if err := a.resize(ctx, id, newType); err != nil {
			return nil, err
		}
	}
	return a.Read(ctx, id)
}

func (a *instanceAdapter) resize(ctx context.Context, id, instanceType string) error {
	_, err := a.p.ec2Client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return classify("stop instance", err)
	}
	stopped := ec2.NewInstanceStoppedWaiter(a.p.ec2Client)
	err = stopped.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	}, instanceWaitTimeout)
	if err != nil {
		return classify("wait for instance stop", err)
	}

	_, err = a.p.ec2Client.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId:   awssdk.String(id),
		InstanceType: &ec2types.AttributeValue{Value: awssdk.String(instanceType)},
	})
	if err != nil {
		return classify("modify instance type", err)
	}

	_, err = a.p.ec2Client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return classify("start instance", err)
	}
	running := ec2.NewInstanceRunningWaiter(a.p.ec2Client)
	err = running.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	}, instanceWaitTimeout)
	if err != nil {
		return classify("wait for instance start", err)
	}
	return nil
}

func (a *instanceAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.ec2Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return classify("terminate instance", err)
	}

	waiter := ec2.NewInstanceTerminatedWaiter(a.p.ec2Client)
	err = waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	}, instanceWaitTimeout)
	if err != nil {
		return classify("wait for instance termination", err)
	}
	return nil
}
