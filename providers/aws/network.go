package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

func nameTags(resourceType ec2types.ResourceType, name string) []ec2types.TagSpecification {
	if name == "" {
		return nil
	}
	return []ec2types.TagSpecification{{
		ResourceType: resourceType,
		Tags: []ec2types.Tag{
			{Key: awssdk.String("Name"), Value: awssdk.String(name)},
		},
	}}
}

// networkAdapter manages VPCs.
type networkAdapter struct {
	p *Provider
}

func (a *networkAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Network",
		Immutable: []string{"cidr_block"},
		Computed:  []string{"id", "default_route_table_id"},
	}
}

func (a *networkAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         awssdk.String(strAttr(attrs, "cidr_block")),
		TagSpecifications: nameTags(ec2types.ResourceTypeVpc, strAttr(attrs, "name")),
	})
	if err != nil {
		return nil, classify("create network", err)
	}

	vpcID := awssdk.ToString(out.Vpc.VpcId)

	if boolAttr(attrs, "enable_dns_hostnames") {
		_, err = a.p.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:              awssdk.String(vpcID),
			EnableDnsHostnames: &ec2types.AttributeBooleanValue{Value: awssdk.Bool(true)},
		})
		if err != nil {
			return nil, classify("enable dns hostnames", err)
		}
	}

	return a.read(ctx, vpcID)
}

func (a *networkAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	return a.read(ctx, id)
}

func (a *networkAdapter) read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		VpcIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read network", err)
	}
	if len(out.Vpcs) == 0 {
		return nil, nil
	}
	vpc := out.Vpcs[0]

	attrs := adapter.Attrs{
		"id":         awssdk.ToString(vpc.VpcId),
		"cidr_block": awssdk.ToString(vpc.CidrBlock),
		"state":      string(vpc.State),
	}

	rt, err := a.p.ec2Client.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []ec2types.Filter{
			{Name: awssdk.String("vpc-id"), Values: []string{id}},
			{Name: awssdk.String("association.main"), Values: []string{"true"}},
		},
	})
	if err == nil && len(rt.RouteTables) > 0 {
		attrs["default_route_table_id"] = awssdk.ToString(rt.RouteTables[0].RouteTableId)
	}
	return attrs, nil
}

func (a *networkAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if v, ok := changed["enable_dns_hostnames"]; ok {
		enable, _ := v.(bool)
		_, err := a.p.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:              awssdk.String(id),
			EnableDnsHostnames: &ec2types.AttributeBooleanValue{Value: awssdk.Bool(enable)},
		})
		if err != nil {
			return nil, classify("update network", err)
		}
	}
	return a.read(ctx, id)
}

func (a *networkAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.ec2Client.DeleteVpc(ctx, &ec2.DeleteVpcInput{
		VpcId: awssdk.String(id),
	})
	if err != nil && !isNotFound(err) {
		return classify("delete network", err)
	}
	return nil
}

// subnetAdapter manages subnets within a VPC.
type subnetAdapter struct {
	p *Provider
}

func (a *subnetAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Subnet",
		Immutable: []string{"vpc_id", "cidr_block", "availability_zone"},
		Computed:  []string{"id"},
	}
}

func (a *subnetAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	input := &ec2.CreateSubnetInput{
		VpcId:             awssdk.String(strAttr(attrs, "vpc_id")),
		CidrBlock:         awssdk.String(strAttr(attrs, "cidr_block")),
		TagSpecifications: nameTags(ec2types.ResourceTypeSubnet, strAttr(attrs, "name")),
	}
	if az := strAttr(attrs, "availability_zone"); az != "" {
		input.AvailabilityZone = awssdk.String(az)
	}

	out, err := a.p.ec2Client.CreateSubnet(ctx, input)
	if err != nil {
		return nil, classify("create subnet", err)
	}

	subnetID := awssdk.ToString(out.Subnet.SubnetId)

	if boolAttr(attrs, "map_public_ip_on_launch") {
		_, err = a.p.ec2Client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            awssdk.String(subnetID),
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: awssdk.Bool(true)},
		})
		if err != nil {
			return nil, classify("map public ip", err)
		}
	}

	return a.Read(ctx, subnetID)
}

func (a *subnetAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		SubnetIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read subnet", err)
	}
	if len(out.Subnets) == 0 {
		return nil, nil
	}
	s := out.Subnets[0]
	return adapter.Attrs{
		"id":                awssdk.ToString(s.SubnetId),
		"vpc_id":            awssdk.ToString(s.VpcId),
		"cidr_block":        awssdk.ToString(s.CidrBlock),
		"availability_zone": awssdk.ToString(s.AvailabilityZone),
	}, nil
}

func (a *subnetAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if v, ok := changed["map_public_ip_on_launch"]; ok {
		enable, _ := v.(bool)
		_, err := a.p.ec2Client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            awssdk.String(id),
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: awssdk.Bool(enable)},
		})
		if err != nil {
			return nil, classify("update subnet", err)
		}
	}
	return a.Read(ctx, id)
}

func (a *subnetAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.ec2Client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{
		SubnetId: awssdk.String(id),
	})
	if err != nil && !isNotFound(err) {
		return classify("delete subnet", err)
	}
	return nil
}

// routeTableAdapter manages route tables and their routes.
type routeTableAdapter struct {
	p *Provider
}

func (a *routeTableAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "RouteTable",
		Immutable: []string{"vpc_id"},
		Computed:  []string{"id"},
	}
}

func (a *routeTableAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId:             awssdk.String(strAttr(attrs, "vpc_id")),
		TagSpecifications: nameTags(ec2types.ResourceTypeRouteTable, strAttr(attrs, "name")),
	})
	if err != nil {
		return nil, classify("create route table", err)
	}

	rtID := awssdk.ToString(out.RouteTable.RouteTableId)
	if err := a.syncRoutes(ctx, rtID, attrs); err != nil {
		return nil, err
	}
	return a.Read(ctx, rtID)
}

func (a *routeTableAdapter) syncRoutes(ctx context.Context, id string, attrs adapter.Attrs) error {
	routes, ok := attrs["routes"].([]any)
	if !ok {
		return nil
	}
	for _, raw := range routes {
		route, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		input := &ec2.CreateRouteInput{
			RouteTableId:         awssdk.String(id),
			DestinationCidrBlock: awssdk.String(strAttr(route, "destination")),
		}
		if gw := strAttr(route, "gateway_id"); gw != "" {
			input.GatewayId = awssdk.String(gw)
		}
		if _, err := a.p.ec2Client.CreateRoute(ctx, input); err != nil {
			return classify("create route", err)
		}
	}
	return nil
}

func (a *routeTableAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		RouteTableIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read route table", err)
	}
	if len(out.RouteTables) == 0 {
		return nil, nil
	}
	rt := out.RouteTables[0]
	return adapter.Attrs{
		"id":     awssdk.ToString(rt.RouteTableId),
		"vpc_id": awssdk.ToString(rt.VpcId),
	}, nil
}

func (a *routeTableAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if _, ok := changed["routes"]; ok {
		if err := a.replaceRoutes(ctx, id, changed); err != nil {
			return nil, err
		}
	}
	return a.Read(ctx, id)
}

// replaceRoutes drops every non-local route then recreates from desired.
func (a *routeTableAdapter) replaceRoutes(ctx context.Context, id string, attrs adapter.Attrs) error {
	out, err := a.p.ec2Client.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		RouteTableIds: []string{id},
	})
	if err != nil {
		return classify("read route table", err)
	}
	if len(out.RouteTables) > 0 {
		for _, r := range out.RouteTables[0].Routes {
			if awssdk.ToString(r.GatewayId) == "local" || r.DestinationCidrBlock == nil {
				continue
			}
			_, err := a.p.ec2Client.DeleteRoute(ctx, &ec2.DeleteRouteInput{
				RouteTableId:         awssdk.String(id),
				DestinationCidrBlock: r.DestinationCidrBlock,
			})
			if err != nil && !isNotFound(err) {
				return classify("delete route", err)
			}
		}
	}
	return a.syncRoutes(ctx, id, attrs)
}

func (a *routeTableAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.ec2Client.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{
		RouteTableId: awssdk.String(id),
	})
	if err != nil && !isNotFound(err) {
		return classify("delete route table", err)
	}
	return nil
}

// routeTableAssociationAdapter links a subnet to a route table. The
// association has no mutable attributes, so every change replaces it.
type routeTableAssociationAdapter struct {
	p *Provider
}

func (a *routeTableAssociationAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "RouteTableAssociation",
		Immutable: []string{"subnet_id", "route_table_id"},
		Computed:  []string{"id"},
	}
}

func (a *routeTableAssociationAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		SubnetId:     awssdk.String(strAttr(attrs, "subnet_id")),
		RouteTableId: awssdk.String(strAttr(attrs, "route_table_id")),
	})
	if err != nil {
		return nil, classify("associate route table", err)
	}
	return adapter.Attrs{
		"id":             awssdk.ToString(out.AssociationId),
		"subnet_id":      strAttr(attrs, "subnet_id"),
		"route_table_id": strAttr(attrs, "route_table_id"),
	}, nil
}

func (a *routeTableAssociationAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []ec2types.Filter{
			{Name: awssdk.String("association.route-table-association-id"), Values: []string{id}},
		},
	})
	if err != nil {
		return nil, classify("read route table association", err)
	}
	for _, rt := range out.RouteTables {
		for _, assoc := range rt.Associations {
			if awssdk.ToString(assoc.RouteTableAssociationId) == id {
				return adapter.Attrs{
					"id":             id,
					"subnet_id":      awssdk.ToString(assoc.SubnetId),
					"route_table_id": awssdk.ToString(rt.RouteTableId),
				}, nil
			}
		}
	}
	return nil, nil
}

func (a *routeTableAssociationAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	return a.Read(ctx, id)
}

func (a *routeTableAssociationAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.ec2Client.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{
		AssociationId: awssdk.String(id),
	})
	if err != nil && !isNotFound(err) {
		return classify("disassociate route table", err)
	}
	return nil
}

// securityGroupAdapter manages security groups and their ingress rules.
type securityGroupAdapter struct {
	p *Provider
}

func (a *securityGroupAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "SecurityGroup",
		Immutable: []string{"vpc_id", "name"},
		Computed:  []string{"id"},
	}
}

func (a *securityGroupAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	description := strAttr(attrs, "description")
	if description == "" {
		description = "managed by groundwork"
	}
	out, err := a.p.ec2Client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         awssdk.String(strAttr(attrs, "name")),
		Description:       awssdk.String(description),
		VpcId:             awssdk.String(strAttr(attrs, "vpc_id")),
		TagSpecifications: nameTags(ec2types.ResourceTypeSecurityGroup, strAttr(attrs, "name")),
	})
	if err != nil {
		return nil, classify("create security group", err)
	}

	groupID := awssdk.ToString(out.GroupId)
	if err := a.authorizeIngress(ctx, groupID, attrs); err != nil {
		return nil, err
	}
	return a.Read(ctx, groupID)
}

func (a *securityGroupAdapter) authorizeIngress(ctx context.Context, id string, attrs adapter.Attrs) error {
	perms := ingressPermissions(attrs)
	if len(perms) == 0 {
		return nil
	}
	_, err := a.p.ec2Client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       awssdk.String(id),
		IpPermissions: perms,
	})
	if err != nil {
		return classify("authorize ingress", err)
	}
	return nil
}

func ingressPermissions(attrs adapter.Attrs) []ec2types.IpPermission {
	rules, ok := attrs["ingress"].([]any)
	if !ok {
		return nil
	}
	perms := make([]ec2types.IpPermission, 0, len(rules))
	for _, raw := range rules {
		rule, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		protocol := strAttr(rule, "protocol")
		if protocol == "" {
			protocol = "tcp"
		}
		perm := ec2types.IpPermission{
			IpProtocol: awssdk.String(protocol),
			FromPort:   awssdk.Int32(int32(intAttr(rule, "from_port"))),
			ToPort:     awssdk.Int32(int32(intAttr(rule, "to_port"))),
		}
		if cidr := strAttr(rule, "cidr_block"); cidr != "" {
			perm.IpRanges = []ec2types.IpRange{{CidrIp: awssdk.String(cidr)}}
		}
		if src := strAttr(rule, "source_security_group_id"); src != "" {
			perm.UserIdGroupPairs = []ec2types.UserIdGroupPair{{GroupId: awssdk.String(src)}}
		}
		perms = append(perms, perm)
	}
	return perms
}

func (a *securityGroupAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read security group", err)
	}
	if len(out.SecurityGroups) == 0 {
		return nil, nil
	}
	sg := out.SecurityGroups[0]
	return adapter.Attrs{
		"id":     awssdk.ToString(sg.GroupId),
		"name":   awssdk.ToString(sg.GroupName),
		"vpc_id": awssdk.ToString(sg.VpcId),
	}, nil
}

func (a *securityGroupAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if _, ok := changed["ingress"]; ok {
		if err := a.revokeAllIngress(ctx, id); err != nil {
			return nil, err
		}
		if err := a.authorizeIngress(ctx, id, changed); err != nil {
			return nil, err
		}
	}
	return a.Read(ctx, id)
}

func (a *securityGroupAdapter) revokeAllIngress(ctx context.Context, id string) error {
	out, err := a.p.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{id},
	})
	if err != nil {
		return classify("read security group", err)
	}
	if len(out.SecurityGroups) == 0 || len(out.SecurityGroups[0].IpPermissions) == 0 {
		return nil
	}
	_, err = a.p.ec2Client.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
		GroupId:       awssdk.String(id),
		IpPermissions: out.SecurityGroups[0].IpPermissions,
	})
	if err != nil {
		return classify("revoke ingress", err)
	}
	return nil
}

func (a *securityGroupAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.ec2Client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: awssdk.String(id),
	})
	if err != nil && !isNotFound(err) {
		return classify("delete security group", err)
	}
	return nil
}
