package aws

import (
	"context"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

const dbWaitTimeout = 20 * time.Minute

// dbSubnetGroupAdapter manages RDS subnet groups.
type dbSubnetGroupAdapter struct {
	p *Provider
}

func (a *dbSubnetGroupAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "DBSubnetGroup",
		Immutable: []string{"name"},
		Computed:  []string{"id", "arn"},
	}
}

func (a *dbSubnetGroupAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	name := strAttr(attrs, "name")
	description := strAttr(attrs, "description")
	if description == "" {
		description = "managed by groundwork"
	}
	out, err := a.p.rdsClient.CreateDBSubnetGroup(ctx, &rds.CreateDBSubnetGroupInput{
		DBSubnetGroupName:        awssdk.String(name),
		DBSubnetGroupDescription: awssdk.String(description),
		SubnetIds:                strSliceAttr(attrs, "subnet_ids"),
	})
	if err != nil {
		return nil, classify("create db subnet group", err)
	}
	return adapter.Attrs{
		"id":   awssdk.ToString(out.DBSubnetGroup.DBSubnetGroupName),
		"name": awssdk.ToString(out.DBSubnetGroup.DBSubnetGroupName),
		"arn":  awssdk.ToString(out.DBSubnetGroup.DBSubnetGroupArn),
	}, nil
}

func (a *dbSubnetGroupAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.rdsClient.DescribeDBSubnetGroups(ctx, &rds.DescribeDBSubnetGroupsInput{
		DBSubnetGroupName: awssdk.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read db subnet group", err)
	}
	if len(out.DBSubnetGroups) == 0 {
		return nil, nil
	}
	grp := out.DBSubnetGroups[0]
	subnetIDs := make([]string, 0, len(grp.Subnets))
	for _, s := range grp.Subnets {
		subnetIDs = append(subnetIDs, awssdk.ToString(s.SubnetIdentifier))
	}
	return adapter.Attrs{
		"id":         awssdk.ToString(grp.DBSubnetGroupName),
		"name":       awssdk.ToString(grp.DBSubnetGroupName),
		"arn":        awssdk.ToString(grp.DBSubnetGroupArn),
		"subnet_ids": subnetIDs,
	}, nil
}

func (a *dbSubnetGroupAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if _, ok := changed["subnet_ids"]; ok {
		_, err := a.p.rdsClient.ModifyDBSubnetGroup(ctx, &rds.ModifyDBSubnetGroupInput{
			DBSubnetGroupName: awssdk.String(id),
			SubnetIds:         strSliceAttr(changed, "subnet_ids"),
		})
		if err != nil {
			return nil, classify("update db subnet group", err)
		}
	}
	return a.Read(ctx, id)
}

func (a *dbSubnetGroupAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.rdsClient.DeleteDBSubnetGroup(ctx, &rds.DeleteDBSubnetGroupInput{
		DBSubnetGroupName: awssdk.String(id),
	})
	if err != nil && !isNotFound(err) {
		return classify("delete db subnet group", err)
	}
	return nil
}

// databaseAdapter manages RDS instances. Creation blocks until the
// instance reports available so that dependents see usable endpoints.
type databaseAdapter struct {
	p *Provider
}

func (a *databaseAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Database",
		Immutable: []string{"identifier", "engine", "master_username"},
		Computed:  []string{"id", "endpoint", "port", "arn"},
	}
}

func (a *databaseAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	identifier := strAttr(attrs, "identifier")
	instanceClass := strAttr(attrs, "instance_class")
	if instanceClass == "" {
		instanceClass = "db.t3.micro"
	}
	allocated := intAttr(attrs, "allocated_storage")
	if allocated == 0 {
		allocated = 20
	}

	input := &rds.CreateDBInstanceInput{
		DBInstanceIdentifier: awssdk.String(identifier),
		Engine:               awssdk.String(strAttr(attrs, "engine")),
		DBInstanceClass:      awssdk.String(instanceClass),
		AllocatedStorage:     awssdk.Int32(int32(allocated)),
		MasterUsername:       awssdk.String(strAttr(attrs, "master_username")),
		MasterUserPassword:   awssdk.String(strAttr(attrs, "master_password")),
	}
	if v := strAttr(attrs, "engine_version"); v != "" {
		input.EngineVersion = awssdk.String(v)
	}
	if grp := strAttr(attrs, "db_subnet_group"); grp != "" {
		input.DBSubnetGroupName = awssdk.String(grp)
	}
	if groups := strSliceAttr(attrs, "security_group_ids"); len(groups) > 0 {
		input.VpcSecurityGroupIds = groups
	}

	_, err := a.p.rdsClient.CreateDBInstance(ctx, input)
	if err != nil {
		return nil, classify("create database", err)
	}

	waiter := rds.NewDBInstanceAvailableWaiter(a.p.rdsClient)
	err = waiter.Wait(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: awssdk.String(identifier),
	}, dbWaitTimeout)
	if err != nil {
		return nil, classify("wait for database", err)
	}

	return a.Read(ctx, identifier)
}

func (a *databaseAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: awssdk.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read database", err)
	}
	if len(out.DBInstances) == 0 {
		return nil, nil
	}
	db := out.DBInstances[0]

	attrs := adapter.Attrs{
		"id":              awssdk.ToString(db.DBInstanceIdentifier),
		"identifier":      awssdk.ToString(db.DBInstanceIdentifier),
		"engine":          awssdk.ToString(db.Engine),
		"instance_class":  awssdk.ToString(db.DBInstanceClass),
		"master_username": awssdk.ToString(db.MasterUsername),
		"arn":             awssdk.ToString(db.DBInstanceArn),
		"status":          awssdk.ToString(db.DBInstanceStatus),
	}
	if db.Endpoint != nil {
		attrs["endpoint"] = awssdk.ToString(db.Endpoint.Address)
		attrs["port"] = int(awssdk.ToInt32(db.Endpoint.Port))
	}
	return attrs, nil
}

func (a *databaseAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	input := &rds.ModifyDBInstanceInput{
		DBInstanceIdentifier: awssdk.String(id),
		ApplyImmediately:     awssdk.Bool(true),
	}
	if v := strAttr(changed, "instance_class"); v != "" {
		input.DBInstanceClass = awssdk.String(v)
	}
	if v := intAttr(changed, "allocated_storage"); v > 0 {
		input.AllocatedStorage = awssdk.Int32(int32(v))
	}
	if v := strAttr(changed, "master_password"); v != "" {
		input.MasterUserPassword = awssdk.String(v)
	}
	if v := strAttr(changed, "engine_version"); v != "" {
		input.EngineVersion = awssdk.String(v)
	}

	_, err := a.p.rdsClient.ModifyDBInstance(ctx, input)
	if err != nil {
		return nil, classify("update database", err)
	}

	waiter := rds.NewDBInstanceAvailableWaiter(a.p.rdsClient)
	err = waiter.Wait(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: awssdk.String(id),
	}, dbWaitTimeout)
	if err != nil {
		return nil, classify("wait for database", err)
	}

	return a.Read(ctx, id)
}

// deleteDatabaseInput honors the declared snapshot handling. Without a
// skip_final_snapshot or final_snapshot declaration, RDS rejects the call
// and the rejection surfaces as a precondition error; the instance is
// never force-removed.
func deleteDatabaseInput(id string, prior adapter.Attrs) *rds.DeleteDBInstanceInput {
	input := &rds.DeleteDBInstanceInput{
		DBInstanceIdentifier: awssdk.String(id),
	}
	if boolAttr(prior, "skip_final_snapshot") {
		input.SkipFinalSnapshot = awssdk.Bool(true)
	} else if snap := strAttr(prior, "final_snapshot"); snap != "" {
		input.FinalDBSnapshotIdentifier = awssdk.String(snap)
	}
	return input
}

func (a *databaseAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.rdsClient.DeleteDBInstance(ctx, deleteDatabaseInput(id, prior))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return classify("delete database", err)
	}

	waiter := rds.NewDBInstanceDeletedWaiter(a.p.rdsClient)
	err = waiter.Wait(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: awssdk.String(id),
	}, dbWaitTimeout)
	if err != nil && !isNotFound(err) {
		return classify("wait for database deletion", err)
	}
	return nil
}
