package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"

	"github.com/yairfalse/kartta/types"
)

// listDBInstances returns one page of RDS instances
func listDBInstances(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &rds.DescribeDBInstancesInput{MaxRecords: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.rds.DescribeDBInstances(ctx, input)
	if err != nil {
		return nil, "", classify("aws.rds.describe_instances", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.DBInstances))
	for _, db := range out.DBInstances {
		id := aws.ToString(db.DBInstanceIdentifier)
		refs = append(refs, types.ResourceRef{
			Type:       "db-instance",
			TypePlural: "db-instances",
			ID:         id,
			Name:       id,
			Payload:    payload(db),
		})
	}
	return refs, aws.ToString(out.Marker), nil
}

// listTables returns one page of DynamoDB table names. The list call
// returns bare names, so the body is fetched later by GetResource.
func listTables(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &dynamodb.ListTablesInput{Limit: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.ExclusiveStartTableName = aws.String(pageToken)
	}

	out, err := ac.dynamodb.ListTables(ctx, input)
	if err != nil {
		return nil, "", classify("aws.dynamodb.list_tables", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.TableNames))
	for _, name := range out.TableNames {
		refs = append(refs, types.ResourceRef{
			Type:       "table",
			TypePlural: "tables",
			ID:         name,
			Name:       name,
		})
	}
	return refs, aws.ToString(out.LastEvaluatedTableName), nil
}

// listRedshiftClusters returns one page of Redshift clusters
func listRedshiftClusters(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &redshift.DescribeClustersInput{MaxRecords: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.redshift.DescribeClusters(ctx, input)
	if err != nil {
		return nil, "", classify("aws.redshift.describe_clusters", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Clusters))
	for _, cluster := range out.Clusters {
		id := aws.ToString(cluster.ClusterIdentifier)
		refs = append(refs, types.ResourceRef{
			Type:       "redshift-cluster",
			TypePlural: "redshift-clusters",
			ID:         id,
			Name:       id,
			Payload:    payload(cluster),
		})
	}
	return refs, aws.ToString(out.Marker), nil
}

// listMemoryDBClusters returns one page of MemoryDB clusters
func listMemoryDBClusters(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &memorydb.DescribeClustersInput{MaxResults: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.memorydb.DescribeClusters(ctx, input)
	if err != nil {
		return nil, "", classify("aws.memorydb.describe_clusters", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Clusters))
	for _, cluster := range out.Clusters {
		name := aws.ToString(cluster.Name)
		refs = append(refs, types.ResourceRef{
			Type:       "memorydb-cluster",
			TypePlural: "memorydb-clusters",
			ID:         name,
			Name:       name,
			Payload:    payload(cluster),
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}

// describeTable fetches the full body of one DynamoDB table
func describeTable(ctx context.Context, ac *accountClients, name string) (map[string]any, error) {
	out, err := ac.dynamodb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return nil, classify("aws.dynamodb.describe_table", err)
	}
	return payload(out.Table), nil
}
