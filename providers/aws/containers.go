package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eks"

	"github.com/yairfalse/kartta/types"
)

// listECSClusters returns one page of ECS cluster ARNs. The list call
// returns bare ARNs, so the body is fetched later by GetResource.
func listECSClusters(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &ecs.ListClustersInput{MaxResults: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.ecs.ListClusters(ctx, input)
	if err != nil {
		return nil, "", classify("aws.ecs.list_clusters", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.ClusterArns))
	for _, arn := range out.ClusterArns {
		name := lastSegment(arn, "/")
		refs = append(refs, types.ResourceRef{
			Type:       "ecs-cluster",
			TypePlural: "ecs-clusters",
			ID:         name,
			Name:       name,
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}

// listEKSClusters returns one page of EKS cluster names
func listEKSClusters(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &eks.ListClustersInput{MaxResults: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.eks.ListClusters(ctx, input)
	if err != nil {
		return nil, "", classify("aws.eks.list_clusters", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Clusters))
	for _, name := range out.Clusters {
		refs = append(refs, types.ResourceRef{
			Type:       "eks-cluster",
			TypePlural: "eks-clusters",
			ID:         name,
			Name:       name,
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}

// listRepositories returns one page of ECR repositories
func listRepositories(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &ecr.DescribeRepositoriesInput{MaxResults: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.ecr.DescribeRepositories(ctx, input)
	if err != nil {
		return nil, "", classify("aws.ecr.describe_repositories", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Repositories))
	for _, repo := range out.Repositories {
		name := aws.ToString(repo.RepositoryName)
		refs = append(refs, types.ResourceRef{
			Type:       "repository",
			TypePlural: "repositories",
			ID:         name,
			Name:       name,
			Payload:    payload(repo),
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}

// describeECSCluster fetches the full body of one ECS cluster
func describeECSCluster(ctx context.Context, ac *accountClients, name string) (map[string]any, error) {
	out, err := ac.ecs.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: []string{name}})
	if err != nil {
		return nil, classify("aws.ecs.describe_clusters", err)
	}
	if len(out.Clusters) == 0 {
		return nil, types.NewError(types.ErrNotFound, "aws.ecs.describe_clusters",
			fmt.Errorf("cluster %q not found", name))
	}
	return payload(out.Clusters[0]), nil
}

// describeEKSCluster fetches the full body of one EKS cluster
func describeEKSCluster(ctx context.Context, ac *accountClients, name string) (map[string]any, error) {
	out, err := ac.eks.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
	if err != nil {
		return nil, classify("aws.eks.describe_cluster", err)
	}
	return payload(out.Cluster), nil
}
