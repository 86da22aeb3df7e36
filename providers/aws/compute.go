package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/yairfalse/kartta/types"
)

// listInstances returns one page of EC2 instances
func listInstances(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &ec2.DescribeInstancesInput{MaxResults: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.ec2.DescribeInstances(ctx, input)
	if err != nil {
		return nil, "", classify("aws.ec2.describe_instances", err)
	}

	var refs []types.ResourceRef
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			id := aws.ToString(inst.InstanceId)
			refs = append(refs, types.ResourceRef{
				Type:       "instance",
				TypePlural: "instances",
				ID:         id,
				Name:       nameFromTags(inst.Tags, id),
				Payload:    payload(inst),
			})
		}
	}
	return refs, aws.ToString(out.NextToken), nil
}

// listAutoScalingGroups returns one page of Auto Scaling groups
func listAutoScalingGroups(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &autoscaling.DescribeAutoScalingGroupsInput{MaxRecords: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.autoscaling.DescribeAutoScalingGroups(ctx, input)
	if err != nil {
		return nil, "", classify("aws.autoscaling.describe_groups", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.AutoScalingGroups))
	for _, group := range out.AutoScalingGroups {
		name := aws.ToString(group.AutoScalingGroupName)
		refs = append(refs, types.ResourceRef{
			Type:       "autoscaling-group",
			TypePlural: "autoscaling-groups",
			ID:         name,
			Name:       name,
			Payload:    payload(group),
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}

// listFunctions returns one page of Lambda functions
func listFunctions(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &lambda.ListFunctionsInput{MaxItems: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.lambda.ListFunctions(ctx, input)
	if err != nil {
		return nil, "", classify("aws.lambda.list_functions", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Functions))
	for _, fn := range out.Functions {
		name := aws.ToString(fn.FunctionName)
		refs = append(refs, types.ResourceRef{
			Type:       "function",
			TypePlural: "functions",
			ID:         name,
			Name:       name,
			Payload:    payload(fn),
		})
	}
	return refs, aws.ToString(out.NextMarker), nil
}
