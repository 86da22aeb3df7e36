package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/yairfalse/kartta/types"
)

// listLogGroups returns one page of CloudWatch log groups
func listLogGroups(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &cloudwatchlogs.DescribeLogGroupsInput{Limit: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.logs.DescribeLogGroups(ctx, input)
	if err != nil {
		return nil, "", classify("aws.logs.describe_log_groups", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.LogGroups))
	for _, group := range out.LogGroups {
		name := aws.ToString(group.LogGroupName)
		refs = append(refs, types.ResourceRef{
			Type:       "log-group",
			TypePlural: "log-groups",
			ID:         name,
			Name:       name,
			Payload:    payload(group),
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}

// listTrails returns one page of CloudTrail trails
func listTrails(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &cloudtrail.ListTrailsInput{}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.cloudtrail.ListTrails(ctx, input)
	if err != nil {
		return nil, "", classify("aws.cloudtrail.list_trails", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Trails))
	for _, trail := range out.Trails {
		name := aws.ToString(trail.Name)
		refs = append(refs, types.ResourceRef{
			Type:       "trail",
			TypePlural: "trails",
			ID:         name,
			Name:       name,
			Payload:    payload(trail),
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}
