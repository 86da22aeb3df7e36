package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/yairfalse/kartta/types"
)

// listLoadBalancers returns one page of ALBs and NLBs
func listLoadBalancers(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &elasticloadbalancingv2.DescribeLoadBalancersInput{PageSize: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.elbv2.DescribeLoadBalancers(ctx, input)
	if err != nil {
		return nil, "", classify("aws.elbv2.describe_load_balancers", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.LoadBalancers))
	for _, lb := range out.LoadBalancers {
		name := aws.ToString(lb.LoadBalancerName)
		refs = append(refs, types.ResourceRef{
			Type:       "load-balancer",
			TypePlural: "load-balancers",
			ID:         name,
			Name:       name,
			Payload:    payload(lb),
		})
	}
	return refs, aws.ToString(out.NextMarker), nil
}

// listTargetGroups returns one page of ELBv2 target groups
func listTargetGroups(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &elasticloadbalancingv2.DescribeTargetGroupsInput{PageSize: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.elbv2.DescribeTargetGroups(ctx, input)
	if err != nil {
		return nil, "", classify("aws.elbv2.describe_target_groups", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.TargetGroups))
	for _, tg := range out.TargetGroups {
		name := aws.ToString(tg.TargetGroupName)
		refs = append(refs, types.ResourceRef{
			Type:       "target-group",
			TypePlural: "target-groups",
			ID:         name,
			Name:       name,
			Payload:    payload(tg),
		})
	}
	return refs, aws.ToString(out.NextMarker), nil
}

// listHostedZones returns one page of Route53 hosted zones
func listHostedZones(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &route53.ListHostedZonesInput{MaxItems: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.route53.ListHostedZones(ctx, input)
	if err != nil {
		return nil, "", classify("aws.route53.list_hosted_zones", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.HostedZones))
	for _, zone := range out.HostedZones {
		// zone IDs come back as "/hostedzone/Z123..."
		id := lastSegment(aws.ToString(zone.Id), "/")
		refs = append(refs, types.ResourceRef{
			Type:       "hosted-zone",
			TypePlural: "hosted-zones",
			ID:         id,
			Name:       strings.TrimSuffix(aws.ToString(zone.Name), "."),
			Payload:    payload(zone),
		})
	}

	next := ""
	if out.IsTruncated {
		next = aws.ToString(out.NextMarker)
	}
	return refs, next, nil
}

// listVPCs returns one page of VPCs
func listVPCs(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &ec2.DescribeVpcsInput{MaxResults: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.ec2.DescribeVpcs(ctx, input)
	if err != nil {
		return nil, "", classify("aws.ec2.describe_vpcs", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Vpcs))
	for _, vpc := range out.Vpcs {
		id := aws.ToString(vpc.VpcId)
		refs = append(refs, types.ResourceRef{
			Type:       "vpc",
			TypePlural: "vpcs",
			ID:         id,
			Name:       nameFromTags(vpc.Tags, id),
			Payload:    payload(vpc),
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}
