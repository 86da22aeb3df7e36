package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yairfalse/kartta/types"
)

// listBuckets returns all S3 buckets. ListBuckets is not paginated.
func listBuckets(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	out, err := ac.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, "", classify("aws.s3.list_buckets", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Buckets))
	for _, bucket := range out.Buckets {
		name := aws.ToString(bucket.Name)
		refs = append(refs, types.ResourceRef{
			Type:       "bucket",
			TypePlural: "buckets",
			ID:         name,
			Name:       name,
			Payload:    payload(bucket),
		})
	}
	return refs, "", nil
}

// listVolumes returns one page of EBS volumes
func listVolumes(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &ec2.DescribeVolumesInput{MaxResults: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.ec2.DescribeVolumes(ctx, input)
	if err != nil {
		return nil, "", classify("aws.ec2.describe_volumes", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Volumes))
	for _, vol := range out.Volumes {
		id := aws.ToString(vol.VolumeId)
		refs = append(refs, types.ResourceRef{
			Type:       "volume",
			TypePlural: "volumes",
			ID:         id,
			Name:       nameFromTags(vol.Tags, id),
			Payload:    payload(vol),
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}
