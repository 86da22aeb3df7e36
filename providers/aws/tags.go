package aws

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// nameFromTags returns the Name tag value, or fallback when absent
func nameFromTags(tags []ec2types.Tag, fallback string) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			if v := aws.ToString(tag.Value); v != "" {
				return v
			}
		}
	}
	return fallback
}
