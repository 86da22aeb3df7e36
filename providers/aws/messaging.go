package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/yairfalse/kartta/types"
)

// listQueues returns one page of SQS queues. The queue URL rides in Name
// so GetResource can fetch attributes without rebuilding it.
func listQueues(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &sqs.ListQueuesInput{MaxResults: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := ac.sqs.ListQueues(ctx, input)
	if err != nil {
		return nil, "", classify("aws.sqs.list_queues", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.QueueUrls))
	for _, url := range out.QueueUrls {
		refs = append(refs, types.ResourceRef{
			Type:       "queue",
			TypePlural: "queues",
			ID:         lastSegment(url, "/"),
			Name:       url,
		})
	}
	return refs, aws.ToString(out.NextToken), nil
}

// describeQueue fetches all attributes of one SQS queue
func describeQueue(ctx context.Context, ac *accountClients, ref types.ResourceRef) (map[string]any, error) {
	out, err := ac.sqs.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(ref.Name),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, classify("aws.sqs.get_queue_attributes", err)
	}

	body := map[string]any{"queue_url": ref.Name}
	for k, v := range out.Attributes {
		body[k] = v
	}
	return body, nil
}
