package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/yairfalse/kartta/types"
)

// listRoles returns one page of IAM roles
func listRoles(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &iam.ListRolesInput{MaxItems: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.iam.ListRoles(ctx, input)
	if err != nil {
		return nil, "", classify("aws.iam.list_roles", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Roles))
	for _, role := range out.Roles {
		name := aws.ToString(role.RoleName)
		refs = append(refs, types.ResourceRef{
			Type:       "role",
			TypePlural: "roles",
			ID:         name,
			Name:       name,
			Payload:    payload(role),
		})
	}

	next := ""
	if out.IsTruncated {
		next = aws.ToString(out.Marker)
	}
	return refs, next, nil
}

// listUsers returns one page of IAM users
func listUsers(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &iam.ListUsersInput{MaxItems: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.iam.ListUsers(ctx, input)
	if err != nil {
		return nil, "", classify("aws.iam.list_users", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Users))
	for _, user := range out.Users {
		name := aws.ToString(user.UserName)
		refs = append(refs, types.ResourceRef{
			Type:       "user",
			TypePlural: "users",
			ID:         name,
			Name:       name,
			Payload:    payload(user),
		})
	}

	next := ""
	if out.IsTruncated {
		next = aws.ToString(out.Marker)
	}
	return refs, next, nil
}

// listKeys returns one page of KMS key IDs. The list call returns bare
// IDs, so the body is fetched later by GetResource.
func listKeys(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error) {
	input := &kms.ListKeysInput{Limit: aws.Int32(listPageSize)}
	if pageToken != "" {
		input.Marker = aws.String(pageToken)
	}

	out, err := ac.kms.ListKeys(ctx, input)
	if err != nil {
		return nil, "", classify("aws.kms.list_keys", err)
	}

	refs := make([]types.ResourceRef, 0, len(out.Keys))
	for _, key := range out.Keys {
		id := aws.ToString(key.KeyId)
		refs = append(refs, types.ResourceRef{
			Type:       "key",
			TypePlural: "keys",
			ID:         id,
			Name:       id,
		})
	}

	next := ""
	if out.Truncated {
		next = aws.ToString(out.NextMarker)
	}
	return refs, next, nil
}

// describeKey fetches the full body of one KMS key
func describeKey(ctx context.Context, ac *accountClients, keyID string) (map[string]any, error) {
	out, err := ac.kms.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(keyID)})
	if err != nil {
		return nil, classify("aws.kms.describe_key", err)
	}
	return payload(out.KeyMetadata), nil
}
