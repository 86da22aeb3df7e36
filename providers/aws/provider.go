// Package aws implements the provider client for AWS. The Organizations
// hierarchy maps onto scope nodes: the organization root is the top scope,
// organizational units are folders, and member accounts are projects.
// Resources in member accounts are listed by assuming an access role in
// each account.
package aws

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

// defaultAccessRole is the role assumed in member accounts when the
// config does not name one. It is the role AWS creates for accounts
// provisioned through Organizations.
const defaultAccessRole = "OrganizationAccountAccessRole"

// hierarchyPageSize is capped at 20 by the Organizations API.
const hierarchyPageSize = 20

// NewAWSClientFactory creates an AWS provider client
func NewAWSClientFactory(ctx context.Context, cfg providers.ProviderConfig) (providers.Client, error) {
	return NewClient(ctx, cfg)
}

func init() {
	// Register the AWS provider factory
	providers.RegisterProvider("aws", NewAWSClientFactory)
	providers.RegisterCatalog("aws", Catalog())
}

// Client implements providers.Client for AWS
type Client struct {
	cfg           aws.Config
	orgs          *organizations.Client
	sts           *sts.Client
	callerAccount string
	accessRole    string

	mu       sync.Mutex
	accounts map[string]*accountClients
}

// NewClient creates an AWS client rooted in the caller's credentials
func NewClient(ctx context.Context, providerCfg providers.ProviderConfig) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if providerCfg.Region != "" {
		opts = append(opts, config.WithRegion(providerCfg.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	stsClient := sts.NewFromConfig(cfg)
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	role := providerCfg.AccessRole
	if role == "" {
		role = defaultAccessRole
	}

	return &Client{
		cfg:           cfg,
		orgs:          organizations.NewFromConfig(cfg),
		sts:           stsClient,
		callerAccount: aws.ToString(identity.Account),
		accessRole:    role,
		accounts:      make(map[string]*accountClients),
	}, nil
}

// Name returns the provider name
func (c *Client) Name() string {
	return "aws"
}

// ResolveScope resolves a root scope reference into a scope node.
// Accepted forms: "organization" (the whole org), a root ID ("r-..."),
// an OU ID ("ou-...") or a 12-digit account ID.
func (c *Client) ResolveScope(ctx context.Context, scope string) (types.ScopeNode, error) {
	switch {
	case scope == "organization" || strings.HasPrefix(scope, "r-"):
		return c.resolveRoot(ctx, scope)

	case strings.HasPrefix(scope, "ou-"):
		out, err := c.orgs.DescribeOrganizationalUnit(ctx, &organizations.DescribeOrganizationalUnitInput{
			OrganizationalUnitId: aws.String(scope),
		})
		if err != nil {
			return types.ScopeNode{}, classify("aws.organizations.describe_ou", err)
		}
		return types.ScopeNode{
			Kind: types.KindFolder,
			ID:   scope,
			Name: aws.ToString(out.OrganizationalUnit.Name),
			Path: []string{scope},
		}, nil

	case isAccountID(scope):
		out, err := c.orgs.DescribeAccount(ctx, &organizations.DescribeAccountInput{
			AccountId: aws.String(scope),
		})
		if err != nil {
			return types.ScopeNode{}, classify("aws.organizations.describe_account", err)
		}
		return types.ScopeNode{
			Kind: types.KindProject,
			ID:   scope,
			Name: aws.ToString(out.Account.Name),
			Path: []string{scope},
		}, nil

	default:
		return types.ScopeNode{}, types.NewError(types.ErrFatal, "aws.scope.resolve",
			fmt.Errorf("scope must be \"organization\", a root ID (r-), an OU ID (ou-) or a 12-digit account ID, got %q", scope))
	}
}

// resolveRoot finds the organization root, optionally matching a specific root ID
func (c *Client) resolveRoot(ctx context.Context, scope string) (types.ScopeNode, error) {
	out, err := c.orgs.ListRoots(ctx, &organizations.ListRootsInput{})
	if err != nil {
		return types.ScopeNode{}, classify("aws.organizations.list_roots", err)
	}
	if len(out.Roots) == 0 {
		return types.ScopeNode{}, types.NewError(types.ErrFatal, "aws.scope.resolve",
			fmt.Errorf("organization has no roots"))
	}

	for _, root := range out.Roots {
		id := aws.ToString(root.Id)
		if scope == "organization" || scope == id {
			return types.ScopeNode{
				Kind: types.KindOrganization,
				ID:   id,
				Name: aws.ToString(root.Name),
				Path: []string{id},
			}, nil
		}
	}
	return types.ScopeNode{}, types.NewError(types.ErrNotFound, "aws.scope.resolve",
		fmt.Errorf("root %q not found in organization", scope))
}

// ListFolders returns one page of organizational units under a parent
func (c *Client) ListFolders(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error) {
	input := &organizations.ListOrganizationalUnitsForParentInput{
		ParentId:   aws.String(parent.ID),
		MaxResults: aws.Int32(hierarchyPageSize),
	}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := c.orgs.ListOrganizationalUnitsForParent(ctx, input)
	if err != nil {
		return nil, "", classify("aws.organizations.list_ous", err)
	}

	nodes := make([]types.ScopeNode, 0, len(out.OrganizationalUnits))
	for _, ou := range out.OrganizationalUnits {
		nodes = append(nodes, types.ScopeNode{
			Kind:     types.KindFolder,
			ID:       aws.ToString(ou.Id),
			Name:     aws.ToString(ou.Name),
			ParentID: parent.ID,
		})
	}
	return nodes, aws.ToString(out.NextToken), nil
}

// ListProjects returns one page of active accounts directly under a parent
func (c *Client) ListProjects(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error) {
	input := &organizations.ListAccountsForParentInput{
		ParentId:   aws.String(parent.ID),
		MaxResults: aws.Int32(hierarchyPageSize),
	}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := c.orgs.ListAccountsForParent(ctx, input)
	if err != nil {
		return nil, "", classify("aws.organizations.list_accounts", err)
	}

	nodes := make([]types.ScopeNode, 0, len(out.Accounts))
	for _, acct := range out.Accounts {
		if acct.Status != orgtypes.AccountStatusActive {
			continue
		}
		nodes = append(nodes, types.ScopeNode{
			Kind:     types.KindProject,
			ID:       aws.ToString(acct.Id),
			Name:     aws.ToString(acct.Name),
			ParentID: parent.ID,
		})
	}
	return nodes, aws.ToString(out.NextToken), nil
}

// accountClients returns the cached service clients for an account,
// assuming the access role for accounts other than the caller's own.
func (c *Client) accountClients(accountID string) *accountClients {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ac, ok := c.accounts[accountID]; ok {
		return ac
	}

	cfg := c.cfg.Copy()
	if accountID != c.callerAccount {
		roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, c.accessRole)
		cfg.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(c.sts, roleARN))
	}

	ac := newAccountClients(cfg)
	c.accounts[accountID] = ac
	return ac
}

// isAccountID reports whether s looks like a 12-digit AWS account ID
func isAccountID(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
