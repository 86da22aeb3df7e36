// Package gcp implements the provider client for Google Cloud using the
// Resource Manager hierarchy and Cloud Asset inventory APIs.
package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/cloudasset/v1"
	"google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/option"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

const defaultPageSize = 200

// Factory function for creating GCP clients
func NewGCPClientFactory(ctx context.Context, config providers.ProviderConfig) (providers.Client, error) {
	return NewClient(ctx, config)
}

func init() {
	// Register the GCP provider factory
	providers.RegisterProvider("gcp", NewGCPClientFactory)
	providers.RegisterCatalog("gcp", Catalog())
}

// Client implements providers.Client using Resource Manager v3 and
// Cloud Asset v1.
type Client struct {
	crm    *cloudresourcemanager.Service
	assets *cloudasset.Service
}

// NewClient creates a new GCP client using application default
// credentials unless a credentials file or access token overrides them.
func NewClient(ctx context.Context, config providers.ProviderConfig) (*Client, error) {
	opts := clientOptions(config)

	crm, err := cloudresourcemanager.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource manager service: %w", err)
	}

	assets, err := cloudasset.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset service: %w", err)
	}

	return &Client{crm: crm, assets: assets}, nil
}

func clientOptions(config providers.ProviderConfig) []option.ClientOption {
	var opts []option.ClientOption

	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	} else if token := os.Getenv("GOOGLE_OAUTH_ACCESS_TOKEN"); token != "" {
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		opts = append(opts, option.WithTokenSource(source))
	}

	return opts
}

// Name returns the provider name
func (c *Client) Name() string {
	return "gcp"
}

// ResolveScope resolves a configured root scope into its node. Accepted
// forms are organizations/<id>, folders/<id> and projects/<id>.
func (c *Client) ResolveScope(ctx context.Context, scope string) (types.ScopeNode, error) {
	switch {
	case strings.HasPrefix(scope, "organizations/"):
		org, err := c.crm.Organizations.Get(scope).Context(ctx).Do()
		if err != nil {
			return types.ScopeNode{}, classify("gcp.organizations.get", err)
		}
		id := shortID(org.Name)
		return types.ScopeNode{
			Kind: types.KindOrganization,
			ID:   id,
			Name: org.DisplayName,
			Path: []string{id},
		}, nil

	case strings.HasPrefix(scope, "folders/"):
		folder, err := c.crm.Folders.Get(scope).Context(ctx).Do()
		if err != nil {
			return types.ScopeNode{}, classify("gcp.folders.get", err)
		}
		id := shortID(folder.Name)
		return types.ScopeNode{
			Kind: types.KindFolder,
			ID:   id,
			Name: folder.DisplayName,
			Path: []string{id},
		}, nil

	case strings.HasPrefix(scope, "projects/"):
		project, err := c.crm.Projects.Get(scope).Context(ctx).Do()
		if err != nil {
			return types.ScopeNode{}, classify("gcp.projects.get", err)
		}
		return types.ScopeNode{
			Kind:   types.KindProject,
			ID:     project.ProjectId,
			Name:   project.DisplayName,
			Labels: project.Labels,
			Path:   []string{project.ProjectId},
		}, nil

	default:
		return types.ScopeNode{}, types.NewError(types.ErrFatal, "gcp.scope.resolve",
			fmt.Errorf("scope must start with organizations/, folders/ or projects/: %q", scope))
	}
}

// ListFolders returns one page of active folders directly under parent.
func (c *Client) ListFolders(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error) {
	parentName, err := scopeName(parent)
	if err != nil {
		return nil, "", types.NewError(types.ErrFatal, "gcp.folders.list", err)
	}

	call := c.crm.Folders.List().Parent(parentName).PageSize(defaultPageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", classify("gcp.folders.list", err)
	}

	folders := make([]types.ScopeNode, 0, len(resp.Folders))
	for _, f := range resp.Folders {
		if f.State != "" && f.State != "ACTIVE" {
			continue
		}
		folders = append(folders, types.ScopeNode{
			Kind:     types.KindFolder,
			ID:       shortID(f.Name),
			Name:     f.DisplayName,
			ParentID: parent.ID,
		})
	}

	return folders, resp.NextPageToken, nil
}

// ListProjects returns one page of active projects directly under parent.
func (c *Client) ListProjects(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error) {
	parentName, err := scopeName(parent)
	if err != nil {
		return nil, "", types.NewError(types.ErrFatal, "gcp.projects.list", err)
	}

	call := c.crm.Projects.List().Parent(parentName).PageSize(defaultPageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", classify("gcp.projects.list", err)
	}

	projects := make([]types.ScopeNode, 0, len(resp.Projects))
	for _, p := range resp.Projects {
		if p.State != "" && p.State != "ACTIVE" {
			continue
		}
		projects = append(projects, types.ScopeNode{
			Kind:     types.KindProject,
			ID:       p.ProjectId,
			Name:     p.DisplayName,
			Labels:   p.Labels,
			ParentID: parent.ID,
		})
	}

	return projects, resp.NextPageToken, nil
}

// scopeName builds the Resource Manager parent name for a scope node.
func scopeName(node types.ScopeNode) (string, error) {
	switch node.Kind {
	case types.KindOrganization:
		return "organizations/" + node.ID, nil
	case types.KindFolder:
		return "folders/" + node.ID, nil
	case types.KindProject:
		return "projects/" + node.ID, nil
	default:
		return "", fmt.Errorf("unknown scope kind %q", node.Kind)
	}
}

// shortID strips the resource-name prefix: "folders/123" becomes "123".
func shortID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
