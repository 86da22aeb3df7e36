package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/yairfalse/kartta/types"
)

// ServiceInfo describes one service tag a provider can extract.
type ServiceInfo struct {
	Tag         string `json:"tag"`
	Description string `json:"description"`
}

// Client is the read-only surface a cloud provider exposes to extraction
// runs. Listing calls fetch a single page; an empty returned token ends
// the sequence. Implementations classify their errors so callers can tell
// transient failures from denied or missing scopes.
type Client interface {
	// Core operations
	ResolveScope(ctx context.Context, scope string) (types.ScopeNode, error)
	ListFolders(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error)
	ListProjects(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error)
	ListResources(ctx context.Context, projectID, serviceTag, pageToken string) ([]types.ResourceRef, string, error)
	GetResource(ctx context.Context, ref types.ResourceRef) (map[string]any, error)

	// Provider info
	Name() string
	Services() []ServiceInfo
}

// ProviderConfig holds provider configuration
type ProviderConfig struct {
	Region          string
	CredentialsFile string // For GCP
	AccessRole      string // For AWS cross-account listing
}

// ProviderFactory creates a provider instance
type ProviderFactory func(ctx context.Context, config ProviderConfig) (Client, error)

// Registry of available providers
var providers = make(map[string]ProviderFactory)

// Registered capabilities per provider, so they can be listed without
// building a client (and without credentials)
var catalogs = make(map[string][]ServiceInfo)

// RegisterProvider registers a new provider factory
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// RegisterCatalog records the service tags a provider can extract
func RegisterCatalog(name string, services []ServiceInfo) {
	catalogs[name] = services
}

// Catalog returns a provider's registered capabilities
func Catalog(name string) ([]ServiceInfo, bool) {
	services, ok := catalogs[name]
	return services, ok
}

// GetProvider creates a provider instance by name
func GetProvider(ctx context.Context, name string, config ProviderConfig) (Client, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	return factory(ctx, config)
}

// ListProviders returns available provider names
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether the client can extract the given service tag.
func Supports(c Client, serviceTag string) bool {
	for _, svc := range c.Services() {
		if svc.Tag == serviceTag {
			return true
		}
	}
	return false
}
