package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/api/cloudasset/v1"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

// serviceSpec maps a service tag to the asset types it covers.
type serviceSpec struct {
	description string
	assetTypes  []string
}

var serviceCatalog = map[string]serviceSpec{
	"compute": {
		description: "Compute Engine instances and disks",
		assetTypes: []string{
			"compute.googleapis.com/Instance",
			"compute.googleapis.com/Disk",
		},
	},
	"network": {
		description: "VPC networks, subnetworks and firewalls",
		assetTypes: []string{
			"compute.googleapis.com/Network",
			"compute.googleapis.com/Subnetwork",
			"compute.googleapis.com/Firewall",
		},
	},
	"storage": {
		description: "Cloud Storage buckets",
		assetTypes: []string{
			"storage.googleapis.com/Bucket",
		},
	},
	"sql": {
		description: "Cloud SQL instances",
		assetTypes: []string{
			"sqladmin.googleapis.com/Instance",
		},
	},
	"gke": {
		description: "GKE clusters and node pools",
		assetTypes: []string{
			"container.googleapis.com/Cluster",
			"container.googleapis.com/NodePool",
		},
	},
	"functions": {
		description: "Cloud Functions",
		assetTypes: []string{
			"cloudfunctions.googleapis.com/CloudFunction",
		},
	},
	"pubsub": {
		description: "Pub/Sub topics and subscriptions",
		assetTypes: []string{
			"pubsub.googleapis.com/Topic",
			"pubsub.googleapis.com/Subscription",
		},
	},
	"bigquery": {
		description: "BigQuery datasets and tables",
		assetTypes: []string{
			"bigquery.googleapis.com/Dataset",
			"bigquery.googleapis.com/Table",
		},
	},
	"iam": {
		description: "Service accounts",
		assetTypes: []string{
			"iam.googleapis.com/ServiceAccount",
		},
	},
	"kms": {
		description: "KMS key rings and crypto keys",
		assetTypes: []string{
			"cloudkms.googleapis.com/KeyRing",
			"cloudkms.googleapis.com/CryptoKey",
		},
	},
}

// Catalog returns the service tags this provider supports.
func Catalog() []providers.ServiceInfo {
	infos := make([]providers.ServiceInfo, 0, len(serviceCatalog))
	for tag, spec := range serviceCatalog {
		infos = append(infos, providers.ServiceInfo{Tag: tag, Description: spec.description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Tag < infos[j].Tag })
	return infos
}

// Services returns the service tags this provider supports.
func (c *Client) Services() []providers.ServiceInfo {
	return Catalog()
}

// ListResources returns one page of a service's assets in a project. The
// asset inventory is queried with full resource content, so refs carry
// their payload already.
func (c *Client) ListResources(ctx context.Context, projectID, serviceTag, pageToken string) ([]types.ResourceRef, string, error) {
	spec, ok := serviceCatalog[serviceTag]
	if !ok {
		return nil, "", types.NewError(types.ErrFatal, "gcp.assets.list",
			fmt.Errorf("unsupported service tag %q", serviceTag))
	}

	call := c.assets.Assets.List("projects/"+projectID).
		AssetTypes(spec.assetTypes...).
		ContentType("RESOURCE").
		PageSize(defaultPageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", classify("gcp.assets.list", err)
	}

	refs := make([]types.ResourceRef, 0, len(resp.Assets))
	for _, a := range resp.Assets {
		refs = append(refs, assetToRef(projectID, serviceTag, a))
	}

	return refs, resp.NextPageToken, nil
}

// GetResource returns the full payload for one listed resource. Asset
// listings already carry resource content, so this never re-fetches.
func (c *Client) GetResource(ctx context.Context, ref types.ResourceRef) (map[string]any, error) {
	if ref.Payload == nil {
		return nil, types.NewError(types.ErrNotFound, "gcp.assets.get",
			fmt.Errorf("no payload for asset %s", ref.Name))
	}
	return ref.Payload, nil
}

func assetToRef(projectID, serviceTag string, a *cloudasset.Asset) types.ResourceRef {
	typ := strings.ToLower(lastSegment(a.AssetType))

	ref := types.ResourceRef{
		ServiceTag: serviceTag,
		Type:       typ,
		TypePlural: pluralize(typ),
		ID:         lastSegment(a.Name),
		Name:       a.Name,
		ProjectID:  projectID,
	}

	if a.Resource != nil && len(a.Resource.Data) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(a.Resource.Data, &payload); err == nil {
			ref.Payload = payload
		}
	}
	if ref.Payload == nil {
		ref.Payload = map[string]any{
			"name":       a.Name,
			"asset_type": a.AssetType,
		}
	}

	return ref
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func pluralize(typ string) string {
	switch {
	case strings.HasSuffix(typ, "y"):
		return typ[:len(typ)-1] + "ies"
	case strings.HasSuffix(typ, "s"):
		return typ + "es"
	default:
		return typ + "s"
	}
}
