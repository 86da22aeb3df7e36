package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"google.golang.org/api/cloudasset/v1"
	"google.golang.org/api/googleapi"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

func TestClientInterface(t *testing.T) {
	var _ providers.Client = (*Client)(nil)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantKind    types.ErrorKind
		rateLimited bool
	}{
		{
			name:     "too many requests",
			err:      &googleapi.Error{Code: 429, Message: "rate limit"},
			wantKind: types.ErrTransient, rateLimited: true,
		},
		{
			name: "quota rejection as 403",
			err: &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{
				{Reason: "rateLimitExceeded"},
			}},
			wantKind: types.ErrTransient, rateLimited: true,
		},
		{
			name:     "permission denied",
			err:      &googleapi.Error{Code: 403, Message: "forbidden"},
			wantKind: types.ErrPermissionDenied,
		},
		{
			name:     "not found",
			err:      &googleapi.Error{Code: 404},
			wantKind: types.ErrNotFound,
		},
		{
			name:     "server error",
			err:      &googleapi.Error{Code: 503},
			wantKind: types.ErrTransient,
		},
		{
			name:     "bad request",
			err:      &googleapi.Error{Code: 400},
			wantKind: types.ErrFatal,
		},
		{
			name:     "context cancelled",
			err:      context.Canceled,
			wantKind: types.ErrTransient,
		},
		{
			name:     "transport error",
			err:      errors.New("connection reset"),
			wantKind: types.ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("gcp.test", tt.err)
			if kind := types.KindOf(got); kind != tt.wantKind {
				t.Errorf("classify() kind = %v, want %v", kind, tt.wantKind)
			}
			if types.IsRateLimited(got) != tt.rateLimited {
				t.Errorf("IsRateLimited() = %v, want %v", types.IsRateLimited(got), tt.rateLimited)
			}
		})
	}
}

func TestClassify_NilError(t *testing.T) {
	if err := classify("gcp.test", nil); err != nil {
		t.Errorf("classify(nil) = %v, want nil", err)
	}
}

func TestAssetToRef(t *testing.T) {
	data, _ := json.Marshal(map[string]any{
		"name":        "my-vm",
		"machineType": "e2-medium",
	})

	asset := &cloudasset.Asset{
		Name:      "//compute.googleapis.com/projects/proj-1/zones/us-central1-a/instances/my-vm",
		AssetType: "compute.googleapis.com/Instance",
		Resource:  &cloudasset.Resource{Data: googleapi.RawMessage(data)},
	}

	ref := assetToRef("proj-1", "compute", asset)

	if ref.ID != "my-vm" {
		t.Errorf("ID = %v, want my-vm", ref.ID)
	}
	if ref.Type != "instance" {
		t.Errorf("Type = %v, want instance", ref.Type)
	}
	if ref.TypePlural != "instances" {
		t.Errorf("TypePlural = %v, want instances", ref.TypePlural)
	}
	if ref.ProjectID != "proj-1" {
		t.Errorf("ProjectID = %v, want proj-1", ref.ProjectID)
	}
	if ref.Payload["machineType"] != "e2-medium" {
		t.Errorf("Payload machineType = %v, want e2-medium", ref.Payload["machineType"])
	}
}

func TestAssetToRef_NoResourceData(t *testing.T) {
	asset := &cloudasset.Asset{
		Name:      "//storage.googleapis.com/my-bucket",
		AssetType: "storage.googleapis.com/Bucket",
	}

	ref := assetToRef("proj-1", "storage", asset)

	if ref.ID != "my-bucket" {
		t.Errorf("ID = %v, want my-bucket", ref.ID)
	}
	if ref.Payload["asset_type"] != "storage.googleapis.com/Bucket" {
		t.Errorf("fallback payload missing asset_type, got %v", ref.Payload)
	}
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"instance", "instances"},
		{"disk", "disks"},
		{"cryptokey", "cryptokeys"},
		{"address", "addresses"},
		{"repository", "repositories"},
	}

	for _, tt := range tests {
		if got := pluralize(tt.in); got != tt.want {
			t.Errorf("pluralize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScopeName(t *testing.T) {
	org := types.ScopeNode{Kind: types.KindOrganization, ID: "123"}
	if name, _ := scopeName(org); name != "organizations/123" {
		t.Errorf("scopeName(org) = %v, want organizations/123", name)
	}

	folder := types.ScopeNode{Kind: types.KindFolder, ID: "456"}
	if name, _ := scopeName(folder); name != "folders/456" {
		t.Errorf("scopeName(folder) = %v, want folders/456", name)
	}

	project := types.ScopeNode{Kind: types.KindProject, ID: "my-proj"}
	if name, _ := scopeName(project); name != "projects/my-proj" {
		t.Errorf("scopeName(project) = %v, want projects/my-proj", name)
	}

	if _, err := scopeName(types.ScopeNode{Kind: "bogus"}); err == nil {
		t.Error("scopeName(bogus) should error")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("folders/123"); got != "123" {
		t.Errorf("shortID = %v, want 123", got)
	}
	if got := shortID("plain"); got != "plain" {
		t.Errorf("shortID = %v, want plain", got)
	}
}

func TestServices_SortedWithKnownTags(t *testing.T) {
	c := &Client{}
	infos := c.Services()

	if len(infos) != len(serviceCatalog) {
		t.Fatalf("Services() returned %d entries, want %d", len(infos), len(serviceCatalog))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Tag >= infos[i].Tag {
			t.Errorf("Services() not sorted: %v before %v", infos[i-1].Tag, infos[i].Tag)
		}
	}

	if !providers.Supports(c, "compute") {
		t.Error("provider should support compute")
	}
	if providers.Supports(c, "unknownsvc") {
		t.Error("provider should not support unknownsvc")
	}
}

func TestResolveScope_RejectsBareName(t *testing.T) {
	c := &Client{}
	_, err := c.ResolveScope(context.Background(), "my-org")
	if err == nil {
		t.Fatal("ResolveScope should reject a bare scope name")
	}
	if types.KindOf(err) != types.ErrFatal {
		t.Errorf("kind = %v, want fatal", types.KindOf(err))
	}
}

func TestListResources_UnknownTag(t *testing.T) {
	c := &Client{}
	_, _, err := c.ListResources(context.Background(), "proj-1", "unknownsvc", "")
	if err == nil {
		t.Fatal("ListResources should reject an unknown service tag")
	}
	if types.KindOf(err) != types.ErrFatal {
		t.Errorf("kind = %v, want fatal", types.KindOf(err))
	}
}

func TestGetResource_UsesListedPayload(t *testing.T) {
	c := &Client{}
	ref := types.ResourceRef{
		Name:    "//compute.googleapis.com/projects/p/instances/vm",
		Payload: map[string]any{"name": "vm"},
	}

	payload, err := c.GetResource(context.Background(), ref)
	if err != nil {
		t.Fatalf("GetResource() error = %v", err)
	}
	if payload["name"] != "vm" {
		t.Errorf("payload = %v, want name=vm", payload)
	}

	_, err = c.GetResource(context.Background(), types.ResourceRef{Name: "x"})
	if err == nil {
		t.Fatal("GetResource without payload should error")
	}
	if types.KindOf(err) != types.ErrNotFound {
		t.Errorf("kind = %v, want not_found", types.KindOf(err))
	}
}
