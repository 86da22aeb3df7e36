package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

// listPageSize is the page size requested from the per-service list calls
const listPageSize = 100

// listFunc returns one page of refs from a single AWS list call
type listFunc func(ctx context.Context, ac *accountClients, pageToken string) ([]types.ResourceRef, string, error)

// subLister is one list call contributing to a service tag. A tag's
// listers run in order, chained through composite page tokens of the
// form "<lister>|<subToken>".
type subLister struct {
	name string
	list listFunc
}

type serviceSpec struct {
	description string
	listers     []subLister
}

var serviceCatalog = map[string]serviceSpec{
	"compute": {"EC2 instances, Auto Scaling groups and Lambda functions", []subLister{
		{"instances", listInstances},
		{"autoscaling-groups", listAutoScalingGroups},
		{"functions", listFunctions},
	}},
	"containers": {"ECS clusters, EKS clusters and ECR repositories", []subLister{
		{"ecs-clusters", listECSClusters},
		{"eks-clusters", listEKSClusters},
		{"repositories", listRepositories},
	}},
	"databases": {"RDS instances, DynamoDB tables, Redshift and MemoryDB clusters", []subLister{
		{"db-instances", listDBInstances},
		{"tables", listTables},
		{"redshift-clusters", listRedshiftClusters},
		{"memorydb-clusters", listMemoryDBClusters},
	}},
	"network": {"Load balancers, target groups, Route53 hosted zones and VPCs", []subLister{
		{"load-balancers", listLoadBalancers},
		{"target-groups", listTargetGroups},
		{"hosted-zones", listHostedZones},
		{"vpcs", listVPCs},
	}},
	"storage": {"S3 buckets and EBS volumes", []subLister{
		{"buckets", listBuckets},
		{"volumes", listVolumes},
	}},
	"identity": {"IAM roles and users", []subLister{
		{"roles", listRoles},
		{"users", listUsers},
	}},
	"kms": {"KMS keys", []subLister{
		{"keys", listKeys},
	}},
	"messaging": {"SQS queues", []subLister{
		{"queues", listQueues},
	}},
	"observability": {"CloudWatch log groups and CloudTrail trails", []subLister{
		{"log-groups", listLogGroups},
		{"trails", listTrails},
	}},
}

// Catalog returns the supported service tags
func Catalog() []providers.ServiceInfo {
	infos := make([]providers.ServiceInfo, 0, len(serviceCatalog))
	for tag, spec := range serviceCatalog {
		infos = append(infos, providers.ServiceInfo{Tag: tag, Description: spec.description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Tag < infos[j].Tag })
	return infos
}

// Services returns the supported service tags
func (c *Client) Services() []providers.ServiceInfo {
	return Catalog()
}

// ListResources returns one page of resource refs for a service tag in an
// account. The page token walks every lister of the tag in order; a page
// may be empty when one lister is exhausted and the next has not produced
// results yet.
func (c *Client) ListResources(ctx context.Context, projectID, serviceTag, pageToken string) ([]types.ResourceRef, string, error) {
	spec, ok := serviceCatalog[serviceTag]
	if !ok {
		return nil, "", types.NewError(types.ErrFatal, "aws.resources.list",
			fmt.Errorf("unsupported service tag %q", serviceTag))
	}

	idx, subToken, err := parsePageToken(spec.listers, pageToken)
	if err != nil {
		return nil, "", types.NewError(types.ErrFatal, "aws.resources.list", err)
	}

	ac := c.accountClients(projectID)
	lister := spec.listers[idx]

	refs, next, err := lister.list(ctx, ac, subToken)
	if err != nil {
		return nil, "", err
	}

	for i := range refs {
		refs[i].ServiceTag = serviceTag
		refs[i].ProjectID = projectID
	}

	switch {
	case next != "":
		return refs, lister.name + "|" + next, nil
	case idx+1 < len(spec.listers):
		return refs, spec.listers[idx+1].name + "|", nil
	default:
		return refs, "", nil
	}
}

// parsePageToken splits a composite token into a lister index and the
// lister's own token. An empty token starts at the first lister.
func parsePageToken(listers []subLister, token string) (int, string, error) {
	if token == "" {
		return 0, "", nil
	}
	parts := strings.SplitN(token, "|", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("malformed page token %q", token)
	}
	for i, l := range listers {
		if l.name == parts[0] {
			return i, parts[1], nil
		}
	}
	return 0, "", fmt.Errorf("page token names unknown lister %q", parts[0])
}

// GetResource returns the full body for a ref. Most listings already carry
// the resource body, so this only re-fetches types whose list call returns
// bare names.
func (c *Client) GetResource(ctx context.Context, ref types.ResourceRef) (map[string]any, error) {
	ac := c.accountClients(ref.ProjectID)

	switch ref.Type {
	case "ecs-cluster":
		return describeECSCluster(ctx, ac, ref.ID)
	case "eks-cluster":
		return describeEKSCluster(ctx, ac, ref.ID)
	case "table":
		return describeTable(ctx, ac, ref.ID)
	case "key":
		return describeKey(ctx, ac, ref.ID)
	case "queue":
		return describeQueue(ctx, ac, ref)
	}

	if ref.Payload != nil {
		return ref.Payload, nil
	}
	return nil, types.NewError(types.ErrNotFound, "aws.resources.get",
		fmt.Errorf("no body available for %s %q", ref.Type, ref.ID))
}

// payload converts an SDK struct into a generic map through JSON
func payload(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// lastSegment returns the substring after the final separator
func lastSegment(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[i+len(sep):]
	}
	return s
}
