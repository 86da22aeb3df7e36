package extractor

import (
	"context"

	"github.com/yairfalse/kartta/fetch"
	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/retry"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/throttle"
	"github.com/yairfalse/kartta/types"
)

// Listing extracts resources by draining the provider's paginated
// listing for the item's service tag. Refs that arrive without a body
// are completed with a detail fetch under the same throttle and retry.
type Listing struct {
	client   providers.Client
	policy   *retry.Policy
	throttle *throttle.Throttle
	logger   *telemetry.Logger
}

// NewListing creates the standard listing extractor
func NewListing(client providers.Client, policy *retry.Policy, th *throttle.Throttle) *Listing {
	return &Listing{
		client:   client,
		policy:   policy,
		throttle: th,
		logger:   telemetry.NewLogger("extractor"),
	}
}

// Extract lists every resource of the item's service in its project
func (e *Listing) Extract(ctx context.Context, item types.WorkItem, emit func(types.ResourceRecord) error) (int, error) {
	tag := item.ServiceTag
	op := "extract." + tag + ".list"

	fetcher := fetch.New(op, func(ctx context.Context, pageToken string) ([]types.ResourceRef, string, error) {
		return e.client.ListResources(ctx, item.Project.ID, tag, pageToken)
	}).
		WithRetry(e.policy).
		WithGate(func(ctx context.Context) error {
			return e.throttle.Acquire(ctx, tag)
		}).
		WithRateLimitNotify(func() {
			e.signalRateLimit(ctx, tag)
		})

	return fetcher.Each(ctx, func(ref types.ResourceRef) error {
		record, err := e.toRecord(ctx, item, ref)
		if err != nil {
			return err
		}
		return emit(record)
	})
}

// toRecord completes a ref into a record, fetching the body when the
// listing did not carry one.
func (e *Listing) toRecord(ctx context.Context, item types.WorkItem, ref types.ResourceRef) (types.ResourceRecord, error) {
	body := ref.Payload
	if body == nil {
		op := "extract." + item.ServiceTag + ".get"
		err := e.policy.ExecuteNotify(ctx, op, func() error {
			if err := e.throttle.Acquire(ctx, item.ServiceTag); err != nil {
				return types.NewError(types.ErrTransient, op, err)
			}
			var gerr error
			body, gerr = e.client.GetResource(ctx, ref)
			return gerr
		}, func() {
			e.signalRateLimit(ctx, item.ServiceTag)
		})
		if err != nil {
			return types.ResourceRecord{}, err
		}
	}

	return types.ResourceRecord{
		ServiceTag: item.ServiceTag,
		Type:       ref.Type,
		TypePlural: ref.TypePlural,
		ID:         ref.ID,
		Name:       ref.Name,
		ProjectID:  item.Project.ID,
		ScopePath:  item.Project.Path,
		Payload:    body,
	}, nil
}

func (e *Listing) signalRateLimit(ctx context.Context, tag string) {
	newRate := e.throttle.OnRateLimited(tag)
	e.logger.LogRateLimitSignal(ctx, tag, newRate)
	telemetry.RecordRateLimitSignal(ctx, tag, newRate)
}
