// Package orchestrator assembles the extraction pipeline and runs it
// end to end: resolve the root scope, walk the hierarchy, fan work out
// to the scheduler and fold everything into one run summary.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/yairfalse/kartta/checkpoint"
	"github.com/yairfalse/kartta/config"
	"github.com/yairfalse/kartta/extractor"
	"github.com/yairfalse/kartta/internal/filter"
	"github.com/yairfalse/kartta/journal"
	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/retry"
	"github.com/yairfalse/kartta/scheduler"
	"github.com/yairfalse/kartta/sink"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/throttle"
	"github.com/yairfalse/kartta/types"
	"github.com/yairfalse/kartta/walker"
)

// Orchestrator wires one configuration into a runnable pipeline
type Orchestrator struct {
	cfg    *config.Config
	client providers.Client
	logger *telemetry.Logger
}

// New creates an orchestrator for the given configuration
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		logger: telemetry.NewLogger("orchestrator"),
	}
}

// WithClient overrides the provider client built from the configuration
func (o *Orchestrator) WithClient(client providers.Client) *Orchestrator {
	o.client = client
	return o
}

// runStart is journaled when a run begins
type runStart struct {
	Provider string `json:"provider"`
	Root     string `json:"root"`
	Epoch    uint64 `json:"epoch"`
	Resume   bool   `json:"resume"`
}

// Run executes one extraction run. With resume set, work items already
// checkpointed by an interrupted run are skipped instead of redone. The
// returned summary is valid even when err is non-nil: it reports what
// completed before the run aborted.
func (o *Orchestrator) Run(ctx context.Context, resume bool) (types.RunSummary, error) {
	summary := types.RunSummary{StartedAt: time.Now()}

	client, err := o.resolveClient(ctx)
	if err != nil {
		return summary, err
	}

	root, err := client.ResolveScope(ctx, o.cfg.RootScope)
	if err != nil {
		return summary, fmt.Errorf("failed to resolve root scope %q: %w", o.cfg.RootScope, err)
	}

	store, err := checkpoint.Open(o.cfg.Checkpoint.Path, resume)
	if err != nil {
		return summary, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer func() { _ = store.Close() }()
	summary.Epoch = store.Epoch()

	jrnl, err := journal.Open(journal.DefaultConfig(o.cfg.Journal.Dir))
	if err != nil {
		return summary, fmt.Errorf("failed to open run journal: %w", err)
	}
	defer func() { _ = jrnl.Close() }()

	out, err := sink.NewFS(o.cfg.Output.Dir, sink.Format(o.cfg.Output.Format))
	if err != nil {
		return summary, fmt.Errorf("failed to prepare output sink: %w", err)
	}

	th := o.buildThrottle()
	policy := o.buildPolicy()
	registry := o.buildRegistry(client, policy, th)

	projectFilter := filter.New(
		o.cfg.Filters.IncludeProjects,
		o.cfg.Filters.ExcludeProjects,
		o.cfg.Filters.IncludeLabels,
		o.cfg.Filters.ExcludeLabels,
	)

	walk := walker.New(client, policy, th, projectFilter).
		WithSkipHandler(func(node types.ScopeNode, cause error) {
			if err := jrnl.AppendError(journal.EntryFolderSkipped, node.ID, nil, cause); err != nil {
				o.logger.Warn().Err(err).Msg("journal append failed")
			}
		})
	sched := scheduler.New(registry, store, jrnl, out, scheduler.Options{
		Workers:     o.cfg.Workers,
		GracePeriod: o.cfg.GracePeriod,
	})

	o.logger.WithContext(ctx).Info().
		Str("provider", client.Name()).
		Str("root", root.ID).
		Uint64("epoch", store.Epoch()).
		Bool("resume", resume).
		Msg("starting extraction run")

	if err := jrnl.Append(journal.EntryRunStarted, "", runStart{
		Provider: client.Name(),
		Root:     root.ID,
		Epoch:    store.Epoch(),
		Resume:   resume,
	}); err != nil {
		o.logger.Warn().Err(err).Msg("journal append failed")
	}

	sched.Start(ctx)

	tags := o.cfg.ServiceTags()
	walkStats, walkErr := walk.Walk(ctx, root, func(project types.ScopeNode) error {
		for _, tag := range tags {
			if err := sched.Enqueue(ctx, types.WorkItem{Project: project, ServiceTag: tag}); err != nil {
				return err
			}
		}
		return nil
	})

	results := sched.Wait()

	summary.Completed = results.Completed
	summary.Failed = results.Failed
	summary.SkippedUnsupported = results.SkippedUnsupported
	summary.SkippedCheckpoint = results.SkippedCheckpoint
	summary.ResourcesWritten = results.ResourcesWritten
	summary.PagesFetched = results.PagesFetched
	summary.Projects = walkStats.Projects
	summary.SkippedFolders = walkStats.SkippedFolders
	summary.Duration = time.Since(summary.StartedAt)

	if walkErr != nil {
		if err := jrnl.AppendError(journal.EntryRunCompleted, "", summary, walkErr); err != nil {
			o.logger.Warn().Err(err).Msg("journal append failed")
		}
		return summary, fmt.Errorf("hierarchy walk failed: %w", walkErr)
	}

	if err := jrnl.Append(journal.EntryRunCompleted, "", summary); err != nil {
		o.logger.Warn().Err(err).Msg("journal append failed")
	}

	if summary.OK() {
		o.finishSuccessfulRun(store)
	}

	o.logger.Info().
		Int("projects", summary.Projects).
		Int("completed", summary.Completed).
		Int("failed", len(summary.Failed)).
		Int("resources", summary.ResourcesWritten).
		Dur("duration", summary.Duration).
		Msg("extraction run complete")

	return summary, nil
}

func (o *Orchestrator) resolveClient(ctx context.Context) (providers.Client, error) {
	if o.client != nil {
		return o.client, nil
	}
	client, err := providers.GetProvider(ctx, o.cfg.Provider, providers.ProviderConfig{
		Region:          o.cfg.Region,
		CredentialsFile: o.cfg.CredentialsFile,
		AccessRole:      o.cfg.AccessRole,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", o.cfg.Provider, err)
	}
	return client, nil
}

func (o *Orchestrator) buildThrottle() *throttle.Throttle {
	overrides := make(map[string]throttle.ServiceLimits)
	for tag, svc := range o.cfg.Services {
		if svc.RatePerSecond > 0 || svc.Burst > 0 {
			overrides[tag] = throttle.ServiceLimits{
				Rate:  svc.RatePerSecond,
				Burst: svc.Burst,
			}
		}
	}

	return throttle.New(throttle.Options{
		DefaultRate:  o.cfg.Throttle.DefaultRatePerSecond,
		DefaultBurst: o.cfg.Throttle.DefaultBurst,
		MinRate:      o.cfg.Throttle.MinRatePerSecond,
		DecreaseStep: o.cfg.Throttle.DecreaseStep,
		RecoveryStep: o.cfg.Throttle.RecoveryStep,
		CoolDown:     o.cfg.Throttle.CoolDown,
	}, overrides)
}

func (o *Orchestrator) buildPolicy() *retry.Policy {
	return &retry.Policy{
		MaxAttempts:  o.cfg.Retry.MaxAttempts,
		InitialDelay: o.cfg.Retry.InitialDelay,
		MaxDelay:     o.cfg.Retry.MaxDelay,
		Multiplier:   o.cfg.Retry.Multiplier,
		Jitter:       o.cfg.Retry.Jitter,
	}
}

// buildRegistry registers the listing extractor for every configured tag
// the provider can serve. Configured tags the provider does not know stay
// unregistered and surface as skipped-unsupported during scheduling.
func (o *Orchestrator) buildRegistry(client providers.Client, policy *retry.Policy, th *throttle.Throttle) *extractor.Registry {
	registry := extractor.NewRegistry()
	listing := extractor.NewListing(client, policy, th)
	for _, tag := range o.cfg.ServiceTags() {
		if providers.Supports(client, tag) {
			registry.Register(tag, listing)
		}
	}
	return registry
}

// finishSuccessfulRun drops state a finished run no longer needs: the
// current epoch's checkpoint marks and journal files past retention.
func (o *Orchestrator) finishSuccessfulRun(store *checkpoint.Store) {
	if err := store.Clear(); err != nil {
		o.logger.Warn().Err(err).Msg("failed to clear checkpoint after successful run")
	}
	if err := journal.Cleanup(journal.DefaultConfig(o.cfg.Journal.Dir)); err != nil {
		o.logger.Warn().Err(err).Msg("journal cleanup failed")
	}
}
