// Package scheduler fans extraction work out to a bounded worker pool
// and tracks every item's outcome for the run summary.
package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/yairfalse/kartta/extractor"
	"github.com/yairfalse/kartta/journal"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/types"
)

var errClosed = errors.New("scheduler already closed")

// maxDefaultWorkers caps the pool when no worker count is configured.
// The work is I/O bound; past this point extra workers only pile onto
// the throttle.
const maxDefaultWorkers = 8

// DefaultGracePeriod bounds how long in-flight items may keep running
// after the run is canceled.
const DefaultGracePeriod = 10 * time.Second

// Checkpoint is the durable completed-item record the scheduler consults
// before queueing and updates after full item success.
type Checkpoint interface {
	IsComplete(item types.WorkItem) bool
	MarkComplete(item types.WorkItem) error
}

// Sink lands finished resource records.
type Sink interface {
	Write(record types.ResourceRecord) error
}

// Options configures the pool
type Options struct {
	Workers     int           // 0 picks min(NumCPU, 8)
	QueueSize   int           // 0 picks twice the worker count
	GracePeriod time.Duration // 0 picks DefaultGracePeriod
}

// Results is the scheduler's share of the run summary
type Results struct {
	Completed          int
	Failed             []types.FailedItem
	SkippedUnsupported []string
	SkippedCheckpoint  int
	ResourcesWritten   int
	PagesFetched       int
}

// Scheduler runs work items through a fixed pool of workers. Items are
// deduplicated by identity and checked against the checkpoint before
// they reach the queue, so each (project, service) pair is attempted at
// most once per run.
type Scheduler struct {
	registry *extractor.Registry
	store    Checkpoint
	journal  *journal.Journal
	out      Sink
	logger   *telemetry.Logger

	workers int
	grace   time.Duration

	queue    chan types.WorkItem
	wg       sync.WaitGroup
	workCtx  context.Context
	stopWork context.CancelFunc

	mu          sync.Mutex
	closed      bool
	seen        map[string]bool
	warnedTags  map[string]bool
	completed   int
	failed      []types.FailedItem
	skippedTags []string
	skippedDone int
	resources   int
	pages       int
}

// New creates a scheduler. jrnl may be nil to disable run journaling.
func New(registry *extractor.Registry, store Checkpoint, jrnl *journal.Journal, out Sink, opts Options) *Scheduler {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > maxDefaultWorkers {
			workers = maxDefaultWorkers
		}
	}

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 2 * workers
	}

	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	workCtx, stopWork := context.WithCancel(context.Background())

	return &Scheduler{
		registry:   registry,
		store:      store,
		journal:    jrnl,
		out:        out,
		logger:     telemetry.NewLogger("scheduler"),
		workers:    workers,
		grace:      grace,
		queue:      make(chan types.WorkItem, queueSize),
		workCtx:    workCtx,
		stopWork:   stopWork,
		seen:       make(map[string]bool),
		warnedTags: make(map[string]bool),
	}
}

// Start launches the workers. Canceling ctx stops them from pulling new
// items; items already in flight get the grace period to finish before
// their remote calls are cut off.
func (s *Scheduler) Start(ctx context.Context) {
	go s.watchCancel(ctx)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Enqueue admits one work item. Duplicates of an already-seen identity,
// items the checkpoint holds as complete, and tags with no registered
// extractor are absorbed here and never reach a worker. Blocks when the
// queue is full until a worker drains it or ctx is canceled. Must not be
// called after Wait.
func (s *Scheduler) Enqueue(ctx context.Context, item types.WorkItem) error {
	key := item.Key()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.NewError(types.ErrFatal, "scheduler.enqueue", errClosed)
	}
	if s.seen[key] {
		s.mu.Unlock()
		return nil
	}
	s.seen[key] = true
	s.mu.Unlock()

	if _, ok := s.registry.Lookup(item.ServiceTag); !ok {
		s.skipUnsupported(ctx, item)
		return nil
	}

	if s.store.IsComplete(item) {
		s.skipCompleted(ctx, item)
		return nil
	}

	// Checked separately so a canceled run never races free queue slots.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case s.queue <- item:
		telemetry.RecordQueueDepth(ctx, int64(len(s.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait closes the queue, waits for the workers to drain it and returns
// the accumulated results.
func (s *Scheduler) Wait() Results {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.stopWork()

	s.mu.Lock()
	defer s.mu.Unlock()

	results := Results{
		Completed:          s.completed,
		Failed:             append([]types.FailedItem(nil), s.failed...),
		SkippedUnsupported: append([]string(nil), s.skippedTags...),
		SkippedCheckpoint:  s.skippedDone,
		ResourcesWritten:   s.resources,
		PagesFetched:       s.pages,
	}
	return results
}

// watchCancel cuts off in-flight work one grace period after the run is
// canceled. A normal drain releases it through stopWork in Wait.
func (s *Scheduler) watchCancel(ctx context.Context) {
	select {
	case <-s.workCtx.Done():
		return
	case <-ctx.Done():
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	select {
	case <-timer.C:
		s.logger.Warn().Dur("grace", s.grace).Msg("grace period expired, aborting in-flight items")
		s.stopWork()
	case <-s.workCtx.Done():
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		// Checked separately so a canceled run never races queued items
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case item, ok := <-s.queue:
			if !ok {
				return
			}
			telemetry.RecordQueueDepth(ctx, int64(len(s.queue)))
			s.process(item)
		}
	}
}

// process runs one item end to end: extract, write every record, then
// checkpoint. The item context outlives run cancellation by the grace
// period so a canceled run can still land in a consistent state.
func (s *Scheduler) process(item types.WorkItem) {
	ctx := s.workCtx
	start := time.Now()

	ext, ok := s.registry.Lookup(item.ServiceTag)
	if !ok {
		return
	}

	written := 0
	pages, err := ext.Extract(ctx, item, func(record types.ResourceRecord) error {
		if werr := s.out.Write(record); werr != nil {
			s.logger.LogSinkError(ctx, record.ID, werr)
			return werr
		}
		written++
		return nil
	})

	s.mu.Lock()
	s.pages += pages
	s.resources += written
	s.mu.Unlock()

	telemetry.RecordPagesFetched(ctx, item.ServiceTag, int64(pages))
	telemetry.RecordResourcesWritten(ctx, item.ServiceTag, int64(written))

	if err != nil {
		s.fail(ctx, item, err)
		return
	}

	if cerr := s.store.MarkComplete(item); cerr != nil {
		// A completion that cannot be made durable counts as a failure:
		// the next run must redo the item rather than trust lost state.
		s.fail(ctx, item, types.NewError(types.ErrFatal, "checkpoint.mark", cerr))
		return
	}

	s.mu.Lock()
	s.completed++
	s.mu.Unlock()

	s.journalAppend(journal.EntryItemCompleted, item.Key(), item)
	telemetry.RecordItemCompleted(ctx, item.Project.ID, item.ServiceTag, time.Since(start).Seconds())
}

func (s *Scheduler) fail(ctx context.Context, item types.WorkItem, err error) {
	s.mu.Lock()
	s.failed = append(s.failed, types.FailedItem{Item: item, Err: err})
	s.mu.Unlock()

	s.logger.LogItemFailed(ctx, item.Project.ID, item.ServiceTag, err)
	s.journalAppendError(journal.EntryItemFailed, item.Key(), item, err)
	telemetry.RecordItemFailed(ctx, item.Project.ID, item.ServiceTag, string(types.KindOf(err)))
}

// skipUnsupported records a tag nobody can extract. The tag is reported
// once in the results no matter how many projects carry it.
func (s *Scheduler) skipUnsupported(ctx context.Context, item types.WorkItem) {
	s.mu.Lock()
	first := !s.warnedTags[item.ServiceTag]
	if first {
		s.warnedTags[item.ServiceTag] = true
		s.skippedTags = append(s.skippedTags, item.ServiceTag)
	}
	s.mu.Unlock()

	if first {
		s.logger.LogUnsupportedService(ctx, item.ServiceTag)
	}
	s.journalAppend(journal.EntryItemSkipped, item.Key(), skipData{Reason: "unsupported"})
	telemetry.RecordItemSkipped(ctx, item.ServiceTag, "unsupported")
}

func (s *Scheduler) skipCompleted(ctx context.Context, item types.WorkItem) {
	s.mu.Lock()
	s.skippedDone++
	s.mu.Unlock()

	s.logger.WithContext(ctx).Debug().
		Str("item", item.Key()).
		Msg("already checkpointed, skipping")
	telemetry.RecordItemSkipped(ctx, item.ServiceTag, "checkpoint")
}

type skipData struct {
	Reason string `json:"reason"`
}

// journalAppend logs to the run journal when one is configured. Journal
// trouble never fails the run, only the log line notes it.
func (s *Scheduler) journalAppend(entryType journal.EntryType, itemKey string, data interface{}) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(entryType, itemKey, data); err != nil {
		s.logger.Warn().Err(err).Str("item", itemKey).Msg("journal append failed")
	}
}

func (s *Scheduler) journalAppendError(entryType journal.EntryType, itemKey string, data interface{}, cause error) {
	if s.journal == nil {
		return
	}
	if err := s.journal.AppendError(entryType, itemKey, data, cause); err != nil {
		s.logger.Warn().Err(err).Str("item", itemKey).Msg("journal append failed")
	}
}
