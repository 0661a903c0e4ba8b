package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the dispatch engine for logging and metrics.
//
// Implementations should be fast and non-blocking; callbacks run on the
// goroutine that called DoAction.
type Observer interface {
	// OnActionStart is called once preconditions passed, before the first
	// stage runs.
	OnActionStart(ctx context.Context, run *ActionRun)

	// OnActionCompleted is called when every stage of the action succeeded.
	OnActionCompleted(ctx context.Context, run *ActionRun)

	// OnActionFailed is called when a stage failed.
	OnActionFailed(ctx context.Context, run *ActionRun, err error)

	// OnItemStart is called before a stage invocation. itemIndex is the
	// 0-based invocation number; aggregate actions have a single item.
	OnItemStart(ctx context.Context, run *ActionRun, itemName string, itemIndex int)

	// OnItemCompleted is called after a stage invocation returns, for both
	// successes and failures (err != nil).
	OnItemCompleted(ctx context.Context, run *ActionRun, itemName string, itemIndex int, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnActionStart(ctx context.Context, run *ActionRun)             {}
func (NoopObserver) OnActionCompleted(ctx context.Context, run *ActionRun)         {}
func (NoopObserver) OnActionFailed(ctx context.Context, run *ActionRun, err error) {}
func (NoopObserver) OnItemStart(ctx context.Context, run *ActionRun, name string, idx int) {
}
func (NoopObserver) OnItemCompleted(ctx context.Context, run *ActionRun, name string, idx int, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnActionStart(ctx context.Context, run *ActionRun) {
	for _, o := range c.observers {
		o.OnActionStart(ctx, run)
	}
}

func (c *CompositeObserver) OnActionCompleted(ctx context.Context, run *ActionRun) {
	for _, o := range c.observers {
		o.OnActionCompleted(ctx, run)
	}
}

func (c *CompositeObserver) OnActionFailed(ctx context.Context, run *ActionRun, err error) {
	for _, o := range c.observers {
		o.OnActionFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnItemStart(ctx context.Context, run *ActionRun, name string, idx int) {
	for _, o := range c.observers {
		o.OnItemStart(ctx, run, name, idx)
	}
}

func (c *CompositeObserver) OnItemCompleted(ctx context.Context, run *ActionRun, name string, idx int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnItemCompleted(ctx, run, name, idx, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs action and stage
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnActionStart(ctx context.Context, run *ActionRun) {
	o.Logger.InfoContext(ctx, "action_start",
		slog.String("action", run.Action.String()),
		slog.String("run_id", run.ID),
		slog.String("isa", run.ISAName),
		slog.Int("inputs", run.Inputs),
	)
}

func (o *LoggingObserver) OnActionCompleted(ctx context.Context, run *ActionRun) {
	o.Logger.InfoContext(ctx, "action_completed",
		slog.String("action", run.Action.String()),
		slog.String("run_id", run.ID),
		slog.Int("outputs", run.Outputs),
		slog.Int("cache_hits", run.CacheHits),
		slog.Duration("duration", run.Duration()),
	)
}

func (o *LoggingObserver) OnActionFailed(ctx context.Context, run *ActionRun, err error) {
	o.Logger.ErrorContext(ctx, "action_failed",
		slog.String("action", run.Action.String()),
		slog.String("run_id", run.ID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnItemStart(ctx context.Context, run *ActionRun, name string, idx int) {
	o.Logger.DebugContext(ctx, "item_start",
		slog.String("action", run.Action.String()),
		slog.String("run_id", run.ID),
		slog.String("item", name),
		slog.Int("item_index", idx),
	)
}

func (o *LoggingObserver) OnItemCompleted(ctx context.Context, run *ActionRun, name string, idx int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "item_completed",
		slog.String("action", run.Action.String()),
		slog.String("run_id", run.ID),
		slog.String("item", name),
		slog.Int("item_index", idx),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate stage durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	actionsStarted    atomic.Int64
	actionsCompleted  atomic.Int64
	actionsFailed     atomic.Int64
	itemsCompleted    atomic.Int64
	itemsFailed       atomic.Int64
	totalItemDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	ActionsStarted   int64
	ActionsCompleted int64
	ActionsFailed    int64
	ActionsRunning   int64

	ItemsCompleted  int64
	ItemsFailed     int64
	AvgItemDuration time.Duration
}

func (m *BasicMetrics) OnActionStart(ctx context.Context, run *ActionRun) {
	m.actionsStarted.Add(1)
}

func (m *BasicMetrics) OnActionCompleted(ctx context.Context, run *ActionRun) {
	m.actionsCompleted.Add(1)
}

func (m *BasicMetrics) OnActionFailed(ctx context.Context, run *ActionRun, err error) {
	m.actionsFailed.Add(1)
}

func (m *BasicMetrics) OnItemCompleted(ctx context.Context, run *ActionRun, name string, idx int, err error, d time.Duration) {
	if err != nil {
		m.itemsFailed.Add(1)
		return
	}
	// Only successful stages count toward the average.
	m.itemsCompleted.Add(1)
	m.totalItemDuration.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.actionsStarted.Load()
	completed := m.actionsCompleted.Load()
	failed := m.actionsFailed.Load()
	items := m.itemsCompleted.Load()
	totalNs := m.totalItemDuration.Load()

	var avg time.Duration
	if items > 0 {
		avg = time.Duration(totalNs / items)
	}

	return BasicMetricsSnapshot{
		ActionsStarted:   started,
		ActionsCompleted: completed,
		ActionsFailed:    failed,
		ActionsRunning:   started - completed - failed,
		ItemsCompleted:   items,
		ItemsFailed:      m.itemsFailed.Load(),
		AvgItemDuration:  avg,
	}
}
