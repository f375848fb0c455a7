// Package schedule runs report definitions on cron schedules.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"omni-reports/internal/definition"
	"omni-reports/internal/domain"
	"omni-reports/internal/query"
	"omni-reports/internal/service/reporting"
)

// Syncer runs a submission to completion. Implemented by reporting.Engine.
type Syncer interface {
	Sync(ctx context.Context, sub *reporting.Submission, opts ...reporting.SyncOption) (*domain.Report, error)
}

// SuiteResolver finds the suite a definition runs against by title or id.
type SuiteResolver func(ctx context.Context, key string) (query.Suite, error)

// ResultHandler receives the outcome of every scheduled run.
type ResultHandler func(name string, rep *domain.Report, err error)

// Scheduler manages cron-based report runs.
type Scheduler struct {
	cron     *cron.Cron
	engine   Syncer
	resolve  SuiteResolver
	logger   *slog.Logger
	onResult ResultHandler
	timeout  time.Duration
	mu       sync.Mutex
	entries  map[string]cron.EntryID // definition name → cron entry
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithResultHandler calls h after every run.
func WithResultHandler(h ResultHandler) Option {
	return func(s *Scheduler) { s.onResult = h }
}

// WithRunTimeout bounds each run. Zero means no limit.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// NewScheduler creates a scheduler that syncs through engine.
func NewScheduler(engine Syncer, resolve SuiteResolver, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Scheduler{
		cron:    cron.New(),
		engine:  engine,
		resolve: resolve,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load registers every definition that has a schedule, replacing any
// previously loaded entries.
func (s *Scheduler) Load(defs []definition.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = make(map[string]cron.EntryID)

	for _, d := range defs {
		if d.Schedule == "" {
			continue
		}
		def := d
		entryID, err := s.cron.AddFunc(def.Schedule, func() {
			_, _ = s.RunNow(context.Background(), def)
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", def.Name, err)
		}
		s.entries[def.Name] = entryID
		s.logger.Info("scheduled report", "report", def.Name, "schedule", def.Schedule)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("report scheduler started", "reports", len(s.Names()))
}

// Stop stops the scheduler and waits for running reports to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.logger.Info("report scheduler stopped")
}

// Names returns the scheduled definition names in order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next activation time of the named report.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	e := s.cron.Entry(id)
	if e.Schedule == nil {
		return time.Time{}, false
	}
	if e.Next.IsZero() {
		// Not started yet.
		return e.Schedule.Next(time.Now()), true
	}
	return e.Next, true
}

// RunNow builds and syncs def immediately.
func (s *Scheduler) RunNow(ctx context.Context, def definition.Definition) (*domain.Report, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rep, err := s.run(ctx, def)
	if err != nil {
		s.logger.Warn("scheduled report failed", "report", def.Name, "error", err)
	} else {
		s.logger.Info("scheduled report complete", "report", def.Name,
			"execution_seconds", rep.Timing.Execution)
	}
	if s.onResult != nil {
		s.onResult(def.Name, rep, err)
	}
	return rep, err
}

func (s *Scheduler) run(ctx context.Context, def definition.Definition) (*domain.Report, error) {
	suite, err := s.resolve(ctx, def.Suite)
	if err != nil {
		return nil, fmt.Errorf("resolve suite %q: %w", def.Suite, err)
	}
	q, err := def.Build(ctx, suite)
	if err != nil {
		return nil, err
	}
	return s.engine.Sync(ctx, reporting.NewSubmission(q))
}
