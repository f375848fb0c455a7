package reporting

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"omni-reports/internal/domain"
)

// Result is the outcome of one submission in a batch.
type Result struct {
	Report *domain.Report
	Err    error
}

// QueueAll queues every submission in order. Failures do not stop the
// remaining submissions; ids[i] is "" for each failed one and the returned
// error lists them all.
func (e *Engine) QueueAll(ctx context.Context, subs []*Submission) ([]string, error) {
	ids := make([]string, len(subs))
	var merr *multierror.Error
	for i, sub := range subs {
		id, err := e.Queue(ctx, sub)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("submission %d: %w", i, err))
			continue
		}
		ids[i] = id
	}
	return ids, merr.ErrorOrNil()
}

// SyncAll queues every submission, then resolves them, at most the engine's
// concurrency at a time. Results line up with subs; each carries its own
// error, and the returned error aggregates them.
func (e *Engine) SyncAll(ctx context.Context, subs []*Submission, opts ...SyncOption) ([]Result, error) {
	results := make([]Result, len(subs))
	queued := make([]bool, len(subs))
	for i, sub := range subs {
		if _, err := e.Queue(ctx, sub); err != nil {
			results[i].Err = err
			continue
		}
		queued[i] = true
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, sub := range subs {
		if !queued[i] {
			continue
		}
		g.Go(func() error {
			rep, err := e.Sync(ctx, sub, opts...)
			results[i] = Result{Report: rep, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for i, r := range results {
		if r.Err != nil {
			merr = multierror.Append(merr, fmt.Errorf("submission %d: %w", i, r.Err))
		}
	}
	return results, merr.ErrorOrNil()
}

// SyncAllKeyed is SyncAll over a map: the results carry the same keys.
// Submissions are queued and resolved in ascending key order.
func SyncAllKeyed[K cmp.Ordered](ctx context.Context, e *Engine, subs map[K]*Submission, opts ...SyncOption) (map[K]Result, error) {
	keys := slices.Sorted(maps.Keys(subs))
	list := make([]*Submission, len(keys))
	for i, k := range keys {
		list[i] = subs[k]
	}

	results, _ := e.SyncAll(ctx, list, opts...)

	out := make(map[K]Result, len(subs))
	var merr *multierror.Error
	for i, k := range keys {
		out[k] = results[i]
		if results[i].Err != nil {
			merr = multierror.Append(merr, fmt.Errorf("submission %v: %w", k, results[i].Err))
		}
	}
	return out, merr.ErrorOrNil()
}
