package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"omni-reports/internal/domain"
	"omni-reports/internal/report"
)

// Report statuses the API uses while a report is being prepared.
const (
	StatusNotReady = "not ready"
	StatusReady    = "ready"
	StatusDone     = "done"
)

// CheckFunc performs one poll and returns the raw response.
type CheckFunc func(ctx context.Context) (json.RawMessage, error)

// Heartbeat is called once per poll attempt, before the check. Returning an
// error stops polling.
type Heartbeat func(ctx context.Context, attempt int) error

// ProbeOptions configures Probe.
type ProbeOptions struct {
	Heartbeat Heartbeat
	Interval  time.Duration
	// Soak tolerates unknown statuses instead of failing on them.
	Soak bool
	// MaxAttempts bounds the number of checks. Zero means unbounded.
	MaxAttempts int
}

// payloader is implemented by API errors that carry a JSON object body.
type payloader interface {
	Payload() json.RawMessage
}

// Probe polls check until the reported status is no longer "not ready" and
// returns the final response. Each attempt sleeps for the interval, calls
// the heartbeat, then calls check.
//
// Outside soak mode any status other than "not ready", "ready" or "done"
// fails with a *domain.RemoteReportError. An API error whose body is a JSON
// object is treated as the response, so error statuses are reported the same
// way either way.
func Probe(ctx context.Context, check CheckFunc, opts ProbeOptions) (json.RawMessage, error) {
	for attempt := 1; ; attempt++ {
		if opts.MaxAttempts > 0 && attempt > opts.MaxAttempts {
			return nil, fmt.Errorf("report still not ready after %d attempts: %w", opts.MaxAttempts, domain.ErrPollExhausted)
		}
		if err := sleep(ctx, opts.Interval); err != nil {
			return nil, err
		}
		if opts.Heartbeat != nil {
			if err := opts.Heartbeat(ctx, attempt); err != nil {
				return nil, fmt.Errorf("heartbeat: %w", err)
			}
		}

		raw, err := check(ctx)
		if err != nil {
			var p payloader
			if !errors.As(err, &p) || p.Payload() == nil {
				return nil, err
			}
			raw = p.Payload()
		}

		fields, err := decodeObject(raw)
		if err != nil {
			return nil, err
		}
		status := statusOf(fields)
		if status == StatusNotReady {
			continue
		}
		if !opts.Soak && status != StatusReady && status != StatusDone {
			return nil, report.NormalizeError(fields)
		}
		return raw, nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	if fields == nil {
		return nil, errors.New("decode poll response: expected a JSON object")
	}
	return fields, nil
}

func statusOf(fields map[string]any) string {
	switch v := fields["status"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
