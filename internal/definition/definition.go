// Package definition loads report definitions from YAML files.
//
//	reports:
//	  - name: may-pageviews
//	    suite: Acme Production
//	    kind: overtime
//	    metrics: [pageviews]
//	    from: "2013-05-01"
//	    to: "2013-05-31"
//	    granularity: day
//	    segment: US (Locked)
//	    schedule: "0 6 * * *"
package definition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"omni-reports/internal/domain"
	"omni-reports/internal/query"
)

// File is a set of report definitions.
type File struct {
	Reports []Definition `yaml:"reports"`
}

// Definition describes one report.
type Definition struct {
	Name        string         `yaml:"name"`
	Suite       string         `yaml:"suite"`
	Kind        string         `yaml:"kind"`
	Metrics     []string       `yaml:"metrics"`
	Elements    []string       `yaml:"elements,omitempty"`
	From        string         `yaml:"from,omitempty"`
	To          string         `yaml:"to,omitempty"`
	Days        int            `yaml:"days,omitempty"`
	Months      int            `yaml:"months,omitempty"`
	Granularity string         `yaml:"granularity,omitempty"`
	Segment     string         `yaml:"segment,omitempty"`
	Segments    []string       `yaml:"segments,omitempty"`
	Raw         map[string]any `yaml:"raw,omitempty"`
	Schedule    string         `yaml:"schedule,omitempty"`
}

// Load reads and validates the definitions file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates definitions.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every definition and reports all problems at once.
func (f *File) Validate() error {
	var merr *multierror.Error
	seen := make(map[string]bool, len(f.Reports))
	for i, d := range f.Reports {
		if err := d.Validate(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("reports[%d]: %w", i, err))
		}
		if d.Name != "" && seen[d.Name] {
			merr = multierror.Append(merr, fmt.Errorf("reports[%d]: duplicate name %q", i, d.Name))
		}
		seen[d.Name] = true
	}
	return merr.ErrorOrNil()
}

// Find returns the definition named name.
func (f *File) Find(name string) (*Definition, error) {
	for i := range f.Reports {
		if f.Reports[i].Name == name {
			return &f.Reports[i], nil
		}
	}
	return nil, domain.ErrNotFound("report definition %q not found", name)
}

// Scheduled returns the definitions that carry a schedule.
func (f *File) Scheduled() []Definition {
	var out []Definition
	for _, d := range f.Reports {
		if d.Schedule != "" {
			out = append(out, d)
		}
	}
	return out
}

// Validate checks the fields that can be checked without a suite. Catalog
// references are only resolved by Build.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return domain.ErrValidation("name is required")
	}
	if d.Suite == "" {
		return domain.ErrValidation("%s: suite is required", d.Name)
	}
	kind, err := query.ParseKind(d.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	if len(d.Metrics) == 0 {
		return domain.ErrValidation("%s: at least one metric is required", d.Name)
	}
	switch kind {
	case query.KindRanked:
		if len(d.Elements) == 0 {
			return domain.ErrValidation("%s: ranked reports need at least one element", d.Name)
		}
	case query.KindTrended:
		if len(d.Metrics) != 1 || len(d.Elements) != 1 {
			return domain.ErrValidation("%s: trended reports take exactly one metric and one element", d.Name)
		}
	}
	if d.From == "" && (d.To != "" || d.Days != 0 || d.Months != 0 || d.Granularity != "") {
		return domain.ErrValidation("%s: to, days, months and granularity require from", d.Name)
	}
	if d.Segment != "" && len(d.Segments) > 0 {
		return domain.ErrValidation("%s: use either segment or segments", d.Name)
	}
	if d.Schedule != "" {
		if _, err := cron.ParseStandard(d.Schedule); err != nil {
			return domain.ErrValidation("%s: invalid schedule %q: %v", d.Name, d.Schedule, err)
		}
	}
	return nil
}

// Build turns the definition into a query against suite, applying the same
// validation as hand-built queries.
func (d *Definition) Build(ctx context.Context, suite query.Suite) (*query.Query, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	kind, _ := query.ParseKind(d.Kind)

	q := query.New(suite)
	var err error
	if d.From != "" {
		var opts []query.RangeOption
		if d.To != "" {
			opts = append(opts, query.Until(d.To))
		}
		if d.Days != 0 {
			opts = append(opts, query.Days(d.Days))
		}
		if d.Months != 0 {
			opts = append(opts, query.Months(d.Months))
		}
		if d.Granularity != "" {
			opts = append(opts, query.Granularity(d.Granularity))
		}
		if q, err = q.Range(d.From, opts...); err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
	}

	switch kind {
	case query.KindOverTime:
		q, err = q.OverTime(ctx, d.Metrics)
	case query.KindRanked:
		q, err = q.Ranked(ctx, d.Metrics, d.Elements)
	case query.KindTrended:
		q, err = q.Trended(ctx, d.Metrics[0], d.Elements[0])
	case query.KindDataWarehouse:
		q, err = q.Data(ctx, d.Metrics)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	switch {
	case d.Segment != "":
		q, err = q.Filter(ctx, d.Segment)
	case len(d.Segments) > 0:
		q, err = q.Filter(ctx, d.Segments)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	if len(d.Raw) > 0 {
		if q, err = q.SetAll(d.Raw); err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
	}
	return q, nil
}
