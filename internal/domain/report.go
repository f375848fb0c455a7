package domain

// Timing holds the seconds a report spent queued and executing remotely.
type Timing struct {
	Queue     float64 `json:"queue"`
	Execution float64 `json:"execution"`
}

// RankedValue is one row of a ranked report column.
type RankedValue struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Value any    `json:"value"`
}

// Column holds the values reported for one metric, in row order.
type Column struct {
	Metric Identifier
	Values []any
}

// Columns is the ordered set of metric columns of a report.
type Columns struct {
	metrics *Collection
	cols    []Column
}

// NewColumns returns one empty column per metric.
func NewColumns(metrics *Collection) Columns {
	cols := make([]Column, metrics.Len())
	for i, m := range metrics.Items {
		cols[i] = Column{Metric: m, Values: []any{}}
	}
	return Columns{metrics: metrics, cols: cols}
}

// Len returns the number of columns.
func (c Columns) Len() int { return len(c.cols) }

// At returns the column at index i.
func (c Columns) At(i int) Column { return c.cols[i] }

// Append adds a value to the column at index i.
func (c *Columns) Append(i int, v any) {
	c.cols[i].Values = append(c.cols[i].Values, v)
}

// Get returns the values of the column addressed by metric title or id.
func (c Columns) Get(key string) ([]any, error) {
	if c.metrics == nil {
		return nil, &LookupError{Collection: "metrics", Key: key}
	}
	idx, err := c.metrics.index(key)
	if err != nil {
		return nil, err
	}
	return c.cols[idx].Values, nil
}

// Report is a decoded, completed report.
type Report struct {
	Kind     string
	Status   string
	Timing   Timing
	Metrics  *Collection
	Elements *Collection
	Period   string
	Segment  *Identifier
	Columns  Columns
}

// Serialize exports the columns keyed by metric id, or by display title when
// verbose is set.
func (r *Report) Serialize(verbose bool) map[string][]any {
	out := make(map[string][]any, r.Columns.Len())
	for _, col := range r.Columns.cols {
		key := col.Metric.ID
		if verbose {
			key = col.Metric.Title
		}
		out[key] = col.Values
	}
	return out
}
