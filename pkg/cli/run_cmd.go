package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"omni-reports/internal/definition"
	"omni-reports/internal/domain"
	"omni-reports/internal/query"
	"omni-reports/internal/service/reporting"
)

type runFlags struct {
	suite       string
	kind        query.Kind
	metrics     []string
	elements    []string
	from        string
	to          string
	days        int
	months      int
	granularity string
	segments    []string

	file   string
	name   string
	all    bool
	titles bool
	noWait bool
}

func newRunCmd(a *app) *cobra.Command {
	f := runFlags{kind: query.KindOverTime}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Queue a report and wait for the result",
		Long: `Queue a report and wait for the result.

The report is described either with flags or by a definitions file:

  omni run --suite "Acme Production" --metric pageviews --from 2013-05-01 --days 7 --granularity day
  omni run --file reports.yaml --name may-pageviews
  omni run --file reports.yaml --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()

			defs, err := f.definitions()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			subs := make(map[string]*reporting.Submission, len(defs))
			for _, d := range defs {
				suite, err := a.suite(ctx, d.Suite)
				if err != nil {
					return fmt.Errorf("%s: %w", d.Name, err)
				}
				q, err := d.Build(ctx, suite)
				if err != nil {
					return err
				}
				subs[d.Name] = reporting.NewSubmission(q)
			}

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}

			if f.noWait {
				return queueOnly(ctx, cmd, e, subs)
			}
			if len(defs) == 1 {
				sub := subs[defs[0].Name]
				rep, err := e.Sync(ctx, sub, reporting.WithHeartbeat(progress(cmd.ErrOrStderr())))
				if err != nil {
					if ctx.Err() != nil && sub.RequestID() != "" {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "report %s is still queued remotely\n", sub.RequestID())
					}
					return err
				}
				return printReports(cmd, []namedReport{{report: rep}}, f.titles)
			}

			results, syncErr := reporting.SyncAllKeyed(ctx, e, subs)
			named := make([]namedReport, 0, len(results))
			for name, res := range results {
				named = append(named, namedReport{name: name, report: res.Report, err: res.Err})
			}
			sort.Slice(named, func(i, j int) bool { return named[i].name < named[j].name })
			if err := printReports(cmd, named, f.titles); err != nil {
				return err
			}
			return syncErr
		},
	}

	bindRunFlags(cmd.Flags(), &f)
	cmd.MarkFlagsMutuallyExclusive("name", "all")
	cmd.MarkFlagsMutuallyExclusive("file", "suite")

	return cmd
}

var _ pflag.Value = (*query.Kind)(nil)

func bindRunFlags(flags *pflag.FlagSet, f *runFlags) {
	flags.StringVarP(&f.suite, "suite", "s", "", "Report suite title or rsid")
	flags.Var(&f.kind, "kind", "Report kind: overtime, ranked, trended or datawarehouse")
	flags.StringSliceVarP(&f.metrics, "metric", "m", nil, "Metric title or id (repeatable)")
	flags.StringSliceVarP(&f.elements, "element", "e", nil, "Element title or id (repeatable)")
	flags.StringVar(&f.from, "from", "", "Start date (YYYY-MM-DD)")
	flags.StringVar(&f.to, "to", "", "Inclusive stop date (YYYY-MM-DD)")
	flags.IntVar(&f.days, "days", 0, "Number of days starting at --from")
	flags.IntVar(&f.months, "months", 0, "Number of months starting at --from")
	flags.StringVar(&f.granularity, "granularity", "", "Date granularity: hour, day or month")
	flags.StringSliceVar(&f.segments, "segment", nil, "Segment title or id (repeatable)")
	flags.StringVarP(&f.file, "file", "f", "", "Report definitions file")
	flags.StringVar(&f.name, "name", "", "Definition to run from --file")
	flags.BoolVar(&f.all, "all", false, "Run every definition in --file")
	flags.BoolVar(&f.titles, "titles", false, "Key report columns by metric title instead of id")
	flags.BoolVar(&f.noWait, "no-wait", false, "Queue only and print the request ids")
}

// definitions returns the reports to run: those selected from --file, or a
// single one described by flags.
func (f *runFlags) definitions() ([]definition.Definition, error) {
	if f.file != "" {
		file, err := definition.Load(f.file)
		if err != nil {
			return nil, err
		}
		switch {
		case f.all:
			if len(file.Reports) == 0 {
				return nil, fmt.Errorf("%s defines no reports", f.file)
			}
			return file.Reports, nil
		case f.name != "":
			d, err := file.Find(f.name)
			if err != nil {
				return nil, err
			}
			return []definition.Definition{*d}, nil
		default:
			return nil, fmt.Errorf("--file requires --name or --all")
		}
	}

	if f.suite == "" {
		return nil, fmt.Errorf("--suite or --file is required")
	}
	d := definition.Definition{
		Name:        "report",
		Suite:       f.suite,
		Kind:        f.kind.String(),
		Metrics:     f.metrics,
		Elements:    f.elements,
		From:        f.from,
		To:          f.to,
		Days:        f.days,
		Months:      f.months,
		Granularity: f.granularity,
	}
	if len(f.segments) == 1 {
		d.Segment = f.segments[0]
	} else {
		d.Segments = f.segments
	}
	return []definition.Definition{d}, nil
}

// progress returns a heartbeat that redraws a status line on terminals and
// stays silent otherwise.
func progress(w io.Writer) reporting.Heartbeat {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return nil
	}
	return func(_ context.Context, attempt int) error {
		_, _ = fmt.Fprintf(file, "\rwaiting for report (attempt %d)", attempt)
		return nil
	}
}

func queueOnly(ctx context.Context, cmd *cobra.Command, e *reporting.Engine, subs map[string]*reporting.Submission) error {
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]*reporting.Submission, len(names))
	for i, name := range names {
		ordered[i] = subs[name]
	}
	ids, queueErr := e.QueueAll(ctx, ordered)

	if getOutputFormat(cmd) == "json" {
		out := make([]map[string]string, len(names))
		for i, name := range names {
			out[i] = map[string]string{"name": name, "kind": ordered[i].Kind().String(), "request_id": ids[i]}
		}
		if err := printJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		return queueErr
	}
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, ordered[i].Kind().String(), ids[i]}
	}
	if err := printTable(cmd.OutOrStdout(), []string{"name", "kind", "request_id"}, rows); err != nil {
		return err
	}
	return queueErr
}

type namedReport struct {
	name   string
	report *domain.Report
	err    error
}

type reportView struct {
	Name    string           `json:"name,omitempty"`
	Kind    string           `json:"kind,omitempty"`
	Status  string           `json:"status,omitempty"`
	Period  string           `json:"period,omitempty"`
	Segment string           `json:"segment,omitempty"`
	Timing  *domain.Timing   `json:"timing,omitempty"`
	Data    map[string][]any `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func viewOf(nr namedReport, titles bool) reportView {
	v := reportView{Name: nr.name}
	if nr.err != nil {
		v.Error = nr.err.Error()
		return v
	}
	rep := nr.report
	v.Kind = rep.Kind
	v.Status = rep.Status
	v.Period = rep.Period
	if rep.Segment != nil {
		v.Segment = rep.Segment.Title
	}
	timing := rep.Timing
	v.Timing = &timing
	v.Data = rep.Serialize(titles)
	return v
}

func printReports(cmd *cobra.Command, reports []namedReport, titles bool) error {
	out := cmd.OutOrStdout()
	if getOutputFormat(cmd) == "json" {
		if len(reports) == 1 {
			return printJSON(out, viewOf(reports[0], titles))
		}
		views := make([]reportView, len(reports))
		for i, nr := range reports {
			views[i] = viewOf(nr, titles)
		}
		return printJSON(out, views)
	}

	for i, nr := range reports {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		if nr.name != "" {
			_, _ = fmt.Fprintf(out, "== %s ==\n", nr.name)
		}
		if nr.err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", nr.err)
			continue
		}
		if err := printReportTable(out, nr.report, titles); err != nil {
			return err
		}
	}
	return nil
}

// printReportTable prints one row per report row and one column per metric.
// Ranked rows lead with their label.
func printReportTable(w io.Writer, rep *domain.Report, titles bool) error {
	ranked := rep.Kind == "ranked"
	headers := []string{"#"}
	if ranked {
		headers = append(headers, "label")
	}
	rowCount := 0
	for i := 0; i < rep.Columns.Len(); i++ {
		col := rep.Columns.At(i)
		key := col.Metric.ID
		if titles {
			key = col.Metric.Title
		}
		headers = append(headers, key)
		rowCount = max(rowCount, len(col.Values))
	}

	rows := make([][]string, rowCount)
	for r := range rows {
		row := []string{strconv.Itoa(r + 1)}
		label := ""
		var cells []string
		for i := 0; i < rep.Columns.Len(); i++ {
			vals := rep.Columns.At(i).Values
			if r >= len(vals) {
				cells = append(cells, "")
				continue
			}
			v := vals[r]
			if rv, ok := v.(domain.RankedValue); ok {
				label = rv.Label
				v = rv.Value
			}
			cells = append(cells, formatCell(v))
		}
		if ranked {
			row = append(row, label)
		}
		rows[r] = append(row, cells...)
	}

	if _, err := fmt.Fprintf(w, "%s report, %s (queued %gs, ran %gs)\n",
		rep.Kind, rep.Period, rep.Timing.Queue, rep.Timing.Execution); err != nil {
		return err
	}
	return printTable(w, headers, rows)
}
