package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"omni-reports/internal/definition"
	"omni-reports/internal/domain"
	"omni-reports/internal/query"
	"omni-reports/internal/service/schedule"
)

func newScheduleCmd(a *app) *cobra.Command {
	var (
		file    string
		list    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scheduled report definitions until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()

			defs, err := definition.Load(file)
			if err != nil {
				return err
			}
			scheduled := defs.Scheduled()
			if len(scheduled) == 0 {
				return fmt.Errorf("%s has no definitions with a schedule", file)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			// Jobs resolve suites concurrently; the account must exist first.
			acct, err := a.accountFor()
			if err != nil {
				return err
			}
			resolve := func(ctx context.Context, key string) (query.Suite, error) {
				return acct.Suite(ctx, key)
			}
			out := cmd.OutOrStdout()
			onResult := func(name string, rep *domain.Report, err error) {
				if err != nil {
					_, _ = fmt.Fprintf(out, "%s\t%s\tfailed: %v\n", time.Now().Format(time.DateTime), name, err)
					return
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\t%s (%gs)\n", time.Now().Format(time.DateTime), name, rep.Status, rep.Timing.Execution)
			}

			sched := schedule.NewScheduler(e, resolve, a.logger,
				schedule.WithResultHandler(onResult), schedule.WithRunTimeout(timeout))
			if err := sched.Load(scheduled); err != nil {
				return err
			}

			if list {
				rows := make([][]string, 0, len(scheduled))
				for _, name := range sched.Names() {
					next, _ := sched.Next(name)
					rows = append(rows, []string{name, next.Local().Format(time.DateTime)})
				}
				return printTable(out, []string{"name", "next run"}, rows)
			}

			sched.Start()
			a.logger.Info("scheduler started", "reports", len(scheduled))
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Report definitions file (required)")
	cmd.Flags().BoolVar(&list, "list", false, "Print the next run of each scheduled report and exit")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Maximum duration of one scheduled run")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
