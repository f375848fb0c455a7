package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"omni-reports/internal/query"
	"omni-reports/internal/service/reporting"
)

func newCancelCmd(a *app) *cobra.Command {
	var (
		suiteKey  string
		requestID string
		kind      = query.KindOverTime
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a queued report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			ctx := cmd.Context()

			suite, err := a.suite(ctx, suiteKey)
			if err != nil {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			sub := reporting.Resume(suite, kind, requestID)
			if err := e.Cancel(ctx, sub); err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status":     "cancelled",
					"request_id": requestID,
					"kind":       kind.String(),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report %s cancelled\n", requestID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&suiteKey, "suite", "s", "", "Report suite title or rsid (required)")
	cmd.Flags().StringVar(&requestID, "request-id", "", "Request id returned when the report was queued (required)")
	cmd.Flags().Var(&kind, "kind", "Report kind the request was queued as")
	_ = cmd.MarkFlagRequired("suite")
	_ = cmd.MarkFlagRequired("request-id")

	return cmd
}
