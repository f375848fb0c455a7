package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"omni-reports/internal/domain"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded report runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()

			repo, err := a.history(cmd.Context())
			if err != nil {
				return err
			}
			if repo == nil {
				return fmt.Errorf("no history database configured: use --history-db or OMNI_HISTORY_DB")
			}
			runs, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), runViews(runs))
			}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID, r.SuiteID, r.Kind, r.RequestID, string(r.State),
					seconds(r.ExecutionSeconds), r.CreatedAt.Local().Format(time.DateTime),
				}
			}
			return printTable(cmd.OutOrStdout(),
				[]string{"id", "suite", "kind", "request_id", "state", "seconds", "created"}, rows)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

type runView struct {
	ID               string    `json:"id"`
	SuiteID          string    `json:"suite_id"`
	Kind             string    `json:"kind"`
	RequestID        string    `json:"request_id,omitempty"`
	State            string    `json:"state"`
	Error            *string   `json:"error,omitempty"`
	QueueSeconds     *float64  `json:"queue_seconds,omitempty"`
	ExecutionSeconds *float64  `json:"execution_seconds,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func runViews(runs []domain.ReportRun) []runView {
	out := make([]runView, len(runs))
	for i, r := range runs {
		out[i] = runView{
			ID:               r.ID,
			SuiteID:          r.SuiteID,
			Kind:             r.Kind,
			RequestID:        r.RequestID,
			State:            string(r.State),
			Error:            r.ErrorMessage,
			QueueSeconds:     r.QueueSeconds,
			ExecutionSeconds: r.ExecutionSeconds,
			CreatedAt:        r.CreatedAt,
			UpdatedAt:        r.UpdatedAt,
		}
	}
	return out
}

func seconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
