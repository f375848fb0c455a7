package cli

import (
	"github.com/spf13/cobra"

	"omni-reports/internal/domain"
)

func newSuitesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suites",
		Short: "List the company's report suites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.accountFor()
			if err != nil {
				return err
			}
			suites, err := acct.Suites(cmd.Context())
			if err != nil {
				return err
			}
			return printIdentifiers(cmd, suites, "rsid", "title")
		},
	}
}

// printIdentifiers prints a collection as a two-column table or a JSON list.
func printIdentifiers(cmd *cobra.Command, coll *domain.Collection, idHeader, titleHeader string) error {
	if getOutputFormat(cmd) == "json" {
		out := make([]map[string]string, coll.Len())
		for i, item := range coll.Items {
			out[i] = map[string]string{"id": item.ID, "title": item.Title}
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
	rows := make([][]string, coll.Len())
	for i, item := range coll.Items {
		rows[i] = []string{item.ID, item.Title}
	}
	return printTable(cmd.OutOrStdout(), []string{idHeader, titleHeader}, rows)
}
