package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"omni-reports/internal/domain"
)

func newCatalogCmd(a *app) *cobra.Command {
	var suiteKey string

	cmd := &cobra.Command{
		Use:   "catalog <metrics|elements|evars|segments>",
		Short: "List a report suite catalog",
		Args:  cobra.ExactArgs(1),
		ValidArgs: func() []string {
			out := make([]string, len(domain.CatalogKinds))
			for i, k := range domain.CatalogKinds {
				out[i] = string(k)
			}
			return out
		}(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseCatalogKind(args[0])
			if err != nil {
				return err
			}
			if suiteKey == "" {
				return fmt.Errorf("--suite is required")
			}
			suite, err := a.suite(cmd.Context(), suiteKey)
			if err != nil {
				return err
			}
			coll, err := suite.Catalog(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return printIdentifiers(cmd, coll, "id", "title")
		},
	}

	cmd.Flags().StringVarP(&suiteKey, "suite", "s", "", "Report suite title or rsid (required)")
	_ = cmd.MarkFlagRequired("suite")

	return cmd
}
