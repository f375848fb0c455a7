// Package cli implements the omni command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"omni-reports/internal/client"
	"omni-reports/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		reportError(os.Stdout, os.Stderr, output, err)
		return 1
	}
	return 0
}

// reportError prints err as a JSON object on stdout in json mode and as a
// plain line on stderr otherwise.
func reportError(stdout, stderr io.Writer, output string, err error) {
	if output != "json" {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return
	}
	errObj := map[string]any{"error": err.Error()}
	var remote *domain.RemoteReportError
	if errors.As(err, &remote) {
		errObj["status"] = remote.Status
		errObj["code"] = remote.Code
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		errObj["http_status"] = apiErr.StatusCode()
		errObj["operation"] = apiErr.Operation()
	}
	_ = printJSON(stdout, errObj)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "omni",
		Short:         "Reporting API client",
		Long:          "Queue, poll and decode web analytics reports from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.endpoint, "endpoint", "", "API endpoint URL")
	flags.StringVar(&a.flags.username, "username", "", "API username (user:company)")
	flags.StringVar(&a.flags.secret, "secret", "", "API shared secret")
	flags.StringVarP(&a.flags.output, "output", "o", "table", "Output format (table, json)")
	flags.StringVarP(&a.flags.profile, "profile", "p", "", "Config profile to use")
	flags.StringVar(&a.flags.historyDB, "history-db", "", "SQLite file recording report runs")
	flags.StringVar(&a.flags.envPrefix, "env-prefix", "", "Prefix of the credential environment variables")
	flags.StringVar(&a.flags.envSuffix, "env-suffix", "", "Suffix of the credential environment variables")
	flags.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Log API calls and polling to stderr")

	rootCmd.AddCommand(newSuitesCmd(a))
	rootCmd.AddCommand(newCatalogCmd(a))
	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newCancelCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newScheduleCmd(a))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
