package cli

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"omni-reports/internal/auth"
	"omni-reports/internal/client"
	"omni-reports/internal/config"
	"omni-reports/internal/db"
	"omni-reports/internal/db/repository"
	"omni-reports/internal/service/catalog"
	"omni-reports/internal/service/reporting"
)

type rootFlags struct {
	endpoint  string
	username  string
	secret    string
	output    string
	profile   string
	historyDB string
	envPrefix string
	envSuffix string
	verbose   bool
}

// app carries the settings resolved for one invocation and the lazily built
// services commands share.
type app struct {
	flags  rootFlags
	cfg    *config.Config
	output string
	logger *slog.Logger

	account *catalog.Account
	db      *sql.DB
}

// resolve applies flag > env > profile > default to every setting.
func (a *app) resolve(cmd *cobra.Command) error {
	userCfg, err := LoadUserConfig()
	if err != nil {
		// Config file is optional
		userCfg = defaultUserConfig()
	}
	p, err := userCfg.ActiveProfile(a.flags.profile)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv(a.flags.envPrefix, a.flags.envSuffix)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	cfg.Username = pick(changed("username"), a.flags.username, cfg.Username, p.Username)
	cfg.Secret = pick(changed("secret"), a.flags.secret, cfg.Secret, p.Secret)
	cfg.Endpoint = pick(changed("endpoint"), a.flags.endpoint, os.Getenv("OMNITURE_ENDPOINT"), p.Endpoint)
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultEndpoint
	}
	cfg.HistoryDB = pick(changed("history-db"), a.flags.historyDB, cfg.HistoryDB, p.HistoryDB)

	a.output = pick(changed("output"), a.flags.output, os.Getenv("OMNI_OUTPUT"), p.Output)
	if a.output == "" {
		a.output = "table"
	}
	if err := validateOutputFormat(a.output); err != nil {
		return err
	}
	// Keep the flag in sync so getOutputFormat and Execute see the result.
	_ = cmd.Root().PersistentFlags().Set("output", a.output)

	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if a.flags.verbose {
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg
	a.logger = newLogger(cfg, cmd.ErrOrStderr())
	for _, w := range cfg.Warnings {
		a.logger.Warn(w)
	}
	return nil
}

func pick(flagSet bool, flagVal, envVal, profileVal string) string {
	switch {
	case flagSet:
		return flagVal
	case envVal != "":
		return envVal
	default:
		return profileVal
	}
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// accountFor returns the API account, building the signed client on first use.
func (a *app) accountFor() (*catalog.Account, error) {
	if a.account != nil {
		return a.account, nil
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := client.New(a.cfg.Endpoint,
		client.WithSigner(auth.NewWSSE(a.cfg.Username, a.cfg.Secret)),
		client.WithLogger(a.logger),
		client.WithTimeout(a.cfg.HTTPTimeout),
		client.WithRateLimit(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
	)
	if err != nil {
		return nil, err
	}
	a.account = catalog.NewAccount(c, nil, a.logger)
	return a.account, nil
}

// suite resolves a report suite by title or rsid.
func (a *app) suite(ctx context.Context, key string) (*catalog.Suite, error) {
	acct, err := a.accountFor()
	if err != nil {
		return nil, err
	}
	return acct.Suite(ctx, key)
}

// history opens the run history database when one is configured. It
// returns nil without error otherwise.
func (a *app) history(ctx context.Context) (*repository.ReportRunRepo, error) {
	if a.cfg.HistoryDB == "" {
		return nil, nil
	}
	if a.db == nil {
		conn, err := db.OpenHistory(ctx, a.cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		a.db = conn
	}
	return repository.NewReportRunRepo(a.db), nil
}

// engine builds a reporting engine from the resolved settings.
func (a *app) engine(ctx context.Context) (*reporting.Engine, error) {
	opts := []reporting.Option{
		reporting.WithInterval(a.cfg.PollInterval),
		reporting.WithMaxAttempts(a.cfg.PollMaxAttempts),
		reporting.WithConcurrency(a.cfg.Concurrency),
	}
	repo, err := a.history(ctx)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		opts = append(opts, reporting.WithHistory(repo))
	}
	return reporting.NewEngine(a.logger, opts...), nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}
