package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omni-reports/internal/testutil/fakeapi"
)

// isolateEnv points HOME at a temp dir and clears the variables the CLI
// reads, so no real config or credentials leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"OMNITURE_USERNAME", "OMNITURE_SECRET", "OMNITURE_ENDPOINT",
		"OMNI_HISTORY_DB", "OMNI_OUTPUT", "OMNI_CONCURRENCY", "OMNI_POLL_MAX_ATTEMPTS",
		"OMNI_RATE_LIMIT_RPS", "OMNI_RATE_LIMIT_BURST", "OMNI_HTTP_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("OMNI_POLL_INTERVAL", "1ms")
}

// runCLI executes a fresh root command and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd := newRootCmd()
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func credentials(srv *fakeapi.Server) []string {
	return []string{"--endpoint", srv.URL(), "--username", fakeapi.Username, "--secret", fakeapi.Secret}
}

func withArgs(base []string, args ...string) []string {
	return append(append([]string(nil), base...), args...)
}

func TestCLI_CommandTree(t *testing.T) {
	isolateEnv(t)

	rootCmd := newRootCmd()
	cmdNames := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdNames[cmd.Name()] = true
	}

	for _, name := range []string{
		"suites", "catalog", "run", "cancel", "history", "schedule",
		"version", "config", "completion",
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, cmdNames[name], "expected command %q to exist on root", name)
		})
	}
}

func TestCLI_InvalidOutputFormat(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "-o", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestCLI_MissingCredentials(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "suites")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API credentials")
}

func TestCLI_Version(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, "-o", "json", "version")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "dev", got["version"])
}

func TestCLI_CredentialPrecedence(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t)

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Endpoint: srv.URL(), Username: fakeapi.Username, Secret: "wrong"},
		},
	}))

	// Profile secret is wrong.
	_, err := runCLI(t, "suites")
	require.Error(t, err)

	// Env beats profile.
	t.Setenv("OMNITURE_SECRET", fakeapi.Secret)
	_, err = runCLI(t, "suites")
	require.NoError(t, err)

	// Flag beats env.
	_, err = runCLI(t, "--secret", "also-wrong", "suites")
	require.Error(t, err)
}

func TestCLI_SuitesAndCatalog(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t)

	out, err := runCLI(t, withArgs(credentials(srv), "suites")...)
	require.NoError(t, err)
	assert.Contains(t, out, "RSID")
	assert.Contains(t, out, fakeapi.SuiteID)

	out, err = runCLI(t, withArgs(credentials(srv), "-o", "json", "catalog", "segments", "--suite", fakeapi.SuiteTitle)...)
	require.NoError(t, err)
	var got []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []map[string]string{
		{"id": "seg-us", "title": "US (Locked)"},
		{"id": "seg-mobile", "title": "Mobile"},
	}, got)

	_, err = runCLI(t, withArgs(credentials(srv), "catalog", "widgets", "--suite", fakeapi.SuiteID)...)
	require.Error(t, err)
}

func TestCLI_RunOverTime(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t, fakeapi.WithStatuses("not ready", "done"))

	out, err := runCLI(t, withArgs(credentials(srv), "-o", "json", "run",
		"--suite", fakeapi.SuiteTitle, "--metric", "pageviews", "--metric", "Visitors",
		"--from", "2013-05-01", "--days", "2", "--granularity", "day", "--segment", "US (Locked)")...)
	require.NoError(t, err)

	var got reportView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "overtime", got.Kind)
	assert.Equal(t, "done", got.Status)
	assert.Equal(t, "2013-05-01 - 2013-05-02", got.Period)
	assert.Equal(t, "US (Locked)", got.Segment)
	assert.Equal(t, map[string][]any{
		"pageviews": {10.0, 20.0},
		"visitors":  {20.0, 40.0},
	}, got.Data)
	assert.Equal(t, 2, srv.CountMethod("Report.GetStatus"))
}

func TestCLI_RunRankedTable(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t)

	out, err := runCLI(t, withArgs(credentials(srv), "run", "--suite", fakeapi.SuiteID, "--kind", "ranked",
		"--metric", "pageviews", "--element", "page", "--from", "2013-05-01", "--titles")...)
	require.NoError(t, err)
	assert.Contains(t, out, "ranked report")
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "PAGE VIEWS")
	assert.Contains(t, out, "Item 1")
}

func TestCLI_RunValidation(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t)

	_, err := runCLI(t, withArgs(credentials(srv), "run", "--suite", fakeapi.SuiteID, "--kind", "trended",
		"--metric", "pageviews", "--metric", "visitors", "--element", "page")...)
	require.Error(t, err)
	assert.Zero(t, srv.CountMethod("Report.QueueTrended"))

	_, err = runCLI(t, withArgs(credentials(srv), "run", "--kind", "sideways")...)
	require.Error(t, err)

	_, err = runCLI(t, withArgs(credentials(srv), "run")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--suite or --file is required")
}

const definitionsYAML = `reports:
  - name: daily
    suite: testsuite
    kind: overtime
    metrics: [pageviews]
    from: "2013-05-01"
    days: 3
    granularity: day
  - name: top-pages
    suite: Test Suite
    kind: ranked
    metrics: [pageviews]
    elements: [page]
    from: "2013-05-01"
    to: "2013-05-31"
    schedule: "0 6 * * *"
`

func writeDefinitions(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.yaml")
	require.NoError(t, os.WriteFile(path, []byte(definitionsYAML), 0o600))
	return path
}

func TestCLI_RunFromFile(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t)
	path := writeDefinitions(t)

	out, err := runCLI(t, withArgs(credentials(srv), "-o", "json", "run", "--file", path, "--name", "daily")...)
	require.NoError(t, err)
	var single reportView
	require.NoError(t, json.Unmarshal([]byte(out), &single))
	assert.Equal(t, []any{10.0, 20.0, 30.0}, single.Data["pageviews"])

	out, err = runCLI(t, withArgs(credentials(srv), "-o", "json", "run", "--file", path, "--all")...)
	require.NoError(t, err)
	var all []reportView
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	require.Len(t, all, 2)
	assert.Equal(t, "daily", all[0].Name)
	assert.Equal(t, "top-pages", all[1].Name)
	assert.Equal(t, "ranked", all[1].Kind)

	_, err = runCLI(t, withArgs(credentials(srv), "run", "--file", path)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name or --all")
}

func TestCLI_QueueThenCancel(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t, fakeapi.WithStatuses("not ready"))

	out, err := runCLI(t, withArgs(credentials(srv), "-o", "json", "run", "--no-wait",
		"--suite", fakeapi.SuiteID, "--metric", "pageviews", "--from", "2013-05-01")...)
	require.NoError(t, err)
	var queued []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &queued))
	require.Len(t, queued, 1)
	id := queued[0]["request_id"]
	require.NotEmpty(t, id)

	_, err = runCLI(t, withArgs(credentials(srv), "cancel", "--suite", fakeapi.SuiteID, "--request-id", id)...)
	require.NoError(t, err)
	assert.True(t, srv.Cancelled(id))
}

func TestCLI_History(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, err := runCLI(t, withArgs(credentials(srv), "--history-db", dbPath, "run",
		"--suite", fakeapi.SuiteID, "--metric", "pageviews", "--from", "2013-05-01")...)
	require.NoError(t, err)

	out, err := runCLI(t, "--history-db", dbPath, "-o", "json", "history")
	require.NoError(t, err)
	var runs []runView
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, fakeapi.SuiteID, runs[0].SuiteID)
	assert.Equal(t, "overtime", runs[0].Kind)
	assert.Equal(t, "COMPLETE", runs[0].State)
	require.NotNil(t, runs[0].ExecutionSeconds)
	assert.InDelta(t, 0.5, *runs[0].ExecutionSeconds, 1e-9)

	_, err = runCLI(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history database configured")
}

func TestCLI_ScheduleList(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t)

	out, err := runCLI(t, withArgs(credentials(srv), "schedule", "--file", writeDefinitions(t), "--list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "top-pages")
	assert.NotContains(t, out, "daily")
}

func TestCLI_JSONErrorCarriesRemoteStatus(t *testing.T) {
	isolateEnv(t)
	srv := fakeapi.New(t, fakeapi.WithFailure(fakeapi.Failure{Status: "Report Error", Message: "boom"}))

	_, err := runCLI(t, withArgs(credentials(srv), "run",
		"--suite", fakeapi.SuiteID, "--metric", "pageviews", "--from", "2013-05-01")...)
	require.Error(t, err)

	var stdout, stderr bytes.Buffer
	reportError(&stdout, &stderr, "json", err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "Report Error", got["status"])
	assert.Contains(t, got["error"], "boom")
	assert.Empty(t, stderr.String())
}
