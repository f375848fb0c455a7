package definition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omni-reports/internal/domain"
	"omni-reports/internal/query"
	"omni-reports/internal/testutil"
)

const sampleFile = `
reports:
  - name: may-pageviews
    suite: Test Suite
    kind: overtime
    metrics: [pageviews]
    from: "2013-05-01"
    to: "2013-05-31"
    granularity: day
    segment: US (Locked)
    schedule: "0 6 * * *"
  - name: top-pages
    suite: testsuite
    kind: ranked
    metrics: [Page Views, visitors]
    elements: [page]
    from: "2013-05-01"
    days: 7
    raw:
      locale: en_US
  - name: browser-trend
    suite: testsuite
    kind: trended
    metrics: [visitors]
    elements: [browser]
    segments: [Mobile, US (Locked)]
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	require.Len(t, f.Reports, 3)

	d, err := f.Find("top-pages")
	require.NoError(t, err)
	assert.Equal(t, "2013-05-01", d.From)
	assert.Equal(t, 7, d.Days)
	assert.Equal(t, map[string]any{"locale": "en_US"}, d.Raw)

	scheduled := f.Scheduled()
	require.Len(t, scheduled, 1)
	assert.Equal(t, "may-pageviews", scheduled[0].Name)

	_, err = f.Find("nope")
	assert.True(t, domain.IsNotFound(err))
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Reports)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("reports:\n  - name: x\n    suite: s\n    kind: overtime\n    metrics: [m]\n    colour: red\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Definition{Name: "r", Suite: "s", Kind: "ranked", Metrics: []string{"m"}, Elements: []string{"e"}}

	tests := []struct {
		name   string
		mutate func(d *Definition)
		errMsg string
	}{
		{"missing name", func(d *Definition) { d.Name = "" }, "name is required"},
		{"missing suite", func(d *Definition) { d.Suite = "" }, "suite is required"},
		{"bad kind", func(d *Definition) { d.Kind = "pivot" }, "unknown report kind"},
		{"no metrics", func(d *Definition) { d.Metrics = nil }, "at least one metric"},
		{"ranked without elements", func(d *Definition) { d.Elements = nil }, "at least one element"},
		{"trended arity", func(d *Definition) { d.Kind = "trended"; d.Metrics = []string{"a", "b"} }, "exactly one metric"},
		{"to without from", func(d *Definition) { d.To = "2013-05-31" }, "require from"},
		{"segment and segments", func(d *Definition) { d.Segment = "a"; d.Segments = []string{"b"} }, "either segment or segments"},
		{"bad schedule", func(d *Definition) { d.Schedule = "every day" }, "invalid schedule"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			err := d.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	assert.NoError(t, valid.Validate())
}

func TestFileValidate_CollectsAllErrors(t *testing.T) {
	f := File{Reports: []Definition{
		{Name: "a", Suite: "s", Kind: "overtime", Metrics: []string{"m"}},
		{Name: "a", Suite: "s", Kind: "overtime", Metrics: []string{"m"}},
		{Name: "b", Kind: "overtime", Metrics: []string{"m"}},
	}}
	err := f.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate name "a"`)
	assert.Contains(t, err.Error(), "reports[2]")
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	f, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	suite := testutil.NewFakeSuite(nil)

	d, _ := f.Find("may-pageviews")
	q, err := d.Build(ctx, suite)
	require.NoError(t, err)
	body, err := q.Build()
	require.NoError(t, err)
	want := map[string]any{"reportDescription": map[string]any{
		"dateFrom":        "2013-05-01",
		"dateTo":          "2013-05-31",
		"dateGranularity": "day",
		"metrics":         []any{map[string]any{"id": "pageviews"}},
		"segment_id":      "seg-us",
	}}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}

	d, _ = f.Find("top-pages")
	q, err = d.Build(ctx, suite)
	require.NoError(t, err)
	assert.Equal(t, query.KindRanked, q.Kind())
	desc := q.Description()
	assert.Equal(t, "2013-05-07", desc["dateTo"])
	assert.Equal(t, "en_US", desc["locale"])
	assert.Len(t, desc["metrics"], 2)

	d, _ = f.Find("browser-trend")
	q, err = d.Build(ctx, suite)
	require.NoError(t, err)
	assert.Equal(t, query.KindTrended, q.Kind())
	assert.Len(t, q.Description()["segments"], 2)
}

func TestBuild_UnknownMetric(t *testing.T) {
	d := Definition{Name: "r", Suite: "s", Kind: "overtime", Metrics: []string{"bounces"}}
	_, err := d.Build(context.Background(), testutil.NewFakeSuite(nil))
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Reports, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
