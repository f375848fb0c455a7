package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omni-reports/internal/domain"
	"omni-reports/internal/testutil"
)

func newTestQuery(t *testing.T) *Query {
	t.Helper()
	return New(testutil.NewFakeSuite(nil))
}

func specJSON(t *testing.T, q *Query) string {
	t.Helper()
	b, err := json.Marshal(q.Spec())
	require.NoError(t, err)
	return string(b)
}

func TestBuilder_Immutability(t *testing.T) {
	ctx := context.Background()
	base, err := newTestQuery(t).Range("2013-05-01", Until("2013-05-31"), Granularity("day"))
	require.NoError(t, err)
	base, err = base.OverTime(ctx, "pageviews")
	require.NoError(t, err)

	mutators := map[string]func(q *Query) (*Query, error){
		"range":    func(q *Query) (*Query, error) { return q.Range("2014-01-01", Days(3)) },
		"filter":   func(q *Query) (*Query, error) { return q.Filter(ctx, "US (Locked)") },
		"segments": func(q *Query) (*Query, error) { return q.Filter(ctx, []string{"Mobile", "seg-us"}) },
		"ranked":   func(q *Query) (*Query, error) { return q.Ranked(ctx, []string{"pageviews", "visitors"}, "page") },
		"trended":  func(q *Query) (*Query, error) { return q.Trended(ctx, "visitors", "browser") },
		"overtime": func(q *Query) (*Query, error) { return q.OverTime(ctx, "visitors") },
		"data":     func(q *Query) (*Query, error) { return q.Data(ctx, "visitors") },
		"set":      func(q *Query) (*Query, error) { return q.Set("locale", "en_US") },
		"setall": func(q *Query) (*Query, error) {
			return q.SetAll(map[string]any{"sortBy": "visitors", "anomalyDetection": true})
		},
	}

	for name, m := range mutators {
		t.Run(name, func(t *testing.T) {
			before := specJSON(t, base)
			got, err := m(base)
			require.NoError(t, err)
			assert.NotSame(t, base, got)
			assert.Equal(t, before, specJSON(t, base))
			assert.NotEqual(t, before, specJSON(t, got))
		})
	}
}

func TestBuilder_BranchingDoesNotShareState(t *testing.T) {
	ctx := context.Background()
	base, err := newTestQuery(t).Ranked(ctx, "pageviews", "page")
	require.NoError(t, err)

	top, err := base.Spec().Elements[0].Top(5)
	require.NoError(t, err)
	a, err := base.Set("elements", []domain.Identifier{top})
	require.NoError(t, err)
	b, err := base.Set("locale", "de_DE")
	require.NoError(t, err)

	assert.NotContains(t, b.Description(), "startingWith")
	assert.Equal(t, []any{map[string]any{"id": "page", "startingWith": "0", "top": "5"}}, a.Description()["elements"])
	assert.Equal(t, []any{map[string]any{"id": "page"}}, b.Description()["elements"])
}

func TestRange(t *testing.T) {
	tests := []struct {
		name  string
		start string
		opts  []RangeOption
		want  DateSpec
	}{
		{name: "single day", start: "2013-05-01", want: DateSpec{Date: "2013-05-01"}},
		{name: "until", start: "2013-05-01", opts: []RangeOption{Until("2013-05-31")}, want: DateSpec{From: "2013-05-01", To: "2013-05-31"}},
		{name: "until same day", start: "2013-05-01", opts: []RangeOption{Until("2013-05-01")}, want: DateSpec{Date: "2013-05-01"}},
		{name: "days", start: "2013-05-01", opts: []RangeOption{Days(7)}, want: DateSpec{From: "2013-05-01", To: "2013-05-07"}},
		{name: "one day span", start: "2013-05-01", opts: []RangeOption{Days(1)}, want: DateSpec{Date: "2013-05-01"}},
		{name: "months", start: "2013-05-01", opts: []RangeOption{Months(1)}, want: DateSpec{From: "2013-05-01", To: "2013-05-31"}},
		{name: "months clamp", start: "2013-01-31", opts: []RangeOption{Months(1)}, want: DateSpec{From: "2013-01-31", To: "2013-02-27"}},
		{name: "months and days", start: "2013-05-01", opts: []RangeOption{Months(1), Days(2)}, want: DateSpec{From: "2013-05-01", To: "2013-06-02"}},
		{name: "granularity", start: "2013-05-01", opts: []RangeOption{Until("2013-05-31"), Granularity("day")}, want: DateSpec{From: "2013-05-01", To: "2013-05-31", Granularity: "day"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := newTestQuery(t).Range(tc.start, tc.opts...)
			require.NoError(t, err)
			require.NotNil(t, q.Spec().Date)
			assert.Equal(t, tc.want, *q.Spec().Date)
		})
	}
}

func TestRange_Description(t *testing.T) {
	q, err := newTestQuery(t).Range("2013-05-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"date": "2013-05-01"}, q.Description())

	q, err = newTestQuery(t).Range("2013-05-01", Until("2013-05-31"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"dateFrom": "2013-05-01", "dateTo": "2013-05-31"}, q.Description())
}

func TestRange_KeepsGranularity(t *testing.T) {
	q, err := newTestQuery(t).Range("2013-05-01", Granularity("hour"))
	require.NoError(t, err)
	q, err = q.Range("2013-06-01", Days(2))
	require.NoError(t, err)
	assert.Equal(t, "hour", q.Spec().Date.Granularity)
}

func TestRange_Errors(t *testing.T) {
	tests := []struct {
		name  string
		start string
		opts  []RangeOption
	}{
		{name: "bad granularity", start: "2013-05-01", opts: []RangeOption{Granularity("week")}},
		{name: "bad start", start: "05/01/2013"},
		{name: "bad stop", start: "2013-05-01", opts: []RangeOption{Until("tomorrow")}},
		{name: "stop before start", start: "2013-05-31", opts: []RangeOption{Until("2013-05-01")}},
		{name: "negative days", start: "2013-05-01", opts: []RangeOption{Days(-1)}},
		{name: "stop and span", start: "2013-05-01", opts: []RangeOption{Until("2013-05-31"), Days(3)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestQuery(t).Range(tc.start, tc.opts...)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "got %T", err)
		})
	}
}

func TestTrended_Arity(t *testing.T) {
	ctx := context.Background()
	q := newTestQuery(t)

	_, err := q.Trended(ctx, []string{"pageviews", "visitors"}, "page")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = q.Trended(ctx, "pageviews", []string{"page"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	got, err := q.Trended(ctx, "pageviews", "page")
	require.NoError(t, err)
	assert.Equal(t, KindTrended, got.Kind())
	assert.Len(t, got.Spec().Metrics, 1)
	assert.Len(t, got.Spec().Elements, 1)
}

func TestRanked_ResolvesByTitleAndID(t *testing.T) {
	ctx := context.Background()
	q, err := newTestQuery(t).Ranked(ctx, []any{"Page Views", "visitors"}, []string{"Browser"})
	require.NoError(t, err)

	spec := q.Spec()
	require.Len(t, spec.Metrics, 2)
	assert.Equal(t, "pageviews", spec.Metrics[0].ID)
	assert.Equal(t, "visitors", spec.Metrics[1].ID)
	assert.Equal(t, "browser", spec.Elements[0].ID)
}

func TestOverTime_AcceptsIdentifier(t *testing.T) {
	ctx := context.Background()
	custom := domain.NewIdentifier("Custom", "event12", domain.SuiteRef{ID: "testsuite"}, nil)

	q, err := newTestQuery(t).OverTime(ctx, custom)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"id": "event12"}}, q.Description()["metrics"])
}

func TestResolve_LookupErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestQuery(t).OverTime(ctx, "bounces")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Contains(t, err.Error(), "metrics")

	_, err = newTestQuery(t).OverTime(ctx, nil)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = newTestQuery(t).OverTime(ctx, 42)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestFilter(t *testing.T) {
	ctx := context.Background()

	q, err := newTestQuery(t).Filter(ctx, "US (Locked)")
	require.NoError(t, err)
	assert.Equal(t, "seg-us", q.Description()["segment_id"])

	q, err = newTestQuery(t).Filter(ctx, []string{"Mobile", "seg-us"})
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"id": "seg-mobile"},
		map[string]any{"id": "seg-us"},
	}, q.Description()["segments"])

	_, err = newTestQuery(t).Filter(ctx, nil)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestSet(t *testing.T) {
	page := domain.NewIdentifier("Page", "page", domain.SuiteRef{}, nil)
	q, err := newTestQuery(t).Set("elements", []domain.Identifier{page})
	require.NoError(t, err)
	q, err = q.Set("locale", "en_US")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"elements": []any{map[string]any{"id": "page"}},
		"locale":   "en_US",
	}, q.Description())

	_, err = newTestQuery(t).Set("", "x")
	assert.True(t, domain.IsValidation(err))
	_, err = newTestQuery(t).Set("locale", nil)
	assert.True(t, domain.IsValidation(err))
	_, err = newTestQuery(t).SetAll(nil)
	assert.True(t, domain.IsValidation(err))
}

func TestSort_NotImplemented(t *testing.T) {
	_, err := newTestQuery(t).Sort("pageviews")
	require.Error(t, err)
	assert.True(t, domain.IsNotImplemented(err))
}

func TestBuild_RequiresKind(t *testing.T) {
	q, err := newTestQuery(t).Range("2013-05-01")
	require.NoError(t, err)

	_, err = q.Build()
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestBuild_ReportDescription(t *testing.T) {
	ctx := context.Background()
	q, err := newTestQuery(t).Range("2013-05-01", Until("2013-05-31"), Granularity("day"))
	require.NoError(t, err)
	q, err = q.OverTime(ctx, []string{"pageviews"})
	require.NoError(t, err)
	q, err = q.Filter(ctx, "US (Locked)")
	require.NoError(t, err)

	got, err := q.Build()
	require.NoError(t, err)

	want := map[string]any{
		"reportDescription": map[string]any{
			"dateFrom":        "2013-05-01",
			"dateTo":          "2013-05-31",
			"dateGranularity": "day",
			"metrics":         []any{map[string]any{"id": "pageviews"}},
			"segment_id":      "seg-us",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_DataWarehouseRenames(t *testing.T) {
	ctx := context.Background()
	q, err := newTestQuery(t).Range("2013-05-01", Until("2013-05-31"), Granularity("month"))
	require.NoError(t, err)
	q, err = q.Data(ctx, "pageviews")
	require.NoError(t, err)

	got, err := q.Build()
	require.NoError(t, err)

	want := map[string]any{
		"Date_From":        "2013-05-01",
		"Date_To":          "2013-05-31",
		"Date_Granularity": "month",
		"Metric_List":      []any{map[string]any{"id": "pageviews"}},
		"Breakdown_List":   false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}

	single, err := q.Range("2013-05-01")
	require.NoError(t, err)
	got, err = single.Build()
	require.NoError(t, err)
	assert.Equal(t, "2013-05-01", got["Date_Preset"])
}
