package report

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omni-reports/internal/domain"
	"omni-reports/internal/testutil"
)

const overTimePayload = `{
	"status": "done",
	"waitSeconds": "0.5",
	"runSeconds": "1.25",
	"report": {
		"type": "overtime",
		"period": "May 2013",
		"segment_id": "",
		"metrics": [
			{"id": "pageviews", "name": "Page Views", "type": "number"},
			{"id": "category", "name": "Category", "type": "string"}
		],
		"elements": [{"id": "datetime", "name": "Date"}],
		"data": [
			{"name": "Wed. 1 May 2013", "counts": ["42", "foo"]},
			{"name": "Thu. 2 May 2013", "counts": ["7.5", "bar"]}
		]
	}
}`

func TestDecodeOverTime_Coercion(t *testing.T) {
	suite := testutil.NewFakeSuite(nil)

	rep, err := DecodeOverTime(context.Background(), json.RawMessage(overTimePayload), suite)
	require.NoError(t, err)

	assert.Equal(t, "overtime", rep.Kind)
	assert.Equal(t, "done", rep.Status)
	assert.Equal(t, domain.Timing{Queue: 0.5, Execution: 1.25}, rep.Timing)
	assert.Equal(t, "May 2013", rep.Period)
	assert.Nil(t, rep.Segment)

	pageviews, err := rep.Columns.Get("pageviews")
	require.NoError(t, err)
	assert.Equal(t, []any{42.0, 7.5}, pageviews)

	category, err := rep.Columns.Get("Category")
	require.NoError(t, err)
	assert.Equal(t, []any{"foo", "bar"}, category)

	require.Equal(t, 1, rep.Elements.Len())
	assert.Equal(t, "datetime", rep.Elements.At(0).ID)
	assert.Equal(t, suite.SuiteRef, rep.Metrics.At(0).Parent)
}

func TestDecodeOverTime_Serialize(t *testing.T) {
	rep, err := DecodeOverTime(context.Background(), json.RawMessage(overTimePayload), testutil.NewFakeSuite(nil))
	require.NoError(t, err)

	assert.Equal(t, map[string][]any{
		"pageviews": {42.0, 7.5},
		"category":  {"foo", "bar"},
	}, rep.Serialize(false))
	assert.Equal(t, map[string][]any{
		"Page Views": {42.0, 7.5},
		"Category":   {"foo", "bar"},
	}, rep.Serialize(true))
}

func TestDecodeOverTime_NumericCounts(t *testing.T) {
	payload := `{"status":"done","waitSeconds":0,"runSeconds":2,
		"report":{"metrics":[{"id":"pageviews","name":"Page Views","type":"number"}],
		"data":[{"counts":[3]}]}}`

	rep, err := DecodeOverTime(context.Background(), json.RawMessage(payload), testutil.NewFakeSuite(nil))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, rep.Timing.Execution, 1e-9)
	vals, err := rep.Columns.Get("pageviews")
	require.NoError(t, err)
	assert.Equal(t, []any{3.0}, vals)
}

func TestDecodeOverTime_BadNumber(t *testing.T) {
	payload := `{"status":"done","report":{"metrics":[{"id":"pageviews","name":"Page Views","type":"number"}],
		"data":[{"counts":["n/a"]}]}}`

	_, err := DecodeOverTime(context.Background(), json.RawMessage(payload), testutil.NewFakeSuite(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pageviews")
}

func TestDecodeOverTime_TooManyCounts(t *testing.T) {
	payload := `{"status":"done","report":{"metrics":[{"id":"pageviews","name":"Page Views","type":"number"}],
		"data":[{"counts":["1","2"]}]}}`

	_, err := DecodeOverTime(context.Background(), json.RawMessage(payload), testutil.NewFakeSuite(nil))
	require.Error(t, err)
}

func TestDecodeRanked(t *testing.T) {
	payload := `{
		"status": "done", "waitSeconds": "0", "runSeconds": "0.1",
		"report": {
			"segment_id": "seg-us",
			"metrics": [{"id": "pageviews", "name": "Page Views", "type": "number"}],
			"elements": [{"id": "page", "name": "Page"}],
			"data": [
				{"name": "Home", "url": "http://example.com/", "counts": ["10"]},
				{"name": "About", "url": "", "counts": ["3"]}
			]
		}
	}`

	rep, err := DecodeRanked(context.Background(), json.RawMessage(payload), testutil.NewFakeSuite(nil))
	require.NoError(t, err)

	vals, err := rep.Columns.Get("Page Views")
	require.NoError(t, err)
	assert.Equal(t, []any{
		domain.RankedValue{Label: "Home", URL: "http://example.com/", Value: 10.0},
		domain.RankedValue{Label: "About", URL: "", Value: 3.0},
	}, vals)

	require.NotNil(t, rep.Segment)
	assert.Equal(t, "US (Locked)", rep.Segment.Title)
}

func TestDecodeRanked_UnknownSegment(t *testing.T) {
	payload := `{"status":"done","report":{"segment_id":"nope","metrics":[],"data":[]}}`

	_, err := DecodeRanked(context.Background(), json.RawMessage(payload), testutil.NewFakeSuite(nil))
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestDecode_SegmentResolvedByID(t *testing.T) {
	suite := testutil.NewFakeSuite(nil)
	suite.Collections[domain.CatalogSegments] = domain.NewCollection("segments", []domain.Identifier{
		domain.NewIdentifier("Mobile", "seg-a", suite.SuiteRef, nil),
		domain.NewIdentifier("seg-a", "seg-b", suite.SuiteRef, nil),
	})
	payload := `{"status":"done","report":{"segment_id":"seg-a","metrics":[],"data":[]}}`

	rep, err := DecodeOverTime(context.Background(), json.RawMessage(payload), suite)
	require.NoError(t, err)
	require.NotNil(t, rep.Segment)
	assert.Equal(t, "seg-a", rep.Segment.ID)
	assert.Equal(t, "Mobile", rep.Segment.Title)
}

func TestDecodeTrended_ColumnsLeftEmpty(t *testing.T) {
	payload := `{
		"status": "done", "waitSeconds": "1", "runSeconds": "2",
		"report": {
			"metrics": [{"id": "pageviews", "name": "Page Views", "type": "number"}],
			"elements": [{"id": "page", "name": "Page"}],
			"data": [{"name": "May 2013", "breakdown": [{"name": "Home", "counts": ["5"]}]}]
		}
	}`

	rep, err := DecodeTrended(context.Background(), json.RawMessage(payload), testutil.NewFakeSuite(nil))
	require.NoError(t, err)
	assert.Equal(t, "trended", rep.Kind)
	vals, err := rep.Columns.Get("pageviews")
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestDecodeDataWarehouse_NotImplemented(t *testing.T) {
	_, err := DecodeDataWarehouse(context.Background(), json.RawMessage(`{}`), testutil.NewFakeSuite(nil))
	require.Error(t, err)
	assert.True(t, domain.IsNotImplemented(err))
}

func TestParsePayload_Invalid(t *testing.T) {
	_, err := ParsePayload(json.RawMessage(`{"waitSeconds": "soon"}`))
	require.Error(t, err)
}

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want domain.RemoteReportError
	}{
		{
			name: "error_code shape",
			raw:  map[string]any{"status": "failed", "error_code": float64(5002), "error_msg": "report failed"},
			want: domain.RemoteReportError{Status: "failed", Code: "5002", Message: "report failed"},
		},
		{
			name: "statusMsg shape",
			raw:  map[string]any{"statusMsg": "error", "status": "400", "statusDesc": "bad element"},
			want: domain.RemoteReportError{Status: "error", Code: "400", Message: "bad element"},
		},
		{
			name: "statusMsg shape without description",
			raw:  map[string]any{"statusMsg": "error", "status": "500"},
			want: domain.RemoteReportError{Status: "error", Code: "500"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeError(tc.raw)
			assert.Equal(t, tc.want.Status, got.Status)
			assert.Equal(t, tc.want.Code, got.Code)
			assert.Equal(t, tc.want.Message, got.Message)
			assert.Equal(t, tc.raw, got.Raw)
		})
	}
}

func TestNormalizeError_Message(t *testing.T) {
	err := NormalizeError(map[string]any{"status": "failed", "error_code": "42", "error_msg": "boom"})
	assert.Equal(t, "invalid report: failed: boom (42)", err.Error())
}
