package fakeapi

import (
	"fmt"
	"time"
)

var rawMetrics = []map[string]any{
	{"display_name": "Page Views", "metric_name": "pageviews", "type": "number", "decimals": 0},
	{"display_name": "Visitors", "metric_name": "visitors", "type": "number", "decimals": 0},
	{"display_name": "Category", "metric_name": "category", "type": "string"},
}

var rawElements = []map[string]any{
	{"display_name": "Page", "element_name": "page"},
	{"display_name": "Browser", "element_name": "browser"},
}

var rawEVars = []map[string]any{
	{"name": "Campaign", "evar_num": 1},
}

var rawSegments = []map[string]any{
	{"name": "US (Locked)", "id": "seg-us"},
	{"name": "Mobile", "id": "seg-mobile"},
}

const (
	dateLayout = "2006-01-02"
	rowLayout  = "Mon. 2 Jan 2006"
	// maxRows bounds generated day rows and element rows.
	maxRows = 31
)

// refIDs extracts the ids of a serialized identifier list.
func refIDs(v any) []string {
	list, _ := v.([]any)
	ids := make([]string, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			ids = append(ids, fmt.Sprint(m["id"]))
		}
	}
	return ids
}

func findEntry(entries []map[string]any, idKey, id string) map[string]any {
	for _, e := range entries {
		if fmt.Sprint(e[idKey]) == id {
			return e
		}
	}
	return nil
}

// generate builds the report body of a queued report. Counts are
// deterministic: row r, metric m yields (r+1)*(m+1)*10, sent as a string
// for numeric metrics the way the API does.
func generate(r *queuedReport) map[string]any {
	desc := r.desc

	var metrics []map[string]any
	for _, id := range refIDs(desc["metrics"]) {
		e := findEntry(rawMetrics, "metric_name", id)
		metrics = append(metrics, map[string]any{"id": id, "name": e["display_name"], "type": e["type"]})
	}

	var (
		elements []map[string]any
		rows     []string
		kind     string
	)
	switch r.method {
	case "QueueOvertime":
		kind = "overtime"
		elements = []map[string]any{{"id": "datetime", "name": "Date"}}
		rows = dayRows(desc)
	default:
		kind = "ranked"
		if r.method == "QueueTrended" {
			kind = "trended"
		}
		for _, id := range refIDs(desc["elements"]) {
			e := findEntry(rawElements, "element_name", id)
			name := id
			if e != nil {
				name = fmt.Sprint(e["display_name"])
			}
			elements = append(elements, map[string]any{"id": id, "name": name})
		}
		rows = []string{"Item 1", "Item 2", "Item 3"}
	}

	data := make([]map[string]any, len(rows))
	for i, name := range rows {
		counts := make([]any, len(metrics))
		for m, metric := range metrics {
			if metric["type"] == "number" {
				counts[m] = fmt.Sprint((i + 1) * (m + 1) * 10)
			} else {
				counts[m] = fmt.Sprintf("value %d", i+1)
			}
		}
		row := map[string]any{"name": name, "counts": counts}
		if kind != "overtime" {
			row["url"] = fmt.Sprintf("http://example.com/%d", i+1)
		}
		data[i] = row
	}

	out := map[string]any{
		"type":     kind,
		"period":   period(desc),
		"metrics":  metrics,
		"elements": elements,
		"data":     data,
	}
	if seg, ok := desc["segment_id"].(string); ok {
		out["segment_id"] = seg
	}
	return out
}

func period(desc map[string]any) string {
	if d, ok := desc["date"].(string); ok {
		return d
	}
	from, _ := desc["dateFrom"].(string)
	to, _ := desc["dateTo"].(string)
	if from == "" {
		return ""
	}
	return from + " - " + to
}

// dayRows returns one label per day of the described range when the
// granularity is "day", and a single period row otherwise.
func dayRows(desc map[string]any) []string {
	from, errFrom := time.Parse(dateLayout, fmt.Sprint(desc["dateFrom"]))
	to, errTo := time.Parse(dateLayout, fmt.Sprint(desc["dateTo"]))
	if desc["dateGranularity"] != "day" || errFrom != nil || errTo != nil {
		return []string{period(desc)}
	}
	var rows []string
	for d := from; !d.After(to) && len(rows) < maxRows; d = d.AddDate(0, 0, 1) {
		rows = append(rows, d.Format(rowLayout))
	}
	return rows
}
