// Package report decodes finished report payloads into domain.Report values.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"omni-reports/internal/domain"
)

// Catalogs gives decoders access to the suite a report was run against, for
// resolving segment ids back to catalog entries.
type Catalogs interface {
	Ref() domain.SuiteRef
	Catalog(ctx context.Context, kind domain.CatalogKind) (*domain.Collection, error)
}

// DecodeFunc turns a GetReport response into a Report.
type DecodeFunc func(ctx context.Context, raw json.RawMessage, suite Catalogs) (*domain.Report, error)

// Payload is a GetReport response.
type Payload struct {
	Status      string    `json:"status"`
	Report      RawReport `json:"report"`
	WaitSeconds flexFloat `json:"waitSeconds"`
	RunSeconds  flexFloat `json:"runSeconds"`
}

// RawReport is the report object of a Payload.
type RawReport struct {
	Type      string           `json:"type"`
	Metrics   []map[string]any `json:"metrics"`
	Elements  []map[string]any `json:"elements"`
	Period    string           `json:"period"`
	SegmentID string           `json:"segment_id"`
	Data      []Row            `json:"data"`
}

// Row is one data row. Trended reports nest their values in Breakdown, which
// is kept undecoded.
type Row struct {
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	Counts    []any           `json:"counts"`
	Breakdown json.RawMessage `json:"breakdown,omitempty"`
}

// flexFloat accepts a JSON number or a numeric string. The API sends timing
// fields as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse %q as number: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// ParsePayload decodes a GetReport response.
func ParsePayload(raw json.RawMessage) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode report payload: %w", err)
	}
	return &p, nil
}

// NormalizeError extracts status, code and message from either error shape
// the API produces: {status, error_code, error_msg} or
// {statusMsg, status, statusDesc}.
func NormalizeError(raw map[string]any) *domain.RemoteReportError {
	e := &domain.RemoteReportError{Raw: raw}
	if _, ok := raw["error_msg"]; ok {
		e.Status = scalar(raw["status"])
		e.Code = scalar(raw["error_code"])
		e.Message = scalar(raw["error_msg"])
		return e
	}
	e.Status = scalar(raw["statusMsg"])
	e.Code = scalar(raw["status"])
	e.Message = scalar(raw["statusDesc"])
	return e
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
