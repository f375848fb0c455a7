package query

import (
	"strings"

	"omni-reports/internal/domain"
	"omni-reports/internal/report"
)

// Kind is the shape of report a query produces. It decides the submit method,
// the cancel call and the decoder.
type Kind int

const (
	KindNone Kind = iota
	KindOverTime
	KindRanked
	KindTrended
	KindDataWarehouse
)

type kindEntry struct {
	name         string
	submitAPI    string
	submitMethod string
	cancelAPI    string
	cancelMethod string
	cancelParam  string
	decode       report.DecodeFunc
}

var kindTable = map[Kind]kindEntry{
	KindOverTime: {
		name: "overtime", submitAPI: "Report", submitMethod: "QueueOvertime",
		cancelAPI: "Report", cancelMethod: "CancelReport", cancelParam: "reportID",
		decode: report.DecodeOverTime,
	},
	KindRanked: {
		name: "ranked", submitAPI: "Report", submitMethod: "QueueRanked",
		cancelAPI: "Report", cancelMethod: "CancelReport", cancelParam: "reportID",
		decode: report.DecodeRanked,
	},
	KindTrended: {
		name: "trended", submitAPI: "Report", submitMethod: "QueueTrended",
		cancelAPI: "Report", cancelMethod: "CancelReport", cancelParam: "reportID",
		decode: report.DecodeTrended,
	},
	KindDataWarehouse: {
		name: "datawarehouse", submitAPI: "DataWarehouse", submitMethod: "Request",
		cancelAPI: "DataWarehouse", cancelMethod: "CancelRequest", cancelParam: "Request_Id",
		decode: report.DecodeDataWarehouse,
	},
}

func (k Kind) String() string {
	if e, ok := kindTable[k]; ok {
		return e.name
	}
	return "none"
}

// ParseKind parses a kind name. Dashes and underscores are ignored, so
// "over-time" and "over_time" both select KindOverTime.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for k, e := range kindTable {
		if e.name == norm {
			return k, nil
		}
	}
	return KindNone, domain.ErrValidation("unknown report kind %q (expected overtime, ranked, trended or datawarehouse)", s)
}

// Set implements pflag.Value.
func (k *Kind) Set(s string) error {
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Type implements pflag.Value.
func (k *Kind) Type() string { return "kind" }

func (k Kind) entry() (kindEntry, error) {
	e, ok := kindTable[k]
	if !ok {
		return kindEntry{}, domain.ErrValidation("no report kind set: call OverTime, Ranked, Trended or Data before submitting")
	}
	return e, nil
}

// SubmitMethod returns the api and method a query of this kind is queued with.
func (k Kind) SubmitMethod() (api, method string, err error) {
	e, err := k.entry()
	if err != nil {
		return "", "", err
	}
	return e.submitAPI, e.submitMethod, nil
}

// CancelRequest returns the call that cancels the remote request requestID.
func (k Kind) CancelRequest(requestID string) (api, method string, body map[string]any, err error) {
	e, err := k.entry()
	if err != nil {
		return "", "", nil, err
	}
	return e.cancelAPI, e.cancelMethod, map[string]any{e.cancelParam: requestID}, nil
}

// Decoder returns the decoder for finished reports of this kind.
func (k Kind) Decoder() (report.DecodeFunc, error) {
	e, err := k.entry()
	if err != nil {
		return nil, err
	}
	return e.decode, nil
}
