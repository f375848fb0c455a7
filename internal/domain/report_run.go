package domain

import "time"

// ReportRunState is the lifecycle state of a submitted report.
type ReportRunState string

// Report run lifecycle states.
const (
	ReportRunUnsubmitted   ReportRunState = "UNSUBMITTED"
	ReportRunQueued        ReportRunState = "QUEUED"
	ReportRunPollingStatus ReportRunState = "POLLING_STATUS"
	ReportRunPollingReport ReportRunState = "POLLING_REPORT"
	ReportRunComplete      ReportRunState = "COMPLETE"
	ReportRunFailed        ReportRunState = "FAILED"
	ReportRunCancelled     ReportRunState = "CANCELLED"
)

// ReportRun is the durable record of one submitted report.
type ReportRun struct {
	ID               string
	SuiteID          string
	Kind             string
	RequestID        string
	State            ReportRunState
	SpecJSON         string
	ErrorMessage     *string
	QueueSeconds     *float64
	ExecutionSeconds *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
