package reporting

import (
	"context"
	"sync"

	"omni-reports/internal/domain"
	"omni-reports/internal/query"
)

// Submission is a query on its way through the remote report queue. The
// remote request id is assigned once, by the first successful Queue.
//
// mu guards the fields below it and is never held across a remote call.
// queueing serializes queue calls; syncing serializes Sync calls so that
// only one poll loop runs per submission.
type Submission struct {
	queueing sync.Mutex
	syncing  sync.Mutex

	query *query.Query
	suite query.Suite
	kind  query.Kind

	mu        sync.Mutex
	requestID string
	state     domain.ReportRunState
	runID     string
	stopPoll  context.CancelFunc
}

// NewSubmission wraps q for submission.
func NewSubmission(q *query.Query) *Submission {
	return &Submission{
		query: q,
		suite: q.Suite(),
		kind:  q.Kind(),
		state: domain.ReportRunUnsubmitted,
	}
}

// Resume returns a submission for a report queued earlier, possibly by
// another process. It can be synced or cancelled but not requeued.
func Resume(suite query.Suite, kind query.Kind, requestID string) *Submission {
	return &Submission{
		suite:     suite,
		kind:      kind,
		requestID: requestID,
		state:     domain.ReportRunQueued,
	}
}

// Query returns the submitted query, or nil for resumed submissions.
func (s *Submission) Query() *query.Query { return s.query }

// Kind returns the report kind.
func (s *Submission) Kind() query.Kind { return s.kind }

// RequestID returns the remote request id, or "" before queueing.
func (s *Submission) RequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestID
}

// State returns the current lifecycle state.
func (s *Submission) State() domain.ReportRunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunID returns the history record id, or "" when history is disabled.
func (s *Submission) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// transition moves the submission to state unless it was cancelled. It
// reports whether the state changed.
func (s *Submission) transition(state domain.ReportRunState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.ReportRunCancelled {
		return false
	}
	s.state = state
	return true
}

func (s *Submission) cancelled() bool {
	return s.State() == domain.ReportRunCancelled
}
