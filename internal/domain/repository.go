package domain

import "context"

// ReportRunRepository persists the lifecycle of submitted reports.
// Implemented by repository.ReportRunRepo.
type ReportRunRepository interface {
	Create(ctx context.Context, run *ReportRun) (*ReportRun, error)
	MarkQueued(ctx context.Context, id, requestID string) error
	MarkComplete(ctx context.Context, id string, timing Timing) error
	MarkFailed(ctx context.Context, id, message string) error
	MarkCancelled(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*ReportRun, error)
	List(ctx context.Context, limit int) ([]ReportRun, error)
}
