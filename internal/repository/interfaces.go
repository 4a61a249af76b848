package repository

import (
	"context"
	"errors"

	"github.com/fieldserve/rmaflow/internal/domain"
)

// ErrDuplicateCaseNumber is returned by Create when the case number is
// already taken. Callers use errors.Is against it to decide whether a retry
// with a freshly minted number is worthwhile.
var ErrDuplicateCaseNumber = errors.New("case number already exists")

// ErrCaseNotFound is returned by lookups that match no case.
var ErrCaseNotFound = errors.New("case not found")

// CaseRepository defines the interface for case persistence. The unique index
// on case_number is the concurrency backstop for the whole import pipeline;
// implementations must surface violations of it as ErrDuplicateCaseNumber.
type CaseRepository interface {
	Create(ctx context.Context, c domain.Case) (domain.Case, error)
	ExistsByCaseNumber(ctx context.Context, caseNumber string) (bool, error)
	GetByCaseNumber(ctx context.Context, caseNumber string) (domain.Case, error)
	Count(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Case, error)
}

// IngestionLogRepository stores row level import failures for observability.
type IngestionLogRepository interface {
	Record(ctx context.Context, entry domain.IngestionLogEntry) error
	List(ctx context.Context, fileName string, limit int, offset int) ([]domain.IngestionLogEntry, error)
}
