package ingestion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fieldserve/rmaflow/internal/repository"
)

const (
	// DefaultBatchSize bounds how many rows are committed concurrently.
	DefaultBatchSize = 50
	// DefaultBatchPause is the throttle between consecutive batches.
	DefaultBatchPause = 100 * time.Millisecond
)

// FailureDetail records one row that could not be ingested.
type FailureDetail struct {
	RowIndex int    `json:"row"`
	Message  string `json:"message"`
	RawData  string `json:"rawData,omitempty"`
}

// Outcome aggregates per row results across all batches of one run.
type Outcome struct {
	Processed  int             `json:"totalProcessed"`
	Inserted   int             `json:"inserted"`
	Duplicates int             `json:"duplicates"`
	Failed     int             `json:"errors"`
	Failures   []FailureDetail `json:"errorDetails"`
}

func (o *Outcome) addFailure(rowIndex int, message string, raw string) {
	o.Failed++
	o.Failures = append(o.Failures, FailureDetail{
		RowIndex: rowIndex,
		Message:  message,
		RawData:  raw,
	})
}

// Committer persists normalized drafts in fixed size batches. Rows within a
// batch are committed concurrently; batches run strictly one after another so
// peak concurrency never exceeds one batch's width. One row's failure never
// stops its siblings or later batches.
type Committer struct {
	caseRepo  repository.CaseRepository
	allocator *Allocator
	batchSize int
	pause     time.Duration
}

// NewCommitter creates a batch committer. Non-positive size or pause values
// fall back to the defaults.
func NewCommitter(caseRepo repository.CaseRepository, allocator *Allocator, batchSize int, pause time.Duration) *Committer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if pause < 0 {
		pause = DefaultBatchPause
	}
	return &Committer{
		caseRepo:  caseRepo,
		allocator: allocator,
		batchSize: batchSize,
		pause:     pause,
	}
}

// Commit runs the whole draft list through the store. When the context is
// cancelled between batches the outcome accumulated so far is returned along
// with the context error, so completed batches are never lost.
func (c *Committer) Commit(ctx context.Context, drafts []Draft) (Outcome, error) {
	outcome := Outcome{Processed: len(drafts), Failures: []FailureDetail{}}
	var mu sync.Mutex

	for start := 0; start < len(drafts); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			sortFailures(&outcome)
			return outcome, err
		}

		end := start + c.batchSize
		if end > len(drafts) {
			end = len(drafts)
		}
		batch := drafts[start:end]

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(c.batchSize)
		for _, draft := range batch {
			draft := draft
			group.Go(func() error {
				inserted, remapped, err := c.commitRow(groupCtx, draft)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					outcome.addFailure(draft.RowIndex, err.Error(), draft.Raw)
					return nil
				}
				if inserted {
					outcome.Inserted++
				}
				if remapped {
					outcome.Duplicates++
				}
				return nil
			})
		}
		// Row errors are captured in the outcome, never returned, so the
		// group only fails on context cancellation.
		_ = group.Wait()

		if end < len(drafts) && c.pause > 0 {
			select {
			case <-ctx.Done():
				sortFailures(&outcome)
				return outcome, ctx.Err()
			case <-time.After(c.pause):
			}
		}
	}

	sortFailures(&outcome)
	return outcome, nil
}

// commitRow allocates an identifier and creates the case. A uniqueness
// violation the allocator's pre-check missed gets exactly one retry with a
// freshly minted number; any other error fails the row immediately.
func (c *Committer) commitRow(ctx context.Context, draft Draft) (inserted bool, remapped bool, err error) {
	assigned, err := c.allocator.Assign(ctx, draft)
	if err != nil {
		return false, false, err
	}
	remapped = assigned.OriginalCaseNumber != nil

	_, err = c.caseRepo.Create(ctx, assigned)
	if err == nil {
		return true, remapped, nil
	}
	if !errors.Is(err, repository.ErrDuplicateCaseNumber) {
		return false, remapped, err
	}

	// Lost the race between pre-check and insert. Keep the colliding number
	// as the original and retry once with a fresh mint.
	retry := assigned
	if retry.OriginalCaseNumber == nil {
		retry = retry.WithOriginalCaseNumber(assigned.CaseNumber)
	}
	retry = retry.WithCaseNumber(MintCaseNumber())

	if _, err := c.caseRepo.Create(ctx, retry); err != nil {
		return false, true, err
	}
	return true, true, nil
}

// sortFailures keeps failure detail in source row order regardless of the
// order commits completed in.
func sortFailures(o *Outcome) {
	sort.Slice(o.Failures, func(i, j int) bool {
		return o.Failures[i].RowIndex < o.Failures[j].RowIndex
	})
}
