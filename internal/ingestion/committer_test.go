package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fieldserve/rmaflow/internal/domain"
	"github.com/fieldserve/rmaflow/internal/repository"
)

func makeDrafts(n int) []Draft {
	drafts := make([]Draft, 0, n)
	for i := 1; i <= n; i++ {
		drafts = append(drafts, Draft{
			Case: domain.Case{
				SiteName:     fmt.Sprintf("Site %d", i),
				ProductName:  "Model X",
				SerialNumber: fmt.Sprintf("SN-%04d", i),
			},
			RowIndex: i,
		})
	}
	return drafts
}

func newTestCommitter(repo *stubCaseRepo, batchSize int) *Committer {
	return NewCommitter(repo, NewAllocator(repo), batchSize, 0)
}

func TestCommitterPartitionsIntoBatches(t *testing.T) {
	repo := newStubCaseRepo()
	committer := newTestCommitter(repo, 50)

	outcome, err := committer.Commit(context.Background(), makeDrafts(120))
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if outcome.Processed != 120 || outcome.Inserted != 120 || outcome.Failed != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(repo.allCreated()) != 120 {
		t.Fatalf("expected 120 cases in store, got %d", len(repo.allCreated()))
	}
}

func TestCommitterIsolatesRowFailures(t *testing.T) {
	repo := newStubCaseRepo()
	repo.failWhen = func(c domain.Case) error {
		if c.SerialNumber == "SN-0007" {
			return errors.New("store validation failed")
		}
		return nil
	}
	committer := newTestCommitter(repo, 10)

	outcome, err := committer.Commit(context.Background(), makeDrafts(20))
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if outcome.Inserted != 19 || outcome.Failed != 1 {
		t.Fatalf("expected 19 inserted and 1 failed, got %+v", outcome)
	}
	if len(outcome.Failures) != 1 {
		t.Fatalf("expected 1 failure detail, got %d", len(outcome.Failures))
	}
	if outcome.Failures[0].RowIndex != 7 {
		t.Fatalf("failure should retain source row index 7, got %d", outcome.Failures[0].RowIndex)
	}
}

func TestCommitterRetriesDuplicateOnce(t *testing.T) {
	repo := newStubCaseRepo()
	// Simulate a writer in another run grabbing the number between the
	// allocator's pre-check and our insert.
	repo.raceNumbers["RMA-RACE-1"] = true
	committer := newTestCommitter(repo, 10)

	drafts := makeDrafts(1)
	drafts[0].SuppliedCaseNumber = "RMA-RACE-1"

	outcome, err := committer.Commit(context.Background(), drafts)
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if outcome.Inserted != 1 || outcome.Failed != 0 {
		t.Fatalf("expected retry to succeed, got %+v", outcome)
	}
	if outcome.Duplicates != 1 {
		t.Fatalf("retried row must count as a duplicate remap, got %+v", outcome)
	}

	created := repo.allCreated()
	if len(created) != 1 {
		t.Fatalf("expected 1 case, got %d", len(created))
	}
	if created[0].CaseNumber == "RMA-RACE-1" {
		t.Fatalf("retried case must carry a fresh number")
	}
	if created[0].OriginalCaseNumber == nil || *created[0].OriginalCaseNumber != "RMA-RACE-1" {
		t.Fatalf("colliding number must be kept as original, got %+v", created[0].OriginalCaseNumber)
	}
}

func TestCommitterGivesUpAfterSecondDuplicate(t *testing.T) {
	repo := newStubCaseRepo()
	calls := 0
	repo.failWhen = func(c domain.Case) error {
		calls++
		return fmt.Errorf("%w: %s", repository.ErrDuplicateCaseNumber, c.CaseNumber)
	}
	committer := newTestCommitter(repo, 10)

	outcome, err := committer.Commit(context.Background(), makeDrafts(1))
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if calls != 2 {
		t.Fatalf("expected exactly one retry (2 create calls), got %d", calls)
	}
	if outcome.Inserted != 0 || outcome.Failed != 1 {
		t.Fatalf("expected row to fail after second duplicate, got %+v", outcome)
	}
}

func TestCommitterDoesNotRetryOtherErrors(t *testing.T) {
	repo := newStubCaseRepo()
	calls := 0
	repo.failWhen = func(c domain.Case) error {
		calls++
		return errors.New("connection reset")
	}
	committer := newTestCommitter(repo, 10)

	outcome, err := committer.Commit(context.Background(), makeDrafts(1))
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if calls != 1 {
		t.Fatalf("non-duplicate errors must not be retried, got %d create calls", calls)
	}
	if outcome.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", outcome)
	}
}

func TestCommitterPreservesOutcomeOnCancellation(t *testing.T) {
	repo := newStubCaseRepo()
	committer := newTestCommitter(repo, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := committer.Commit(ctx, makeDrafts(30))
	if err == nil {
		t.Fatalf("expected context error")
	}
	if outcome.Processed != 30 {
		t.Fatalf("partial outcome must still report processed count, got %+v", outcome)
	}
	if outcome.Inserted != 0 {
		t.Fatalf("cancelled run should not have committed, got %+v", outcome)
	}
}

func TestCommitterFailureDetailOrdered(t *testing.T) {
	repo := newStubCaseRepo()
	repo.failWhen = func(c domain.Case) error {
		switch c.SerialNumber {
		case "SN-0003", "SN-0011", "SN-0018":
			return errors.New("bad row")
		}
		return nil
	}
	committer := newTestCommitter(repo, 5)

	outcome, err := committer.Commit(context.Background(), makeDrafts(20))
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if len(outcome.Failures) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(outcome.Failures))
	}
	wantRows := []int{3, 11, 18}
	for i, failure := range outcome.Failures {
		if failure.RowIndex != wantRows[i] {
			t.Fatalf("failure detail out of order: got %+v", outcome.Failures)
		}
	}
}
