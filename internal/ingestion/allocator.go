package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/rmaflow/internal/domain"
	"github.com/fieldserve/rmaflow/internal/repository"
)

const caseNumberPrefix = "RMA"

// Allocator assigns a unique business identifier to each draft before commit.
// Its existence pre-check is a best effort optimization only; the store's
// unique constraint on case_number is what actually guarantees uniqueness
// under concurrent runs, backed by the committer's single retry.
type Allocator struct {
	caseRepo repository.CaseRepository
}

// NewAllocator creates an identifier allocator over the case store.
func NewAllocator(caseRepo repository.CaseRepository) *Allocator {
	return &Allocator{caseRepo: caseRepo}
}

// Assign finalizes the identifier for one draft. A missing supplied number is
// replaced by a freshly minted one; a supplied number that already exists in
// the store is kept as the original case number and replaced by a fresh mint.
func (a *Allocator) Assign(ctx context.Context, draft Draft) (domain.Case, error) {
	c := draft.Case

	supplied := strings.TrimSpace(draft.SuppliedCaseNumber)
	if supplied == "" {
		return domain.NewCase(c.WithCaseNumber(MintCaseNumber())), nil
	}

	exists, err := a.caseRepo.ExistsByCaseNumber(ctx, supplied)
	if err != nil {
		return domain.Case{}, fmt.Errorf("failed to check case number %s: %w", supplied, err)
	}
	if exists {
		c = c.WithOriginalCaseNumber(supplied).WithCaseNumber(MintCaseNumber())
		return domain.NewCase(c), nil
	}

	return domain.NewCase(c.WithCaseNumber(supplied)), nil
}

// MintCaseNumber produces a fresh identifier of the form
// RMA-<year>-<12 char alphanumeric>. Collision probability is treated as
// negligible; the store constraint catches the rest.
func MintCaseNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("%s-%d-%s", caseNumberPrefix, time.Now().Year(), suffix)
}
