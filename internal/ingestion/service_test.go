package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/fieldserve/rmaflow/internal/domain"
	"github.com/fieldserve/rmaflow/internal/repository"
)

func newTestService(caseRepo repository.CaseRepository, logRepo repository.IngestionLogRepository) *Service {
	return NewService(caseRepo, logRepo, DefaultBatchSize, 0)
}

func TestServiceIngestCSVEndToEnd(t *testing.T) {
	caseRepo := newStubCaseRepo()
	logRepo := &stubLogRepo{}
	service := newTestService(caseRepo, logRepo)

	var b strings.Builder
	b.WriteString("#,RMA Number,Raised Date,Status,Priority,Site Name,Product Name,Serial Number\n")
	for i := 1; i <= 120; i++ {
		fmt.Fprintf(&b, "%d,,2025-01-15,Open,Medium,Site %d,Model X,SN-%04d\n", i, i, i)
	}

	summary, err := service.Ingest(context.Background(), Request{
		FileName: "cases.csv",
		Data:     strings.NewReader(b.String()),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.Processed != 120 {
		t.Fatalf("expected 120 processed, got %d", summary.Processed)
	}
	if summary.Inserted+summary.Failed != 120 {
		t.Fatalf("inserted + failed should equal 120, got %d + %d", summary.Inserted, summary.Failed)
	}
	if summary.Inserted != 120 {
		t.Fatalf("expected all 120 rows inserted, got %d (failures: %+v)", summary.Inserted, summary.Failures)
	}
	if len(caseRepo.created) != 120 {
		t.Fatalf("expected 120 cases in store, got %d", len(caseRepo.created))
	}
	if len(logRepo.entries) != 0 {
		t.Fatalf("did not expect ingestion errors, found %d", len(logRepo.entries))
	}
}

func TestServiceIngestSubstitutesPlaceholderSite(t *testing.T) {
	caseRepo := newStubCaseRepo()
	logRepo := &stubLogRepo{}
	service := newTestService(caseRepo, logRepo)

	data := "#,Site Name,Product Name,Serial Number\n1,,Model X,SN1\n"

	summary, err := service.Ingest(context.Background(), Request{
		FileName: "cases.csv",
		Data:     strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.Inserted != 1 || summary.Failed != 0 {
		t.Fatalf("expected 1 inserted and 0 failed, got %+v", summary)
	}
	created := caseRepo.allCreated()
	if len(created) != 1 {
		t.Fatalf("expected 1 case, got %d", len(created))
	}
	if created[0].SiteName != "Unknown Site" {
		t.Fatalf("expected placeholder site, got %q", created[0].SiteName)
	}
	if created[0].ProductName != "Model X" || created[0].SerialNumber != "SN1" {
		t.Fatalf("unexpected identity fields: %+v", created[0])
	}
}

func TestServiceIngestRejectsRowMissingAllIdentity(t *testing.T) {
	caseRepo := newStubCaseRepo()
	logRepo := &stubLogRepo{}
	service := newTestService(caseRepo, logRepo)

	data := "#,Site Name,Product Name,Serial Number,Notes\n" +
		"1,,,,orphan row\n" +
		"2,Plant A,Model X,SN2,\n"

	summary, err := service.Ingest(context.Background(), Request{
		FileName: "cases.csv",
		Data:     strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.Processed != 2 || summary.Inserted != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected 1 failure detail, got %d", len(summary.Failures))
	}
	failure := summary.Failures[0]
	if failure.RowIndex != 1 {
		t.Fatalf("expected failure on row 1, got row %d", failure.RowIndex)
	}
	if !strings.Contains(failure.Message, "missing all essential") {
		t.Fatalf("unexpected failure message: %q", failure.Message)
	}
	if len(logRepo.entries) != 1 {
		t.Fatalf("expected rejection to be logged, found %d entries", len(logRepo.entries))
	}
	if len(caseRepo.allCreated()) != 1 {
		t.Fatalf("rejected row must never reach the store")
	}
}

func TestServiceIngestDuplicateSuppliedIdentifier(t *testing.T) {
	caseRepo := newStubCaseRepo()
	logRepo := &stubLogRepo{}
	service := newTestService(caseRepo, logRepo)

	data := "#,RMA Number,Site Name,Product Name,Serial Number\n" +
		"1,RMA-TEST-1,Plant A,Model X,SN1\n" +
		"2,RMA-TEST-1,Plant B,Model Y,SN2\n"

	summary, err := service.Ingest(context.Background(), Request{
		FileName: "cases.csv",
		Data:     strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.Inserted != 2 {
		t.Fatalf("expected both rows inserted, got %+v", summary)
	}
	if summary.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate remap, got %d", summary.Duplicates)
	}

	created := caseRepo.allCreated()
	if len(created) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(created))
	}

	var kept, remapped *domain.Case
	for i := range created {
		if created[i].CaseNumber == "RMA-TEST-1" {
			kept = &created[i]
		} else {
			remapped = &created[i]
		}
	}
	if kept == nil {
		t.Fatalf("expected one case to keep the supplied number, cases: %+v", created)
	}
	if remapped == nil || remapped.OriginalCaseNumber == nil || *remapped.OriginalCaseNumber != "RMA-TEST-1" {
		t.Fatalf("expected remapped case to retain original number, got %+v", remapped)
	}
}

func TestServiceIngestRowsInlineRecords(t *testing.T) {
	caseRepo := newStubCaseRepo()
	logRepo := &stubLogRepo{}
	service := newTestService(caseRepo, logRepo)

	records := []map[string]string{
		{"Site Name": "Plant A", "Product Name": "Model X", "Serial Number": "SN1", "Status": "Closed"},
		{"Site": "Plant B", "Model": "Model Y", "Serial #": "SN2", "Priority": "P1"},
	}

	summary, err := service.IngestRows(context.Background(), records)
	if err != nil {
		t.Fatalf("ingest rows returned error: %v", err)
	}
	if summary.Processed != 2 || summary.Inserted != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	created := caseRepo.allCreated()
	statuses := map[domain.CaseStatus]bool{}
	priorities := map[domain.CasePriority]bool{}
	for _, c := range created {
		statuses[c.Status] = true
		priorities[c.Priority] = true
	}
	if !statuses[domain.StatusClosed] {
		t.Fatalf("expected a closed case, got %+v", created)
	}
	if !priorities[domain.PriorityCritical] {
		t.Fatalf("expected a critical priority case, got %+v", created)
	}
}

func TestServiceIngestUnsupportedFormat(t *testing.T) {
	service := newTestService(newStubCaseRepo(), &stubLogRepo{})

	_, err := service.Ingest(context.Background(), Request{
		FileName: "cases.txt",
		Data:     strings.NewReader("not a table"),
	})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestServiceIngestEmptyFile(t *testing.T) {
	service := newTestService(newStubCaseRepo(), &stubLogRepo{})

	_, err := service.Ingest(context.Background(), Request{
		FileName: "cases.csv",
		Data:     strings.NewReader(""),
	})
	if err == nil {
		t.Fatalf("expected fatal error for empty file")
	}
}

// stubCaseRepo is an in-memory CaseRepository. failWhen lets tests fail
// specific rows; raceNumbers simulates a concurrent writer that grabs a case
// number after the allocator's pre-check.
type stubCaseRepo struct {
	mu          sync.Mutex
	created     []domain.Case
	numbers     map[string]bool
	preExisting map[string]bool
	raceNumbers map[string]bool
	failWhen    func(domain.Case) error
}

func newStubCaseRepo() *stubCaseRepo {
	return &stubCaseRepo{
		numbers:     map[string]bool{},
		preExisting: map[string]bool{},
		raceNumbers: map[string]bool{},
	}
}

func (s *stubCaseRepo) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWhen != nil {
		if err := s.failWhen(c); err != nil {
			return domain.Case{}, err
		}
	}
	if s.raceNumbers[c.CaseNumber] {
		delete(s.raceNumbers, c.CaseNumber)
		s.numbers[c.CaseNumber] = true
		return domain.Case{}, fmt.Errorf("%w: %s", repository.ErrDuplicateCaseNumber, c.CaseNumber)
	}
	if s.numbers[c.CaseNumber] || s.preExisting[c.CaseNumber] {
		return domain.Case{}, fmt.Errorf("%w: %s", repository.ErrDuplicateCaseNumber, c.CaseNumber)
	}

	s.numbers[c.CaseNumber] = true
	s.created = append(s.created, c)
	return c, nil
}

func (s *stubCaseRepo) ExistsByCaseNumber(ctx context.Context, caseNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numbers[caseNumber] || s.preExisting[caseNumber], nil
}

func (s *stubCaseRepo) GetByCaseNumber(ctx context.Context, caseNumber string) (domain.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.created {
		if c.CaseNumber == caseNumber {
			return c, nil
		}
	}
	return domain.Case{}, repository.ErrCaseNotFound
}

func (s *stubCaseRepo) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.created)), nil
}

func (s *stubCaseRepo) ListRecent(ctx context.Context, limit int) ([]domain.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.created) {
		limit = len(s.created)
	}
	recent := make([]domain.Case, 0, limit)
	for i := len(s.created) - 1; i >= len(s.created)-limit; i-- {
		recent = append(recent, s.created[i])
	}
	return recent, nil
}

func (s *stubCaseRepo) allCreated() []domain.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Case(nil), s.created...)
}

type stubLogRepo struct {
	mu      sync.Mutex
	entries []domain.IngestionLogEntry
}

func (s *stubLogRepo) Record(ctx context.Context, entry domain.IngestionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubLogRepo) List(ctx context.Context, fileName string, limit int, offset int) ([]domain.IngestionLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.IngestionLogEntry(nil), s.entries...), nil
}
