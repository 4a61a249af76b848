package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fieldserve/rmaflow/internal/domain"
	"github.com/fieldserve/rmaflow/internal/repository"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Service drives one bulk import run end to end: parse, resolve, normalize,
// allocate, commit, summarize.
type Service struct {
	caseRepo  repository.CaseRepository
	logRepo   repository.IngestionLogRepository
	committer *Committer
}

// NewService creates an ingestion service with the given batch tunables.
func NewService(
	caseRepo repository.CaseRepository,
	logRepo repository.IngestionLogRepository,
	batchSize int,
	pause time.Duration,
) *Service {
	allocator := NewAllocator(caseRepo)
	return &Service{
		caseRepo:  caseRepo,
		logRepo:   logRepo,
		committer: NewCommitter(caseRepo, allocator, batchSize, pause),
	}
}

// Request describes a file based import.
type Request struct {
	FileName string
	Data     io.Reader
}

// Stats is the lightweight read-only store summary.
type Stats struct {
	TotalCases int64         `json:"totalCases"`
	Recent     []domain.Case `json:"recent"`
}

// Ingest reads the uploaded file and runs the full pipeline. A row that fails
// normalization or commit becomes a failure entry in the outcome; only an
// unreadable source aborts the run with an error and no summary.
func (s *Service) Ingest(ctx context.Context, req Request) (Outcome, error) {
	if req.Data == nil {
		return Outcome{}, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return Outcome{}, errors.New("file is empty")
	}

	rows, err := parseTable(req.FileName, payload)
	if err != nil {
		return Outcome{}, err
	}

	return s.run(ctx, req.FileName, rows)
}

// IngestRows runs the pipeline over pre-parsed records, bypassing file
// parsing. Column order inside each record is not guaranteed, so positional
// fallback is effectively inert on this path; label resolution carries it.
func (s *Service) IngestRows(ctx context.Context, records []map[string]string) (Outcome, error) {
	if len(records) == 0 {
		return Outcome{}, errors.New("no records supplied")
	}

	rows := make([]RawRow, 0, len(records))
	for _, record := range records {
		row := RawRow{Cells: make([]Cell, 0, len(record))}
		for label, value := range record {
			// Index -1 keeps these cells out of positional fallback; JSON
			// objects carry no trustworthy column order.
			row.Cells = append(row.Cells, Cell{Label: label, Value: value, Index: -1})
		}
		rows = append(rows, row)
	}

	return s.run(ctx, "inline", rows)
}

// run is the shared pipeline behind both entry points. Rows rejected at the
// identity check never reach batching; everything else is committed with per
// row failure isolation.
func (s *Service) run(ctx context.Context, fileName string, rows []RawRow) (Outcome, error) {
	drafts := make([]Draft, 0, len(rows))
	rejected := []FailureDetail{}

	for idx, row := range rows {
		rowNumber := idx + 1
		resolved := resolveColumns(row)
		c, supplied, err := normalizeFields(resolved)
		if err != nil {
			rejected = append(rejected, FailureDetail{
				RowIndex: rowNumber,
				Message:  err.Error(),
				RawData:  row.Payload(),
			})
			s.logRowError(ctx, fileName, rowNumber, row.Payload(), err)
			continue
		}
		drafts = append(drafts, Draft{
			SuppliedCaseNumber: supplied,
			Case:               c,
			RowIndex:           rowNumber,
			Raw:                row.Payload(),
		})
	}

	outcome, commitErr := s.committer.Commit(ctx, drafts)

	for _, failure := range outcome.Failures {
		s.logRowError(ctx, fileName, failure.RowIndex, failure.RawData, errors.New(failure.Message))
	}

	outcome.Processed = len(rows)
	outcome.Failed += len(rejected)
	outcome.Failures = append(outcome.Failures, rejected...)
	sortFailures(&outcome)

	return outcome, commitErr
}

// TemplateRow returns the canonical header labels plus one example row for
// the downloadable import template.
func TemplateRow() (headers []string, example []string) {
	headers = []string{
		"#", "RMA Number", "Raised Date", "Error Date", "Status", "Priority",
		"Site Name", "Product Name", "Serial Number", "Part Number",
		"Customer Name", "Contact Email", "Contact Phone", "Reported By",
		"Assigned To", "Category", "Subcategory", "Description", "Resolution",
		"Failure Code", "Warranty Status", "Purchase Order", "Ticket Number",
		"Region", "Address", "City", "Country", "Notes",
	}
	example = []string{
		"1", "", "2025-01-15", "2025-01-14", "Open", "Medium",
		"Springfield Plant", "Model X", "SN-000123", "PN-4455",
		"Acme Corp", "ops@example.com", "+1 555 0100", "J. Smith",
		"", "Hardware", "Power Supply", "Unit fails to start", "",
		"F-12", "In Warranty", "PO-9876", "TKT-100",
		"EMEA", "1 Factory Rd", "Springfield", "US", "",
	}
	return headers, example
}

// Stats returns the store count and most recent cases.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	count, err := s.caseRepo.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count cases: %w", err)
	}
	recent, err := s.caseRepo.ListRecent(ctx, 5)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list recent cases: %w", err)
	}
	return Stats{TotalCases: count, Recent: recent}, nil
}

func parseTable(fileName string, payload []byte) ([]RawRow, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([]RawRow, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	return buildRows(records)
}

func parseExcel(payload []byte) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return buildRows(records)
}

// buildRows detects the header row (first non-empty row) and turns every
// following non-empty row into a RawRow, preserving column order and index.
func buildRows(records [][]string) ([]RawRow, error) {
	if len(records) == 0 {
		return nil, errors.New("no rows found in file")
	}

	var headers []string
	rows := []RawRow{}

	for _, record := range records {
		if isEmptyRecord(record) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(record))
			for i, label := range record {
				headers[i] = strings.TrimSpace(label)
			}
			continue
		}

		row := RawRow{Cells: make([]Cell, 0, len(headers))}
		for i, label := range headers {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			row.Cells = append(row.Cells, Cell{Label: label, Value: value, Index: i})
		}
		rows = append(rows, row)
	}

	if headers == nil {
		return nil, errors.New("no header row detected")
	}

	return rows, nil
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (s *Service) logRowError(ctx context.Context, fileName string, rowNumber int, raw string, err error) {
	if s.logRepo == nil || err == nil {
		return
	}
	entry := domain.IngestionLogEntry{
		FileName:     fileName,
		RowNumber:    &rowNumber,
		RawPayload:   raw,
		ErrorMessage: err.Error(),
	}
	_ = s.logRepo.Record(ctx, entry)
}
