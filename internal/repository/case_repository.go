package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldserve/rmaflow/internal/domain"
)

const pgUniqueViolation = "23505"

const caseColumns = `id, case_number, original_case_number, site_name, product_name,
	serial_number, part_number, status, priority, raised_at, error_at, closed_at,
	visit_at, customer_name, contact_email, contact_phone, reported_by, assigned_to,
	technician, category, subcategory, description, resolution, failure_code,
	warranty_status, purchase_order, ticket_number, region, address, city, country,
	notes, created_at, updated_at`

// caseRepository implements CaseRepository backed by pgxpool.
type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository creates a new case repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

// Create inserts a new case. A unique index violation on case_number is
// mapped to ErrDuplicateCaseNumber so the committer can distinguish it from
// other insert failures.
func (r *caseRepository) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO cases (id, case_number, original_case_number, site_name, product_name,
			serial_number, part_number, status, priority, raised_at, error_at, closed_at,
			visit_at, customer_name, contact_email, contact_phone, reported_by, assigned_to,
			technician, category, subcategory, description, resolution, failure_code,
			warranty_status, purchase_order, ticket_number, region, address, city, country,
			notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31,
			$32, $33, $34)
		 RETURNING `+caseColumns,
		c.ID, c.CaseNumber, c.OriginalCaseNumber, c.SiteName, c.ProductName,
		c.SerialNumber, c.PartNumber, c.Status, c.Priority, c.RaisedAt, c.ErrorAt,
		c.ClosedAt, c.VisitAt, c.CustomerName, c.ContactEmail, c.ContactPhone,
		c.ReportedBy, c.AssignedTo, c.Technician, c.Category, c.Subcategory,
		c.Description, c.Resolution, c.FailureCode, c.WarrantyStatus, c.PurchaseOrder,
		c.TicketNumber, c.Region, c.Address, c.City, c.Country, c.Notes,
		c.CreatedAt, c.UpdatedAt,
	)

	created, err := scanCase(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.Case{}, fmt.Errorf("%w: %s", ErrDuplicateCaseNumber, c.CaseNumber)
		}
		return domain.Case{}, fmt.Errorf("failed to create case: %w", err)
	}
	return created, nil
}

// ExistsByCaseNumber reports whether a case with the given number exists.
func (r *caseRepository) ExistsByCaseNumber(ctx context.Context, caseNumber string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM cases WHERE case_number = $1)`,
		caseNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check case existence: %w", err)
	}
	return exists, nil
}

// GetByCaseNumber retrieves a case by its business identifier.
func (r *caseRepository) GetByCaseNumber(ctx context.Context, caseNumber string) (domain.Case, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+caseColumns+` FROM cases WHERE case_number = $1`,
		caseNumber,
	)
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Case{}, fmt.Errorf("%w: %s", ErrCaseNotFound, caseNumber)
		}
		return domain.Case{}, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// Count returns the number of cases in the store.
func (r *caseRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cases`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cases: %w", err)
	}
	return count, nil
}

// ListRecent returns the most recently created cases, newest first.
func (r *caseRepository) ListRecent(ctx context.Context, limit int) ([]domain.Case, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+caseColumns+` FROM cases ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent cases: %w", err)
	}
	defer rows.Close()

	cases := []domain.Case{}
	for rows.Next() {
		c, scanErr := scanCase(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan case: %w", scanErr)
		}
		cases = append(cases, c)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate cases: %w", rowsErr)
	}

	return cases, nil
}

func scanCase(row pgx.Row) (domain.Case, error) {
	var (
		c        domain.Case
		original pgtype.Text
		raisedAt pgtype.Timestamptz
		errorAt  pgtype.Timestamptz
		closedAt pgtype.Timestamptz
		visitAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&c.ID, &c.CaseNumber, &original, &c.SiteName, &c.ProductName,
		&c.SerialNumber, &c.PartNumber, &c.Status, &c.Priority, &raisedAt,
		&errorAt, &closedAt, &visitAt, &c.CustomerName, &c.ContactEmail,
		&c.ContactPhone, &c.ReportedBy, &c.AssignedTo, &c.Technician,
		&c.Category, &c.Subcategory, &c.Description, &c.Resolution,
		&c.FailureCode, &c.WarrantyStatus, &c.PurchaseOrder, &c.TicketNumber,
		&c.Region, &c.Address, &c.City, &c.Country, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Case{}, err
	}

	if original.Valid {
		value := original.String
		c.OriginalCaseNumber = &value
	}
	c.RaisedAt = timestampPtr(raisedAt)
	c.ErrorAt = timestampPtr(errorAt)
	c.ClosedAt = timestampPtr(closedAt)
	c.VisitAt = timestampPtr(visitAt)

	return c, nil
}

func timestampPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	value := ts.Time
	return &value
}
