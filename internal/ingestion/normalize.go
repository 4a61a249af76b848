package ingestion

import (
	"errors"
	"strings"
	"time"

	"github.com/fieldserve/rmaflow/internal/domain"
)

// ErrMissingIdentity marks a row whose site, product and serial fields are all
// absent. Such a row cannot be attributed to any equipment and is rejected
// before identifier assignment.
var ErrMissingIdentity = errors.New("missing all essential identity fields (site, product, serial)")

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05.000000000",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// statusSynonyms covers every spelling of each canonical status seen across
// historical exports. Lookup is case sensitive by design: the table itself
// enumerates the case variants that are trusted.
var statusSynonyms = map[string]domain.CaseStatus{
	"open":   domain.StatusOpen,
	"Open":   domain.StatusOpen,
	"OPEN":   domain.StatusOpen,
	"new":    domain.StatusOpen,
	"New":    domain.StatusOpen,
	"NEW":    domain.StatusOpen,
	"active": domain.StatusOpen,
	"Active": domain.StatusOpen,

	"in progress": domain.StatusInProgress,
	"In Progress": domain.StatusInProgress,
	"IN PROGRESS": domain.StatusInProgress,
	"in_progress": domain.StatusInProgress,
	"WIP":         domain.StatusInProgress,
	"wip":         domain.StatusInProgress,
	"working":     domain.StatusInProgress,
	"Working":     domain.StatusInProgress,

	"on hold": domain.StatusOnHold,
	"On Hold": domain.StatusOnHold,
	"ON HOLD": domain.StatusOnHold,
	"on_hold": domain.StatusOnHold,
	"hold":    domain.StatusOnHold,
	"Hold":    domain.StatusOnHold,
	"pending": domain.StatusOnHold,
	"Pending": domain.StatusOnHold,
	"waiting": domain.StatusOnHold,
	"Waiting": domain.StatusOnHold,

	"closed":    domain.StatusClosed,
	"Closed":    domain.StatusClosed,
	"CLOSED":    domain.StatusClosed,
	"complete":  domain.StatusClosed,
	"Complete":  domain.StatusClosed,
	"completed": domain.StatusClosed,
	"Completed": domain.StatusClosed,
	"resolved":  domain.StatusClosed,
	"Resolved":  domain.StatusClosed,
	"done":      domain.StatusClosed,
	"Done":      domain.StatusClosed,

	"cancelled": domain.StatusCancelled,
	"Cancelled": domain.StatusCancelled,
	"CANCELLED": domain.StatusCancelled,
	"canceled":  domain.StatusCancelled,
	"Canceled":  domain.StatusCancelled,
	"withdrawn": domain.StatusCancelled,
	"Withdrawn": domain.StatusCancelled,
}

var prioritySynonyms = map[string]domain.CasePriority{
	"low":   domain.PriorityLow,
	"Low":   domain.PriorityLow,
	"LOW":   domain.PriorityLow,
	"minor": domain.PriorityLow,
	"Minor": domain.PriorityLow,
	"p4":    domain.PriorityLow,
	"P4":    domain.PriorityLow,
	"4":     domain.PriorityLow,

	"medium": domain.PriorityMedium,
	"Medium": domain.PriorityMedium,
	"MEDIUM": domain.PriorityMedium,
	"normal": domain.PriorityMedium,
	"Normal": domain.PriorityMedium,
	"p3":     domain.PriorityMedium,
	"P3":     domain.PriorityMedium,
	"3":      domain.PriorityMedium,

	"high":  domain.PriorityHigh,
	"High":  domain.PriorityHigh,
	"HIGH":  domain.PriorityHigh,
	"major": domain.PriorityHigh,
	"Major": domain.PriorityHigh,
	"p2":    domain.PriorityHigh,
	"P2":    domain.PriorityHigh,
	"2":     domain.PriorityHigh,

	"critical": domain.PriorityCritical,
	"Critical": domain.PriorityCritical,
	"CRITICAL": domain.PriorityCritical,
	"urgent":   domain.PriorityCritical,
	"Urgent":   domain.PriorityCritical,
	"p1":       domain.PriorityCritical,
	"P1":       domain.PriorityCritical,
	"1":        domain.PriorityCritical,
}

const (
	defaultStatus   = domain.StatusOpen
	defaultPriority = domain.PriorityMedium

	unknownSite    = "Unknown Site"
	unknownProduct = "Unknown Product"
	unknownSerial  = "Unknown Serial"

	defaultReportedBy = "Bulk Import"
	defaultCategory   = "General"
)

// Draft is a row after normalization but before identifier assignment. The
// case number is the caller-supplied value, possibly empty.
type Draft struct {
	SuppliedCaseNumber string
	Case               domain.Case
	RowIndex           int
	Raw                string
}

// normalizeFields turns the resolved field→string map into a typed draft.
// It never fails on malformed values; the only rejection is a row with all
// three identity fields absent.
func normalizeFields(resolved map[domain.CanonicalField]string) (domain.Case, string, error) {
	text := func(field domain.CanonicalField) string {
		return strings.TrimSpace(resolved[field])
	}

	site := text(domain.FieldSiteName)
	product := text(domain.FieldProductName)
	serial := text(domain.FieldSerialNumber)
	if site == "" && product == "" && serial == "" {
		return domain.Case{}, "", ErrMissingIdentity
	}
	if site == "" {
		site = unknownSite
	}
	if product == "" {
		product = unknownProduct
	}
	if serial == "" {
		serial = unknownSerial
	}

	raisedAt := parseDate(text(domain.FieldRaisedDate))
	errorAt := parseDate(text(domain.FieldErrorDate))
	// The destination schema requires both dates; when only one side of the
	// pair survives parsing, mirror it into the other as an intentional
	// approximation.
	if raisedAt == nil && errorAt != nil {
		raisedAt = errorAt
	}
	if errorAt == nil && raisedAt != nil {
		errorAt = raisedAt
	}

	reportedBy := text(domain.FieldReportedBy)
	if reportedBy == "" {
		reportedBy = defaultReportedBy
	}
	category := text(domain.FieldCategory)
	if category == "" {
		category = defaultCategory
	}

	c := domain.Case{
		SiteName:       site,
		ProductName:    product,
		SerialNumber:   serial,
		PartNumber:     text(domain.FieldPartNumber),
		Status:         normalizeStatus(text(domain.FieldStatus)),
		Priority:       normalizePriority(text(domain.FieldPriority)),
		RaisedAt:       raisedAt,
		ErrorAt:        errorAt,
		ClosedAt:       parseDate(text(domain.FieldClosedDate)),
		VisitAt:        parseDate(text(domain.FieldVisitDate)),
		CustomerName:   text(domain.FieldCustomerName),
		ContactEmail:   text(domain.FieldContactEmail),
		ContactPhone:   text(domain.FieldContactPhone),
		ReportedBy:     reportedBy,
		AssignedTo:     text(domain.FieldAssignedTo),
		Technician:     text(domain.FieldTechnician),
		Category:       category,
		Subcategory:    text(domain.FieldSubcategory),
		Description:    text(domain.FieldDescription),
		Resolution:     text(domain.FieldResolution),
		FailureCode:    text(domain.FieldFailureCode),
		WarrantyStatus: text(domain.FieldWarrantyStatus),
		PurchaseOrder:  text(domain.FieldPurchaseOrder),
		TicketNumber:   text(domain.FieldTicketNumber),
		Region:         text(domain.FieldRegion),
		Address:        text(domain.FieldAddress),
		City:           text(domain.FieldCity),
		Country:        text(domain.FieldCountry),
		Notes:          text(domain.FieldNotes),
	}

	return c, text(domain.FieldCaseNumber), nil
}

// normalizeStatus resolves a raw status label to its canonical value.
// Canonical values pass through unchanged so re-normalization is idempotent.
func normalizeStatus(raw string) domain.CaseStatus {
	if raw == "" {
		return defaultStatus
	}
	if status, ok := statusSynonyms[raw]; ok {
		return status
	}
	switch domain.CaseStatus(raw) {
	case domain.StatusOpen, domain.StatusInProgress, domain.StatusOnHold,
		domain.StatusClosed, domain.StatusCancelled:
		return domain.CaseStatus(raw)
	}
	return defaultStatus
}

func normalizePriority(raw string) domain.CasePriority {
	if raw == "" {
		return defaultPriority
	}
	if priority, ok := prioritySynonyms[raw]; ok {
		return priority
	}
	switch domain.CasePriority(raw) {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh,
		domain.PriorityCritical:
		return domain.CasePriority(raw)
	}
	return defaultPriority
}

// parseDate attempts the known layouts and returns nil when none matches.
// Malformed dates are dropped, never guessed.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	return nil
}
