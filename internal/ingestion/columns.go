package ingestion

import (
	"fmt"
	"strings"

	"github.com/fieldserve/rmaflow/internal/domain"
)

// Cell is one column of a raw input row. The original column index is kept so
// positional fallback can still work after labels are matched.
type Cell struct {
	Label string
	Value string
	Index int
}

// RawRow is one input record before any normalization. Cell order matches the
// source file's column order.
type RawRow struct {
	Cells []Cell
}

// Payload renders the row for failure detail and audit logging.
func (r RawRow) Payload() string {
	parts := make([]string, 0, len(r.Cells))
	for _, cell := range r.Cells {
		if strings.TrimSpace(cell.Value) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", cell.Label, strings.TrimSpace(cell.Value)))
	}
	return strings.Join(parts, "; ")
}

// labelFields maps normalized header labels to canonical fields. Source
// spreadsheets rename headers release to release, so each field carries every
// spelling seen so far. Lookup is exact after normalization; no fuzzy match.
var labelFields = map[string]domain.CanonicalField{
	"rma #":            domain.FieldCaseNumber,
	"rma number":       domain.FieldCaseNumber,
	"rma no":           domain.FieldCaseNumber,
	"case #":           domain.FieldCaseNumber,
	"case number":      domain.FieldCaseNumber,
	"call log #":       domain.FieldCaseNumber,
	"call log number":  domain.FieldCaseNumber,
	"reference":        domain.FieldCaseNumber,
	"reference number": domain.FieldCaseNumber,

	"raised date":   domain.FieldRaisedDate,
	"date raised":   domain.FieldRaisedDate,
	"open date":     domain.FieldRaisedDate,
	"opened":        domain.FieldRaisedDate,
	"created date":  domain.FieldRaisedDate,
	"error date":    domain.FieldErrorDate,
	"failure date":  domain.FieldErrorDate,
	"fault date":    domain.FieldErrorDate,
	"date of error": domain.FieldErrorDate,
	"closed date":   domain.FieldClosedDate,
	"date closed":   domain.FieldClosedDate,
	"completion":    domain.FieldClosedDate,
	"visit date":    domain.FieldVisitDate,
	"service date":  domain.FieldVisitDate,

	"status":      domain.FieldStatus,
	"case status": domain.FieldStatus,
	"rma status":  domain.FieldStatus,
	"state":       domain.FieldStatus,

	"priority":   domain.FieldPriority,
	"severity":   domain.FieldPriority,
	"urgency":    domain.FieldPriority,
	"importance": domain.FieldPriority,

	"site":          domain.FieldSiteName,
	"site name":     domain.FieldSiteName,
	"location":      domain.FieldSiteName,
	"facility":      domain.FieldSiteName,
	"customer site": domain.FieldSiteName,

	"product":      domain.FieldProductName,
	"product name": domain.FieldProductName,
	"model":        domain.FieldProductName,
	"equipment":    domain.FieldProductName,
	"unit type":    domain.FieldProductName,

	"serial":        domain.FieldSerialNumber,
	"serial #":      domain.FieldSerialNumber,
	"serial number": domain.FieldSerialNumber,
	"serial no":     domain.FieldSerialNumber,
	"sn":            domain.FieldSerialNumber,

	"part":        domain.FieldPartNumber,
	"part #":      domain.FieldPartNumber,
	"part number": domain.FieldPartNumber,
	"part no":     domain.FieldPartNumber,

	"customer":      domain.FieldCustomerName,
	"customer name": domain.FieldCustomerName,
	"client":        domain.FieldCustomerName,
	"account":       domain.FieldCustomerName,

	"email":         domain.FieldContactEmail,
	"contact email": domain.FieldContactEmail,
	"e-mail":        domain.FieldContactEmail,
	"phone":         domain.FieldContactPhone,
	"contact phone": domain.FieldContactPhone,
	"telephone":     domain.FieldContactPhone,

	"reported by": domain.FieldReportedBy,
	"raised by":   domain.FieldReportedBy,
	"submitter":   domain.FieldReportedBy,
	"originator":  domain.FieldReportedBy,

	"assigned to": domain.FieldAssignedTo,
	"assignee":    domain.FieldAssignedTo,
	"owner":       domain.FieldAssignedTo,

	"technician":       domain.FieldTechnician,
	"engineer":         domain.FieldTechnician,
	"field tech":       domain.FieldTechnician,
	"service engineer": domain.FieldTechnician,

	"category":     domain.FieldCategory,
	"case type":    domain.FieldCategory,
	"issue type":   domain.FieldCategory,
	"subcategory":  domain.FieldSubcategory,
	"sub category": domain.FieldSubcategory,
	"sub-category": domain.FieldSubcategory,

	"description":       domain.FieldDescription,
	"problem":           domain.FieldDescription,
	"fault description": domain.FieldDescription,
	"issue":             domain.FieldDescription,
	"summary":           domain.FieldDescription,

	"resolution":   domain.FieldResolution,
	"fix":          domain.FieldResolution,
	"action taken": domain.FieldResolution,

	"failure code": domain.FieldFailureCode,
	"fault code":   domain.FieldFailureCode,
	"error code":   domain.FieldFailureCode,

	"warranty":        domain.FieldWarrantyStatus,
	"warranty status": domain.FieldWarrantyStatus,
	"under warranty":  domain.FieldWarrantyStatus,

	"po":              domain.FieldPurchaseOrder,
	"po #":            domain.FieldPurchaseOrder,
	"po number":       domain.FieldPurchaseOrder,
	"purchase order":  domain.FieldPurchaseOrder,
	"ticket":          domain.FieldTicketNumber,
	"ticket #":        domain.FieldTicketNumber,
	"ticket number":   domain.FieldTicketNumber,
	"helpdesk ticket": domain.FieldTicketNumber,

	"region":    domain.FieldRegion,
	"zone":      domain.FieldRegion,
	"area":      domain.FieldRegion,
	"address":   domain.FieldAddress,
	"address 1": domain.FieldAddress,
	"city":      domain.FieldCity,
	"town":      domain.FieldCity,
	"country":   domain.FieldCountry,
	"notes":     domain.FieldNotes,
	"comments":  domain.FieldNotes,
	"remarks":   domain.FieldNotes,
}

// positionFields is the fixed legacy export layout, used only when a column's
// label matched nothing. Index 0 is the row sequence column and is never
// mapped (see resolveColumns).
var positionFields = map[int]domain.CanonicalField{
	1:  domain.FieldCaseNumber,
	2:  domain.FieldRaisedDate,
	3:  domain.FieldErrorDate,
	4:  domain.FieldStatus,
	5:  domain.FieldPriority,
	6:  domain.FieldSiteName,
	7:  domain.FieldProductName,
	8:  domain.FieldSerialNumber,
	9:  domain.FieldPartNumber,
	10: domain.FieldCustomerName,
	11: domain.FieldContactEmail,
	12: domain.FieldContactPhone,
	13: domain.FieldReportedBy,
	14: domain.FieldAssignedTo,
	15: domain.FieldCategory,
	16: domain.FieldSubcategory,
	17: domain.FieldDescription,
	18: domain.FieldResolution,
	19: domain.FieldFailureCode,
	20: domain.FieldWarrantyStatus,
	21: domain.FieldPurchaseOrder,
	22: domain.FieldTicketNumber,
	23: domain.FieldRegion,
	24: domain.FieldAddress,
	25: domain.FieldCity,
	26: domain.FieldCountry,
	27: domain.FieldNotes,
	28: domain.FieldClosedDate,
	29: domain.FieldVisitDate,
	30: domain.FieldTechnician,
}

// normalizeLabel lowercases a header and collapses runs of whitespace so
// "Call Log  Number" and "call log number" resolve identically.
func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

// resolveColumns maps every cell of a raw row onto canonical fields. Label
// matches always win; positional fallback only fills fields the labels left
// unset, and only from non-empty cells.
func resolveColumns(row RawRow) map[domain.CanonicalField]string {
	resolved := make(map[domain.CanonicalField]string)

	for _, cell := range row.Cells {
		if cell.Index == 0 {
			continue
		}
		field, ok := labelFields[normalizeLabel(cell.Label)]
		if !ok {
			continue
		}
		if _, taken := resolved[field]; taken {
			continue
		}
		resolved[field] = cell.Value
	}

	for _, cell := range row.Cells {
		if cell.Index == 0 {
			continue
		}
		// A column whose label matched is already spoken for; positional
		// fallback only recovers columns the label dictionary missed.
		if _, matched := labelFields[normalizeLabel(cell.Label)]; matched {
			continue
		}
		if strings.TrimSpace(cell.Value) == "" {
			continue
		}
		field, ok := positionFields[cell.Index]
		if !ok {
			continue
		}
		if _, taken := resolved[field]; taken {
			continue
		}
		resolved[field] = cell.Value
	}

	return resolved
}
