package domain

// CanonicalField names one destination attribute of an RMA case. Raw columns
// are resolved to at most one canonical field (or ignored) before any typing
// or persistence happens, so stringly-typed column labels never travel past
// the resolver.
type CanonicalField string

const (
	FieldCaseNumber     CanonicalField = "case_number"
	FieldRaisedDate     CanonicalField = "raised_date"
	FieldErrorDate      CanonicalField = "error_date"
	FieldClosedDate     CanonicalField = "closed_date"
	FieldVisitDate      CanonicalField = "visit_date"
	FieldStatus         CanonicalField = "status"
	FieldPriority       CanonicalField = "priority"
	FieldSiteName       CanonicalField = "site_name"
	FieldProductName    CanonicalField = "product_name"
	FieldSerialNumber   CanonicalField = "serial_number"
	FieldPartNumber     CanonicalField = "part_number"
	FieldCustomerName   CanonicalField = "customer_name"
	FieldContactEmail   CanonicalField = "contact_email"
	FieldContactPhone   CanonicalField = "contact_phone"
	FieldReportedBy     CanonicalField = "reported_by"
	FieldAssignedTo     CanonicalField = "assigned_to"
	FieldTechnician     CanonicalField = "technician"
	FieldCategory       CanonicalField = "category"
	FieldSubcategory    CanonicalField = "subcategory"
	FieldDescription    CanonicalField = "description"
	FieldResolution     CanonicalField = "resolution"
	FieldFailureCode    CanonicalField = "failure_code"
	FieldWarrantyStatus CanonicalField = "warranty_status"
	FieldPurchaseOrder  CanonicalField = "purchase_order"
	FieldTicketNumber   CanonicalField = "ticket_number"
	FieldRegion         CanonicalField = "region"
	FieldAddress        CanonicalField = "address"
	FieldCity           CanonicalField = "city"
	FieldCountry        CanonicalField = "country"
	FieldNotes          CanonicalField = "notes"
)

// CaseStatus is the canonical lifecycle state of a case.
type CaseStatus string

const (
	StatusOpen       CaseStatus = "open"
	StatusInProgress CaseStatus = "in_progress"
	StatusOnHold     CaseStatus = "on_hold"
	StatusClosed     CaseStatus = "closed"
	StatusCancelled  CaseStatus = "cancelled"
)

// CasePriority is the canonical urgency level of a case.
type CasePriority string

const (
	PriorityLow      CasePriority = "low"
	PriorityMedium   CasePriority = "medium"
	PriorityHigh     CasePriority = "high"
	PriorityCritical CasePriority = "critical"
)
