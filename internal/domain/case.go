package domain

import (
	"time"

	"github.com/google/uuid"
)

// Case represents one RMA / field-service case in the canonical store.
type Case struct {
	ID                 uuid.UUID    `json:"id"`
	CaseNumber         string       `json:"case_number"`
	OriginalCaseNumber *string      `json:"original_case_number,omitempty"`
	SiteName           string       `json:"site_name"`
	ProductName        string       `json:"product_name"`
	SerialNumber       string       `json:"serial_number"`
	PartNumber         string       `json:"part_number,omitempty"`
	Status             CaseStatus   `json:"status"`
	Priority           CasePriority `json:"priority"`
	RaisedAt           *time.Time   `json:"raised_at,omitempty"`
	ErrorAt            *time.Time   `json:"error_at,omitempty"`
	ClosedAt           *time.Time   `json:"closed_at,omitempty"`
	VisitAt            *time.Time   `json:"visit_at,omitempty"`
	CustomerName       string       `json:"customer_name,omitempty"`
	ContactEmail       string       `json:"contact_email,omitempty"`
	ContactPhone       string       `json:"contact_phone,omitempty"`
	ReportedBy         string       `json:"reported_by"`
	AssignedTo         string       `json:"assigned_to,omitempty"`
	Technician         string       `json:"technician,omitempty"`
	Category           string       `json:"category"`
	Subcategory        string       `json:"subcategory,omitempty"`
	Description        string       `json:"description,omitempty"`
	Resolution         string       `json:"resolution,omitempty"`
	FailureCode        string       `json:"failure_code,omitempty"`
	WarrantyStatus     string       `json:"warranty_status,omitempty"`
	PurchaseOrder      string       `json:"purchase_order,omitempty"`
	TicketNumber       string       `json:"ticket_number,omitempty"`
	Region             string       `json:"region,omitempty"`
	Address            string       `json:"address,omitempty"`
	City               string       `json:"city,omitempty"`
	Country            string       `json:"country,omitempty"`
	Notes              string       `json:"notes,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// NewCase stamps identity and timestamps onto a case that is about to be
// committed. The zero-value fields of the input are kept as-is.
func NewCase(c Case) Case {
	now := time.Now()
	c.ID = uuid.New()
	c.CreatedAt = now
	c.UpdatedAt = now
	return c
}

// WithCaseNumber returns a copy of the case carrying a different case number.
// Used by the commit retry path when a freshly minted number is needed.
func (c Case) WithCaseNumber(number string) Case {
	c.CaseNumber = number
	c.UpdatedAt = time.Now()
	return c
}

// WithOriginalCaseNumber records the identifier the caller submitted before a
// collision forced a re-mint.
func (c Case) WithOriginalCaseNumber(number string) Case {
	c.OriginalCaseNumber = &number
	c.UpdatedAt = time.Now()
	return c
}
