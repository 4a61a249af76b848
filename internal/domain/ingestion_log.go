package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionLogEntry captures one row level failure recorded during a bulk
// import run. Entries outlive the run so operators can audit rejected rows
// after the summary response is gone.
type IngestionLogEntry struct {
	ID           uuid.UUID `json:"id"`
	FileName     string    `json:"file_name"`
	RowNumber    *int      `json:"row_number,omitempty"`
	RawPayload   string    `json:"raw_payload,omitempty"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}
