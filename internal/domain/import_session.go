package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportStatus enumerates the lifecycle states of an import session.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// ErrorLogCap bounds how many row errors a session retains verbatim.
// Overflow is summarized with a trailing "... and N more errors" marker.
const ErrorLogCap = 100

// ImportSession tracks one run of ingesting one uploaded file.
// Counters are monotonically non-decreasing and satisfy
// success_count + error_count == processed_rows at every checkpoint.
type ImportSession struct {
	ID            uuid.UUID    `json:"id"`
	Filename      string       `json:"filename"`
	TotalRows     int          `json:"total_rows"`
	ProcessedRows int          `json:"processed_rows"`
	SuccessCount  int          `json:"success_count"`
	ErrorCount    int          `json:"error_count"`
	Status        ImportStatus `json:"status"`
	ErrorLog      string       `json:"error_log,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewImportSession creates a pending session for a submitted file.
func NewImportSession(filename string, totalRows int) ImportSession {
	now := time.Now()
	return ImportSession{
		ID:        uuid.New(),
		Filename:  filename,
		TotalRows: totalRows,
		Status:    ImportStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProgressPercentage reports completion rounded to two decimal places.
// A session with zero rows reports 0.
func (s ImportSession) ProgressPercentage() float64 {
	if s.TotalRows == 0 {
		return 0
	}
	pct := float64(s.ProcessedRows) / float64(s.TotalRows) * 100
	return math.Round(pct*100) / 100
}

// FormatErrorLog joins row errors into the persisted log, keeping the
// first ErrorLogCap entries and summarizing the rest.
func FormatErrorLog(errors []string) string {
	if len(errors) == 0 {
		return ""
	}
	if len(errors) <= ErrorLogCap {
		return strings.Join(errors, "\n")
	}
	log := strings.Join(errors[:ErrorLogCap], "\n")
	return log + fmt.Sprintf("\n... and %d more errors", len(errors)-ErrorLogCap)
}
