package structs

import "time"

type JobStatus string

const (
	StatusPending  JobStatus = "pending"
	StatusRunning  JobStatus = "running"
	StatusComplete JobStatus = "complete"
	StatusFailed   JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Artifact format names.
const (
	FormatDocx = "docx"
	FormatXlsx = "xlsx"
	FormatPptx = "pptx"
	FormatTxt  = "txt"
	FormatPdf  = "pdf"
	FormatZip  = "zip"
)

// FallbackOrder is the deterministic order used to pick a result artifact
// when neither the preferred format nor the document artifact applies.
var FallbackOrder = []string{FormatDocx, FormatPdf, FormatXlsx, FormatPptx, FormatTxt}

// Job is one export request's durable execution record.
type Job struct {
	ID           string     `json:"job_id"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SessionID    string     `json:"session_id"`
	UserID       string     `json:"user_id,omitempty"`
	Payload      string     `json:"-"` // serialized ExportRequest
	Options      string     `json:"-"` // serialized Options
	ResultPath   string     `json:"-"`
	DownloadCode string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// StoredArtifact is the result of placing a finished artifact into managed
// storage.
type StoredArtifact struct {
	FileID    string
	Path      string
	ExpiresAt *time.Time
}
