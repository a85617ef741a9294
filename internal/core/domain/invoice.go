package domain

import "time"

type InvoiceStatus string

const (
	StatusReceived  InvoiceStatus = "received"
	StatusExtracted InvoiceStatus = "extracted"
	StatusValidated InvoiceStatus = "validated"
	StatusCorrected InvoiceStatus = "corrected"
	StatusStored    InvoiceStatus = "stored"
	StatusFailed    InvoiceStatus = "failed"
)

// Invoice is the intake record for one uploaded document. RawText is set once
// by the text source and never rewritten afterwards.
type Invoice struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	MimeType    string        `json:"mime_type"`
	StoragePath string        `json:"storage_path"`
	SizeBytes   int64         `json:"size_bytes"`
	ContentHash string        `json:"content_hash,omitempty"`
	RawText     string        `json:"raw_text,omitempty"`
	Status      InvoiceStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	UploadedAt  time.Time     `json:"uploaded_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
