package domain

import "time"

// Attachment stores metadata for a file uploaded against a case. The
// bytes live behind the storage layer, keyed by path and disk.
type Attachment struct {
	ID         int64
	CaseID     int64
	UploaderID int64
	FileName   string
	Path       string
	Disk       string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
