package domain

import (
	"fmt"
	"time"
)

// UploadKind distinguishes the two candidate document uploads.
type UploadKind string

const (
	UploadKindCV            UploadKind = "cv"
	UploadKindProjectReport UploadKind = "project_report"
)

// Upload records one stored candidate document. The StorageKey locates the
// raw bytes in whichever upload store is configured (local disk or S3).
type Upload struct {
	ID          string
	Kind        UploadKind
	Filename    string
	StorageKey  string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// ValidateUpload validates an Upload instance
func ValidateUpload(u *Upload) error {
	if u == nil {
		return fmt.Errorf("upload cannot be nil")
	}
	if u.ID == "" {
		return fmt.Errorf("upload ID is required")
	}
	if u.Kind != UploadKindCV && u.Kind != UploadKindProjectReport {
		return fmt.Errorf("upload Kind is invalid: %s", u.Kind)
	}
	if u.StorageKey == "" {
		return fmt.Errorf("upload StorageKey is required")
	}
	return nil
}
