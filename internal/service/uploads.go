package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/talentsift/talentsift/internal/domain"
)

// UploadRepo persists upload metadata.
type UploadRepo interface {
	Create(ctx context.Context, upload *domain.Upload) error
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
}

// BlobStore holds the raw bytes of uploaded documents.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
}

// UploadService stores candidate document uploads: bytes in the blob store,
// metadata in the database.
type UploadService struct {
	repo      UploadRepo
	store     BlobStore
	supported func(filename string) bool
}

// NewUploadService creates a new UploadService instance
func NewUploadService(repo UploadRepo, store BlobStore, supported func(filename string) bool) *UploadService {
	return &UploadService{
		repo:      repo,
		store:     store,
		supported: supported,
	}
}

// SaveUpload stores one uploaded document and returns its record.
func (s *UploadService) SaveUpload(ctx context.Context, kind domain.UploadKind, filename, contentType string, size int64, body io.Reader) (*domain.Upload, error) {
	if filename == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}
	if s.supported != nil && !s.supported(filename) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("unsupported file type %q", filepath.Ext(filename)))
	}

	upload := &domain.Upload{
		ID:          uuid.NewString(),
		Kind:        kind,
		Filename:    filepath.Base(filename),
		StorageKey:  fmt.Sprintf("uploads/%s/%s%s", kind, uuid.NewString(), filepath.Ext(filename)),
		ContentType: contentType,
		SizeBytes:   size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := domain.ValidateUpload(upload); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid upload", err)
	}

	if err := s.store.Put(ctx, upload.StorageKey, contentType, body); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := s.repo.Create(ctx, upload); err != nil {
		// Without a metadata row the blob is unreachable; remove it.
		if delErr := s.store.Delete(ctx, upload.StorageKey); delErr != nil {
			log.Printf("uploads: failed to remove orphaned blob %s: %v", upload.StorageKey, delErr)
		}
		return nil, fmt.Errorf("failed to persist upload: %w", err)
	}

	return upload, nil
}

// GetUpload returns a stored upload's metadata.
func (s *UploadService) GetUpload(ctx context.Context, id string) (*domain.Upload, error) {
	return s.repo.GetByID(ctx, id)
}
