package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/talentsift/internal/domain"
)

type UploadRepository struct {
	db dbtx
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{db: pool}
}

func NewUploadRepositoryWithTx(tx pgx.Tx) *UploadRepository {
	return &UploadRepository{db: tx}
}

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) error {
	if err := domain.ValidateUpload(upload); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO uploads (id, kind, filename, storage_key, content_type, size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		upload.ID, upload.Kind, upload.Filename, upload.StorageKey,
		upload.ContentType, upload.SizeBytes, upload.CreatedAt,
	)
	return err
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	var u domain.Upload
	err := r.db.QueryRow(ctx,
		`SELECT id, kind, filename, storage_key, content_type, size_bytes, created_at
		 FROM uploads WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Kind, &u.Filename, &u.StorageKey, &u.ContentType, &u.SizeBytes, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, err
	}
	return &u, nil
}
