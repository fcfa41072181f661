package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postpilot/internal/models"
)

type MediaAssetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.MediaAsset, error)
	GetByFileName(ctx context.Context, fileName string) (*models.MediaAsset, error)
	Remove(ctx context.Context, id int64) error
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

func (r *mediaAssetRepository) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	query := `
		INSERT INTO media_assets (
			owner_id, file_name, file_type, file_size, file_url, thumbnail_url,
			duration_seconds, width, height, codec, frame_rate, bitrate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	args := []interface{}{
		ma.OwnerID, ma.FileName, ma.FileType, ma.FileSize, ma.FileURL, ma.ThumbnailURL,
		ma.Duration, ma.Width, ma.Height, ma.Codec, ma.FrameRate, ma.Bitrate,
	}

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *mediaAssetRepository) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	query := `SELECT id, owner_id, file_name, file_type, file_size, file_url, thumbnail_url,
		duration_seconds, width, height, codec, frame_rate, bitrate, created_at
		FROM media_assets WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var ma models.MediaAsset
	err := row.Scan(&ma.ID, &ma.OwnerID, &ma.FileName, &ma.FileType, &ma.FileSize,
		&ma.FileURL, &ma.ThumbnailURL, &ma.Duration, &ma.Width, &ma.Height,
		&ma.Codec, &ma.FrameRate, &ma.Bitrate, &ma.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &ma, nil
}

func (r *mediaAssetRepository) GetByFileName(ctx context.Context, fileName string) (*models.MediaAsset, error) {
	query := `SELECT id, owner_id, file_name, file_type, file_size, file_url, thumbnail_url,
		duration_seconds, width, height, codec, frame_rate, bitrate, created_at
		FROM media_assets WHERE file_name = $1`
	row := r.db.QueryRowContext(ctx, query, fileName)

	var ma models.MediaAsset
	err := row.Scan(&ma.ID, &ma.OwnerID, &ma.FileName, &ma.FileType, &ma.FileSize,
		&ma.FileURL, &ma.ThumbnailURL, &ma.Duration, &ma.Width, &ma.Height,
		&ma.Codec, &ma.FrameRate, &ma.Bitrate, &ma.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &ma, nil
}

func (r *mediaAssetRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM media_assets WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
