package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postpilot/internal/models"
)

const postColumns = `id, owner_id, account_id, title, description, hashtags, video_path,
	thumbnail_path, scheduled_at, status, remote_post_id, failure_reason, attempt_count,
	deleted_at, created_at, updated_at`

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByOwnerID(ctx context.Context, ownerID int64) ([]*models.Post, error)
	ListByTimeRange(ctx context.Context, ownerID int64, start, end time.Time) ([]*models.Post, error)
	CheckByOwnerID(ctx context.Context, postID, ownerID int64) (bool, error)
	UpdateContent(ctx context.Context, post *models.Post) error
	SetSchedule(ctx context.Context, id int64, at time.Time) (bool, error)
	ClaimForPublish(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, remotePostID string) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) (bool, error)
	SoftRemove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func scanPost(row interface{ Scan(...interface{}) error }) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.OwnerID, &post.AccountID, &post.Title,
		&post.Description, &post.Hashtags, &post.VideoPath, &post.ThumbnailPath,
		&post.ScheduledAt, &post.Status, &post.RemotePostID, &post.FailureReason,
		&post.AttemptCount, &post.DeletedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (owner_id, account_id, title, description, hashtags, video_path, thumbnail_path, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	args := []interface{}{
		post.OwnerID, post.AccountID, post.Title, post.Description,
		pq.Array(post.Hashtags), post.VideoPath, post.ThumbnailPath, models.PostStatusDraft,
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

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND deleted_at IS NULL`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) ListByOwnerID(ctx context.Context, ownerID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) ListByTimeRange(ctx context.Context, ownerID int64, start, end time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE owner_id = $1 AND deleted_at IS NULL
		AND COALESCE(scheduled_at, created_at) BETWEEN $2 AND $3
		ORDER BY COALESCE(scheduled_at, created_at)`
	rows, err := r.db.QueryContext(ctx, query, ownerID, start, end)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByOwnerID(ctx context.Context, postID, ownerID int64) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, ownerID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET title = $2,
			description = $3,
			hashtags = $4,
			thumbnail_path = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, post.ID, post.Title, post.Description,
		pq.Array(post.Hashtags), post.ThumbnailPath)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// SetSchedule moves a draft (or already scheduled) post to scheduled. The
// status condition makes it a guarded transition, not a blind write.
func (r *postRepository) SetSchedule(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET scheduled_at = $2,
			status = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = ANY($4) AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, at, models.PostStatusScheduled,
		pq.Array([]string{models.PostStatusDraft, models.PostStatusScheduled}))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// ClaimForPublish is the atomic check-and-set behind beginPublish. Only one
// caller can move the post into processing; everyone else sees zero rows.
func (r *postRepository) ClaimForPublish(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			attempt_count = attempt_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = ANY($3) AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, models.PostStatusProcessing,
		pq.Array([]string{models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed}))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) MarkPublished(ctx context.Context, id int64, remotePostID string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			remote_post_id = $3,
			failure_reason = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $4 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, models.PostStatusPublished,
		remotePostID, models.PostStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			failure_reason = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $4 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, models.PostStatusFailed,
		reason, models.PostStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) SoftRemove(ctx context.Context, id int64) error {
	query := `UPDATE posts SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
