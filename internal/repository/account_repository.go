package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postpilot/internal/models"
)

const accountColumns = `id, owner_id, platform, platform_user_id, username, display_name,
	avatar_url, nickname, is_default, access_token, refresh_token, token_expires_at,
	scopes, status, deleted_at, created_at, updated_at`

type AccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByPlatformUserID(ctx context.Context, platform, platformUserID string) (*models.Account, error)
	ListByOwnerID(ctx context.Context, ownerID int64) ([]*models.Account, error)
	ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error)
	CountByOwnerAndPlatform(ctx context.Context, ownerID int64, platform string) (int, error)
	CheckByOwnerID(ctx context.Context, accountID, ownerID int64) (bool, error)
	UpdateOnReconnect(ctx context.Context, a *models.Account) error
	SetDefault(ctx context.Context, ownerID int64, platform string, accountID int64) error
	SetNickname(ctx context.Context, id int64, nickname string) error
	SetStatus(ctx context.Context, id int64, status string) error
	SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	SoftRemove(ctx context.Context, id int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Platform, &a.PlatformUserID, &a.Username,
		&a.DisplayName, &a.AvatarURL, &a.Nickname, &a.IsDefault, &a.AccessToken,
		&a.RefreshToken, &a.TokenExpiresAt, &a.Scopes, &a.Status, &a.DeletedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error) {
	var err error
	var id int64

	insertQuery := `
		INSERT INTO accounts(
			owner_id,
			platform,
			platform_user_id,
			username,
			display_name,
			avatar_url,
			nickname,
			is_default,
			access_token,
			refresh_token,
			token_expires_at,
			scopes,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	args := []interface{}{
		a.OwnerID, a.Platform, a.PlatformUserID, a.Username, a.DisplayName,
		a.AvatarURL, a.Nickname, a.IsDefault, a.AccessToken, a.RefreshToken,
		a.TokenExpiresAt, pq.Array(a.Scopes), a.Status,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL`
	row := r.db.QueryRowContext(ctx, query, id)

	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) GetByPlatformUserID(ctx context.Context, platform, platformUserID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE platform = $1 AND platform_user_id = $2 AND deleted_at IS NULL`
	row := r.db.QueryRowContext(ctx, query, platform, platformUserID)

	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) ListByOwnerID(ctx context.Context, ownerID int64) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY platform, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE deleted_at IS NULL
		AND status = $1
		AND (token_expires_at BETWEEN $2 AND $3 OR token_expires_at < $2)`
	rows, err := r.db.QueryContext(ctx, query, models.AccountStatusActive, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *accountRepository) CountByOwnerAndPlatform(ctx context.Context, ownerID int64, platform string) (int, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE owner_id = $1 AND platform = $2 AND deleted_at IS NULL`

	var count int
	err := r.db.QueryRowContext(ctx, query, ownerID, platform).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *accountRepository) CheckByOwnerID(ctx context.Context, accountID, ownerID int64) (bool, error) {
	query := `SELECT 1 FROM accounts WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, ownerID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// UpdateOnReconnect refreshes profile fields and credentials of an existing
// account while leaving is_default and nickname untouched.
func (r *accountRepository) UpdateOnReconnect(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET username = $2,
			display_name = $3,
			avatar_url = $4,
			access_token = $5,
			refresh_token = $6,
			token_expires_at = $7,
			scopes = $8,
			status = $9,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, a.ID, a.Username, a.DisplayName,
		a.AvatarURL, a.AccessToken, a.RefreshToken, a.TokenExpiresAt,
		pq.Array(a.Scopes), a.Status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return errors.New("account not found for reconnect")
	}
	return nil
}

// SetDefault clears is_default on every sibling of the same (owner, platform)
// and sets it on the target inside one serializable transaction, so at most
// one default survives concurrent calls.
func (r *accountRepository) SetDefault(ctx context.Context, ownerID int64, platform string, accountID int64) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	clearQuery := `
		UPDATE accounts
		SET is_default = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = $1 AND platform = $2 AND is_default = TRUE AND deleted_at IS NULL
	`
	if _, err = tx.ExecContext(ctx, clearQuery, ownerID, platform); err != nil {
		slog.Info(err.Error())
		return err
	}

	setQuery := `
		UPDATE accounts
		SET is_default = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND owner_id = $2 AND platform = $3 AND deleted_at IS NULL
	`
	result, err := tx.ExecContext(ctx, setQuery, accountID, ownerID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return errors.New("account not found for set default")
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) SetNickname(ctx context.Context, id int64, nickname string) error {
	query := `UPDATE accounts SET nickname = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id, nickname)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE accounts SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET access_token = COALESCE(NULLIF($2, ''), access_token),
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = $4,
			status = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt, models.AccountStatusActive)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; account may not exist")
		return errors.New("no rows affected; account may not exist")
	}
	return nil
}

func (r *accountRepository) SoftRemove(ctx context.Context, id int64) error {
	query := `UPDATE accounts SET deleted_at = CURRENT_TIMESTAMP, is_default = FALSE WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
