package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/artcontest/judging-system/models"
)

var (
	ErrTokenNotFound      = errors.New("auth token not found")
	ErrTokenConflict      = errors.New("auth token conflict")
	ErrTokenAlreadyUsed   = errors.New("auth token already consumed")
	ErrTokenExhausted     = errors.New("auth token attempt limit reached")
	ErrTokenOwnerMismatch = errors.New("auth token does not belong to user")
)

type TokenRepository interface {
	Create(ctx context.Context, token *models.AuthToken) error
	GetByToken(ctx context.Context, token string, purpose models.TokenPurpose) (*models.AuthToken, error)
	GetLatestByUser(ctx context.Context, userID int, purpose models.TokenPurpose) (*models.AuthToken, error)
	Consume(ctx context.Context, id int) error
	IncrementAttempts(ctx context.Context, id int) (int, error)
	DeleteByUser(ctx context.Context, exec SQLExecutor, userID int) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type postgresTokenRepository struct {
	db *sql.DB
}

func NewPostgresTokenRepository(db *sql.DB) TokenRepository {
	return &postgresTokenRepository{db: db}
}

func (r *postgresTokenRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTokenRepository) Create(ctx context.Context, token *models.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (user_id, token, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		token.UserID,
		token.Token,
		token.Purpose,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "auth_tokens_token_key" {
				return ErrTokenConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresTokenRepository) GetByToken(ctx context.Context, token string, purpose models.TokenPurpose) (*models.AuthToken, error) {
	query := `
		SELECT id, user_id, token, purpose, attempts, expires_at, consumed_at, created_at
		FROM auth_tokens
		WHERE token = $1 AND purpose = $2`
	return r.scanToken(ctx, query, token, purpose)
}

// GetLatestByUser returns the most recently issued unconsumed token of the
// given purpose. OTP verification looks the code up this way because the
// client sends the email, not the token row id.
func (r *postgresTokenRepository) GetLatestByUser(ctx context.Context, userID int, purpose models.TokenPurpose) (*models.AuthToken, error) {
	query := `
		SELECT id, user_id, token, purpose, attempts, expires_at, consumed_at, created_at
		FROM auth_tokens
		WHERE user_id = $1 AND purpose = $2 AND consumed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanToken(ctx, query, userID, purpose)
}

// Consume marks a token used. The WHERE clause makes consumption
// single-winner: a second caller sees zero affected rows.
func (r *postgresTokenRepository) Consume(ctx context.Context, id int) error {
	query := `
		UPDATE auth_tokens
		SET consumed_at = now()
		WHERE id = $1 AND consumed_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTokenAlreadyUsed)
}

func (r *postgresTokenRepository) IncrementAttempts(ctx context.Context, id int) (int, error) {
	query := `
		UPDATE auth_tokens
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`

	var attempts int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenNotFound
		}
		return 0, err
	}
	return attempts, nil
}

func (r *postgresTokenRepository) DeleteByUser(ctx context.Context, exec SQLExecutor, userID int) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE user_id = $1`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at <= now() OR consumed_at IS NOT NULL`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresTokenRepository) scanToken(ctx context.Context, query string, args ...interface{}) (*models.AuthToken, error) {
	token := &models.AuthToken{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.Purpose,
		&token.Attempts,
		&token.ExpiresAt,
		&token.ConsumedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return token, nil
}
