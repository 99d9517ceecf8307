package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/artcontest/judging-system/models"
)

var (
	ErrJudgeNotFound      = errors.New("judge not found")
	ErrJudgeEmailConflict = errors.New("judge email conflict")
	ErrJudgeUserInvalid   = errors.New("judge user conflict or invalid")
)

type JudgeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, judge *models.Judge) error
	GetByID(ctx context.Context, id int) (*models.Judge, error)
	GetByEmail(ctx context.Context, email string) (*models.Judge, error)
	List(ctx context.Context) ([]models.Judge, error)
	ListWithProgress(ctx context.Context, contestID int) ([]models.JudgeProgress, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.JudgeStatus, activatedAt *time.Time) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresJudgeRepository struct {
	db *sql.DB
}

func NewPostgresJudgeRepository(db *sql.DB) JudgeRepository {
	return &postgresJudgeRepository{db: db}
}

func (r *postgresJudgeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresJudgeRepository) Create(ctx context.Context, exec SQLExecutor, judge *models.Judge) error {
	query := `
		INSERT INTO judges (id, email, status)
		VALUES ($1, $2, $3)
		RETURNING invited_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		judge.ID,
		judge.Email,
		judge.Status,
	).Scan(&judge.InvitedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "judges_email_key" {
					return ErrJudgeEmailConflict
				}
			case "23503":
				if pqErr.Constraint == "judges_id_fkey" {
					return ErrJudgeUserInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresJudgeRepository) GetByID(ctx context.Context, id int) (*models.Judge, error) {
	query := `
		SELECT id, email, status, invited_at, activated_at
		FROM judges
		WHERE id = $1`
	return r.scanJudge(ctx, query, id)
}

func (r *postgresJudgeRepository) GetByEmail(ctx context.Context, email string) (*models.Judge, error) {
	query := `
		SELECT id, email, status, invited_at, activated_at
		FROM judges
		WHERE lower(email) = lower($1)`
	return r.scanJudge(ctx, query, email)
}

func (r *postgresJudgeRepository) List(ctx context.Context) ([]models.Judge, error) {
	query := `
		SELECT id, email, status, invited_at, activated_at
		FROM judges
		ORDER BY invited_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	judges := make([]models.Judge, 0)
	for rows.Next() {
		var judge models.Judge
		if scanErr := rows.Scan(
			&judge.ID,
			&judge.Email,
			&judge.Status,
			&judge.InvitedAt,
			&judge.ActivatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		judges = append(judges, judge)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return judges, nil
}

// ListWithProgress returns every judge together with how many of the
// contest's entries they have scored so far.
func (r *postgresJudgeRepository) ListWithProgress(ctx context.Context, contestID int) ([]models.JudgeProgress, error) {
	query := `
		SELECT
			j.id, j.email, j.status, j.invited_at, j.activated_at,
			count(s.entry_id) AS scored_entries,
			(SELECT count(*) FROM entries e WHERE e.contest_id = $1) AS total_entries
		FROM judges j
		LEFT JOIN scores s ON s.judge_id = j.id
			AND s.entry_id IN (SELECT id FROM entries WHERE contest_id = $1)
		GROUP BY j.id, j.email, j.status, j.invited_at, j.activated_at
		ORDER BY j.invited_at ASC`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]models.JudgeProgress, 0)
	for rows.Next() {
		var jp models.JudgeProgress
		if scanErr := rows.Scan(
			&jp.ID,
			&jp.Email,
			&jp.Status,
			&jp.InvitedAt,
			&jp.ActivatedAt,
			&jp.ScoredEntries,
			&jp.TotalEntries,
		); scanErr != nil {
			return nil, scanErr
		}
		result = append(result, jp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *postgresJudgeRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.JudgeStatus, activatedAt *time.Time) error {
	query := `
		UPDATE judges SET
			status = $1,
			activated_at = COALESCE($2, activated_at)
		WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, activatedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrJudgeNotFound)
}

func (r *postgresJudgeRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM judges WHERE id = $1`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrJudgeNotFound)
}

func (r *postgresJudgeRepository) scanJudge(ctx context.Context, query string, args ...interface{}) (*models.Judge, error) {
	judge := &models.Judge{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&judge.ID,
		&judge.Email,
		&judge.Status,
		&judge.InvitedAt,
		&judge.ActivatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJudgeNotFound
		}
		return nil, err
	}
	return judge, nil
}
