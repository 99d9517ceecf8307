package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/artcontest/judging-system/models"
)

var (
	ErrScoreNotFound     = errors.New("score not found")
	ErrScoreEntryInvalid = errors.New("score entry conflict or invalid")
	ErrScoreJudgeInvalid = errors.New("score judge conflict or invalid")
)

type ScoreRepository interface {
	Upsert(ctx context.Context, score *models.Score) error
	ListByJudge(ctx context.Context, judgeID int) ([]models.Score, error)
	DeleteByJudge(ctx context.Context, exec SQLExecutor, judgeID int) (int64, error)
	SummaryByContest(ctx context.Context, contestID int) ([]models.EntrySummary, error)
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert inserts or replaces the score for (entry_id, judge_id). Re-scoring
// an entry overwrites the previous values.
func (r *postgresScoreRepository) Upsert(ctx context.Context, score *models.Score) error {
	query := `
		INSERT INTO scores (entry_id, judge_id, creativity_score, execution_score, impact_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT ON CONSTRAINT scores_pkey DO UPDATE SET
			creativity_score = EXCLUDED.creativity_score,
			execution_score  = EXCLUDED.execution_score,
			impact_score     = EXCLUDED.impact_score,
			updated_at       = now()
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		score.EntryID,
		score.JudgeID,
		score.Creativity,
		score.Execution,
		score.Impact,
	).Scan(&score.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" {
				if pqErr.Constraint == "scores_entry_id_fkey" {
					return ErrScoreEntryInvalid
				}
				if pqErr.Constraint == "scores_judge_id_fkey" {
					return ErrScoreJudgeInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresScoreRepository) ListByJudge(ctx context.Context, judgeID int) ([]models.Score, error) {
	query := `
		SELECT entry_id, judge_id, creativity_score, execution_score, impact_score, updated_at
		FROM scores
		WHERE judge_id = $1
		ORDER BY entry_id ASC`

	rows, err := r.db.QueryContext(ctx, query, judgeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]models.Score, 0)
	for rows.Next() {
		var score models.Score
		if scanErr := rows.Scan(
			&score.EntryID,
			&score.JudgeID,
			&score.Creativity,
			&score.Execution,
			&score.Impact,
			&score.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		scores = append(scores, score)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return scores, nil
}

func (r *postgresScoreRepository) DeleteByJudge(ctx context.Context, exec SQLExecutor, judgeID int) (int64, error) {
	query := `DELETE FROM scores WHERE judge_id = $1`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, judgeID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresScoreRepository) SummaryByContest(ctx context.Context, contestID int) ([]models.EntrySummary, error) {
	query := `
		SELECT
			e.id, e.entry_number,
			count(s.judge_id) AS score_count,
			COALESCE(avg(s.creativity_score), 0),
			COALESCE(avg(s.execution_score), 0),
			COALESCE(avg(s.impact_score), 0),
			COALESCE(avg(s.creativity_score + s.execution_score + s.impact_score), 0)
		FROM entries e
		LEFT JOIN scores s ON s.entry_id = e.id
		WHERE e.contest_id = $1
		GROUP BY e.id, e.entry_number
		ORDER BY e.entry_number ASC`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.EntrySummary, 0)
	for rows.Next() {
		var summary models.EntrySummary
		if scanErr := rows.Scan(
			&summary.EntryID,
			&summary.EntryNumber,
			&summary.ScoreCount,
			&summary.AvgCreativity,
			&summary.AvgExecution,
			&summary.AvgImpact,
			&summary.AvgTotal,
		); scanErr != nil {
			return nil, scanErr
		}
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
