package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artcontest/judging-system/models"
)

var (
	ErrContestNotFound     = errors.New("contest not found")
	ErrAgeCategoryNotFound = errors.New("age category not found")
)

// ContestRepository serves the read-only reference data: contests and age
// categories are seeded by migrations, never written by the application.
type ContestRepository interface {
	GetActive(ctx context.Context) (*models.Contest, error)
	List(ctx context.Context) ([]models.Contest, error)
	GetAgeCategory(ctx context.Context, id int) (*models.AgeCategory, error)
	ListAgeCategories(ctx context.Context) ([]models.AgeCategory, error)
}

type postgresContestRepository struct {
	db *sql.DB
}

func NewPostgresContestRepository(db *sql.DB) ContestRepository {
	return &postgresContestRepository{db: db}
}

func (r *postgresContestRepository) GetActive(ctx context.Context) (*models.Contest, error) {
	query := `
		SELECT id, name, year, active
		FROM contests
		WHERE active = true
		ORDER BY year DESC
		LIMIT 1`

	contest := &models.Contest{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&contest.ID,
		&contest.Name,
		&contest.Year,
		&contest.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestNotFound
		}
		return nil, err
	}
	return contest, nil
}

func (r *postgresContestRepository) List(ctx context.Context) ([]models.Contest, error) {
	query := `
		SELECT id, name, year, active
		FROM contests
		ORDER BY year DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contests := make([]models.Contest, 0)
	for rows.Next() {
		var contest models.Contest
		if scanErr := rows.Scan(
			&contest.ID,
			&contest.Name,
			&contest.Year,
			&contest.Active,
		); scanErr != nil {
			return nil, scanErr
		}
		contests = append(contests, contest)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return contests, nil
}

func (r *postgresContestRepository) GetAgeCategory(ctx context.Context, id int) (*models.AgeCategory, error) {
	query := `
		SELECT id, name, min_age, max_age
		FROM age_categories
		WHERE id = $1`

	category := &models.AgeCategory{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.MinAge,
		&category.MaxAge,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgeCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (r *postgresContestRepository) ListAgeCategories(ctx context.Context) ([]models.AgeCategory, error) {
	query := `
		SELECT id, name, min_age, max_age
		FROM age_categories
		ORDER BY min_age ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.AgeCategory, 0)
	for rows.Next() {
		var category models.AgeCategory
		if scanErr := rows.Scan(
			&category.ID,
			&category.Name,
			&category.MinAge,
			&category.MaxAge,
		); scanErr != nil {
			return nil, scanErr
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}
