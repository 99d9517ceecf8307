package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/artcontest/judging-system/models"
)

var (
	ErrEntryNotFound        = errors.New("entry not found")
	ErrEntryNumberConflict  = errors.New("entry number conflict")
	ErrEntryContestInvalid  = errors.New("entry contest conflict or invalid")
	ErrEntryCategoryInvalid = errors.New("entry age category conflict or invalid")
)

type EntryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	GetByID(ctx context.Context, id int) (*models.Entry, error)
	ListByContest(ctx context.Context, contestID int) ([]models.Entry, error)
	CountByContest(ctx context.Context, contestID int) (int, error)
	Delete(ctx context.Context, id int) error
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	// The entry number is assigned inside the insert so concurrent
	// submissions cannot observe the same MAX. A conflict on the unique
	// (contest_id, entry_number) pair is surfaced for the service to retry.
	query := `
		INSERT INTO entries
			(contest_id, entry_number, age_category_id, front_image_key, back_image_key,
			 participant_name, participant_age, artist_statement)
		VALUES
			($1,
			 (SELECT COALESCE(MAX(entry_number), 0) + 1 FROM entries WHERE contest_id = $1),
			 $2, $3, $4, $5, $6, $7)
		RETURNING id, entry_number, created_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.ContestID,
		entry.AgeCategoryID,
		entry.FrontImageKey,
		entry.BackImageKey,
		entry.ParticipantName,
		entry.ParticipantAge,
		entry.ArtistStatement,
	).Scan(&entry.ID, &entry.EntryNumber, &entry.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "entries_contest_number_key" {
					return ErrEntryNumberConflict
				}
			case "23503":
				if pqErr.Constraint == "entries_contest_id_fkey" {
					return ErrEntryContestInvalid
				}
				if pqErr.Constraint == "entries_age_category_id_fkey" {
					return ErrEntryCategoryInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresEntryRepository) GetByID(ctx context.Context, id int) (*models.Entry, error) {
	query := `
		SELECT id, contest_id, entry_number, age_category_id, front_image_key, back_image_key,
		       participant_name, participant_age, artist_statement, created_at
		FROM entries
		WHERE id = $1`

	entry := &models.Entry{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.ContestID,
		&entry.EntryNumber,
		&entry.AgeCategoryID,
		&entry.FrontImageKey,
		&entry.BackImageKey,
		&entry.ParticipantName,
		&entry.ParticipantAge,
		&entry.ArtistStatement,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *postgresEntryRepository) ListByContest(ctx context.Context, contestID int) ([]models.Entry, error) {
	query := `
		SELECT id, contest_id, entry_number, age_category_id, front_image_key, back_image_key,
		       participant_name, participant_age, artist_statement, created_at
		FROM entries
		WHERE contest_id = $1
		ORDER BY entry_number ASC`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	for rows.Next() {
		var entry models.Entry
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.ContestID,
			&entry.EntryNumber,
			&entry.AgeCategoryID,
			&entry.FrontImageKey,
			&entry.BackImageKey,
			&entry.ParticipantName,
			&entry.ParticipantAge,
			&entry.ArtistStatement,
			&entry.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *postgresEntryRepository) CountByContest(ctx context.Context, contestID int) (int, error) {
	query := `SELECT count(*) FROM entries WHERE contest_id = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, contestID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresEntryRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM entries WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}
