package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/artcontest/judging-system/live"
	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/repositories"
)

// Broadcaster pushes events to connected dashboard clients.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type SubmitScoreInput struct {
	EntryID    int `json:"entry_id"`
	Creativity int `json:"creativity_score"`
	Execution  int `json:"execution_score"`
	Impact     int `json:"impact_score"`
}

// DashboardSummary is the admin dashboard aggregate.
type DashboardSummary struct {
	Contest    *models.Contest        `json:"contest"`
	EntryCount int                    `json:"entry_count"`
	Judges     []models.JudgeProgress `json:"judges"`
	Entries    []models.EntrySummary  `json:"entries"`
}

type ScoreService interface {
	Submit(ctx context.Context, judgeID int, input SubmitScoreInput) (*models.Score, error)
	ListByJudge(ctx context.Context, judgeID int) ([]models.Score, error)
	DashboardSummary(ctx context.Context) (*DashboardSummary, error)
}

type scoreService struct {
	scoreRepo   repositories.ScoreRepository
	entryRepo   repositories.EntryRepository
	judgeRepo   repositories.JudgeRepository
	contestRepo repositories.ContestRepository
	hub         Broadcaster
}

func NewScoreService(
	scoreRepo repositories.ScoreRepository,
	entryRepo repositories.EntryRepository,
	judgeRepo repositories.JudgeRepository,
	contestRepo repositories.ContestRepository,
	hub Broadcaster,
) ScoreService {
	return &scoreService{
		scoreRepo:   scoreRepo,
		entryRepo:   entryRepo,
		judgeRepo:   judgeRepo,
		contestRepo: contestRepo,
		hub:         hub,
	}
}

func (s *scoreService) Submit(ctx context.Context, judgeID int, input SubmitScoreInput) (*models.Score, error) {
	for _, v := range []int{input.Creativity, input.Execution, input.Impact} {
		if v < models.ScoreMin || v > models.ScoreMax {
			return nil, ErrScoreOutOfRange
		}
	}

	entry, err := s.entryRepo.GetByID(ctx, input.EntryID)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}

	score := &models.Score{
		EntryID:    input.EntryID,
		JudgeID:    judgeID,
		Creativity: input.Creativity,
		Execution:  input.Execution,
		Impact:     input.Impact,
	}

	if err := s.scoreRepo.Upsert(ctx, score); err != nil {
		if errors.Is(err, repositories.ErrScoreJudgeInvalid) {
			return nil, ErrJudgeNotFound
		}
		if errors.Is(err, repositories.ErrScoreEntryInvalid) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to store score: %w", err)
	}

	s.hub.BroadcastToRoom(ContestRoomID(entry.ContestID), live.Message{
		Type: live.EventScoreSubmitted,
		Payload: map[string]interface{}{
			"entry_id":     score.EntryID,
			"entry_number": entry.EntryNumber,
			"judge_id":     score.JudgeID,
			"total":        score.Total(),
		},
	})

	return score, nil
}

func (s *scoreService) ListByJudge(ctx context.Context, judgeID int) ([]models.Score, error) {
	return s.scoreRepo.ListByJudge(ctx, judgeID)
}

// DashboardSummary loads the pieces of the admin dashboard in parallel.
func (s *scoreService) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	contest, err := s.contestRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to load active contest: %w", err)
	}

	summary := &DashboardSummary{Contest: contest}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := s.entryRepo.CountByContest(gCtx, contest.ID)
		if err != nil {
			return fmt.Errorf("failed to count entries: %w", err)
		}
		summary.EntryCount = count
		return nil
	})

	g.Go(func() error {
		judges, err := s.judgeRepo.ListWithProgress(gCtx, contest.ID)
		if err != nil {
			return fmt.Errorf("failed to load judge progress: %w", err)
		}
		summary.Judges = judges
		return nil
	})

	g.Go(func() error {
		entries, err := s.scoreRepo.SummaryByContest(gCtx, contest.ID)
		if err != nil {
			return fmt.Errorf("failed to load entry summaries: %w", err)
		}
		summary.Entries = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// ContestRoomID names the live feed room for a contest.
func ContestRoomID(contestID int) string {
	return "contest_" + strconv.Itoa(contestID)
}
