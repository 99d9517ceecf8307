package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/repositories"
)

// RequestInvitationMessage is returned to the public self-service endpoint
// whether or not the address belongs to a judge, so the endpoint cannot be
// used to probe which emails are registered.
const RequestInvitationMessage = "If this address belongs to an invited judge, a sign-in link has been sent."

type JudgeService interface {
	// Invite creates the judge's account and pending judge row in one
	// transaction, then generates a magic link and emails it. If link
	// generation or delivery fails the judge is marked invite_failed
	// instead of being left ambiguously pending.
	Invite(ctx context.Context, email string) (*models.Judge, error)

	// ResendInvitation regenerates and re-sends the invitation for an
	// existing judge. An invite_failed judge flips back to pending on
	// successful delivery.
	ResendInvitation(ctx context.Context, email string) error

	// RequestInvitation is the public variant of ResendInvitation: unknown
	// addresses are silently ignored.
	RequestInvitation(ctx context.Context, email string) error

	// Activate records the welcome acknowledgement, moving the judge from
	// pending to active. Activating an already active judge is a no-op.
	Activate(ctx context.Context, judgeID int) (*models.Judge, error)

	SetStatus(ctx context.Context, judgeID int, status models.JudgeStatus) (*models.Judge, error)

	// Delete removes the judge's scores, sessions, tokens, judge row and
	// user row in a single transaction.
	Delete(ctx context.Context, judgeID int) error

	GetByID(ctx context.Context, judgeID int) (*models.Judge, error)
	ListWithProgress(ctx context.Context) ([]models.JudgeProgress, error)
}

type judgeService struct {
	db          *sql.DB
	userRepo    repositories.UserRepository
	judgeRepo   repositories.JudgeRepository
	scoreRepo   repositories.ScoreRepository
	tokenRepo   repositories.TokenRepository
	sessionRepo repositories.SessionRepository
	contestRepo repositories.ContestRepository
	authService AuthService
	mailer      Mailer
	logger      *slog.Logger
}

func NewJudgeService(
	db *sql.DB,
	userRepo repositories.UserRepository,
	judgeRepo repositories.JudgeRepository,
	scoreRepo repositories.ScoreRepository,
	tokenRepo repositories.TokenRepository,
	sessionRepo repositories.SessionRepository,
	contestRepo repositories.ContestRepository,
	authService AuthService,
	mailer Mailer,
	logger *slog.Logger,
) JudgeService {
	return &judgeService{
		db:          db,
		userRepo:    userRepo,
		judgeRepo:   judgeRepo,
		scoreRepo:   scoreRepo,
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		contestRepo: contestRepo,
		authService: authService,
		mailer:      mailer,
		logger:      logger,
	}
}

func (s *judgeService) Invite(ctx context.Context, email string) (*models.Judge, error) {
	if err := validateJudgeEmail(email); err != nil {
		return nil, err
	}

	// Invited judges authenticate by link or code, never by password, but
	// the account still needs an unguessable one.
	randomPassword, err := generateSecureToken(24)
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(randomPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleJudge,
	}
	judge := &models.Judge{
		Email:  email,
		Status: models.JudgeStatusPending,
	}

	// User and judge row are created together or not at all.
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			if errors.Is(err, repositories.ErrUserEmailConflict) {
				return ErrJudgeEmailConflict
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		judge.ID = user.ID
		if err := s.judgeRepo.Create(ctx, tx, judge); err != nil {
			if errors.Is(err, repositories.ErrJudgeEmailConflict) {
				return ErrJudgeEmailConflict
			}
			return fmt.Errorf("failed to create judge: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.deliverInvitation(ctx, judge); err != nil {
		return judge, err
	}
	return judge, nil
}

func (s *judgeService) ResendInvitation(ctx context.Context, email string) error {
	judge, err := s.judgeRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrJudgeNotFound) {
			return ErrJudgeNotFound
		}
		return fmt.Errorf("failed to look up judge: %w", err)
	}
	return s.deliverInvitation(ctx, judge)
}

func (s *judgeService) RequestInvitation(ctx context.Context, email string) error {
	judge, err := s.judgeRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrJudgeNotFound) {
			// Deliberately silent: the caller gets the same response either way.
			return nil
		}
		return fmt.Errorf("failed to look up judge: %w", err)
	}
	if judge.Status == models.JudgeStatusInactive {
		return nil
	}
	return s.deliverInvitation(ctx, judge)
}

// deliverInvitation generates a fresh magic link and emails it. On failure
// a pending judge is marked invite_failed so the admin list shows exactly
// which invitations never went out; an already active judge keeps their
// status either way.
func (s *judgeService) deliverInvitation(ctx context.Context, judge *models.Judge) error {
	link, err := s.authService.GenerateMagicLink(ctx, judge.ID)
	if err != nil {
		s.markInviteFailed(ctx, judge)
		return fmt.Errorf("%w: %w", ErrInviteDeliveryFailed, err)
	}

	if err := s.mailer.SendJudgeInvitation(ctx, judge.Email, link); err != nil {
		s.markInviteFailed(ctx, judge)
		return fmt.Errorf("%w: %w", ErrInviteDeliveryFailed, err)
	}

	if judge.Status == models.JudgeStatusInviteFailed {
		if err := s.judgeRepo.UpdateStatus(ctx, nil, judge.ID, models.JudgeStatusPending, nil); err != nil {
			return fmt.Errorf("failed to reset judge status: %w", err)
		}
		judge.Status = models.JudgeStatusPending
	}
	return nil
}

func (s *judgeService) markInviteFailed(ctx context.Context, judge *models.Judge) {
	if judge.Status != models.JudgeStatusPending && judge.Status != models.JudgeStatusInviteFailed {
		return
	}
	if err := s.judgeRepo.UpdateStatus(ctx, nil, judge.ID, models.JudgeStatusInviteFailed, nil); err != nil {
		s.logger.Error("failed to mark judge invite_failed",
			slog.Int("judge_id", judge.ID),
			slog.Any("error", err),
		)
		return
	}
	judge.Status = models.JudgeStatusInviteFailed
}

func (s *judgeService) Activate(ctx context.Context, judgeID int) (*models.Judge, error) {
	judge, err := s.judgeRepo.GetByID(ctx, judgeID)
	if err != nil {
		if errors.Is(err, repositories.ErrJudgeNotFound) {
			return nil, ErrJudgeNotFound
		}
		return nil, fmt.Errorf("failed to look up judge: %w", err)
	}

	if judge.Status == models.JudgeStatusActive {
		return judge, nil
	}
	if judge.Status == models.JudgeStatusInactive {
		return nil, ErrJudgeNotActive
	}

	now := time.Now()
	if err := s.judgeRepo.UpdateStatus(ctx, nil, judge.ID, models.JudgeStatusActive, &now); err != nil {
		return nil, fmt.Errorf("failed to activate judge: %w", err)
	}
	judge.Status = models.JudgeStatusActive
	judge.ActivatedAt = &now
	return judge, nil
}

func (s *judgeService) SetStatus(ctx context.Context, judgeID int, status models.JudgeStatus) (*models.Judge, error) {
	if status != models.JudgeStatusActive && status != models.JudgeStatusInactive {
		return nil, ErrInvalidJudgeStatus
	}

	judge, err := s.judgeRepo.GetByID(ctx, judgeID)
	if err != nil {
		if errors.Is(err, repositories.ErrJudgeNotFound) {
			return nil, ErrJudgeNotFound
		}
		return nil, fmt.Errorf("failed to look up judge: %w", err)
	}

	if err := s.judgeRepo.UpdateStatus(ctx, nil, judge.ID, status, nil); err != nil {
		return nil, fmt.Errorf("failed to update judge status: %w", err)
	}
	judge.Status = status
	return judge, nil
}

func (s *judgeService) Delete(ctx context.Context, judgeID int) error {
	judge, err := s.judgeRepo.GetByID(ctx, judgeID)
	if err != nil {
		if errors.Is(err, repositories.ErrJudgeNotFound) {
			return ErrJudgeNotFound
		}
		return fmt.Errorf("failed to look up judge: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.scoreRepo.DeleteByJudge(ctx, tx, judge.ID); err != nil {
			return fmt.Errorf("failed to delete scores: %w", err)
		}
		if _, err := s.sessionRepo.DeleteByUser(ctx, tx, judge.ID); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		if _, err := s.tokenRepo.DeleteByUser(ctx, tx, judge.ID); err != nil {
			return fmt.Errorf("failed to delete auth tokens: %w", err)
		}
		if err := s.judgeRepo.Delete(ctx, tx, judge.ID); err != nil {
			return fmt.Errorf("failed to delete judge: %w", err)
		}
		if err := s.userRepo.Delete(ctx, tx, judge.ID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

func (s *judgeService) GetByID(ctx context.Context, judgeID int) (*models.Judge, error) {
	judge, err := s.judgeRepo.GetByID(ctx, judgeID)
	if err != nil {
		if errors.Is(err, repositories.ErrJudgeNotFound) {
			return nil, ErrJudgeNotFound
		}
		return nil, err
	}
	return judge, nil
}

func (s *judgeService) ListWithProgress(ctx context.Context) ([]models.JudgeProgress, error) {
	contest, err := s.contestRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to load active contest: %w", err)
	}
	return s.judgeRepo.ListWithProgress(ctx, contest.ID)
}

func (s *judgeService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func validateJudgeEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrEmailInvalid
	}
	return nil
}
