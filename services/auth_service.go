package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/repositories"
)

const (
	sessionDuration   = 7 * 24 * time.Hour
	magicLinkDuration = 24 * time.Hour
	otpDuration       = 10 * time.Minute
	resetDuration     = 1 * time.Hour

	magicLinkTokenLength = 32 // bytes, 64 hex characters
	otpCodeLength        = 6
	otpMaxAttempts       = 5

	minPasswordLength = 8
)

// ActorKind is the result of the single authorization predicate. Every
// guard in the system branches on this value and nothing else.
type ActorKind int

const (
	ActorAnonymous ActorKind = iota
	ActorAdmin
	ActorPendingJudge
	ActorActiveJudge
)

func (k ActorKind) String() string {
	switch k {
	case ActorAdmin:
		return "admin"
	case ActorPendingJudge:
		return "pending_judge"
	case ActorActiveJudge:
		return "active_judge"
	default:
		return "anonymous"
	}
}

type Actor struct {
	Kind   ActorKind
	UserID int
	Email  string
}

// SessionTokens is one issued session: a signed access JWT plus the stored
// refresh token.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*models.User, *SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error)
	Logout(ctx context.Context, refreshToken string) error

	// GenerateMagicLink creates a single-use login token for the user and
	// returns the full callback URL to embed in an email.
	GenerateMagicLink(ctx context.Context, userID int) (string, error)
	VerifyMagicLink(ctx context.Context, token string) (*models.User, *SessionTokens, error)

	GenerateOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*models.User, *SessionTokens, error)

	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	// Classify maps verified JWT claims to an Actor. It is the only place
	// that combines the role claim with the judge's lifecycle status.
	Classify(ctx context.Context, userID int, role models.UserRole) (Actor, error)
}

type authService struct {
	userRepo    repositories.UserRepository
	judgeRepo   repositories.JudgeRepository
	tokenRepo   repositories.TokenRepository
	sessionRepo repositories.SessionRepository
	mailer      Mailer
	jwtSecret   []byte
	baseURL     string
	logger      *slog.Logger
}

func NewAuthService(
	userRepo repositories.UserRepository,
	judgeRepo repositories.JudgeRepository,
	tokenRepo repositories.TokenRepository,
	sessionRepo repositories.SessionRepository,
	mailer Mailer,
	jwtSecret string,
	baseURL string,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		judgeRepo:   judgeRepo,
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		mailer:      mailer,
		jwtSecret:   []byte(jwtSecret),
		baseURL:     baseURL,
		logger:      logger,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, *SessionTokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, ErrAuthInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil, ErrAuthInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	return user, tokens, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionInvalid
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	// Rotate: the old refresh token is gone the moment a new one exists.
	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	return s.issueSession(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil // already gone
		}
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *authService) GenerateMagicLink(ctx context.Context, userID int) (string, error) {
	token, err := generateSecureToken(magicLinkTokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate magic link token: %w", err)
	}

	authToken := &models.AuthToken{
		UserID:    userID,
		Token:     token,
		Purpose:   models.TokenPurposeMagicLink,
		ExpiresAt: time.Now().Add(magicLinkDuration),
	}
	if err := s.tokenRepo.Create(ctx, authToken); err != nil {
		return "", fmt.Errorf("failed to store magic link token: %w", err)
	}

	return fmt.Sprintf("%s/auth/callback?token=%s", s.baseURL, token), nil
}

func (s *authService) VerifyMagicLink(ctx context.Context, token string) (*models.User, *SessionTokens, error) {
	authToken, err := s.tokenRepo.GetByToken(ctx, token, models.TokenPurposeMagicLink)
	if err != nil {
		if errors.Is(err, repositories.ErrTokenNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("failed to look up magic link token: %w", err)
	}

	if authToken.ConsumedAt != nil || time.Now().After(authToken.ExpiresAt) {
		return nil, nil, ErrTokenInvalid
	}

	if err := s.tokenRepo.Consume(ctx, authToken.ID); err != nil {
		if errors.Is(err, repositories.ErrTokenAlreadyUsed) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("failed to consume magic link token: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, authToken.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("failed to load user for magic link: %w", err)
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	return user, tokens, nil
}

func (s *authService) GenerateOTP(ctx context.Context, email string) error {
	// Only invited judges can log in with a code.
	judge, err := s.judgeRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrJudgeNotFound) {
			return ErrJudgeNotFound
		}
		return fmt.Errorf("failed to look up judge: %w", err)
	}

	code, err := generateOTPCode(otpCodeLength)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	authToken := &models.AuthToken{
		UserID:    judge.ID,
		Token:     code,
		Purpose:   models.TokenPurposeOTP,
		ExpiresAt: time.Now().Add(otpDuration),
	}
	if err := s.tokenRepo.Create(ctx, authToken); err != nil {
		// A duplicate 6-digit code across live tokens is possible; retry once.
		if errors.Is(err, repositories.ErrTokenConflict) {
			if code, err = generateOTPCode(otpCodeLength); err != nil {
				return fmt.Errorf("failed to generate code: %w", err)
			}
			authToken.Token = code
			if err = s.tokenRepo.Create(ctx, authToken); err != nil {
				return fmt.Errorf("failed to store code: %w", err)
			}
		} else {
			return fmt.Errorf("failed to store code: %w", err)
		}
	}

	if err := s.mailer.SendLoginCode(ctx, judge.Email, code); err != nil {
		return fmt.Errorf("%w: %w", ErrInviteDeliveryFailed, err)
	}
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, email, code string) (*models.User, *SessionTokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, ErrOTPInvalid
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	authToken, err := s.tokenRepo.GetLatestByUser(ctx, user.ID, models.TokenPurposeOTP)
	if err != nil {
		if errors.Is(err, repositories.ErrTokenNotFound) {
			return nil, nil, ErrOTPInvalid
		}
		return nil, nil, fmt.Errorf("failed to look up code: %w", err)
	}

	if time.Now().After(authToken.ExpiresAt) {
		return nil, nil, ErrOTPInvalid
	}
	if authToken.Attempts >= otpMaxAttempts {
		return nil, nil, ErrOTPAttemptsExceeded
	}

	if authToken.Token != code {
		attempts, incErr := s.tokenRepo.IncrementAttempts(ctx, authToken.ID)
		if incErr != nil {
			return nil, nil, fmt.Errorf("failed to record attempt: %w", incErr)
		}
		if attempts >= otpMaxAttempts {
			return nil, nil, ErrOTPAttemptsExceeded
		}
		return nil, nil, ErrOTPInvalid
	}

	if err := s.tokenRepo.Consume(ctx, authToken.ID); err != nil {
		if errors.Is(err, repositories.ErrTokenAlreadyUsed) {
			return nil, nil, ErrOTPInvalid
		}
		return nil, nil, fmt.Errorf("failed to consume code: %w", err)
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	return user, tokens, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			// Do not reveal whether the email is registered.
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := generateSecureToken(magicLinkTokenLength)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	authToken := &models.AuthToken{
		UserID:    user.ID,
		Token:     token,
		Purpose:   models.TokenPurposePasswordReset,
		ExpiresAt: time.Now().Add(resetDuration),
	}
	if err := s.tokenRepo.Create(ctx, authToken); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetLink); err != nil {
		s.logger.Error("failed to send password reset email",
			slog.String("email", user.Email),
			slog.Any("error", err),
		)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	authToken, err := s.tokenRepo.GetByToken(ctx, token, models.TokenPurposePasswordReset)
	if err != nil {
		if errors.Is(err, repositories.ErrTokenNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if authToken.ConsumedAt != nil || time.Now().After(authToken.ExpiresAt) {
		return ErrTokenInvalid
	}

	if err := s.tokenRepo.Consume(ctx, authToken.ID); err != nil {
		if errors.Is(err, repositories.ErrTokenAlreadyUsed) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, authToken.UserID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *authService) Classify(ctx context.Context, userID int, role models.UserRole) (Actor, error) {
	if userID <= 0 {
		return Actor{Kind: ActorAnonymous}, nil
	}

	switch role {
	case models.RoleAdmin:
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return Actor{Kind: ActorAnonymous}, nil
			}
			return Actor{}, fmt.Errorf("failed to load user %d: %w", userID, err)
		}
		// A stale token can outlive a demotion; the row is authoritative.
		if user.Role != models.RoleAdmin {
			return s.Classify(ctx, userID, user.Role)
		}
		return Actor{Kind: ActorAdmin, UserID: user.ID, Email: user.Email}, nil

	case models.RoleJudge:
		judge, err := s.judgeRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrJudgeNotFound) {
				return Actor{Kind: ActorAnonymous}, nil
			}
			return Actor{}, fmt.Errorf("failed to load judge %d: %w", userID, err)
		}
		switch judge.Status {
		case models.JudgeStatusActive:
			return Actor{Kind: ActorActiveJudge, UserID: judge.ID, Email: judge.Email}, nil
		case models.JudgeStatusPending, models.JudgeStatusInviteFailed:
			return Actor{Kind: ActorPendingJudge, UserID: judge.ID, Email: judge.Email}, nil
		default: // inactive
			return Actor{Kind: ActorAnonymous}, nil
		}

	default:
		return Actor{Kind: ActorAnonymous}, nil
	}
}

func (s *authService) issueSession(ctx context.Context, user *models.User) (*SessionTokens, error) {
	expiresAt := time.Now().Add(sessionDuration)

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expiresAt,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return &SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func generateOTPCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
