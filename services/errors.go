package services

import "errors"

// Errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed     = errors.New("validation failed")
	ErrEmailRequired        = errors.New("email is required")
	ErrEmailInvalid         = errors.New("email address is invalid")
	ErrPasswordTooShort     = errors.New("password must be at least 8 characters")
	ErrScoreOutOfRange      = errors.New("scores must be between 1 and 10")
	ErrAgeCategoryMismatch  = errors.New("participant age does not match the selected age category")
	ErrFrontImageRequired   = errors.New("front image is required")
	ErrImageTooLarge        = errors.New("image exceeds the maximum allowed size")
	ErrImageTypeUnsupported = errors.New("image content type is not supported")
	ErrInvalidRole          = errors.New("invalid role provided")
	ErrInvalidJudgeStatus   = errors.New("invalid judge status provided")
	ErrLastAdmin            = errors.New("cannot demote the last remaining admin")

	// Conflicts
	ErrJudgeEmailConflict = errors.New("a judge with this email already exists")

	// Authentication and authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid           = errors.New("invalid or expired token")
	ErrOTPInvalid             = errors.New("invalid or expired code")
	ErrOTPAttemptsExceeded    = errors.New("too many incorrect attempts, request a new code")
	ErrSessionInvalid         = errors.New("invalid or expired session")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrJudgeNotActive         = errors.New("judge account is not active")
	ErrJudgePending           = errors.New("judge has not completed the welcome step")

	// Entity lookups
	ErrUserNotFound    = errors.New("user not found")
	ErrJudgeNotFound   = errors.New("judge not found")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrContestNotFound = errors.New("contest not found")

	// Flow failures
	ErrInviteDeliveryFailed = errors.New("failed to deliver invitation email")
)
