package handlers

import (
	"errors"
	"net/http"

	"github.com/artcontest/judging-system/middleware"
	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/services"
)

type AuthHandler struct {
	authService  services.AuthService
	judgeService services.JudgeService
	secure       bool
}

func NewAuthHandler(authService services.AuthService, judgeService services.JudgeService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		judgeService: judgeService,
		secure:       secureCookies,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	user, tokens, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	setSessionCookies(w, tokens, h.secure)

	response := jsonResponse{
		"user":     user,
		"redirect": h.redirectFor(r, user),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	}

	clearSessionCookies(w, h.secure)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		unauthorizedResponse(w, r, "missing refresh token")
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		clearSessionCookies(w, h.secure)
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	setSessionCookies(w, tokens, h.secure)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) GenerateOTP(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Email == "" {
		badRequestResponse(w, r, errors.New("email is required"))
		return
	}

	if err := h.authService.GenerateOTP(r.Context(), input.Email); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Email == "" || input.OTP == "" {
		badRequestResponse(w, r, errors.New("email and otp are required"))
		return
	}

	user, tokens, err := h.authService.VerifyOTP(r.Context(), input.Email, input.OTP)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	setSessionCookies(w, tokens, h.secure)

	response := jsonResponse{
		"success":  true,
		"redirect": h.redirectFor(r, user),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MagicLinkCallback exchanges a single-use link token for a session.
func (h *AuthHandler) MagicLinkCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		badRequestResponse(w, r, errors.New("token is required"))
		return
	}

	user, tokens, err := h.authService.VerifyMagicLink(r.Context(), token)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	setSessionCookies(w, tokens, h.secure)

	response := jsonResponse{
		"success":  true,
		"redirect": h.redirectFor(r, user),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResetPassword handles both halves of the reset flow: a body with only an
// email requests a reset link, a body with token and new_password performs
// the reset.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email       string `json:"email"`
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	switch {
	case input.Token != "" && input.NewPassword != "":
		if err := h.authService.ResetPassword(r.Context(), input.Token, input.NewPassword); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}

	case input.Email != "":
		if err := h.authService.RequestPasswordReset(r.Context(), input.Email); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		response := jsonResponse{"message": "If the email is registered, a reset link has been sent"}
		if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
			serverErrorResponse(w, r, err)
		}

	default:
		badRequestResponse(w, r, errors.New("either email, or token and new_password, are required"))
	}
}

// Session reports the current actor; the frontend polls it to decide which
// screens to render.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		actor = services.Actor{Kind: services.ActorAnonymous}
	}

	response := jsonResponse{
		"authenticated": actor.Kind != services.ActorAnonymous,
		"kind":          actor.Kind.String(),
	}
	if actor.Kind != services.ActorAnonymous {
		response["user_id"] = actor.UserID
		response["email"] = actor.Email
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// redirectFor picks the client route matching the user's state: pending
// judges land on the welcome screen, active judges on their dashboard.
func (h *AuthHandler) redirectFor(r *http.Request, user *models.User) string {
	if user.Role == models.RoleAdmin {
		return "/admin/dashboard"
	}

	judge, err := h.judgeService.GetByID(r.Context(), user.ID)
	if err != nil {
		return "/login"
	}
	if judge.Status == models.JudgeStatusActive {
		return "/judge/dashboard"
	}
	return "/judge/welcome"
}
