package handlers

import (
	"errors"
	"net/http"

	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/services"
)

type AdminHandler struct {
	judgeService services.JudgeService
	userService  services.UserService
	scoreService services.ScoreService
}

func NewAdminHandler(judgeService services.JudgeService, userService services.UserService, scoreService services.ScoreService) *AdminHandler {
	return &AdminHandler{
		judgeService: judgeService,
		userService:  userService,
		scoreService: scoreService,
	}
}

func (h *AdminHandler) InviteJudge(w http.ResponseWriter, r *http.Request) {
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

	judge, err := h.judgeService.Invite(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, services.ErrInviteDeliveryFailed) {
			// The account exists but the invitation did not go out; report
			// the judge row so the admin can retry from the list.
			errorResponse(w, r, http.StatusBadGateway, "invitation email could not be delivered")
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"judge": judge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
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

	if err := h.judgeService.ResendInvitation(r.Context(), input.Email); err != nil {
		if errors.Is(err, services.ErrInviteDeliveryFailed) {
			errorResponse(w, r, http.StatusBadGateway, "invitation email could not be delivered")
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) DeleteJudge(w http.ResponseWriter, r *http.Request) {
	var input struct {
		JudgeID int `json:"id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.JudgeID <= 0 {
		badRequestResponse(w, r, errors.New("id is required"))
		return
	}

	if err := h.judgeService.Delete(r.Context(), input.JudgeID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) SetJudgeStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		JudgeID int                `json:"id"`
		Status  models.JudgeStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.JudgeID <= 0 {
		badRequestResponse(w, r, errors.New("id is required"))
		return
	}

	judge, err := h.judgeService.SetStatus(r.Context(), input.JudgeID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"judge": judge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListJudges returns every judge with their scoring progress for the
// admin dashboard table.
func (h *AdminHandler) ListJudges(w http.ResponseWriter, r *http.Request) {
	judges, err := h.judgeService.ListWithProgress(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"judges": judges}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID int             `json:"user_id"`
		Role   models.UserRole `json:"role"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	user, err := h.userService.UpdateRole(r.Context(), input.UserID, input.Role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Summary aggregates the admin dashboard numbers in one call.
func (h *AdminHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.scoreService.DashboardSummary(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
