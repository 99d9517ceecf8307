package handlers

import (
	"errors"
	"net/http"

	"github.com/artcontest/judging-system/middleware"
	"github.com/artcontest/judging-system/services"
)

type JudgeHandler struct {
	judgeService services.JudgeService
	entryService services.EntryService
	scoreService services.ScoreService
}

func NewJudgeHandler(judgeService services.JudgeService, entryService services.EntryService, scoreService services.ScoreService) *JudgeHandler {
	return &JudgeHandler{
		judgeService: judgeService,
		entryService: entryService,
		scoreService: scoreService,
	}
}

// RequestInvitation is public and always answers with the same message so
// the endpoint cannot be used to probe which addresses are registered.
func (h *JudgeHandler) RequestInvitation(w http.ResponseWriter, r *http.Request) {
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

	if err := h.judgeService.RequestInvitation(r.Context(), input.Email); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"message": services.RequestInvitationMessage}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WelcomeAck records that the judge has read the welcome screen and
// activates them.
func (h *JudgeHandler) WelcomeAck(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	judge, err := h.judgeService.Activate(r.Context(), actor.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"judge":    judge,
		"redirect": "/judge/dashboard",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Entries lists the active contest's entries for the scoring screen.
func (h *JudgeHandler) Entries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entryService.ListActiveContest(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entries": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *JudgeHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.SubmitScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	score, err := h.scoreService.Submit(r.Context(), actor.UserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Scores returns the judge's own submitted scores so the client can mark
// which entries are already done.
func (h *JudgeHandler) Scores(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	scores, err := h.scoreService.ListByJudge(r.Context(), actor.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"scores": scores}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
