package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/services"
)

type inviteStub struct {
	services.JudgeService
	inviteFn func(ctx context.Context, email string) (*models.Judge, error)
	deleteFn func(ctx context.Context, judgeID int) error
}

func (s *inviteStub) Invite(ctx context.Context, email string) (*models.Judge, error) {
	return s.inviteFn(ctx, email)
}

func (s *inviteStub) Delete(ctx context.Context, judgeID int) error {
	return s.deleteFn(ctx, judgeID)
}

func TestInviteJudge(t *testing.T) {
	judges := &inviteStub{
		inviteFn: func(_ context.Context, email string) (*models.Judge, error) {
			return &models.Judge{ID: 5, Email: email, Status: models.JudgeStatusPending}, nil
		},
	}
	h := NewAdminHandler(judges, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/judges/invite", strings.NewReader(`{"email":"judge@example.com"}`))
	rec := httptest.NewRecorder()
	h.InviteJudge(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]models.Judge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.JudgeStatusPending, body["judge"].Status)
}

func TestInviteJudgeReportsDeliveryFailure(t *testing.T) {
	judges := &inviteStub{
		inviteFn: func(context.Context, string) (*models.Judge, error) {
			return &models.Judge{ID: 5, Status: models.JudgeStatusInviteFailed}, services.ErrInviteDeliveryFailed
		},
	}
	h := NewAdminHandler(judges, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/judges/invite", strings.NewReader(`{"email":"judge@example.com"}`))
	rec := httptest.NewRecorder()
	h.InviteJudge(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInviteJudgeConflict(t *testing.T) {
	judges := &inviteStub{
		inviteFn: func(context.Context, string) (*models.Judge, error) {
			return nil, services.ErrJudgeEmailConflict
		},
	}
	h := NewAdminHandler(judges, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/judges/invite", strings.NewReader(`{"email":"judge@example.com"}`))
	rec := httptest.NewRecorder()
	h.InviteJudge(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteJudge(t *testing.T) {
	var deleted int
	judges := &inviteStub{
		deleteFn: func(_ context.Context, judgeID int) error {
			deleted = judgeID
			return nil
		},
	}
	h := NewAdminHandler(judges, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/judges/delete", strings.NewReader(`{"id":5}`))
	rec := httptest.NewRecorder()
	h.DeleteJudge(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, deleted)
}

func TestDeleteJudgeRequiresID(t *testing.T) {
	h := NewAdminHandler(&inviteStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/judges/delete", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.DeleteJudge(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
