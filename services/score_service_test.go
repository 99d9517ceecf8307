package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artcontest/judging-system/live"
	"github.com/artcontest/judging-system/models"
)

type fakeBroadcaster struct {
	mu       sync.Mutex
	rooms    []string
	messages []interface{}
}

func (b *fakeBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, roomID)
	b.messages = append(b.messages, message)
}

type scoreTestEnv struct {
	svc     ScoreService
	scores  *fakeScoreRepo
	entries *fakeEntryRepo
	judges  *fakeJudgeRepo
	hub     *fakeBroadcaster
}

func newScoreTestEnv(t *testing.T) *scoreTestEnv {
	t.Helper()
	env := &scoreTestEnv{
		scores:  newFakeScoreRepo(),
		entries: newFakeEntryRepo(),
		judges:  newFakeJudgeRepo(),
		hub:     &fakeBroadcaster{},
	}
	env.svc = NewScoreService(env.scores, env.entries, env.judges, newFakeContestRepo(), env.hub)
	return env
}

func (e *scoreTestEnv) seedEntry(t *testing.T) *models.Entry {
	t.Helper()
	entry := &models.Entry{
		ContestID:       1,
		AgeCategoryID:   3,
		FrontImageKey:   "entries/front.jpg",
		ParticipantName: "Ada",
		ParticipantAge:  30,
	}
	require.NoError(t, e.entries.Create(context.Background(), entry))
	return entry
}

func TestSubmitScore(t *testing.T) {
	env := newScoreTestEnv(t)
	entry := env.seedEntry(t)

	score, err := env.svc.Submit(context.Background(), 7, SubmitScoreInput{
		EntryID:    entry.ID,
		Creativity: 8,
		Execution:  6,
		Impact:     9,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, score.JudgeID)
	assert.Equal(t, 23, score.Total())
	assert.False(t, score.UpdatedAt.IsZero())
}

func TestSubmitScoreBroadcastsToContestRoom(t *testing.T) {
	env := newScoreTestEnv(t)
	entry := env.seedEntry(t)

	_, err := env.svc.Submit(context.Background(), 7, SubmitScoreInput{
		EntryID:    entry.ID,
		Creativity: 5,
		Execution:  5,
		Impact:     5,
	})
	require.NoError(t, err)

	require.Len(t, env.hub.rooms, 1)
	assert.Equal(t, "contest_1", env.hub.rooms[0])

	msg, ok := env.hub.messages[0].(live.Message)
	require.True(t, ok)
	assert.Equal(t, live.EventScoreSubmitted, msg.Type)

	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, entry.ID, payload["entry_id"])
	assert.Equal(t, entry.EntryNumber, payload["entry_number"])
	assert.Equal(t, 15, payload["total"])
}

func TestSubmitScoreReplacesPrevious(t *testing.T) {
	env := newScoreTestEnv(t)
	entry := env.seedEntry(t)

	_, err := env.svc.Submit(context.Background(), 7, SubmitScoreInput{
		EntryID: entry.ID, Creativity: 3, Execution: 3, Impact: 3,
	})
	require.NoError(t, err)

	_, err = env.svc.Submit(context.Background(), 7, SubmitScoreInput{
		EntryID: entry.ID, Creativity: 9, Execution: 9, Impact: 9,
	})
	require.NoError(t, err)

	scores, err := env.svc.ListByJudge(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 27, scores[0].Total())
}

func TestSubmitScoreBounds(t *testing.T) {
	env := newScoreTestEnv(t)
	entry := env.seedEntry(t)

	tests := []struct {
		name  string
		input SubmitScoreInput
	}{
		{"creativity too low", SubmitScoreInput{EntryID: entry.ID, Creativity: 0, Execution: 5, Impact: 5}},
		{"execution too high", SubmitScoreInput{EntryID: entry.ID, Creativity: 5, Execution: 11, Impact: 5}},
		{"impact negative", SubmitScoreInput{EntryID: entry.ID, Creativity: 5, Execution: 5, Impact: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Submit(context.Background(), 7, tt.input)
			assert.ErrorIs(t, err, ErrScoreOutOfRange)
		})
	}

	assert.Empty(t, env.hub.rooms)
}

func TestSubmitScoreUnknownEntry(t *testing.T) {
	env := newScoreTestEnv(t)

	_, err := env.svc.Submit(context.Background(), 7, SubmitScoreInput{
		EntryID: 42, Creativity: 5, Execution: 5, Impact: 5,
	})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestDashboardSummary(t *testing.T) {
	env := newScoreTestEnv(t)
	env.seedEntry(t)
	env.seedEntry(t)

	env.judges.progress = []models.JudgeProgress{
		{Judge: models.Judge{ID: 1, Email: "judge@example.com", Status: models.JudgeStatusActive}, ScoredEntries: 1, TotalEntries: 2},
	}
	env.scores.summary = []models.EntrySummary{
		{EntryID: 1, EntryNumber: 1, ScoreCount: 1, AvgTotal: 15},
	}

	summary, err := env.svc.DashboardSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Annual Art Contest", summary.Contest.Name)
	assert.Equal(t, 2, summary.EntryCount)
	require.Len(t, summary.Judges, 1)
	assert.Equal(t, 1, summary.Judges[0].ScoredEntries)
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, float64(15), summary.Entries[0].AvgTotal)
}
