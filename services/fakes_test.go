package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/repositories"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, _ repositories.SQLExecutor, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repositories.ErrUserEmailConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id int, role models.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(_ context.Context, id int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) CountByRole(_ context.Context, role models.UserRole) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeJudgeRepo struct {
	mu       sync.Mutex
	judges   map[int]*models.Judge
	progress []models.JudgeProgress
}

func newFakeJudgeRepo() *fakeJudgeRepo {
	return &fakeJudgeRepo{judges: make(map[int]*models.Judge)}
}

func (r *fakeJudgeRepo) Create(_ context.Context, _ repositories.SQLExecutor, judge *models.Judge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.judges {
		if strings.EqualFold(j.Email, judge.Email) {
			return repositories.ErrJudgeEmailConflict
		}
	}
	if judge.InvitedAt.IsZero() {
		judge.InvitedAt = time.Now()
	}
	copied := *judge
	r.judges[judge.ID] = &copied
	return nil
}

func (r *fakeJudgeRepo) GetByID(_ context.Context, id int) (*models.Judge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.judges[id]
	if !ok {
		return nil, repositories.ErrJudgeNotFound
	}
	copied := *j
	return &copied, nil
}

func (r *fakeJudgeRepo) GetByEmail(_ context.Context, email string) (*models.Judge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.judges {
		if strings.EqualFold(j.Email, email) {
			copied := *j
			return &copied, nil
		}
	}
	return nil, repositories.ErrJudgeNotFound
}

func (r *fakeJudgeRepo) List(_ context.Context) ([]models.Judge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Judge, 0, len(r.judges))
	for _, j := range r.judges {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeJudgeRepo) ListWithProgress(_ context.Context, _ int) ([]models.JudgeProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress, nil
}

func (r *fakeJudgeRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.JudgeStatus, activatedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.judges[id]
	if !ok {
		return repositories.ErrJudgeNotFound
	}
	j.Status = status
	if activatedAt != nil {
		j.ActivatedAt = activatedAt
	}
	return nil
}

func (r *fakeJudgeRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.judges[id]; !ok {
		return repositories.ErrJudgeNotFound
	}
	delete(r.judges, id)
	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	nextID int
	tokens map[int]*models.AuthToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[int]*models.AuthToken)}
}

func (r *fakeTokenRepo) Create(_ context.Context, token *models.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == token.Token && t.ConsumedAt == nil {
			return repositories.ErrTokenConflict
		}
	}
	r.nextID++
	token.ID = r.nextID
	token.CreatedAt = time.Now()
	copied := *token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *fakeTokenRepo) GetByToken(_ context.Context, token string, purpose models.TokenPurpose) (*models.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == token && t.Purpose == purpose {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrTokenNotFound
}

func (r *fakeTokenRepo) GetLatestByUser(_ context.Context, userID int, purpose models.TokenPurpose) (*models.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.AuthToken
	for _, t := range r.tokens {
		if t.UserID != userID || t.Purpose != purpose || t.ConsumedAt != nil {
			continue
		}
		if latest == nil || t.ID > latest.ID {
			latest = t
		}
	}
	if latest == nil {
		return nil, repositories.ErrTokenNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeTokenRepo) Consume(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return repositories.ErrTokenNotFound
	}
	if t.ConsumedAt != nil {
		return repositories.ErrTokenAlreadyUsed
	}
	now := time.Now()
	t.ConsumedAt = &now
	return nil
}

func (r *fakeTokenRepo) IncrementAttempts(_ context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return 0, repositories.ErrTokenNotFound
	}
	t.Attempts++
	return t.Attempts, nil
}

func (r *fakeTokenRepo) DeleteByUser(_ context.Context, _ repositories.SQLExecutor, userID int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for id, t := range r.tokens {
		if now.After(t.ExpiresAt) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	nextID   int
	sessions map[int]*models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[int]*models.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RefreshToken == session.RefreshToken {
			return repositories.ErrSessionConflict
		}
	}
	r.nextID++
	session.ID = r.nextID
	session.CreatedAt = time.Now()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByRefreshToken(_ context.Context, refreshToken string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RefreshToken == refreshToken {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repositories.ErrSessionNotFound
}

func (r *fakeSessionRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return repositories.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteByUser(_ context.Context, _ repositories.SQLExecutor, userID int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for id, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeScoreRepo struct {
	mu      sync.Mutex
	scores  map[[2]int]*models.Score // keyed by entry, judge
	summary []models.EntrySummary
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{scores: make(map[[2]int]*models.Score)}
}

func (r *fakeScoreRepo) Upsert(_ context.Context, score *models.Score) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	score.UpdatedAt = time.Now()
	copied := *score
	r.scores[[2]int{score.EntryID, score.JudgeID}] = &copied
	return nil
}

func (r *fakeScoreRepo) ListByJudge(_ context.Context, judgeID int) ([]models.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Score
	for _, s := range r.scores {
		if s.JudgeID == judgeID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}

func (r *fakeScoreRepo) DeleteByJudge(_ context.Context, _ repositories.SQLExecutor, judgeID int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, s := range r.scores {
		if s.JudgeID == judgeID {
			delete(r.scores, key)
			n++
		}
	}
	return n, nil
}

func (r *fakeScoreRepo) SummaryByContest(_ context.Context, _ int) ([]models.EntrySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary, nil
}

type fakeContestRepo struct {
	active     *models.Contest
	contests   []models.Contest
	categories map[int]*models.AgeCategory
}

func newFakeContestRepo() *fakeContestRepo {
	contest := &models.Contest{ID: 1, Name: "Annual Art Contest", Year: 2026, Active: true}
	return &fakeContestRepo{
		active:   contest,
		contests: []models.Contest{*contest},
		categories: map[int]*models.AgeCategory{
			1: {ID: 1, Name: "Children", MinAge: 5, MaxAge: 12},
			2: {ID: 2, Name: "Teens", MinAge: 13, MaxAge: 17},
			3: {ID: 3, Name: "Adults", MinAge: 18, MaxAge: 120},
		},
	}
}

func (r *fakeContestRepo) GetActive(_ context.Context) (*models.Contest, error) {
	if r.active == nil {
		return nil, repositories.ErrContestNotFound
	}
	copied := *r.active
	return &copied, nil
}

func (r *fakeContestRepo) List(_ context.Context) ([]models.Contest, error) {
	return r.contests, nil
}

func (r *fakeContestRepo) GetAgeCategory(_ context.Context, id int) (*models.AgeCategory, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, repositories.ErrAgeCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeContestRepo) ListAgeCategories(_ context.Context) ([]models.AgeCategory, error) {
	out := make([]models.AgeCategory, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]*models.Entry
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[int]*models.Entry)}
}

func (r *fakeEntryRepo) Create(_ context.Context, entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 1
	for _, e := range r.entries {
		if e.ContestID == entry.ContestID && e.EntryNumber >= next {
			next = e.EntryNumber + 1
		}
	}
	r.nextID++
	entry.ID = r.nextID
	entry.EntryNumber = next
	entry.CreatedAt = time.Now()
	copied := *entry
	r.entries[entry.ID] = &copied
	return nil
}

func (r *fakeEntryRepo) GetByID(_ context.Context, id int) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, repositories.ErrEntryNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEntryRepo) ListByContest(_ context.Context, contestID int) ([]models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Entry
	for _, e := range r.entries {
		if e.ContestID == contestID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryNumber < out[j].EntryNumber })
	return out, nil
}

func (r *fakeEntryRepo) CountByContest(_ context.Context, contestID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.entries {
		if e.ContestID == contestID {
			count++
		}
	}
	return count, nil
}

func (r *fakeEntryRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return repositories.ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}

type sentEmail struct {
	kind string
	to   string
	body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	fail bool
}

func (m *fakeMailer) record(kind, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentEmail{kind: kind, to: to, body: body})
	return nil
}

func (m *fakeMailer) SendJudgeInvitation(_ context.Context, to, inviteLink string) error {
	return m.record("invitation", to, inviteLink)
}

func (m *fakeMailer) SendMagicLink(_ context.Context, to, loginLink string) error {
	return m.record("magic_link", to, loginLink)
}

func (m *fakeMailer) SendLoginCode(_ context.Context, to, code string) error {
	return m.record("login_code", to, code)
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, resetLink string) error {
	return m.record("password_reset", to, resetLink)
}

func (m *fakeMailer) sentTo(kind string) []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentEmail
	for _, e := range m.sent {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}
