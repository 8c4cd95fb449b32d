package schedule_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/moredark/talking-bob/internal/domain"
	"github.com/moredark/talking-bob/internal/store"
)

// fakeRepo is an in-memory store.Repo for scheduler tests.
type fakeRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	prompts []domain.Prompt
	sent    []domain.UserPrompt

	failRecordSent bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]*domain.User{}}
}

func (f *fakeRepo) addUser(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = &u
}

func (f *fakeRepo) user(id int64) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[id]
}

func (f *fakeRepo) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeRepo) FindUserByTelegramID(_ context.Context, telegramID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) CreateUser(_ context.Context, telegramID int64, username string, d store.UserDefaults) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &domain.User{
		ID:                 int64(len(f.users) + 1),
		TelegramID:         telegramID,
		Username:           username,
		DailyPromptEnabled: true,
		DailyPromptHour:    d.Hour,
		DailyPromptMinute:  d.Minute,
		Timezone:           d.Timezone,
		CreatedAt:          time.Now().UTC(),
	}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) ListDue(_ context.Context, now time.Time, limit int) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []domain.User
	for _, u := range f.users {
		if u.DailyPromptEnabled && u.NextPromptAt != nil && !u.NextPromptAt.After(now) {
			due = append(due, *u)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeRepo) UpdateScheduleSettings(_ context.Context, userID int64, hour, minute int, tz string, next *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.DailyPromptHour, u.DailyPromptMinute, u.Timezone = hour, minute, tz
		u.NextPromptAt = next
	}
	return nil
}

func (f *fakeRepo) SetPromptEnabled(_ context.Context, userID int64, enabled bool, next *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.DailyPromptEnabled = enabled
		u.NextPromptAt = next
	}
	return nil
}

func (f *fakeRepo) SetSchedule(_ context.Context, userID int64, next *time.Time, last *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.NextPromptAt = next
		u.LastPromptSentAt = last
	}
	return nil
}

func (f *fakeRepo) GetRandomActivePrompt(_ context.Context) (*domain.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.prompts {
		if f.prompts[i].IsActive {
			cp := f.prompts[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetPrompt(_ context.Context, id int64) (*domain.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.prompts {
		if f.prompts[i].ID == id {
			cp := f.prompts[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) RecordPromptSent(_ context.Context, userID, promptID int64) (*domain.UserPrompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRecordSent {
		return nil, errors.New("record failed")
	}
	up := domain.UserPrompt{
		ID:       int64(len(f.sent) + 1),
		UserID:   userID,
		PromptID: promptID,
		SentAt:   time.Now().UTC(),
	}
	f.sent = append(f.sent, up)
	return &up, nil
}

func (f *fakeRepo) LatestUserPrompt(_ context.Context, userID int64) (*domain.UserPrompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].UserID == userID {
			cp := f.sent[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) CreateResponse(context.Context, int64, int64, string) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeRepo) UpdateResponse(context.Context, int64, string, string) error {
	return errors.New("not implemented")
}

func (f *fakeRepo) ResponseByUserPrompt(context.Context, int64) (*domain.UserResponse, error) {
	return nil, store.ErrNotFound
}

func (f *fakeRepo) CountActions(context.Context, int64, string, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeRepo) RecordAction(context.Context, int64, string) error { return nil }

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

// fakeTransport records delivery attempts and fails on demand.
type fakeTransport struct {
	mu       sync.Mutex
	voiceErr error
	textErr  error
	voices   int
	texts    int
}

func (t *fakeTransport) SendVoice(context.Context, int64, string, string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voices++
	return t.voiceErr
}

func (t *fakeTransport) SendMessage(context.Context, int64, string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.texts++
	return t.textErr
}
