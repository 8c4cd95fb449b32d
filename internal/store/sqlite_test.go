package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moredark/talking-bob/internal/store"
)

var defaults = store.UserDefaults{Hour: 12, Minute: 0, Timezone: "Europe/Moscow"}

func openTestRepo(t *testing.T) *store.SQLiteRepo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.db")
	repo, err := store.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestCreateAndFindUser(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateUser(ctx, 777, "bob", defaults)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.DailyPromptEnabled)
	require.Nil(t, created.NextPromptAt)

	found, err := repo.FindUserByTelegramID(ctx, 777)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, "bob", found.Username)
	require.Equal(t, 12, found.DailyPromptHour)
	require.Equal(t, "Europe/Moscow", found.Timezone)

	_, err = repo.FindUserByTelegramID(ctx, 404)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.GetUser(ctx, 9999)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListDue(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due, err := repo.CreateUser(ctx, 1, "due", defaults)
	require.NoError(t, err)
	overdue := now.Add(-time.Minute)
	require.NoError(t, repo.SetSchedule(ctx, due.ID, &overdue, nil))

	later, err := repo.CreateUser(ctx, 2, "later", defaults)
	require.NoError(t, err)
	future := now.Add(time.Hour)
	require.NoError(t, repo.SetSchedule(ctx, later.ID, &future, nil))

	// Disabled with a stale trigger: must never surface.
	off, err := repo.CreateUser(ctx, 3, "off", defaults)
	require.NoError(t, err)
	stale := now.Add(-time.Hour)
	require.NoError(t, repo.SetSchedule(ctx, off.ID, &stale, nil))
	require.NoError(t, repo.SetPromptEnabled(ctx, off.ID, false, nil))

	// Enabled but never initialized: NULL trigger, not due.
	_, err = repo.CreateUser(ctx, 4, "fresh", defaults)
	require.NoError(t, err)

	got, err := repo.ListDue(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, due.ID, got[0].ID)
}

func TestSetPromptEnabledClearsTrigger(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, 1, "bob", defaults)
	require.NoError(t, err)
	next := time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.SetSchedule(ctx, u.ID, &next, nil))

	require.NoError(t, repo.SetPromptEnabled(ctx, u.ID, false, nil))

	after, err := repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, after.DailyPromptEnabled)
	require.Nil(t, after.NextPromptAt)
}

func TestUpdateScheduleSettings(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, 1, "bob", defaults)
	require.NoError(t, err)

	next := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	require.NoError(t, repo.UpdateScheduleSettings(ctx, u.ID, 18, 30, "Asia/Almaty", &next))

	after, err := repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 18, after.DailyPromptHour)
	require.Equal(t, 30, after.DailyPromptMinute)
	require.Equal(t, "Asia/Almaty", after.Timezone)
	require.NotNil(t, after.NextPromptAt)
	require.True(t, next.Equal(*after.NextPromptAt))
}

func TestSeededPromptsAvailable(t *testing.T) {
	repo := openTestRepo(t)

	p, err := repo.GetRandomActivePrompt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p, "migrations must seed the prompt corpus")
	require.NotEmpty(t, p.Topic)
	require.True(t, p.IsActive)
}

func TestPromptSentLogAndResponses(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, 1, "bob", defaults)
	require.NoError(t, err)
	p, err := repo.GetRandomActivePrompt(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)

	_, err = repo.LatestUserPrompt(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	first, err := repo.RecordPromptSent(ctx, u.ID, p.ID)
	require.NoError(t, err)
	second, err := repo.RecordPromptSent(ctx, u.ID, p.ID)
	require.NoError(t, err)

	latest, err := repo.LatestUserPrompt(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.NotEqual(t, first.ID, latest.ID)

	respID, err := repo.CreateResponse(ctx, u.ID, latest.ID, "voice-123")
	require.NoError(t, err)

	// One answer per sent prompt.
	_, err = repo.CreateResponse(ctx, u.ID, latest.ID, "voice-456")
	require.Error(t, err)

	require.NoError(t, repo.UpdateResponse(ctx, respID, "I like reading books", `{"overallScore":7}`))

	resp, err := repo.ResponseByUserPrompt(ctx, latest.ID)
	require.NoError(t, err)
	require.Equal(t, "voice-123", resp.VoiceFileID)
	require.Equal(t, "I like reading books", resp.Transcript)
	require.Equal(t, `{"overallScore":7}`, resp.Analysis)

	_, err = repo.ResponseByUserPrompt(ctx, first.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCountActionsWindow(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, 1, "bob", defaults)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordAction(ctx, u.ID, "voice_response"))
	}
	require.NoError(t, repo.RecordAction(ctx, u.ID, "command"))

	n, err := repo.CountActions(ctx, u.ID, "voice_response", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// Window start in the future excludes everything already recorded.
	n, err = repo.CountActions(ctx, u.ID, "voice_response", time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMigrationsReplaySafely(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	repo, err := store.OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, 1, "bob", defaults)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Reopening replays every migration file; schema and seed are guarded.
	repo, err = store.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer repo.Close()

	u, err := repo.FindUserByTelegramID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "bob", u.Username)
}
