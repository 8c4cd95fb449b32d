package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/moredark/talking-bob/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Ping verifies the database is reachable. Used by the readiness probe.
func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

const userColumns = `
	id, telegram_id, username, created_at,
	daily_prompt_enabled, daily_prompt_hour, daily_prompt_minute, timezone,
	next_prompt_at, last_prompt_sent_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u          domain.User
		createdAt  int64
		enabledInt int
		nextNS     sql.NullInt64
		lastNS     sql.NullInt64
	)
	if err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &createdAt,
		&enabledInt, &u.DailyPromptHour, &u.DailyPromptMinute, &u.Timezone,
		&nextNS, &lastNS,
	); err != nil {
		return nil, err
	}
	u.DailyPromptEnabled = enabledInt != 0
	u.NextPromptAt = fromNullInt64(nextNS)
	u.LastPromptSentAt = fromNullInt64(lastNS)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// FindUserByTelegramID returns the user registered for a Telegram chat,
// or ErrNotFound.
func (r *SQLiteRepo) FindUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// CreateUser inserts a new user with the given schedule defaults.
// next_prompt_at starts NULL; it is set when the schedule is initialized.
func (r *SQLiteRepo) CreateUser(ctx context.Context, telegramID int64, username string, defaults UserDefaults) (*domain.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			telegram_id, username, created_at,
			daily_prompt_enabled, daily_prompt_hour, daily_prompt_minute, timezone
		) VALUES (?, ?, ?, 1, ?, ?, ?)`,
		telegramID, username, now.Unix(),
		defaults.Hour, defaults.Minute, defaults.Timezone,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:                 id,
		TelegramID:         telegramID,
		Username:           username,
		DailyPromptEnabled: true,
		DailyPromptHour:    defaults.Hour,
		DailyPromptMinute:  defaults.Minute,
		Timezone:           defaults.Timezone,
		CreatedAt:          now,
	}, nil
}

// GetUser returns a user by internal id, or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// ListDue returns up to `limit` enabled users whose next_prompt_at has
// elapsed. Disabled users are excluded even if a stale trigger remains.
func (r *SQLiteRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE daily_prompt_enabled = 1
		  AND next_prompt_at IS NOT NULL
		  AND next_prompt_at <= ?
		ORDER BY next_prompt_at ASC
		LIMIT ?`,
		now.UTC().Unix(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

// UpdateScheduleSettings replaces hour/minute/timezone and the trigger
// instant in one statement, so they can never be observed out of sync.
func (r *SQLiteRepo) UpdateScheduleSettings(ctx context.Context, userID int64, hour, minute int, tz string, next *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET daily_prompt_hour = ?, daily_prompt_minute = ?, timezone = ?, next_prompt_at = ?
		WHERE id = ?`,
		hour, minute, tz, toNullInt64(next), userID,
	)
	return err
}

// SetPromptEnabled toggles the daily prompt and replaces the trigger instant.
func (r *SQLiteRepo) SetPromptEnabled(ctx context.Context, userID int64, enabled bool, next *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET daily_prompt_enabled = ?, next_prompt_at = ?
		WHERE id = ?`,
		boolToInt(enabled), toNullInt64(next), userID,
	)
	return err
}

// SetSchedule updates next_prompt_at and (optionally) last_prompt_sent_at.
func (r *SQLiteRepo) SetSchedule(ctx context.Context, userID int64, next *time.Time, last *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET next_prompt_at = ?, last_prompt_sent_at = ?
		WHERE id = ?`,
		toNullInt64(next), toNullInt64(last), userID,
	)
	return err
}

// GetRandomActivePrompt picks one active prompt uniformly at random.
// Returns (nil, nil) when no active prompts exist.
func (r *SQLiteRepo) GetRandomActivePrompt(ctx context.Context) (*domain.Prompt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, topic, audio_file_id, is_active, created_at
		FROM prompts
		WHERE is_active = 1
		ORDER BY RANDOM()
		LIMIT 1`)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// GetPrompt returns a prompt by id, or ErrNotFound.
func (r *SQLiteRepo) GetPrompt(ctx context.Context, id int64) (*domain.Prompt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, topic, audio_file_id, is_active, created_at
		FROM prompts WHERE id = ?`, id)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanPrompt(row interface{ Scan(...any) error }) (*domain.Prompt, error) {
	var (
		p         domain.Prompt
		activeInt int
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Topic, &p.AudioFileID, &activeInt, &createdAt); err != nil {
		return nil, err
	}
	p.IsActive = activeInt != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// RecordPromptSent logs that a prompt was handed to a user.
func (r *SQLiteRepo) RecordPromptSent(ctx context.Context, userID, promptID int64) (*domain.UserPrompt, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_prompts (user_id, prompt_id, sent_at)
		VALUES (?, ?, ?)`,
		userID, promptID, now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.UserPrompt{ID: id, UserID: userID, PromptID: promptID, SentAt: now}, nil
}

// LatestUserPrompt returns the most recently sent prompt for a user,
// or ErrNotFound if none was ever sent.
func (r *SQLiteRepo) LatestUserPrompt(ctx context.Context, userID int64) (*domain.UserPrompt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, prompt_id, sent_at
		FROM user_prompts
		WHERE user_id = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT 1`, userID)

	var (
		up     domain.UserPrompt
		sentAt int64
	)
	if err := row.Scan(&up.ID, &up.UserID, &up.PromptID, &sentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	up.SentAt = time.Unix(sentAt, 0).UTC()
	return &up, nil
}

// CreateResponse stores a new voice answer tied to a sent prompt.
// The user_prompt_id column is UNIQUE: a second answer to the same prompt fails.
func (r *SQLiteRepo) CreateResponse(ctx context.Context, userID, userPromptID int64, voiceFileID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_responses (user_id, user_prompt_id, voice_file_id, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, userPromptID, voiceFileID, time.Now().UTC().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateResponse fills in the transcript and analysis after processing.
func (r *SQLiteRepo) UpdateResponse(ctx context.Context, id int64, transcript, analysis string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_responses
		SET transcript = ?, analysis = ?
		WHERE id = ?`,
		transcript, analysis, id,
	)
	return err
}

// ResponseByUserPrompt returns the answer recorded for a sent prompt,
// or ErrNotFound.
func (r *SQLiteRepo) ResponseByUserPrompt(ctx context.Context, userPromptID int64) (*domain.UserResponse, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, user_prompt_id, voice_file_id, transcript, analysis, created_at
		FROM user_responses
		WHERE user_prompt_id = ?`, userPromptID)

	var (
		resp       domain.UserResponse
		transcript sql.NullString
		analysis   sql.NullString
		createdAt  int64
	)
	if err := row.Scan(
		&resp.ID, &resp.UserID, &resp.UserPromptID, &resp.VoiceFileID,
		&transcript, &analysis, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	resp.Transcript = fromNullString(transcript)
	resp.Analysis = fromNullString(analysis)
	resp.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &resp, nil
}

// CountActions counts a user's recorded actions of a kind since the given instant.
func (r *SQLiteRepo) CountActions(ctx context.Context, userID int64, action string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_requests
		WHERE user_id = ? AND action = ? AND created_at >= ?`,
		userID, action, since.UTC().Unix(),
	).Scan(&n)
	return n, err
}

// RecordAction logs one rate-limited action.
func (r *SQLiteRepo) RecordAction(ctx context.Context, userID int64, action string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_requests (user_id, action, created_at)
		VALUES (?, ?, ?)`,
		userID, action, time.Now().UTC().Unix(),
	)
	return err
}
