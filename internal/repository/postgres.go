package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindcare-api/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const (
	constraintUserEmail = "users_email_lower_idx"
	constraintMoodDay   = "mood_entries_user_day_key"
)

const userColumns = `id, first_name, last_name, email, password, date_of_birth, role, avatar, phone, bio,
	location, interests, preferences, is_email_verified, is_active, is_online, last_seen,
	reset_password_token, reset_password_expire, email_verification_token, email_verification_expire,
	login_attempts, lock_until, created_at, updated_at`

const moodColumns = `id, user_id, mood, mood_text, notes, tags, activities, sleep_hours, sleep_quality,
	exercise_minutes, weather, location, is_private, entry_date::text AS entry_date, created_at, updated_at`

// PostgresRepository implements Store on PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// UserRepository implementation

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.LastSeen.IsZero() {
		user.LastSeen = now
	}

	query := `
		INSERT INTO users (first_name, last_name, email, password, date_of_birth, role, avatar, phone, bio,
			location, interests, preferences, is_email_verified, is_active, is_online, last_seen,
			reset_password_token, reset_password_expire, email_verification_token, email_verification_expire,
			login_attempts, lock_until, created_at, updated_at)
		VALUES (:first_name, :last_name, :email, :password, :date_of_birth, :role, :avatar, :phone, :bio,
			:location, :interests, :preferences, :is_email_verified, :is_active, :is_online, :last_seen,
			:reset_password_token, :reset_password_expire, :email_verification_token, :email_verification_expire,
			:login_attempts, :lock_until, :created_at, :updated_at)
		RETURNING id
	`

	rows, err := r.db.NamedQueryContext(ctx, query, user)
	if err != nil {
		return translate(err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&user.ID); err != nil {
			return fmt.Errorf("scan user id: %w", err)
		}
	}
	return translate(rows.Err())
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) GetUserByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users
		WHERE reset_password_token = $1 AND reset_password_expire > $2`, hash, now)
}

func (r *PostgresRepository) GetUserByVerificationToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users
		WHERE email_verification_token = $1 AND email_verification_expire > $2`, hash, now)
}

func (r *PostgresRepository) getUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET first_name = :first_name, last_name = :last_name, email = :email, password = :password,
		    date_of_birth = :date_of_birth, role = :role, avatar = :avatar, phone = :phone, bio = :bio,
		    location = :location, interests = :interests, preferences = :preferences,
		    is_email_verified = :is_email_verified, is_active = :is_active, is_online = :is_online,
		    last_seen = :last_seen, reset_password_token = :reset_password_token,
		    reset_password_expire = :reset_password_expire, email_verification_token = :email_verification_token,
		    email_verification_expire = :email_verification_expire, login_attempts = :login_attempts,
		    lock_until = :lock_until, updated_at = :updated_at
		WHERE id = :id
	`

	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return translate(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET reset_password_token = CASE WHEN reset_password_expire <= $1 THEN NULL ELSE reset_password_token END,
		    reset_password_expire = CASE WHEN reset_password_expire <= $1 THEN NULL ELSE reset_password_expire END,
		    email_verification_token = CASE WHEN email_verification_expire <= $1 THEN NULL ELSE email_verification_token END,
		    email_verification_expire = CASE WHEN email_verification_expire <= $1 THEN NULL ELSE email_verification_expire END
		WHERE reset_password_expire <= $1 OR email_verification_expire <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) MarkIdleOffline(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_online = FALSE WHERE is_online AND last_seen < $1`, lastSeenBefore)
	if err != nil {
		return 0, fmt.Errorf("mark idle offline: %w", err)
	}
	return res.RowsAffected()
}

// MoodRepository implementation

func (r *PostgresRepository) CreateMoodEntry(ctx context.Context, entry *models.MoodEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.UpdatedAt = entry.CreatedAt

	query := `
		INSERT INTO mood_entries (user_id, mood, mood_text, notes, tags, activities, sleep_hours, sleep_quality,
			exercise_minutes, weather, location, is_private, entry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		entry.UserID,
		entry.Mood,
		entry.MoodText,
		entry.Notes,
		entry.Tags,
		entry.Activities,
		entry.SleepHours,
		entry.SleepQuality,
		entry.ExerciseMinutes,
		entry.Weather,
		entry.Location,
		entry.IsPrivate,
		entry.EntryDate,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Scan(&entry.ID)

	return translate(err)
}

func (r *PostgresRepository) GetMoodEntry(ctx context.Context, userID, id int64) (*models.MoodEntry, error) {
	var entry models.MoodEntry
	query := `SELECT ` + moodColumns + ` FROM mood_entries WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, &entry, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mood entry: %w", err)
	}
	return &entry, nil
}

func (r *PostgresRepository) UpdateMoodEntry(ctx context.Context, entry *models.MoodEntry) error {
	entry.UpdatedAt = time.Now()

	query := `
		UPDATE mood_entries
		SET mood = $1, mood_text = $2, notes = $3, tags = $4, activities = $5, sleep_hours = $6,
		    sleep_quality = $7, exercise_minutes = $8, weather = $9, location = $10, is_private = $11,
		    updated_at = $12
		WHERE id = $13 AND user_id = $14
	`

	res, err := r.db.ExecContext(ctx, query,
		entry.Mood,
		entry.MoodText,
		entry.Notes,
		entry.Tags,
		entry.Activities,
		entry.SleepHours,
		entry.SleepQuality,
		entry.ExerciseMinutes,
		entry.Weather,
		entry.Location,
		entry.IsPrivate,
		entry.UpdatedAt,
		entry.ID,
		entry.UserID,
	)
	if err != nil {
		return fmt.Errorf("update mood entry: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) DeleteMoodEntry(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mood_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete mood entry: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) ListMoodEntries(ctx context.Context, filter models.MoodFilter) ([]*models.MoodEntry, int, error) {
	where, args := moodWhere(filter.UserID, filter.Start, filter.End)
	if filter.Mood != 0 {
		args = append(args, filter.Mood)
		where = append(where, fmt.Sprintf("mood = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM mood_entries WHERE `+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count mood entries: %w", err)
	}

	query := `SELECT ` + moodColumns + ` FROM mood_entries WHERE ` + clause + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	entries := []*models.MoodEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list mood entries: %w", err)
	}
	return entries, total, nil
}

func (r *PostgresRepository) MoodEntriesBetween(ctx context.Context, userID int64, start, end time.Time) ([]*models.MoodEntry, error) {
	where, args := moodWhere(userID, start, end)
	query := `SELECT ` + moodColumns + ` FROM mood_entries WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`

	entries := []*models.MoodEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("select mood entries: %w", err)
	}
	return entries, nil
}

func moodWhere(userID int64, start, end time.Time) ([]string, []interface{}) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	if !start.IsZero() {
		args = append(args, start)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !end.IsZero() {
		args = append(args, end)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return where, args
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// translate maps unique violations onto the repository sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case constraintUserEmail:
			return ErrDuplicateEmail
		case constraintMoodDay:
			return ErrDuplicateEntry
		}
	}
	return err
}
