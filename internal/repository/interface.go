package repository

import (
	"context"
	"errors"
	"time"

	"mindcare-api/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateEntry = errors.New("mood entry already exists for this day")
)

// UserRepository defines account data access methods
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error)
	GetUserByVerificationToken(ctx context.Context, hash string, now time.Time) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
	MarkIdleOffline(ctx context.Context, lastSeenBefore time.Time) (int64, error)
}

// MoodRepository defines mood journal data access methods. Every lookup is
// scoped to the owning account.
type MoodRepository interface {
	CreateMoodEntry(ctx context.Context, entry *models.MoodEntry) error
	GetMoodEntry(ctx context.Context, userID, id int64) (*models.MoodEntry, error)
	UpdateMoodEntry(ctx context.Context, entry *models.MoodEntry) error
	DeleteMoodEntry(ctx context.Context, userID, id int64) error
	// ListMoodEntries returns one page, newest first, plus the total match count.
	ListMoodEntries(ctx context.Context, filter models.MoodFilter) ([]*models.MoodEntry, int, error)
	// MoodEntriesBetween returns every entry created in [start, end], newest first.
	MoodEntriesBetween(ctx context.Context, userID int64, start, end time.Time) ([]*models.MoodEntry, error)
}

// Store aggregates all repositories
type Store interface {
	UserRepository
	MoodRepository
	Ping(ctx context.Context) error
}
