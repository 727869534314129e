package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mindcare-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(email string) *models.User {
	return &models.User{
		FirstName:   "Alice",
		LastName:    "Smith",
		Email:       email,
		Password:    "hash",
		Role:        models.RoleMember,
		IsActive:    true,
		Preferences: models.DefaultPreferences(),
	}
}

func TestMemoryCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newTestUser("alice@example.com")))
	err := store.CreateUser(ctx, newTestUser("ALICE@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	found, err := store.GetUserByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.ID)
}

func TestMemoryReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	user := newTestUser("alice@example.com")
	require.NoError(t, store.CreateUser(ctx, user))

	fetched, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	fetched.LoginAttempts = 4

	again, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.LoginAttempts)
}

func TestMemoryTokenLookupHonoursExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	user := newTestUser("alice@example.com")
	user.SetResetToken("hash-1", now.Add(10*time.Minute))
	require.NoError(t, store.CreateUser(ctx, user))

	_, err := store.GetUserByResetToken(ctx, "hash-1", now)
	assert.NoError(t, err)

	_, err = store.GetUserByResetToken(ctx, "hash-1", now.Add(11*time.Minute))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetUserByResetToken(ctx, "other", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPurgeAndIdle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	user := newTestUser("alice@example.com")
	user.SetVerificationToken("v", now.Add(-time.Minute))
	user.IsOnline = true
	user.LastSeen = now.Add(-time.Hour)
	require.NoError(t, store.CreateUser(ctx, user))

	purged, err := store.PurgeExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	marked, err := store.MarkIdleOffline(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EmailVerificationToken)
	assert.False(t, got.IsOnline)
}

func TestMemoryOneEntryPerDay(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := &models.MoodEntry{UserID: 1, Mood: 4, EntryDate: "2024-03-10"}
	require.NoError(t, store.CreateMoodEntry(ctx, first))

	dup := &models.MoodEntry{UserID: 1, Mood: 2, EntryDate: "2024-03-10"}
	assert.ErrorIs(t, store.CreateMoodEntry(ctx, dup), ErrDuplicateEntry)

	other := &models.MoodEntry{UserID: 2, Mood: 2, EntryDate: "2024-03-10"}
	assert.NoError(t, store.CreateMoodEntry(ctx, other))
}

func TestMemoryListScopedAndPaged(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		entry := &models.MoodEntry{
			UserID:    1,
			Mood:      i%5 + 1,
			Tags:      []string{"happy"},
			EntryDate: base.AddDate(0, 0, i).Format("2006-01-02"),
			CreatedAt: base.AddDate(0, 0, i),
		}
		require.NoError(t, store.CreateMoodEntry(ctx, entry))
	}
	require.NoError(t, store.CreateMoodEntry(ctx, &models.MoodEntry{UserID: 2, Mood: 3, EntryDate: "2024-03-01", CreatedAt: base}))

	page, total, err := store.ListMoodEntries(ctx, models.MoodFilter{UserID: 1, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "2024-03-03", page[0].EntryDate)
	assert.Equal(t, "2024-03-02", page[1].EntryDate)

	byMood, total, err := store.ListMoodEntries(ctx, models.MoodFilter{UserID: 1, Mood: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 3, byMood[0].Mood)

	ranged, err := store.MoodEntriesBetween(ctx, 1, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, ranged, 3)

	_, err = store.GetMoodEntry(ctx, 2, page[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteMoodEntry(ctx, 2, page[0].ID), ErrNotFound)
	assert.NoError(t, store.DeleteMoodEntry(ctx, 1, page[0].ID))
}

func TestMemoryKeepsEmptyInterests(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	user := newTestUser("alice@example.com")
	user.Interests = []string{}
	require.NoError(t, store.CreateUser(ctx, user))

	fetched, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, fetched.Interests)

	raw, err := json.Marshal(fetched)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"interests":[]`)
}

func TestMemoryListNegativeOffsetIsEmpty(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateMoodEntry(ctx, &models.MoodEntry{UserID: 1, Mood: 3, EntryDate: "2026-03-10", CreatedAt: time.Now()}))

	page, total, err := store.ListMoodEntries(ctx, models.MoodFilter{UserID: 1, Offset: -100, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, page)
}
