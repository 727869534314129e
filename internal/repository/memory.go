package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mindcare-api/internal/models"

	"github.com/lib/pq"
)

// MemoryStore is an in-process Store used by tests and DB_DRIVER=memory.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]*models.User
	entries    map[int64]*models.MoodEntry
	nextUserID int64
	nextMoodID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[int64]*models.User),
		entries: make(map[int64]*models.MoodEntry),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool {
		return strings.EqualFold(u.Email, email)
	})
}

func (s *MemoryStore) GetUserByResetToken(_ context.Context, hash string, now time.Time) (*models.User, error) {
	return s.findUser(func(u *models.User) bool {
		return u.ResetPasswordToken != nil && *u.ResetPasswordToken == hash &&
			u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now)
	})
}

func (s *MemoryStore) GetUserByVerificationToken(_ context.Context, hash string, now time.Time) (*models.User, error) {
	return s.findUser(func(u *models.User) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == hash &&
			u.EmailVerificationExpire != nil && u.EmailVerificationExpire.After(now)
	})
}

func (s *MemoryStore) findUser(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}
	user.UpdatedAt = time.Now()
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *MemoryStore) PurgeExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for _, user := range s.users {
		touched := false
		if user.ResetPasswordExpire != nil && !user.ResetPasswordExpire.After(now) {
			user.ClearResetToken()
			touched = true
		}
		if user.EmailVerificationExpire != nil && !user.EmailVerificationExpire.After(now) {
			user.ClearVerificationToken()
			touched = true
		}
		if touched {
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore) MarkIdleOffline(_ context.Context, lastSeenBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var marked int64
	for _, user := range s.users {
		if user.IsOnline && user.LastSeen.Before(lastSeenBefore) {
			user.IsOnline = false
			marked++
		}
	}
	return marked, nil
}

func (s *MemoryStore) CreateMoodEntry(_ context.Context, entry *models.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.UserID == entry.UserID && existing.EntryDate == entry.EntryDate {
			return ErrDuplicateEntry
		}
	}

	s.nextMoodID++
	entry.ID = s.nextMoodID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.UpdatedAt = entry.CreatedAt
	s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (s *MemoryStore) GetMoodEntry(_ context.Context, userID, id int64) (*models.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok || entry.UserID != userID {
		return nil, ErrNotFound
	}
	return cloneEntry(entry), nil
}

func (s *MemoryStore) UpdateMoodEntry(_ context.Context, entry *models.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[entry.ID]
	if !ok || existing.UserID != entry.UserID {
		return ErrNotFound
	}
	entry.UpdatedAt = time.Now()
	s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (s *MemoryStore) DeleteMoodEntry(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || entry.UserID != userID {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) ListMoodEntries(_ context.Context, filter models.MoodFilter) ([]*models.MoodEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.collect(filter.UserID, filter.Start, filter.End, func(e *models.MoodEntry) bool {
		if filter.Mood != 0 && e.Mood != filter.Mood {
			return false
		}
		return filter.Tag == "" || containsString(e.Tags, filter.Tag)
	})

	total := len(matched)
	if filter.Offset < 0 || filter.Offset >= total {
		return []*models.MoodEntry{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func (s *MemoryStore) MoodEntriesBetween(_ context.Context, userID int64, start, end time.Time) ([]*models.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(userID, start, end, nil), nil
}

// collect must be called with the read lock held.
func (s *MemoryStore) collect(userID int64, start, end time.Time, keep func(*models.MoodEntry) bool) []*models.MoodEntry {
	out := []*models.MoodEntry{}
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		if !start.IsZero() && e.CreatedAt.Before(start) {
			continue
		}
		if !end.IsZero() && e.CreatedAt.After(end) {
			continue
		}
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Interests = append(pq.StringArray{}, u.Interests...)
	c.ResetPasswordToken = cloneString(u.ResetPasswordToken)
	c.EmailVerificationToken = cloneString(u.EmailVerificationToken)
	c.ResetPasswordExpire = cloneTime(u.ResetPasswordExpire)
	c.EmailVerificationExpire = cloneTime(u.EmailVerificationExpire)
	c.LockUntil = cloneTime(u.LockUntil)
	c.DateOfBirth = cloneTime(u.DateOfBirth)
	return &c
}

func cloneEntry(e *models.MoodEntry) *models.MoodEntry {
	c := *e
	c.Tags = append(pq.StringArray{}, e.Tags...)
	c.Activities = append(pq.StringArray{}, e.Activities...)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
