package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"mindcare-api/internal/apperror"
	"mindcare-api/internal/metrics"
	"mindcare-api/internal/models"
	"mindcare-api/internal/moodstats"
	"mindcare-api/internal/repository"
	"mindcare-api/internal/utils"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPageLimit = 30
	MaxPageLimit     = 100
	defaultRange     = 30 * 24 * time.Hour
	trendWindow      = 7 * 24 * time.Hour

	// maxOffset keeps page*limit inside a 32-bit SQL OFFSET.
	maxOffset = math.MaxInt32
)

// ListQuery carries the raw list parameters; dates are YYYY-MM-DD or RFC 3339.
type ListQuery struct {
	Page      int
	Limit     int
	StartDate string
	EndDate   string
	Mood      int
	Tag       string
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type MoodPage struct {
	Entries    []*models.MoodEntry
	Total      int
	Pagination Pagination
	Stats      moodstats.Overall
	Trends     []moodstats.DayAverage
}

type MoodService struct {
	entries repository.MoodRepository
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	loc     *time.Location
	now     func() time.Time
}

func NewMoodService(entries repository.MoodRepository, m *metrics.Metrics, log logrus.FieldLogger, loc *time.Location) *MoodService {
	if loc == nil {
		loc = time.UTC
	}
	return &MoodService{
		entries: entries,
		metrics: m,
		log:     log,
		loc:     loc,
		now:     time.Now,
	}
}

func (s *MoodService) WithClock(now func() time.Time) *MoodService {
	s.now = now
	return s
}

// Create records today's entry; a second entry on the same calendar day is rejected.
func (s *MoodService) Create(ctx context.Context, userID int64, req models.MoodEntryRequest) (*models.MoodEntry, error) {
	now := s.now()
	entry := &models.MoodEntry{
		UserID:    userID,
		EntryDate: now.In(s.loc).Format("2006-01-02"),
		CreatedAt: now,
	}
	req.Notes = strings.TrimSpace(req.Notes)
	entry.Apply(req)

	if err := s.entries.CreateMoodEntry(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, apperror.New(apperror.KindDuplicateEntry, "Mood entry already exists for today")
		}
		return nil, fmt.Errorf("create mood entry: %w", err)
	}
	s.metrics.MoodEntry("create")
	return entry, nil
}

func (s *MoodService) List(ctx context.Context, userID int64, q ListQuery) (*MoodPage, error) {
	start, end, err := s.parseRange(q.StartDate, q.EndDate, true)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page > maxOffset/limit {
		page = maxOffset/limit + 1
	}

	entries, total, err := s.entries.ListMoodEntries(ctx, models.MoodFilter{
		UserID: userID,
		Start:  start,
		End:    end,
		Mood:   q.Mood,
		Tag:    q.Tag,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list mood entries: %w", err)
	}

	ranged, err := s.entries.MoodEntriesBetween(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load range: %w", err)
	}
	weekly, err := s.weekly(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &MoodPage{
		Entries: entries,
		Total:   total,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
		Stats:  moodstats.Summarize(ranged),
		Trends: moodstats.Trends(weekly, s.loc),
	}, nil
}

func (s *MoodService) Get(ctx context.Context, userID, id int64) (*models.MoodEntry, error) {
	entry, err := s.entries.GetMoodEntry(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Mood entry not found")
	}
	return entry, err
}

// Update edits one of the actor's entries. Non-admins may only edit entries
// created within the last 24 hours.
func (s *MoodService) Update(ctx context.Context, actor *models.User, id int64, req models.MoodEntryRequest) (*models.MoodEntry, error) {
	entry, err := s.Get(ctx, actor.ID, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin && !entry.Editable(s.now()) {
		return nil, apperror.Validation("Cannot update entries older than 24 hours")
	}

	req.Notes = strings.TrimSpace(req.Notes)
	entry.Apply(req)
	if err := s.entries.UpdateMoodEntry(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Mood entry not found")
		}
		return nil, fmt.Errorf("update mood entry: %w", err)
	}
	s.metrics.MoodEntry("update")
	return entry, nil
}

func (s *MoodService) Delete(ctx context.Context, userID, id int64) error {
	err := s.entries.DeleteMoodEntry(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("Mood entry not found")
	}
	if err != nil {
		return fmt.Errorf("delete mood entry: %w", err)
	}
	s.metrics.MoodEntry("delete")
	return nil
}

// Statistics aggregates the range (default trailing 30 days). An empty range
// yields zeroed aggregates.
func (s *MoodService) Statistics(ctx context.Context, userID int64, startDate, endDate string) (moodstats.Report, error) {
	start, end, err := s.parseRange(startDate, endDate, true)
	if err != nil {
		return moodstats.Report{}, err
	}

	entries, err := s.entries.MoodEntriesBetween(ctx, userID, start, end)
	if err != nil {
		return moodstats.Report{}, fmt.Errorf("load range: %w", err)
	}
	weekly, err := s.weekly(ctx, userID)
	if err != nil {
		return moodstats.Report{}, err
	}
	return moodstats.Compute(entries, weekly, s.loc), nil
}

// Export returns entries newest first; without a start date every entry is included.
func (s *MoodService) Export(ctx context.Context, userID int64, startDate, endDate string) ([]*models.MoodEntry, error) {
	start, end, err := s.parseRange(startDate, endDate, false)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		end = time.Time{}
	}
	entries, err := s.entries.MoodEntriesBetween(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("export mood entries: %w", err)
	}
	return entries, nil
}

func (s *MoodService) weekly(ctx context.Context, userID int64) ([]*models.MoodEntry, error) {
	now := s.now()
	entries, err := s.entries.MoodEntriesBetween(ctx, userID, now.Add(-trendWindow), now)
	if err != nil {
		return nil, fmt.Errorf("load weekly trend: %w", err)
	}
	return entries, nil
}

// parseRange resolves the optional bounds. A date-only end covers that whole day and
// the default start is counted back from the end.
func (s *MoodService) parseRange(startDate, endDate string, defaultStart bool) (time.Time, time.Time, error) {
	now := s.now()
	end := now
	if endDate != "" {
		parsed, err := utils.ParseDate(endDate, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation("Invalid endDate")
		}
		if len(endDate) == len("2006-01-02") {
			parsed = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		end = parsed
	}

	var start time.Time
	if startDate != "" {
		parsed, err := utils.ParseDate(startDate, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation("Invalid startDate")
		}
		start = parsed
	} else if defaultStart {
		start = end.Add(-defaultRange)
	}

	// An inverted range selects nothing; callers get an empty result.
	return start, end, nil
}
