package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"mindcare-api/internal/apperror"
	"mindcare-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moodReq(mood int) models.MoodEntryRequest {
	return models.MoodEntryRequest{Mood: &mood}
}

func TestCreateOnePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.mood.Create(ctx, 1, moodReq(4))
	require.NoError(t, err)
	assert.Equal(t, "Good", entry.MoodText)
	assert.Equal(t, f.clock.Now().UTC().Format("2006-01-02"), entry.EntryDate)

	_, err = f.mood.Create(ctx, 1, moodReq(2))
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindDuplicateEntry, appErr.Kind)
	assert.Equal(t, "Mood entry already exists for today", appErr.Message)

	f.clock.Advance(24 * time.Hour)
	_, err = f.mood.Create(ctx, 1, moodReq(2))
	assert.NoError(t, err)
}

func TestUpdateWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := &models.User{ID: 1, Role: models.RoleMember}

	entry, err := f.mood.Create(ctx, owner.ID, moodReq(3))
	require.NoError(t, err)

	req := moodReq(5)
	req.Notes = "  better  "
	updated, err := f.mood.Update(ctx, owner, entry.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Excellent", updated.MoodText)
	assert.Equal(t, "better", updated.Notes)

	f.clock.Advance(25 * time.Hour)
	_, err = f.mood.Update(ctx, owner, entry.ID, moodReq(1))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	updated, err = f.mood.Update(ctx, admin, entry.ID, moodReq(1))
	require.NoError(t, err)
	assert.Equal(t, "Terrible", updated.MoodText)
}

func TestEntriesAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.mood.Create(ctx, 1, moodReq(3))
	require.NoError(t, err)

	_, err = f.mood.Get(ctx, 2, entry.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(f.mood.Delete(ctx, 2, entry.ID)))
	assert.NoError(t, f.mood.Delete(ctx, 1, entry.ID))
}

func TestListPaginationAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, mood := range []int{2, 4, 5} {
		_, err := f.mood.Create(ctx, 1, moodReq(mood))
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}

	page, err := f.mood.List(ctx, 1, ListQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Entries, 2)
	assert.Equal(t, Pagination{Page: 1, Limit: 2, TotalPages: 2}, page.Pagination)
	assert.Equal(t, 5, page.Entries[0].Mood)
	assert.Equal(t, 3.67, page.Stats.AverageMood)
	assert.Len(t, page.Trends, 3)

	capped, err := f.mood.List(ctx, 1, ListQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, capped.Pagination.Limit)

	_, err = f.mood.List(ctx, 1, ListQuery{StartDate: "yesterday"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestStatisticsEmptyRange(t *testing.T) {
	f := newFixture(t)

	report, err := f.mood.Statistics(context.Background(), 1, "2020-01-01", "2020-01-31")
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Overall.AverageMood)
	assert.Equal(t, 0, report.Overall.TotalEntries)
}

func TestStatisticsEndDateOnlyCountsBackFromEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mood.Create(ctx, 1, moodReq(4))
	require.NoError(t, err)
	f.clock.Advance(60 * 24 * time.Hour)

	end := f.clock.Now().UTC().AddDate(0, 0, -50).Format("2006-01-02")
	report, err := f.mood.Statistics(ctx, 1, "", end)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Overall.TotalEntries)

	report, err = f.mood.Statistics(ctx, 1, "", "2020-01-31")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Overall.TotalEntries)
}

func TestStatisticsInvertedRangeIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mood.Create(ctx, 1, moodReq(4))
	require.NoError(t, err)
	today := f.clock.Now().UTC().Format("2006-01-02")
	yesterday := f.clock.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	report, err := f.mood.Statistics(ctx, 1, today, yesterday)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Overall.AverageMood)
	assert.Equal(t, 0, report.Overall.TotalEntries)
	assert.Empty(t, report.TopTags)

	page, err := f.mood.List(ctx, 1, ListQuery{StartDate: today, EndDate: yesterday})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Entries)
}

func TestListHugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mood.Create(ctx, 1, moodReq(4))
	require.NoError(t, err)

	page, err := f.mood.List(ctx, 1, ListQuery{Page: 100000000000000000, Limit: MaxPageLimit})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Empty(t, page.Entries)
	assert.Greater(t, page.Pagination.Page, page.Pagination.TotalPages)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := moodReq(4)
	req.Tags = []string{"happy", "social"}
	req.SleepHours = ptr(7.5)
	_, err := f.mood.Create(ctx, 1, req)
	require.NoError(t, err)

	entries, err := f.mood.Export(ctx, 1, "", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMoodCSV(&buf, entries, time.UTC))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, "4", records[1][2])
	assert.Equal(t, "Good", records[1][3])
	assert.Equal(t, "happy, social", records[1][5])
	assert.Equal(t, "7.5", records[1][7])
	assert.Equal(t, "", records[1][8])
}
