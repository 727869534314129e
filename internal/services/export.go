package services

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"mindcare-api/internal/models"
)

var exportHeader = []string{
	"Date", "Time", "Mood", "Mood Text", "Notes", "Tags", "Activities",
	"Sleep Hours", "Sleep Quality", "Exercise Minutes", "Weather", "Location",
}

// WriteMoodCSV renders entries as CSV with timestamps in loc.
func WriteMoodCSV(w io.Writer, entries []*models.MoodEntry, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for _, e := range entries {
		created := e.CreatedAt.In(loc)
		record := []string{
			created.Format("2006-01-02"),
			created.Format("15:04:05"),
			strconv.Itoa(e.Mood),
			e.MoodText,
			e.Notes,
			strings.Join(e.Tags, ", "),
			strings.Join(e.Activities, ", "),
			optionalFloat(e.SleepHours),
			optionalInt(e.SleepQuality),
			optionalInt(e.ExerciseMinutes),
			optionalString(e.Weather),
			optionalString(e.Location),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
