package models

import (
	"time"

	"github.com/lib/pq"
)

// EditWindow is how long an owner may still change an entry.
const EditWindow = 24 * time.Hour

var moodLabels = map[int]string{
	1: "Terrible",
	2: "Poor",
	3: "Okay",
	4: "Good",
	5: "Excellent",
}

// MoodLabel maps a 1..5 score to its label; "" for anything else.
func MoodLabel(mood int) string {
	return moodLabels[mood]
}

var (
	MoodTags = []string{
		"anxiety", "stress", "happy", "sad", "angry",
		"tired", "energetic", "productive", "social",
		"lonely", "hopeful", "hopeless", "grateful",
	}
	MoodActivities = []string{
		"work", "exercise", "meditation", "socializing",
		"reading", "tv", "gaming", "cooking", "cleaning",
		"shopping", "resting", "therapy", "medication",
	}
	Interests = []string{
		"anxiety", "depression", "relationships", "trauma", "addiction",
		"stress", "parenting", "lgbtq", "grief", "self_improvement",
	}
)

type MoodEntry struct {
	ID              int64          `json:"id" db:"id"`
	UserID          int64          `json:"user" db:"user_id"`
	Mood            int            `json:"mood" db:"mood"`
	MoodText        string         `json:"moodText" db:"mood_text"`
	Notes           string         `json:"notes" db:"notes"`
	Tags            pq.StringArray `json:"tags" db:"tags"`
	Activities      pq.StringArray `json:"activities" db:"activities"`
	SleepHours      *float64       `json:"sleepHours,omitempty" db:"sleep_hours"`
	SleepQuality    *int           `json:"sleepQuality,omitempty" db:"sleep_quality"`
	ExerciseMinutes *int           `json:"exerciseMinutes,omitempty" db:"exercise_minutes"`
	Weather         *string        `json:"weather,omitempty" db:"weather"`
	Location        *string        `json:"location,omitempty" db:"location"`
	IsPrivate       bool           `json:"isPrivate" db:"is_private"`
	EntryDate       string         `json:"date" db:"entry_date"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}

// Editable reports whether the entry can still be changed by a non-admin owner at now.
func (e *MoodEntry) Editable(now time.Time) bool {
	return now.Sub(e.CreatedAt) <= EditWindow
}

// Apply copies a validated request onto the entry and re-derives the label.
func (e *MoodEntry) Apply(req MoodEntryRequest) {
	e.Mood = *req.Mood
	e.MoodText = MoodLabel(e.Mood)
	e.Notes = req.Notes
	e.Tags = pq.StringArray(nonNil(req.Tags))
	e.Activities = pq.StringArray(nonNil(req.Activities))
	e.SleepHours = req.SleepHours
	e.SleepQuality = req.SleepQuality
	e.ExerciseMinutes = req.ExerciseMinutes
	e.Weather = req.Weather
	e.Location = req.Location
	e.IsPrivate = req.IsPrivate
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type MoodEntryRequest struct {
	Mood            *int     `json:"mood" validate:"required,min=1,max=5"`
	Notes           string   `json:"notes" validate:"max=1000"`
	Tags            []string `json:"tags" validate:"omitempty,dive,max=20,mood_tag"`
	Activities      []string `json:"activities" validate:"omitempty,dive,mood_activity"`
	SleepHours      *float64 `json:"sleepHours" validate:"omitempty,min=0,max=24"`
	SleepQuality    *int     `json:"sleepQuality" validate:"omitempty,min=1,max=5"`
	ExerciseMinutes *int     `json:"exerciseMinutes" validate:"omitempty,min=0"`
	Weather         *string  `json:"weather" validate:"omitempty,oneof=sunny cloudy rainy snowy windy"`
	Location        *string  `json:"location" validate:"omitempty,oneof=home work outdoors travel other"`
	IsPrivate       bool     `json:"isPrivate"`
}

// MoodFilter selects a page of one account's entries.
type MoodFilter struct {
	UserID int64
	Start  time.Time
	End    time.Time
	Mood   int
	Tag    string
	Offset int
	Limit  int
}
