// Package moodstats aggregates mood journal entries into dashboard reports.
// Every function is pure and recomputed per request.
package moodstats

import (
	"math"
	"sort"
	"time"

	"mindcare-api/internal/models"
)

const topLimit = 10

type Overall struct {
	AverageMood  float64     `json:"averageMood"`
	TotalEntries int         `json:"totalEntries"`
	BestDay      int         `json:"bestDay"`
	WorstDay     int         `json:"worstDay"`
	Distribution map[int]int `json:"distribution"`
}

type DayAverage struct {
	Date        string  `json:"date"`
	AverageMood float64 `json:"averageMood"`
	Count       int     `json:"count"`
}

// GroupAverage is keyed by day of week (1 Sunday .. 7 Saturday) or hour (0..23).
type GroupAverage struct {
	Key         int     `json:"id"`
	AverageMood float64 `json:"averageMood"`
	Count       int     `json:"count"`
}

type Correlation struct {
	Correlation float64 `json:"correlation"`
	Count       int     `json:"count"`
}

type Frequency struct {
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	AverageMood float64 `json:"averageMood"`
}

type Report struct {
	Overall          Overall        `json:"overall"`
	ByDayOfWeek      []GroupAverage `json:"byDayOfWeek"`
	ByHour           []GroupAverage `json:"byHour"`
	SleepCorrelation Correlation    `json:"sleepCorrelation"`
	TopTags          []Frequency    `json:"topTags"`
	TopActivities    []Frequency    `json:"topActivities"`
	Trends           []DayAverage   `json:"trends"`
}

// Summarize computes the overall aggregate. No entries yields all zeros.
func Summarize(entries []*models.MoodEntry) Overall {
	out := Overall{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	if len(entries) == 0 {
		return out
	}

	sum := 0
	out.BestDay = entries[0].Mood
	out.WorstDay = entries[0].Mood
	for _, e := range entries {
		sum += e.Mood
		out.Distribution[e.Mood]++
		if e.Mood > out.BestDay {
			out.BestDay = e.Mood
		}
		if e.Mood < out.WorstDay {
			out.WorstDay = e.Mood
		}
	}
	out.TotalEntries = len(entries)
	out.AverageMood = round2(float64(sum) / float64(len(entries)))
	return out
}

// Trends averages entries per calendar day in loc, ascending by date.
func Trends(entries []*models.MoodEntry, loc *time.Location) []DayAverage {
	groups := map[string]*accumulator{}
	for _, e := range entries {
		day := e.CreatedAt.In(loc).Format("2006-01-02")
		acc, ok := groups[day]
		if !ok {
			acc = &accumulator{}
			groups[day] = acc
		}
		acc.add(e.Mood)
	}

	out := make([]DayAverage, 0, len(groups))
	for day, acc := range groups {
		out = append(out, DayAverage{Date: day, AverageMood: acc.mean(), Count: acc.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func ByDayOfWeek(entries []*models.MoodEntry, loc *time.Location) []GroupAverage {
	return groupBy(entries, func(e *models.MoodEntry) int {
		return int(e.CreatedAt.In(loc).Weekday()) + 1
	})
}

func ByHour(entries []*models.MoodEntry, loc *time.Location) []GroupAverage {
	return groupBy(entries, func(e *models.MoodEntry) int {
		return e.CreatedAt.In(loc).Hour()
	})
}

func groupBy(entries []*models.MoodEntry, key func(*models.MoodEntry) int) []GroupAverage {
	groups := map[int]*accumulator{}
	for _, e := range entries {
		k := key(e)
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{}
			groups[k] = acc
		}
		acc.add(e.Mood)
	}

	out := make([]GroupAverage, 0, len(groups))
	for k, acc := range groups {
		out = append(out, GroupAverage{Key: k, AverageMood: acc.mean(), Count: acc.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SleepCorrelation is the Pearson coefficient between sleep hours and mood
// over the entries that recorded sleep.
func SleepCorrelation(entries []*models.MoodEntry) Correlation {
	var xs, ys []float64
	for _, e := range entries {
		if e.SleepHours == nil {
			continue
		}
		xs = append(xs, *e.SleepHours)
		ys = append(ys, float64(e.Mood))
	}
	return Correlation{Correlation: round2(Pearson(xs, ys)), Count: len(xs)}
}

// Pearson returns 0 for fewer than two points or when either series is constant.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}

	var meanX, meanY float64
	for i := 0; i < n; i++ {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func TopTags(entries []*models.MoodEntry) []Frequency {
	return topValues(entries, func(e *models.MoodEntry) []string { return e.Tags })
}

func TopActivities(entries []*models.MoodEntry) []Frequency {
	return topValues(entries, func(e *models.MoodEntry) []string { return e.Activities })
}

// topValues ranks by count, then name, and keeps the first ten.
func topValues(entries []*models.MoodEntry, values func(*models.MoodEntry) []string) []Frequency {
	groups := map[string]*accumulator{}
	for _, e := range entries {
		for _, v := range values(e) {
			acc, ok := groups[v]
			if !ok {
				acc = &accumulator{}
				groups[v] = acc
			}
			acc.add(e.Mood)
		}
	}

	out := make([]Frequency, 0, len(groups))
	for name, acc := range groups {
		out = append(out, Frequency{Name: name, Count: acc.count, AverageMood: acc.mean()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topLimit {
		out = out[:topLimit]
	}
	return out
}

// Compute builds the full report for the entries of one range. weekly feeds
// the trailing seven-day trend.
func Compute(entries, weekly []*models.MoodEntry, loc *time.Location) Report {
	return Report{
		Overall:          Summarize(entries),
		ByDayOfWeek:      ByDayOfWeek(entries, loc),
		ByHour:           ByHour(entries, loc),
		SleepCorrelation: SleepCorrelation(entries),
		TopTags:          TopTags(entries),
		TopActivities:    TopActivities(entries),
		Trends:           Trends(weekly, loc),
	}
}

type accumulator struct {
	sum   int
	count int
}

func (a *accumulator) add(mood int) {
	a.sum += mood
	a.count++
}

func (a *accumulator) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return round2(float64(a.sum) / float64(a.count))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
