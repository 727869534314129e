package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mindcare-api/internal/models"
	"mindcare-api/internal/responses"
	"mindcare-api/internal/services"
)

func CreateMoodEntry(mood *services.MoodService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.MoodEntryRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		entry, err := mood.Create(r.Context(), currentUser(r).ID, req)
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendSuccessResponse(w, http.StatusCreated, entry)
	}
}

func GetMoodEntries(mood *services.MoodService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := services.ListQuery{
			Page:      queryInt(r, "page", 1),
			Limit:     queryInt(r, "limit", services.DefaultPageLimit),
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
			Tag:       q.Get("tag"),
		}
		if raw := q.Get("mood"); raw != "" {
			score, err := strconv.Atoi(raw)
			if err != nil || models.MoodLabel(score) == "" {
				responses.SendErrorResponse(w, http.StatusBadRequest, "Mood must be between 1 and 5")
				return
			}
			query.Mood = score
		}

		page, err := mood.List(r.Context(), currentUser(r).ID, query)
		if err != nil {
			er.Send(w, r, err)
			return
		}

		responses.SendJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"count":      len(page.Entries),
			"total":      page.Total,
			"pagination": page.Pagination,
			"data":       page.Entries,
			"stats":      page.Stats,
			"trends":     page.Trends,
		})
	}
}

func GetMoodEntry(mood *services.MoodService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		entry, err := mood.Get(r.Context(), currentUser(r).ID, id)
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendSuccessResponse(w, http.StatusOK, entry)
	}
}

func UpdateMoodEntry(mood *services.MoodService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req models.MoodEntryRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		entry, err := mood.Update(r.Context(), currentUser(r), id, req)
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendSuccessResponse(w, http.StatusOK, entry)
	}
}

func DeleteMoodEntry(mood *services.MoodService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := mood.Delete(r.Context(), currentUser(r).ID, id); err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendSuccessResponse(w, http.StatusOK, struct{}{})
	}
}

func GetMoodStatistics(mood *services.MoodService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		report, err := mood.Statistics(r.Context(), currentUser(r).ID, q.Get("startDate"), q.Get("endDate"))
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendSuccessResponse(w, http.StatusOK, report)
	}
}

func ExportMoodData(mood *services.MoodService, loc *time.Location, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		entries, err := mood.Export(r.Context(), currentUser(r).ID, q.Get("startDate"), q.Get("endDate"))
		if err != nil {
			er.Send(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=mood-data-%d.csv", time.Now().UnixMilli()))
		w.WriteHeader(http.StatusOK)
		if err := services.WriteMoodCSV(w, entries, loc); err != nil {
			er.Log.WithError(err).Error("Failed to write mood export")
		}
	}
}
