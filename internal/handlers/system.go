package handlers

import (
	"net/http"
	"time"

	"mindcare-api/internal/repository"
	"mindcare-api/internal/responses"

	"github.com/sirupsen/logrus"
)

// Health reports liveness. A failing store ping is logged but does not fail the check.
func Health(store repository.Store, started time.Time, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			log.WithError(err).Warn("Health check: store ping failed")
		}
		responses.SendJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"message":   "MindCare API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"uptime":    time.Since(started).Seconds(),
		})
	}
}

func Index(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.SendJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "MindCare Mental Health Platform API",
			"version": "1.0.0",
			"endpoints": map[string]string{
				"auth":   prefix + "/auth",
				"mood":   prefix + "/mood",
				"admin":  prefix + "/admin",
				"health": prefix + "/health",
			},
		})
	}
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	responses.SendErrorResponse(w, http.StatusNotFound, "Route not found")
}
