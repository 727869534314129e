package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mindcare-api/internal/apperror"
	"mindcare-api/internal/logging"
	"mindcare-api/internal/metrics"
	"mindcare-api/internal/models"
	"mindcare-api/internal/ratelimit"
	"mindcare-api/internal/responses"
	"mindcare-api/internal/services"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	userKey contextKey = "user"

	tokenCookie   = "token"
	maxBodyBytes  = 10 << 20
	requestHeader = "X-Request-ID"
)

func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey).(*models.User)
	return user
}

// bearerToken reads the Authorization header first, then the token cookie.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(tokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Protect resolves the session token to an account and stores it on the request context.
func Protect(auth *services.AuthService, er responses.ErrorReporter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				if kind := apperror.KindOf(err); kind == apperror.KindInvalidToken || kind == apperror.KindTokenExpired {
					logging.FromContext(r.Context(), er.Log).WithField("reason", kind.String()).Info("Rejected session token")
				}
				er.Send(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize admits only accounts holding one of roles. It must run after Protect.
func Authorize(er responses.ErrorReporter, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r)
			if user == nil {
				er.Send(w, r, apperror.Unauthenticated("Not authorized to access this route"))
				return
			}
			if err := services.Authorize(user, roles...); err != nil {
				er.Send(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware rejects callers over their budget with 429. Limiter
// backend failures let the request through.
func RateLimitMiddleware(limiter ratelimit.Limiter, name, message string, m *metrics.Metrics, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ratelimit.ClientIP(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logging.FromContext(r.Context(), log).WithError(err).WithField("limiter", name).Warn("Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				m.RateLimited(name)
				logging.FromContext(r.Context(), log).WithFields(logrus.Fields{
					"limiter": name,
					"key":     key,
					"path":    r.URL.Path,
				}).Warn("Rate limit exceeded")
				responses.SendErrorResponse(w, http.StatusTooManyRequests, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger tags each request with an id and logs its outcome.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(logging.WithRequestID(r.Context(), id)))

			log.WithFields(logrus.Fields{
				"request_id": id,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start).String(),
				"ip":         ratelimit.ClientIP(r),
			}).Info("HTTP request")
		})
	}
}

// BodyLimit caps request bodies.
func BodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// Recoverer turns a panic into a 500 response.
func Recoverer(er responses.ErrorReporter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logging.FromContext(r.Context(), er.Log).WithField("panic", rec).Error("Recovered from panic")
					responses.SendErrorResponse(w, http.StatusInternalServerError, "Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
