package handlers

import (
	"net/http"
	"time"

	"mindcare-api/internal/config"
	"mindcare-api/internal/metrics"
	"mindcare-api/internal/models"
	"mindcare-api/internal/ratelimit"
	"mindcare-api/internal/repository"
	"mindcare-api/internal/responses"
	"mindcare-api/internal/services"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Deps is everything the router needs to build its handlers.
type Deps struct {
	Config       *config.Config
	Store        repository.Store
	Auth         *services.AuthService
	Mood         *services.MoodService
	Metrics      *metrics.Metrics
	APILimiter   ratelimit.Limiter
	LoginLimiter ratelimit.Limiter
	Log          logrus.FieldLogger
	Location     *time.Location
	Started      time.Time
}

const (
	apiLimitMessage   = "Too many requests from this IP, please try again later."
	loginLimitMessage = "Too many login attempts, please try again later."
)

func NewRouter(d Deps) *mux.Router {
	er := responses.ErrorReporter{Log: d.Log, Production: d.Config.IsProduction()}
	protect := Protect(d.Auth, er)

	router := mux.NewRouter()
	router.Use(Recoverer(er), RequestLogger(d.Log), d.Metrics.Middleware, BodyLimit)
	router.NotFoundHandler = http.HandlerFunc(NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(NotFound)

	router.Handle("/metrics", d.Metrics.Handler()).Methods("GET")

	api := router.PathPrefix(d.Config.APIPrefix).Subrouter()
	api.Use(RateLimitMiddleware(d.APILimiter, "api", apiLimitMessage, d.Metrics, d.Log))
	api.HandleFunc("", Index(d.Config.APIPrefix)).Methods("GET")
	api.HandleFunc("/", Index(d.Config.APIPrefix)).Methods("GET")
	api.HandleFunc("/health", Health(d.Store, d.Started, d.Log)).Methods("GET")

	// Auth routes
	authRouter := api.PathPrefix("/auth").Subrouter()
	{
		loginLimit := RateLimitMiddleware(d.LoginLimiter, "login", loginLimitMessage, d.Metrics, d.Log)

		authRouter.HandleFunc("/register", Register(d.Auth, er)).Methods("POST")
		authRouter.Handle("/login", loginLimit(Login(d.Auth, d.Config, er))).Methods("POST")
		authRouter.HandleFunc("/forgotpassword", ForgotPassword(d.Auth, er)).Methods("POST")
		authRouter.HandleFunc("/resetpassword/{token}", ResetPassword(d.Auth, er)).Methods("PUT")
		authRouter.HandleFunc("/verify-email/{token}", VerifyEmail(d.Auth, er)).Methods("GET")

		authRouter.Handle("/logout", protect(Logout(d.Auth, er))).Methods("GET")
		authRouter.Handle("/me", protect(GetMe(d.Auth, er))).Methods("GET")
		authRouter.Handle("/updatedetails", protect(UpdateDetails(d.Auth, er))).Methods("PUT")
		authRouter.Handle("/updatepassword", protect(UpdatePassword(d.Auth, er))).Methods("PUT")
		authRouter.Handle("/resend-verification", protect(ResendVerification(d.Auth, er))).Methods("POST")
	}

	// Mood journal routes
	moodRouter := api.PathPrefix("/mood").Subrouter()
	moodRouter.Use(protect)
	{
		moodRouter.HandleFunc("", CreateMoodEntry(d.Mood, er)).Methods("POST")
		moodRouter.HandleFunc("", GetMoodEntries(d.Mood, er)).Methods("GET")
		moodRouter.HandleFunc("/stats", GetMoodStatistics(d.Mood, er)).Methods("GET")
		moodRouter.HandleFunc("/export", ExportMoodData(d.Mood, d.Location, er)).Methods("GET")
		moodRouter.HandleFunc("/{id:[0-9]+}", GetMoodEntry(d.Mood, er)).Methods("GET")
		moodRouter.HandleFunc("/{id:[0-9]+}", UpdateMoodEntry(d.Mood, er)).Methods("PUT")
		moodRouter.HandleFunc("/{id:[0-9]+}", DeleteMoodEntry(d.Mood, er)).Methods("DELETE")
	}

	// Admin routes
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(protect, Authorize(er, models.RoleAdmin))
	{
		adminRouter.HandleFunc("/users/{id:[0-9]+}/unlock", UnlockAccount(d.Auth, er)).Methods("PUT")
	}

	return router
}
