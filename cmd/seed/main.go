// Command seed fills the database with demo accounts and a mood history for each.
package main

import (
	"context"
	"flag"
	"time"

	"mindcare-api/internal/config"
	"mindcare-api/internal/database"
	"mindcare-api/internal/logging"
	"mindcare-api/internal/metrics"
	"mindcare-api/internal/models"
	"mindcare-api/internal/repository"
	"mindcare-api/internal/services"
	"mindcare-api/internal/utils"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const demoPassword = "Password123"

func main() {
	users := flag.Int("users", 10, "number of member accounts to create")
	days := flag.Int("days", 60, "days of mood history per account")
	adminEmail := flag.String("admin", "admin@mindcare.local", "email of the admin account (empty to skip)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	ctx := context.Background()

	db, err := database.NewDatabase(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()
	store := repository.NewPostgresRepository(db.DB)

	m := metrics.New()
	mailer := services.NewLogMailer(log)
	auth := services.NewAuthService(store, utils.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpiration),
		services.NewEmailService(cfg, mailer), m, log, bcrypt.MinCost)

	if *adminEmail != "" {
		if err := seedAdmin(ctx, store, *adminEmail); err != nil {
			log.WithError(err).Warn("Admin account not created")
		}
	}

	now := time.Now()
	var entries int
	for i := 0; i < *users; i++ {
		res, err := auth.Register(ctx, models.RegisterRequest{
			FirstName:          gofakeit.FirstName(),
			LastName:           gofakeit.LastName(),
			Email:              gofakeit.Email(),
			Password:           demoPassword,
			Interests:          []string{gofakeit.RandomString(models.Interests)},
			EmailNotifications: boolPtr(false),
		})
		if err != nil {
			log.WithError(err).Warn("Error inserting fake account")
			continue
		}

		for d := *days; d >= 0; d-- {
			if gofakeit.Number(1, 10) > 8 {
				continue
			}
			at := now.AddDate(0, 0, -d).Add(time.Duration(gofakeit.Number(-6, 6)) * time.Hour)
			mood := services.NewMoodService(store, m, log, cfg.Timezone).
				WithClock(func() time.Time { return at })
			if _, err := mood.Create(ctx, res.User.ID, fakeEntry()); err != nil {
				log.WithError(err).WithField("user_id", res.User.ID).Debug("Skipped mood entry")
				continue
			}
			entries++
		}
	}

	log.WithFields(logrus.Fields{
		"users":   *users,
		"entries": entries,
	}).Infof("Fake data generation complete! Demo password: %s", demoPassword)
}

func seedAdmin(ctx context.Context, store repository.UserRepository, email string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return store.CreateUser(ctx, &models.User{
		FirstName:       "MindCare",
		LastName:        "Admin",
		Email:           email,
		Password:        string(hash),
		Role:            models.RoleAdmin,
		Avatar:          models.DefaultAvatar,
		Interests:       []string{},
		Preferences:     models.DefaultPreferences(),
		IsEmailVerified: true,
		IsActive:        true,
		LastSeen:        time.Now(),
	})
}

func fakeEntry() models.MoodEntryRequest {
	mood := gofakeit.Number(1, 5)
	sleep := float64(gofakeit.Number(8, 20)) / 2
	quality := gofakeit.Number(1, 5)
	exercise := gofakeit.Number(0, 90)
	weather := gofakeit.RandomString([]string{"sunny", "cloudy", "rainy", "snowy", "windy"})

	return models.MoodEntryRequest{
		Mood:            &mood,
		Notes:           gofakeit.Sentence(10),
		Tags:            []string{gofakeit.RandomString(models.MoodTags)},
		Activities:      []string{gofakeit.RandomString(models.MoodActivities)},
		SleepHours:      &sleep,
		SleepQuality:    &quality,
		ExerciseMinutes: &exercise,
		Weather:         &weather,
	}
}

func boolPtr(v bool) *bool { return &v }
