package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"mindcare-api/internal/config"
	"mindcare-api/internal/logging"
	"mindcare-api/internal/metrics"
	"mindcare-api/internal/repository"
	"mindcare-api/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

var tokenInLink = regexp.MustCompile(`/(?:resetpassword|verify-email)/([0-9a-f]{40})`)

// lastToken pulls the plain token out of the most recent link email.
func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if match := tokenInLink.FindStringSubmatch(m.sent[i].Body); match != nil {
			return match[1]
		}
	}
	t.Fatal("no token email sent")
	return ""
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store  *repository.MemoryStore
	mailer *recordingMailer
	clock  *clock
	auth   *AuthService
	mood   *MoodService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		ClientURL: "http://localhost:3000",
		PublicURL: "http://localhost:5000",
		APIPrefix: "/api/v1",
	}
	store := repository.NewMemoryStore()
	mailer := &recordingMailer{}
	clk := &clock{now: time.Now()}
	m := metrics.New()
	log := logging.Discard()

	auth := NewAuthService(store, utils.NewJWTUtil("test-secret", time.Hour), NewEmailService(cfg, mailer), m, log, bcrypt.MinCost).
		WithClock(clk.Now)
	mood := NewMoodService(store, m, log, time.UTC).WithClock(clk.Now)

	return &fixture{store: store, mailer: mailer, clock: clk, auth: auth, mood: mood}
}

var errSMTP = errors.New("smtp unavailable")

func ptr[T any](v T) *T { return &v }
