package services

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"mindcare-api/internal/config"
	"mindcare-api/internal/models"

	"github.com/sirupsen/logrus"
)

// Mailer delivers one HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends through net/smtp with PLAIN auth.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	headers := [][2]string{
		{"From", m.from},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=\"utf-8\""},
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	message.WriteString("\r\n" + htmlBody)

	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, []byte(message.String()))
}

// LogMailer only logs outgoing mail; used when no SMTP host is configured.
type LogMailer struct {
	log logrus.FieldLogger
}

func NewLogMailer(log logrus.FieldLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email not sent: SMTP is not configured")
	return nil
}

// NewMailer picks SMTP when a host is configured.
func NewMailer(cfg *config.Config, log logrus.FieldLogger) Mailer {
	if cfg.SMTPHost == "" {
		return NewLogMailer(log)
	}
	return NewSMTPMailer(cfg)
}

// EmailService renders the account notification emails.
type EmailService struct {
	mailer    Mailer
	clientURL string
	publicURL string
	apiPrefix string
}

func NewEmailService(cfg *config.Config, mailer Mailer) *EmailService {
	return &EmailService{
		mailer:    mailer,
		clientURL: strings.TrimRight(cfg.ClientURL, "/"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		apiPrefix: cfg.APIPrefix,
	}
}

func (es *EmailService) SendWelcome(ctx context.Context, user *models.User) error {
	body := layout("Welcome to MindCare", fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Thank you for joining our community of support and healing.</p>
		<p>With MindCare you can track your mood and emotional patterns over time.</p>
		<p><a href="%s/dashboard">Go to Your Dashboard</a></p>`,
		html.EscapeString(user.FirstName), es.clientURL))
	return es.mailer.Send(ctx, user.Email, "Welcome to MindCare - Start Your Wellness Journey", body)
}

func (es *EmailService) SendVerification(ctx context.Context, user *models.User, token string, resend bool) error {
	link := es.apiURL("/auth/verify-email/" + token)
	body := layout("Verify Your Email", fmt.Sprintf(`
		<p>Please click the link below to verify your email address:</p>
		<p><a href="%s">Verify Email</a></p>
		<p>This link will expire in 24 hours.</p>`, link))

	subject := "Verify Your Email - MindCare"
	if resend {
		subject = "Resend: " + subject
	}
	return es.mailer.Send(ctx, user.Email, subject, body)
}

func (es *EmailService) SendPasswordReset(ctx context.Context, user *models.User, token string) error {
	link := es.apiURL("/auth/resetpassword/" + token)
	body := layout("Password Reset Request", fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>You requested a password reset. Use the link below to choose a new password:</p>
		<p><a href="%s">Reset Password</a></p>
		<p>This link will expire in 10 minutes.</p>
		<p>If you didn't request this, please ignore this email.</p>`, html.EscapeString(user.FirstName), link))
	return es.mailer.Send(ctx, user.Email, "Password Reset Request - MindCare", body)
}

func (es *EmailService) SendPasswordChanged(ctx context.Context, user *models.User) error {
	body := layout("Password Changed", fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Your password was changed successfully.</p>
		<p>If you did not make this change, please reset your password immediately.</p>`, html.EscapeString(user.FirstName)))
	return es.mailer.Send(ctx, user.Email, "Password Changed - MindCare", body)
}

func (es *EmailService) SendPasswordResetConfirmation(ctx context.Context, user *models.User) error {
	body := layout("Password Reset Successful", fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Your password has been reset. You can now log in with your new password.</p>`, html.EscapeString(user.FirstName)))
	return es.mailer.Send(ctx, user.Email, "Password Reset Confirmation - MindCare", body)
}

func (es *EmailService) apiURL(path string) string {
	return es.publicURL + es.apiPrefix + path
}

func layout(title, content string) string {
	return fmt.Sprintf(`
	<html>
	<body>
		<h1>%s</h1>
		%s
		<p>The MindCare Team</p>
	</body>
	</html>
	`, title, content)
}
