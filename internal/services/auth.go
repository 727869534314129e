package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindcare-api/internal/apperror"
	"mindcare-api/internal/metrics"
	"mindcare-api/internal/models"
	"mindcare-api/internal/repository"
	"mindcare-api/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid or expired token"
	msgEmailNotSent       = "Email could not be sent"
	msgEmailRegistered    = "Email already registered"

	// presenceRefresh throttles last-seen writes from authenticated requests.
	presenceRefresh = time.Minute
)

// AuthResult is an account plus a freshly signed session token.
type AuthResult struct {
	User  *models.User
	Token string
}

type AuthService struct {
	users      repository.UserRepository
	jwt        *utils.JWTUtil
	email      *EmailService
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	jwtUtil *utils.JWTUtil,
	email *EmailService,
	m *metrics.Metrics,
	log logrus.FieldLogger,
	bcryptCost int,
) *AuthService {
	return &AuthService{
		users:      users,
		jwt:        jwtUtil,
		email:      email,
		metrics:    m,
		log:        log,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// WithClock replaces the time source; lockout and token expiry are evaluated against it.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict(msgEmailRegistered)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	role := models.RoleMember
	if req.UserType != "" {
		parsed, err := models.ParseRole(req.UserType)
		if err != nil || !parsed.SelfAssignable() {
			return nil, apperror.Validation("Invalid user type")
		}
		role = parsed
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       email,
		Password:    hash,
		Role:        role,
		Avatar:      models.DefaultAvatar,
		Interests:   nonNilStrings(req.Interests),
		Preferences: models.DefaultPreferences(),
		IsActive:    true,
		LastSeen:    now,
		CreatedAt:   now,
	}
	if req.EmailNotifications != nil {
		user.Preferences.EmailNotifications = *req.EmailNotifications
	}
	if req.Newsletter != nil {
		user.Preferences.Newsletter = *req.Newsletter
	}
	if req.DateOfBirth != nil {
		dob, err := utils.ParseDate(*req.DateOfBirth, time.UTC)
		if err != nil {
			return nil, apperror.Validation("Invalid date of birth")
		}
		user.DateOfBirth = &dob
	}

	verificationToken, err := s.issueVerificationToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperror.Conflict(msgEmailRegistered)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if user.Preferences.EmailNotifications {
		if err := s.email.SendWelcome(ctx, user); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("Welcome email failed")
		}
		if err := s.email.SendVerification(ctx, user, verificationToken, false); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("Verification email failed")
		}
	}

	return s.withToken(user)
}

// Login enforces the lockout policy: five consecutive failures lock the
// account for two hours, and a locked account rejects even the right password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.LoginAttempt("unknown_email")
		return nil, apperror.New(apperror.KindInvalidCredentials, msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if user.IsLocked(now) {
		s.metrics.LoginAttempt("locked")
		return nil, apperror.New(apperror.KindAccountLocked,
			fmt.Sprintf("Account is temporarily locked. Try again in %d minutes", user.LockMinutesRemaining(now)))
	}

	if !user.IsActive {
		s.metrics.LoginAttempt("deactivated")
		return nil, apperror.New(apperror.KindAccountDeactivated, "Account is deactivated")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, s.failLogin(ctx, user, now)
	}

	user.ResetLoginAttempts()
	user.IsOnline = true
	user.LastSeen = now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	s.metrics.LoginAttempt("success")

	return s.withToken(user)
}

func (s *AuthService) failLogin(ctx context.Context, user *models.User, now time.Time) error {
	locked := user.RegisterFailedLogin(now)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}

	if locked {
		s.metrics.LoginAttempt("locked")
		s.metrics.Lockout()
		s.log.WithFields(logrus.Fields{
			"user_id":    user.ID,
			"lock_until": user.LockUntil,
		}).Warn("Account locked after repeated failed logins")
		return apperror.New(apperror.KindAccountLocked,
			"Account locked due to too many failed attempts. Try again in 2 hours")
	}

	s.metrics.LoginAttempt("failure")
	return apperror.New(apperror.KindInvalidCredentials,
		fmt.Sprintf("%s. %d attempts left", msgInvalidCredentials, user.AttemptsLeft()))
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	user.IsOnline = false
	user.LastSeen = s.now()
	return s.users.UpdateUser(ctx, user)
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.getUser(ctx, userID)
}

func (s *AuthService) UpdateDetails(ctx context.Context, userID int64, req models.UpdateDetailsRequest) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			existing, err := s.users.GetUserByEmail(ctx, email)
			if err == nil && existing.ID != user.ID {
				return nil, apperror.Conflict(msgEmailRegistered)
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}
	if req.DateOfBirth != nil {
		dob, err := utils.ParseDate(*req.DateOfBirth, time.UTC)
		if err != nil {
			return nil, apperror.Validation("Invalid date of birth")
		}
		user.DateOfBirth = &dob
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Location != nil {
		user.Location = *req.Location
	}
	if req.Interests != nil {
		user.Interests = req.Interests
	}
	if req.EmailNotifications != nil {
		user.Preferences.EmailNotifications = *req.EmailNotifications
	}
	if req.Newsletter != nil {
		user.Preferences.Newsletter = *req.Newsletter
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperror.Conflict(msgEmailRegistered)
		}
		return nil, fmt.Errorf("update details: %w", err)
	}
	return user, nil
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID int64, req models.UpdatePasswordRequest) (*AuthResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		return nil, apperror.New(apperror.KindInvalidCredentials, "Current password is incorrect")
	}

	if err := s.setPassword(user, req.NewPassword); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	if err := s.email.SendPasswordChanged(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Password change email failed")
	}
	return s.withToken(user)
}

// ForgotPassword issues a ten-minute reset token and emails it. A delivery
// failure withdraws the token again.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("No user found with that email")
	}
	if err != nil {
		return err
	}

	plain, hashed, err := utils.GenerateToken()
	if err != nil {
		return err
	}
	user.SetResetToken(hashed, s.now().Add(models.ResetTokenTTL))
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	s.metrics.TokenEvent("reset", "issued")

	if err := s.email.SendPasswordReset(ctx, user, plain); err != nil {
		user.ClearResetToken()
		if uerr := s.users.UpdateUser(ctx, user); uerr != nil {
			s.log.WithError(uerr).WithField("user_id", user.ID).Error("Failed to withdraw reset token")
		}
		return apperror.Wrap(apperror.KindInternal, msgEmailNotSent, err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) (*AuthResult, error) {
	user, err := s.users.GetUserByResetToken(ctx, utils.HashToken(token), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.TokenEvent("reset", "rejected")
		s.log.Warn("Rejected invalid or expired reset token")
		return nil, apperror.New(apperror.KindInvalidOrExpiredToken, msgInvalidToken)
	}
	if err != nil {
		return nil, err
	}

	if err := s.setPassword(user, req.Password); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	s.metrics.TokenEvent("reset", "redeemed")

	if err := s.email.SendPasswordResetConfirmation(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Reset confirmation email failed")
	}
	return s.withToken(user)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.GetUserByVerificationToken(ctx, utils.HashToken(token), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.TokenEvent("verification", "rejected")
		return apperror.New(apperror.KindInvalidOrExpiredToken, msgInvalidToken)
	}
	if err != nil {
		return err
	}

	user.IsEmailVerified = true
	user.ClearVerificationToken()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	s.metrics.TokenEvent("verification", "redeemed")
	return nil
}

func (s *AuthService) ResendVerification(ctx context.Context, userID int64) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return apperror.Validation("Email is already verified")
	}

	plain, err := s.issueVerificationToken(user)
	if err != nil {
		return err
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	if err := s.email.SendVerification(ctx, user, plain, true); err != nil {
		return apperror.Wrap(apperror.KindInternal, msgEmailNotSent, err)
	}
	return nil
}

// Authenticate resolves a session token to an active account.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperror.Unauthenticated("Not authorized to access this route")
	}

	claims, err := s.jwt.ValidateToken(token)
	if errors.Is(err, utils.ErrTokenExpired) {
		return nil, apperror.New(apperror.KindTokenExpired, "Token expired")
	}
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidToken, "Invalid token")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Unauthenticated("User not found")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.New(apperror.KindAccountDeactivated, "Account is deactivated")
	}

	s.touch(ctx, user)
	return user, nil
}

// touch records activity so the idle job keeps active accounts online.
// A failed write is logged and does not reject the request.
func (s *AuthService) touch(ctx context.Context, user *models.User) {
	now := s.now()
	if user.IsOnline && now.Sub(user.LastSeen) < presenceRefresh {
		return
	}
	user.IsOnline = true
	user.LastSeen = now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Could not record activity")
	}
}

// Authorize fails with Forbidden unless the account holds one of roles.
func Authorize(user *models.User, roles ...models.Role) error {
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return apperror.Forbidden(fmt.Sprintf("User role %s is not authorized to access this route", user.Role))
}

// UnlockAccount clears a lockout ahead of its expiry.
func (s *AuthService) UnlockAccount(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.ResetLoginAttempts()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("unlock account: %w", err)
	}
	s.log.WithField("user_id", user.ID).Info("Account unlocked by administrator")
	return user, nil
}

func (s *AuthService) getUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("User not found")
	}
	return user, err
}

// setPassword replaces the credential and withdraws any standing reset token.
func (s *AuthService) setPassword(user *models.User, password string) error {
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hash
	user.ClearResetToken()
	return nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) issueVerificationToken(user *models.User) (string, error) {
	plain, hashed, err := utils.GenerateToken()
	if err != nil {
		return "", err
	}
	user.SetVerificationToken(hashed, s.now().Add(models.VerificationTokenTTL))
	s.metrics.TokenEvent("verification", "issued")
	return plain, nil
}

func (s *AuthService) withToken(user *models.User) (*AuthResult, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Role.String())
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
