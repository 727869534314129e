// internal/models/user.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
)

const (
	MaxLoginAttempts     = 5
	LockDuration         = 2 * time.Hour
	ResetTokenTTL        = 10 * time.Minute
	VerificationTokenTTL = 24 * time.Hour
	DefaultAvatar        = "default-avatar.png"
)

type User struct {
	ID                      int64          `json:"id" db:"id"`
	FirstName               string         `json:"firstName" db:"first_name"`
	LastName                string         `json:"lastName" db:"last_name"`
	Email                   string         `json:"email" db:"email"`
	Password                string         `json:"-" db:"password"`
	DateOfBirth             *time.Time     `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	Role                    Role           `json:"role" db:"role"`
	Avatar                  string         `json:"avatar" db:"avatar"`
	Phone                   string         `json:"phone,omitempty" db:"phone"`
	Bio                     string         `json:"bio,omitempty" db:"bio"`
	Location                Location       `json:"location" db:"location"`
	Interests               pq.StringArray `json:"interests" db:"interests"`
	Preferences             Preferences    `json:"preferences" db:"preferences"`
	IsEmailVerified         bool           `json:"isEmailVerified" db:"is_email_verified"`
	IsActive                bool           `json:"isActive" db:"is_active"`
	IsOnline                bool           `json:"isOnline" db:"is_online"`
	LastSeen                time.Time      `json:"lastSeen" db:"last_seen"`
	ResetPasswordToken      *string        `json:"-" db:"reset_password_token"`
	ResetPasswordExpire     *time.Time     `json:"-" db:"reset_password_expire"`
	EmailVerificationToken  *string        `json:"-" db:"email_verification_token"`
	EmailVerificationExpire *time.Time     `json:"-" db:"email_verification_expire"`
	LoginAttempts           int            `json:"-" db:"login_attempts"`
	LockUntil               *time.Time     `json:"-" db:"lock_until"`
	CreatedAt               time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time      `json:"updatedAt" db:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsLocked reports whether a lock window is still running at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// LockMinutesRemaining rounds the remaining lock window up to whole minutes.
func (u *User) LockMinutesRemaining(now time.Time) int {
	if !u.IsLocked(now) {
		return 0
	}
	return int(math.Ceil(u.LockUntil.Sub(now).Minutes()))
}

// RegisterFailedLogin applies one failed attempt and reports whether the account is now locked.
// An elapsed lock restarts counting from 1.
func (u *User) RegisterFailedLogin(now time.Time) bool {
	if u.LockUntil != nil && !u.LockUntil.After(now) {
		u.LoginAttempts = 1
		u.LockUntil = nil
		return false
	}

	u.LoginAttempts++
	if u.LoginAttempts >= MaxLoginAttempts && !u.IsLocked(now) {
		until := now.Add(LockDuration)
		u.LockUntil = &until
	}
	return u.IsLocked(now)
}

// AttemptsLeft is the number of failures allowed before the account locks.
func (u *User) AttemptsLeft() int {
	left := MaxLoginAttempts - u.LoginAttempts
	if left < 0 {
		return 0
	}
	return left
}

func (u *User) ResetLoginAttempts() {
	u.LoginAttempts = 0
	u.LockUntil = nil
}

func (u *User) SetResetToken(hash string, expires time.Time) {
	u.ResetPasswordToken = &hash
	u.ResetPasswordExpire = &expires
}

func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpire = nil
}

func (u *User) SetVerificationToken(hash string, expires time.Time) {
	u.EmailVerificationToken = &hash
	u.EmailVerificationExpire = &expires
}

func (u *User) ClearVerificationToken() {
	u.EmailVerificationToken = nil
	u.EmailVerificationExpire = nil
}

// Response is the trimmed account view returned by register and login.
func (u *User) Response() UserResponse {
	return UserResponse{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Role:            u.Role,
		Avatar:          u.Avatar,
		IsEmailVerified: u.IsEmailVerified,
		Preferences:     u.Preferences,
	}
}

type UserResponse struct {
	ID              int64       `json:"id"`
	FirstName       string      `json:"firstName"`
	LastName        string      `json:"lastName"`
	Email           string      `json:"email"`
	Role            Role        `json:"role"`
	Avatar          string      `json:"avatar"`
	IsEmailVerified bool        `json:"isEmailVerified"`
	Preferences     Preferences `json:"preferences"`
}

type Location struct {
	Country  string `json:"country,omitempty"`
	State    string `json:"state,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

func (l Location) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *Location) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type Preferences struct {
	EmailNotifications bool   `json:"emailNotifications"`
	PushNotifications  bool   `json:"pushNotifications"`
	Newsletter         bool   `json:"newsletter"`
	PrivacyLevel       string `json:"privacyLevel"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: true,
		PushNotifications:  true,
		Newsletter:         true,
		PrivacyLevel:       "private",
	}
}

func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Preferences) Scan(src interface{}) error {
	return scanJSON(src, p)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T as JSON", src)
	}
}

type RegisterRequest struct {
	FirstName          string   `json:"firstName" validate:"required,min=2,max=50"`
	LastName           string   `json:"lastName" validate:"required,min=2,max=50"`
	Email              string   `json:"email" validate:"required,email"`
	Password           string   `json:"password" validate:"required,password"`
	UserType           string   `json:"userType" validate:"omitempty,oneof=member therapist"`
	DateOfBirth        *string  `json:"dateOfBirth" validate:"omitempty,pastdate"`
	Interests          []string `json:"interests" validate:"omitempty,dive,interest"`
	EmailNotifications *bool    `json:"emailNotifications"`
	Newsletter         *bool    `json:"newsletter"`
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type UpdateDetailsRequest struct {
	FirstName          *string   `json:"firstName" validate:"omitempty,min=2,max=50"`
	LastName           *string   `json:"lastName" validate:"omitempty,min=2,max=50"`
	Email              *string   `json:"email" validate:"omitempty,email"`
	DateOfBirth        *string   `json:"dateOfBirth" validate:"omitempty,pastdate"`
	Phone              *string   `json:"phone" validate:"omitempty,phone"`
	Bio                *string   `json:"bio" validate:"omitempty,max=500"`
	Location           *Location `json:"location"`
	Interests          []string  `json:"interests" validate:"omitempty,dive,interest"`
	EmailNotifications *bool     `json:"emailNotifications"`
	Newsletter         *bool     `json:"newsletter"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,password"`
}
