package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User is a profile in the user directory together with notification preferences.
type User struct {
	ID                 string
	Email              string
	FirstName          string
	LastName           string
	AvatarURL          string
	EmailNotifications bool
	WeeklyReports      bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ReceivesWeeklyReports reports whether both opt-in flags gate the dispatcher open.
func (u User) ReceivesWeeklyReports() bool {
	return u.EmailNotifications && u.WeeklyReports
}

// CreateUserInput holds sign-up data. ID is optional; the API passes the token subject.
type CreateUserInput struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

func (in CreateUserInput) validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return validationErrorf("invalid email %q", in.Email)
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return validationErrorf("first_name is required")
	}
	return nil
}

// UpdateUserInput is a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	FirstName          *string
	LastName           *string
	AvatarURL          *string
	EmailNotifications *bool
	WeeklyReports      *bool
}

func (in UpdateUserInput) apply(u *User) {
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) != "" {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) != "" {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.AvatarURL != nil && strings.TrimSpace(*in.AvatarURL) != "" {
		u.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.EmailNotifications != nil {
		u.EmailNotifications = *in.EmailNotifications
	}
	if in.WeeklyReports != nil {
		u.WeeklyReports = *in.WeeklyReports
	}
}
