package api

import (
	"net/http"
	"time"

	"example.com/fittrack/internal/domain"
)

// CreateUserRequest is the payload for POST /v1/users.
type CreateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateUserRequest is the payload for PATCH /v1/users/{id}; absent fields are untouched.
type UpdateUserRequest struct {
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	AvatarURL          *string `json:"avatar_url"`
	EmailNotifications *bool   `json:"email_notifications"`
	WeeklyReports      *bool   `json:"weekly_reports"`
}

// UserView is the public shape of a profile.
type UserView struct {
	UserID             string    `json:"user_id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	EmailNotifications bool      `json:"email_notifications"`
	WeeklyReports      bool      `json:"weekly_reports"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// createUser registers the caller's profile under the token subject.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.service.CreateUser(r.Context(), domain.CreateUserInput{
		ID:        claims.Subject,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(*user))
}

// findUser looks the caller's profile up by email (?email=).
func (h *Handler) findUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing email parameter")
		return
	}
	user, err := h.service.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if user.ID != claims.Subject {
		writeError(w, http.StatusNotFound, "not_found", domain.ErrUserNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownUserID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownUserID(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.service.UpdateUser(r.Context(), userID, domain.UpdateUserInput{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		AvatarURL:          req.AvatarURL,
		EmailNotifications: req.EmailNotifications,
		WeeklyReports:      req.WeeklyReports,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

// ownUserID resolves {id}, accepting "me", and rejects access to other profiles.
func ownUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := subject(w, r)
	if !ok {
		return "", false
	}
	id := r.PathValue("id")
	if id == "me" {
		id = claims.Subject
	}
	if id != claims.Subject {
		writeError(w, http.StatusForbidden, "forbidden", "profiles are only visible to their owner")
		return "", false
	}
	return id, true
}

func toUserView(u domain.User) UserView {
	return UserView{
		UserID:             u.ID,
		Email:              u.Email,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		AvatarURL:          u.AvatarURL,
		EmailNotifications: u.EmailNotifications,
		WeeklyReports:      u.WeeklyReports,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
