package api

import (
	"net/http"
	"time"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/auth"
)

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Username   string  `json:"username" validate:"required,min=3,max=50"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Password   string  `json:"password" validate:"required,min=6"`
	TelegramID *string `json:"telegramId" validate:"omitempty,max=64"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse contains the JWT token
type LoginResponse struct {
	Token     string    `json:"token"`
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ProfileRequest struct {
	Username   string  `json:"username" validate:"required,min=3,max=50"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	TelegramID *string `json:"telegramId" validate:"omitempty,max=64"`
}

type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// blankToNil turns an empty optional string into NULL.
func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Register handles POST /api/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Failed to register user")
		return
	}

	taken, err := h.Users.UsernameOrEmailTaken(r.Context(), req.Username, req.Email, 0)
	if err != nil {
		respondErr(w, r, err, "Failed to register user")
		return
	}
	if taken {
		respondError(w, http.StatusConflict, "Username or email already exists")
		return
	}

	user, err := h.Users.Create(r.Context(), req.Username, req.Email, req.Password, blankToNil(req.TelegramID))
	if err != nil {
		respondErr(w, r, err, "Failed to register user")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"isAdmin":  user.IsAdmin,
	})
}

// Login handles POST /api/auth/login and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Authentication failed")
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondErr(w, r, err, "Authentication failed")
		return
	}

	token, expires, err := h.Tokens.Generate(user, req.RememberMe)
	if err != nil {
		respondErr(w, r, apperr.Internal("Failed to generate token", err), "Failed to generate token")
		return
	}
	auth.SetCookie(w, token, expires, h.SecureCookies)

	requestLogger(r).WithField("user_id", user.ID).Info("user signed in")
	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ID:        user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		ExpiresAt: expires,
	})
}

// Logout handles POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetByID(r.Context(), currentUser(r).UserID)
	if err != nil {
		respondErr(w, r, err, "Failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/user/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := currentUser(r)

	var req ProfileRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Failed to update profile")
		return
	}

	taken, err := h.Users.UsernameOrEmailTaken(r.Context(), req.Username, req.Email, claims.UserID)
	if err != nil {
		respondErr(w, r, err, "Failed to update profile")
		return
	}
	if taken {
		respondError(w, http.StatusConflict, "Username or email already exists")
		return
	}

	if err := h.Users.UpdateProfile(r.Context(), claims.UserID, req.Username, req.Email, blankToNil(req.TelegramID)); err != nil {
		respondErr(w, r, err, "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ChangePassword handles PUT /api/user/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Failed to update password")
		return
	}

	if err := h.Users.UpdatePassword(r.Context(), currentUser(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondErr(w, r, err, "Failed to update password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
