package httpapi

import (
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/account"
)

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

func toUserResponse(u account.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body account.Registration
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	u, sess, err := h.accounts.Register(ctx, body)
	if err != nil {
		var verr *account.ValidationError
		switch {
		case errors.As(err, &verr):
			writeFields(w, "Invalid registration", verr.Fields)
		case errors.Is(err, account.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, "Username already taken")
		case errors.Is(err, account.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "Email already registered")
		default:
			h.logger.Error("register", "err", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	u, sess, err := h.accounts.Login(ctx, body.Username, body.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.logger.Error("login", "err", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(u)})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		ctx, cancel := h.timeout(r)
		defer cancel()
		if err := h.accounts.Logout(ctx, c.Value); err != nil {
			h.logger.Error("logout", "err", err)
			writeError(w, http.StatusInternalServerError, "Logout failed")
			return
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(u)})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	ctx, cancel := h.timeout(r)
	defer cancel()

	p, err := h.accounts.Profile(ctx, u.ID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("get profile", "user_id", u.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	var body account.Profile
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	p, err := h.accounts.UpdateProfile(ctx, u.ID, body)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("update profile", "user_id", u.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
