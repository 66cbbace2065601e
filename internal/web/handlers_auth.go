package web

import (
	"errors"
	"net/http"

	"opencourt/internal/core"
	"opencourt/internal/logging"
	"opencourt/internal/web/middleware"
)

// loginRequest is the credentials payload for POST /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse returns the token pair and the user representation.
type loginResponse struct {
	Refresh string     `json:"refresh"`
	Access  string     `json:"access"`
	User    *core.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide both username and password")
		return
	}

	user, tokens, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("login",
		"username", user.Username,
		"role", user.Role,
	)

	writeJSON(w, http.StatusOK, loginResponse{
		Refresh: tokens.Refresh,
		Access:  tokens.Access,
		User:    user,
	})
}

// refreshRequest carries the refresh token for logout and rotation.
type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	// Any logout failure, including an unknown token, is a 400 so the
	// client always clears its local state.
	if err := s.auth.Logout(r.Context(), req.Refresh); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid refresh token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	access, err := s.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}
