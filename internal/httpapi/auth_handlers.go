package httpapi

import (
	"errors"
	"net/http"
	"time"

	"rmis.udsm.ac.tz/internal/accounts"
	"rmis.udsm.ac.tz/internal/audit"
)

type registerRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Role      string  `json:"role,omitempty"`
	UnitID    *string `json:"unit_id,omitempty"`
}

type credentialRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Role      accounts.Role    `json:"role"`
	User      accounts.Account `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := a.accounts.Register(r.Context(), accounts.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      accounts.Role(req.Role),
		UnitID:    req.UnitID,
	})
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	token, expires, err := a.tokens.Mint(acc)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"account_id": acc.ID,
		"email":      acc.Email,
		"role":       string(acc.Role),
	})

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:     token,
		ExpiresAt: expires,
		Role:      acc.Role,
		User:      acc,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.logins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredential) {
			// Same status and message whether the email exists or not.
			_ = audit.LogEvent(r.Context(), "auth.login.denied", map[string]any{
				"email": accounts.NormalizeEmail(req.Email),
			})
			writeError(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"account_id": session.Account.ID,
		"role":       string(session.Account.Role),
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Role:      session.Account.Role,
		User:      session.Account,
	})
}

// handleLogout exists for client parity. Tokens are stateless, so the
// server only records the event; the client discards its copy.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, err := requireClaims(w, r)
	if err != nil {
		return
	}
	acc, err := a.accounts.Get(r.Context(), claims.Subject)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}
