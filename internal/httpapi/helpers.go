package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"rmis.udsm.ac.tz/internal/accounts"
	"rmis.udsm.ac.tz/internal/auth"
	"rmis.udsm.ac.tz/internal/rating"
	"rmis.udsm.ac.tz/internal/risk"
)

// requireClaims gates a handler on role membership and writes the error
// response itself; callers just return on error.
func requireClaims(w http.ResponseWriter, r *http.Request, roles ...accounts.Role) (*auth.Claims, error) {
	claims, err := auth.Require(r.Context(), roles...)
	if err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			writeError(w, r, http.StatusForbidden, "insufficient role")
		} else {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
		}
		return nil, err
	}
	return claims, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleRiskError maps register errors onto HTTP statuses.
func handleRiskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, risk.ErrInvalidInput),
		errors.Is(err, risk.ErrIncompleteRecord),
		errors.Is(err, rating.ErrInvalidAssessment):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, risk.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, risk.ErrInvalidTransition),
		errors.Is(err, risk.ErrReadOnly),
		errors.Is(err, risk.ErrDuplicateCode):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// handleAccountError maps account errors onto HTTP statuses. Credential
// failures deliberately share one message.
func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, accounts.ErrInvalidCredential):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, accounts.ErrInvalidEmailDomain),
		errors.Is(err, accounts.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrDuplicateAccount):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, accounts.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
