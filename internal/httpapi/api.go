package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"rmis.udsm.ac.tz/internal/accounts"
	"rmis.udsm.ac.tz/internal/auth"
	"rmis.udsm.ac.tz/internal/obs"
	"rmis.udsm.ac.tz/internal/risk"
)

// ReadyProbe checks readiness, typically a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the account, auth and register services.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	accounts *accounts.Service
	logins   *auth.Service
	tokens   *auth.TokenService
	risks    *risk.Service

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

func New(rp ReadyProbe, version string, accSvc *accounts.Service, logins *auth.Service, tokens *auth.TokenService, risks *risk.Service) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		accounts:   accSvc,
		logins:     logins,
		tokens:     tokens,
		risks:      risks,

		rateBurst:    20,
		ratePerSec:   10,
		maxBodyBytes: 1 << 20,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication surface
	a.mux.HandleFunc("/auth/register", a.handleRegister)
	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/auth/profile", a.handleProfile)

	// risk register
	a.mux.HandleFunc("/v1/risks", a.handleRisksCollection)
	a.mux.HandleFunc("/v1/risks/", a.handleRiskResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// ConfigureLimits overrides the default rate limit and body cap.
func (a *API) ConfigureLimits(burst, perSec int, maxBodyBytes int64) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSec > 0 {
		a.ratePerSec = perSec
	}
	if maxBodyBytes > 0 {
		a.maxBodyBytes = maxBodyBytes
	}
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := obs.Instrument(a.withAuth(a.mux))
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = LoggingJSON(h)
	h = RequestID(h)
	h = CORS(h)
	return SecurityHeaders(h)
}

// --- infrastructure handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rmis-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "rmis-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
