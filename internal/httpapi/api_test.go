package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"rmis.udsm.ac.tz/internal/accounts"
	"rmis.udsm.ac.tz/internal/auth"
	"rmis.udsm.ac.tz/internal/risk"
)

const testSigningSecret = "httpapi-test-secret"

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	accSvc, err := accounts.NewService(accounts.NewInMemory(), "udsm.ac.tz", accounts.MinHashCost)
	if err != nil {
		t.Fatalf("accounts.NewService: %v", err)
	}
	tokens, err := auth.NewTokenService(testSigningSecret, 24*time.Hour, "rmis-test")
	if err != nil {
		t.Fatalf("auth.NewTokenService: %v", err)
	}
	logins, err := auth.NewService(accSvc, tokens)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	risks := risk.NewService(risk.NewInMemory())

	api := New(ReadyProbe{}, "test", accSvc, logins, tokens, risks)
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

// register creates an account through the public endpoint and returns the
// session token plus account id.
func (c *apiClient) register(email, password, role string) (string, string) {
	c.t.Helper()
	body := map[string]any{
		"email":      email,
		"password":   password,
		"first_name": "Test",
		"last_name":  "User",
	}
	if role != "" {
		body["role"] = role
	}
	resp := c.post("/auth/register", body, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register %s: unexpected status %d", email, resp.StatusCode)
	}
	var payload sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode register response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token, payload.User.ID
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestRegisterLoginProfile(t *testing.T) {
	api := newTestAPI(t)

	token, id := api.register("asha.mushi@udsm.ac.tz", "pw-123456", "")

	resp := api.get("/auth/profile", nil, bearerHeader(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: unexpected status %d", resp.StatusCode)
	}
	user := decode[map[string]any](t, resp)
	if user["id"] != id {
		t.Fatalf("profile returned wrong account: %v", user["id"])
	}
	if user["role"] != "risk_champion" {
		t.Fatalf("expected default role, got %v", user["role"])
	}
	if _, ok := user["password"]; ok {
		t.Fatalf("profile must not leak credential material")
	}

	resp = api.post("/auth/login", map[string]any{
		"email":    "asha.mushi@udsm.ac.tz",
		"password": "pw-123456",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: unexpected status %d", resp.StatusCode)
	}
	session := decode[sessionResponse](t, resp)
	if session.Token == "" || session.Role != "risk_champion" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestRegisterRejectsAndConflicts(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/auth/register", map[string]any{
		"email": "stranger@gmail.com", "password": "pw", "first_name": "A", "last_name": "B",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("foreign domain: expected 400, got %d", resp.StatusCode)
	}

	api.register("a@udsm.ac.tz", "pw-123456", "")
	resp = api.post("/auth/register", map[string]any{
		"email": "a@udsm.ac.tz", "password": "other", "first_name": "A", "last_name": "B",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", resp.StatusCode)
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	api := newTestAPI(t)
	api.register("a@udsm.ac.tz", "right-password", "")

	wrongPw := api.post("/auth/login", map[string]any{
		"email": "a@udsm.ac.tz", "password": "wrong",
	}, nil)
	unknown := api.post("/auth/login", map[string]any{
		"email": "ghost@udsm.ac.tz", "password": "right-password",
	}, nil)
	if wrongPw.StatusCode != http.StatusUnauthorized || unknown.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPw.StatusCode, unknown.StatusCode)
	}
	bodyA := decode[map[string]any](t, wrongPw)
	bodyB := decode[map[string]any](t, unknown)
	if bodyA["error"] != bodyB["error"] {
		t.Fatalf("credential failures must be indistinguishable: %v vs %v", bodyA["error"], bodyB["error"])
	}
}

func TestTokenOutcomes(t *testing.T) {
	api := newTestAPI(t)

	// No token.
	resp := api.get("/v1/risks", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", resp.StatusCode)
	}

	// Garbage token.
	resp = api.get("/v1/risks", nil, bearerHeader("not-a-token"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("invalid token: expected 401, got %d", resp.StatusCode)
	}

	// Expired token: minted by a clock 48h in the past, same secret.
	past := time.Now().Add(-48 * time.Hour)
	stale, err := auth.NewTokenService(testSigningSecret, 24*time.Hour, "rmis-test",
		auth.WithTokenClock(func() time.Time { return past }))
	if err != nil {
		t.Fatal(err)
	}
	expired, _, err := stale.Mint(accounts.Account{ID: "acc-1", Email: "a@udsm.ac.tz", Role: accounts.RoleChampion})
	if err != nil {
		t.Fatal(err)
	}
	resp = api.get("/v1/risks", nil, bearerHeader(expired))
	body := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expired token: expected 401, got %d", resp.StatusCode)
	}
	if body["error"] != "token expired" {
		t.Fatalf("expected expired-token message, got %v", body["error"])
	}

	// Authenticated but under-privileged.
	champToken, _ := api.register("champ@udsm.ac.tz", "pw-123456", "")
	resp = api.get("/v1/risks/summary", nil, bearerHeader(champToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("summary as champion: expected 403, got %d", resp.StatusCode)
	}
}

func TestChampionLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	champToken, champID := api.register("champ@udsm.ac.tz", "pw-123456", "")
	coordToken, _ := api.register("coord@udsm.ac.tz", "pw-123456", "risk_coordinator")

	// Champion registers a draft without an assessment yet.
	resp := api.post("/v1/risks", map[string]any{
		"title":       "Examination paper leakage",
		"description": "Papers exposed before the sitting",
		"category":    "academic",
		"mitigation":  "Sealed digital vault with audited access",
	}, bearerHeader(champToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: unexpected status %d", resp.StatusCode)
	}
	rec := decode[risk.RiskRecord](t, resp)
	if rec.Status != risk.StatusDraft || rec.OwnerID != champID {
		t.Fatalf("unexpected draft: %+v", rec)
	}

	// Submitting an unassessed draft fails.
	resp = api.post("/v1/risks/"+rec.ID+"/submit", nil, bearerHeader(champToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("incomplete submit: expected 400, got %d", resp.StatusCode)
	}

	// Fill in the assessment, then submit.
	resp = api.put("/v1/risks/"+rec.ID, map[string]any{
		"likelihood": 4,
		"impact":     5,
	}, bearerHeader(champToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: unexpected status %d", resp.StatusCode)
	}
	rec = decode[risk.RiskRecord](t, resp)
	if rec.Score != 20 || rec.Band != "Critical" {
		t.Fatalf("unexpected rating: score=%d band=%s", rec.Score, rec.Band)
	}

	resp = api.post("/v1/risks/"+rec.ID+"/submit", nil, bearerHeader(champToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: unexpected status %d", resp.StatusCode)
	}
	rec = decode[risk.RiskRecord](t, resp)
	if rec.Status != risk.StatusSubmitted {
		t.Fatalf("expected submitted, got %s", rec.Status)
	}

	// Champion cannot review; coordinator can, exactly once.
	resp = api.post("/v1/risks/"+rec.ID+"/review", map[string]any{"decision": "approved"}, bearerHeader(champToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("review as champion: expected 403, got %d", resp.StatusCode)
	}

	resp = api.post("/v1/risks/"+rec.ID+"/review", map[string]any{"decision": "approved"}, bearerHeader(coordToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("review: unexpected status %d", resp.StatusCode)
	}
	rec = decode[risk.RiskRecord](t, resp)
	if rec.Status != risk.StatusApproved {
		t.Fatalf("expected approved, got %s", rec.Status)
	}

	resp = api.post("/v1/risks/"+rec.ID+"/review", map[string]any{"decision": "rejected"}, bearerHeader(coordToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second review: expected 409, got %d", resp.StatusCode)
	}

	// Approved records are frozen.
	resp = api.put("/v1/risks/"+rec.ID, map[string]any{"title": "new title"}, bearerHeader(coordToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("edit after approval: expected 409, got %d", resp.StatusCode)
	}
}

func TestChampionVisibilityScoping(t *testing.T) {
	api := newTestAPI(t)

	tokenA, _ := api.register("champ.a@udsm.ac.tz", "pw-123456", "")
	tokenB, _ := api.register("champ.b@udsm.ac.tz", "pw-123456", "")
	coordToken, _ := api.register("coord@udsm.ac.tz", "pw-123456", "risk_coordinator")

	resp := api.post("/v1/risks", map[string]any{
		"title":       "Procurement fraud exposure",
		"description": "Split purchases below approval thresholds",
		"category":    "fraud-corruption",
		"mitigation":  "Quarterly forensic sampling",
	}, bearerHeader(tokenA))
	rec := decode[risk.RiskRecord](t, resp)

	// Another champion neither lists nor reads it.
	listResp := api.get("/v1/risks", nil, bearerHeader(tokenB))
	listing := decode[map[string]any](t, listResp)
	if listing["total"].(float64) != 0 {
		t.Fatalf("champion B should see no records, got %v", listing["total"])
	}
	getResp := api.get("/v1/risks/"+rec.ID, nil, bearerHeader(tokenB))
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-champion read: expected 404, got %d", getResp.StatusCode)
	}

	// The coordinator sees the whole register.
	listResp = api.get("/v1/risks", nil, bearerHeader(coordToken))
	listing = decode[map[string]any](t, listResp)
	if listing["total"].(float64) != 1 {
		t.Fatalf("coordinator should see 1 record, got %v", listing["total"])
	}
}

func TestCoordinatorLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	coordToken, _ := api.register("coord@udsm.ac.tz", "pw-123456", "risk_coordinator")

	resp := api.post("/v1/risks", map[string]any{
		"title":        "Campus water supply outage",
		"consequences": "Halted laboratory operations",
		"category":     "infrastructure-management",
		"mitigation":   "Backup borehole commissioning",
		"likelihood":   3,
		"impact":       4,
	}, bearerHeader(coordToken))
	rec := decode[risk.RiskRecord](t, resp)
	if rec.Status != risk.StatusOpen || rec.Score != 12 || rec.Band != "High" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	for _, next := range []string{"mitigating", "under_review", "closed"} {
		resp = api.post("/v1/risks/"+rec.ID+"/advance", map[string]any{"status": next}, bearerHeader(coordToken))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("advance to %s: unexpected status %d", next, resp.StatusCode)
		}
		rec = decode[risk.RiskRecord](t, resp)
	}
	if rec.Status != risk.StatusClosed {
		t.Fatalf("expected closed, got %s", rec.Status)
	}

	// Closed is terminal.
	resp = api.post("/v1/risks/"+rec.ID+"/advance", map[string]any{"status": "open"}, bearerHeader(coordToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict && resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reopen closed: expected 4xx conflict, got %d", resp.StatusCode)
	}
}

func TestAssessAndSummary(t *testing.T) {
	api := newTestAPI(t)
	champToken, _ := api.register("champ@udsm.ac.tz", "pw-123456", "")
	dvcToken, _ := api.register("dvc@udsm.ac.tz", "pw-123456", "deputy_vice_chancellor")

	resp := api.post("/v1/risks/assess", map[string]any{"likelihood": 2, "impact": 2}, bearerHeader(champToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assess: unexpected status %d", resp.StatusCode)
	}
	out := decode[map[string]any](t, resp)
	if out["score"].(float64) != 4 || out["band"] != "Low" {
		t.Fatalf("unexpected assessment: %v", out)
	}

	resp = api.post("/v1/risks/assess", map[string]any{"likelihood": 0, "impact": 3}, bearerHeader(champToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range assess: expected 400, got %d", resp.StatusCode)
	}

	// Seed two records, then check the aggregate view.
	api.post("/v1/risks", map[string]any{
		"title": "R1", "description": "d", "category": "ict",
		"mitigation": "m", "likelihood": 5, "impact": 5,
	}, bearerHeader(champToken)).Body.Close()
	api.post("/v1/risks", map[string]any{
		"title": "R2", "description": "d", "category": "financial",
		"mitigation": "m", "likelihood": 1, "impact": 2,
	}, bearerHeader(champToken)).Body.Close()

	resp = api.get("/v1/risks/summary", nil, bearerHeader(dvcToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: unexpected status %d", resp.StatusCode)
	}
	sum := decode[risk.Summary](t, resp)
	if sum.Total != 2 {
		t.Fatalf("expected 2 records, got %d", sum.Total)
	}
	if sum.ByBand["Critical"] != 1 || sum.ByBand["Low"] != 1 {
		t.Fatalf("unexpected band counts: %v", sum.ByBand)
	}
}

func TestHealthAndInfoArePublic(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, resp.StatusCode)
		}
	}
}

func TestLogoutRequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	resp := api.post("/auth/logout", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	token, _ := api.register("a@udsm.ac.tz", "pw-123456", "")
	resp = api.post("/auth/logout", nil, bearerHeader(token))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
