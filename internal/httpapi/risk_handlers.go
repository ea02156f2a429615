package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"rmis.udsm.ac.tz/internal/accounts"
	"rmis.udsm.ac.tz/internal/audit"
	"rmis.udsm.ac.tz/internal/rating"
	"rmis.udsm.ac.tz/internal/risk"
)

type createRiskRequest struct {
	Code             string   `json:"code,omitempty"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Category         string   `json:"category"`
	PrincipalOwner   string   `json:"principal_owner,omitempty"`
	SupportingUnits  []string `json:"supporting_units,omitempty"`
	Likelihood       int      `json:"likelihood,omitempty"`
	Impact           int      `json:"impact,omitempty"`
	Causes           string   `json:"causes,omitempty"`
	Consequences     string   `json:"consequences,omitempty"`
	ExistingControls string   `json:"existing_controls,omitempty"`
	Mitigation       string   `json:"mitigation"`
	Quarter          int      `json:"quarter,omitempty"`
	Year             int      `json:"year,omitempty"`
}

type updateRiskRequest struct {
	Title            *string   `json:"title,omitempty"`
	Description      *string   `json:"description,omitempty"`
	Category         *string   `json:"category,omitempty"`
	PrincipalOwner   *string   `json:"principal_owner,omitempty"`
	SupportingUnits  *[]string `json:"supporting_units,omitempty"`
	Likelihood       *int      `json:"likelihood,omitempty"`
	Impact           *int      `json:"impact,omitempty"`
	Causes           *string   `json:"causes,omitempty"`
	Consequences     *string   `json:"consequences,omitempty"`
	ExistingControls *string   `json:"existing_controls,omitempty"`
	Mitigation       *string   `json:"mitigation,omitempty"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
}

type advanceRequest struct {
	Status string `json:"status"`
}

type assessRequest struct {
	Likelihood int `json:"likelihood"`
	Impact     int `json:"impact"`
}

func (a *API) handleRisksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createRisk(w, r)
	case http.MethodGet:
		a.listRisks(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleRiskResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/risks/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch path {
	case "assess":
		a.assessRisk(w, r)
		return
	case "summary":
		a.summarizeRisks(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/submit"); ok {
		a.submitRisk(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/review"); ok {
		a.reviewRisk(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/advance"); ok {
		a.advanceRisk(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getRisk(w, r, path)
	case http.MethodPut:
		a.updateRisk(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) createRisk(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(w, r, accounts.RoleChampion, accounts.RoleCoordinator)
	if err != nil {
		return
	}

	var req createRiskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	workflow := risk.WorkflowCoordinator
	if claims.Role == accounts.RoleChampion {
		workflow = risk.WorkflowChampion
	}

	rec, err := a.risks.CreateDraft(r.Context(), risk.Draft{
		Code:             req.Code,
		Title:            req.Title,
		Description:      req.Description,
		Category:         risk.Category(req.Category),
		OwnerID:          claims.Subject,
		PrincipalOwner:   req.PrincipalOwner,
		SupportingUnits:  req.SupportingUnits,
		Likelihood:       req.Likelihood,
		Impact:           req.Impact,
		Causes:           req.Causes,
		Consequences:     req.Consequences,
		ExistingControls: req.ExistingControls,
		Mitigation:       req.Mitigation,
		Workflow:         workflow,
		Period:           risk.Period{Quarter: req.Quarter, Year: req.Year},
	})
	if err != nil {
		handleRiskError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "risk.create", map[string]any{
		"risk_id":  rec.ID,
		"category": string(rec.Category),
		"workflow": string(rec.Workflow),
	})

	w.Header().Set("Location", "/v1/risks/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) listRisks(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(w, r)
	if err != nil {
		return
	}

	f, ferr := filterFromQuery(r)
	if ferr != nil {
		writeError(w, r, http.StatusBadRequest, ferr.Error())
		return
	}
	// Champions only see their own submissions.
	if claims.Role == accounts.RoleChampion {
		f.OwnerID = claims.Subject
	}

	items, err := a.risks.List(r.Context(), f)
	if err != nil {
		handleRiskError(w, r, err)
		return
	}
	if items == nil {
		items = []risk.RiskRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (a *API) getRisk(w http.ResponseWriter, r *http.Request, id string) {
	claims, err := requireClaims(w, r)
	if err != nil {
		return
	}
	rec, err := a.risks.Get(r.Context(), id)
	if err != nil {
		handleRiskError(w, r, err)
		return
	}
	// Hide other champions' records rather than admitting they exist.
	if claims.Role == accounts.RoleChampion && rec.OwnerID != claims.Subject {
		writeError(w, r, http.StatusNotFound, risk.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) updateRisk(w http.ResponseWriter, r *http.Request, id string) {
	claims, err := requireClaims(w, r, accounts.RoleChampion, accounts.RoleCoordinator)
	if err != nil {
		return
	}

	if claims.Role == accounts.RoleChampion {
		rec, err := a.risks.Get(r.Context(), id)
		if err != nil {
			handleRiskError(w, r, err)
			return
		}
		if rec.OwnerID != claims.Subject {
			writeError(w, r, http.StatusNotFound, risk.ErrNotFound.Error())
			return
		}
	}

	var req updateRiskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	upd := risk.Update{
		Title:            req.Title,
		Description:      req.Description,
		PrincipalOwner:   req.PrincipalOwner,
		SupportingUnits:  req.SupportingUnits,
		Likelihood:       req.Likelihood,
		Impact:           req.Impact,
		Causes:           req.Causes,
		Consequences:     req.Consequences,
		ExistingControls: req.ExistingControls,
		Mitigation:       req.Mitigation,
	}
	if req.Category != nil {
		cat := risk.Category(*req.Category)
		upd.Category = &cat
	}

	rec, err := a.risks.Update(r.Context(), id, upd)
	if err != nil {
		handleRiskError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "risk.update", map[string]any{"risk_id": rec.ID})
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) submitRisk(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	claims, err := requireClaims(w, r, accounts.RoleChampion)
	if err != nil {
		return
	}

	if claims.Role == accounts.RoleChampion {
		rec, err := a.risks.Get(r.Context(), id)
		if err != nil {
			handleRiskError(w, r, err)
			return
		}
		if rec.OwnerID != claims.Subject {
			writeError(w, r, http.StatusNotFound, risk.ErrNotFound.Error())
			return
		}
	}

	rec, err := a.risks.Submit(r.Context(), id)
	if err != nil {
		handleRiskError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "risk.submit", map[string]any{
		"risk_id": rec.ID,
		"score":   rec.Score,
		"band":    string(rec.Band),
	})
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) reviewRisk(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := requireClaims(w, r, accounts.RoleCoordinator); err != nil {
		return
	}

	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := a.risks.Review(r.Context(), id, risk.Decision(req.Decision))
	if err != nil {
		handleRiskError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "risk.review", map[string]any{
		"risk_id":  rec.ID,
		"decision": req.Decision,
	})
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) advanceRisk(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := requireClaims(w, r, accounts.RoleCoordinator); err != nil {
		return
	}

	var req advanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := a.risks.Advance(r.Context(), id, risk.Status(req.Status))
	if err != nil {
		handleRiskError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "risk.advance", map[string]any{
		"risk_id": rec.ID,
		"status":  string(rec.Status),
	})
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) assessRisk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := requireClaims(w, r); err != nil {
		return
	}

	var req assessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := rating.Rate(req.Likelihood, req.Impact)
	if err != nil {
		handleRiskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (a *API) summarizeRisks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, err := requireClaims(w, r,
		accounts.RoleCoordinator,
		accounts.RoleCommittee,
		accounts.RoleDeputyVC,
		accounts.RoleViceChancellor,
	); err != nil {
		return
	}

	f, ferr := filterFromQuery(r)
	if ferr != nil {
		writeError(w, r, http.StatusBadRequest, ferr.Error())
		return
	}
	sum, err := a.risks.Summarize(r.Context(), f)
	if err != nil {
		handleRiskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func filterFromQuery(r *http.Request) (risk.Filter, error) {
	q := r.URL.Query()
	f := risk.Filter{
		Status:   risk.Status(strings.TrimSpace(q.Get("status"))),
		Category: risk.Category(strings.TrimSpace(q.Get("category"))),
	}
	for name, dst := range map[string]*int{"quarter": &f.Quarter, "year": &f.Year} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return risk.Filter{}, fmt.Errorf("%s must be a non-negative integer", name)
		}
		*dst = v
	}
	return f, nil
}
