package risk

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rmis.udsm.ac.tz/internal/ids"
	"rmis.udsm.ac.tz/internal/rating"
)

// Store describes persistence operations required by the register.
// Uniqueness of the human-readable code is the store's responsibility.
type Store interface {
	Create(ctx context.Context, rec *RiskRecord) error
	Get(ctx context.Context, id string) (RiskRecord, error)
	Update(ctx context.Context, rec *RiskRecord) error
	List(ctx context.Context, f Filter) ([]RiskRecord, error)
}

// Draft carries the fields accepted when a record is first registered.
// Assessment fields are optional at this stage.
type Draft struct {
	Code             string
	Title            string
	Description      string
	Category         Category
	OwnerID          string
	PrincipalOwner   string
	SupportingUnits  []string
	Likelihood       int
	Impact           int
	Causes           string
	Consequences     string
	ExistingControls string
	Mitigation       string
	Workflow         Workflow
	Period           Period
}

// Update lists the mutable fields; nil pointers leave a field unchanged.
type Update struct {
	Title            *string
	Description      *string
	Category         *Category
	PrincipalOwner   *string
	SupportingUnits  *[]string
	Likelihood       *int
	Impact           *int
	Causes           *string
	Consequences     *string
	ExistingControls *string
	Mitigation       *string
}

// Summary aggregates the register for the dashboard and heatmap views.
type Summary struct {
	Total      int                 `json:"total"`
	ByBand     map[rating.Band]int `json:"by_band"`
	ByCategory map[Category]int    `json:"by_category"`
	ByStatus   map[Status]int      `json:"by_status"`
}

// Service implements the register lifecycle on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraft validates mandatory narrative fields and registers a new
// record. Champion-authored records start as drafts, coordinator-authored
// ones as open.
func (s *Service) CreateDraft(ctx context.Context, d Draft) (RiskRecord, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Mitigation = strings.TrimSpace(d.Mitigation)
	if d.Title == "" {
		return RiskRecord{}, ErrInvalidInput
	}
	if strings.TrimSpace(d.Description) == "" && strings.TrimSpace(d.Consequences) == "" {
		return RiskRecord{}, ErrInvalidInput
	}
	if d.Mitigation == "" {
		return RiskRecord{}, ErrInvalidInput
	}
	if !ValidCategory(d.Category) {
		return RiskRecord{}, ErrInvalidInput
	}
	if strings.TrimSpace(d.OwnerID) == "" {
		return RiskRecord{}, ErrInvalidInput
	}
	if d.Workflow != WorkflowChampion && d.Workflow != WorkflowCoordinator {
		return RiskRecord{}, ErrInvalidInput
	}

	now := s.now().UTC()
	period := d.Period
	if period == (Period{}) {
		period = PeriodOf(now)
	}
	if !ValidPeriod(period) {
		return RiskRecord{}, ErrInvalidInput
	}

	rec := RiskRecord{
		ID:               ids.New(),
		Code:             strings.TrimSpace(d.Code),
		Title:            d.Title,
		Description:      strings.TrimSpace(d.Description),
		Category:         d.Category,
		OwnerID:          strings.TrimSpace(d.OwnerID),
		PrincipalOwner:   strings.TrimSpace(d.PrincipalOwner),
		SupportingUnits:  dedupeUnits(d.SupportingUnits),
		Causes:           strings.TrimSpace(d.Causes),
		Consequences:     strings.TrimSpace(d.Consequences),
		ExistingControls: strings.TrimSpace(d.ExistingControls),
		Mitigation:       d.Mitigation,
		Workflow:         d.Workflow,
		Quarter:          period.Quarter,
		Year:             period.Year,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	switch d.Workflow {
	case WorkflowChampion:
		rec.Status = StatusDraft
	case WorkflowCoordinator:
		rec.Status = StatusOpen
	}

	// Assessment is optional at draft time, but if supplied it must be a
	// valid rating engine input.
	if d.Likelihood != 0 || d.Impact != 0 {
		a, err := rating.Rate(d.Likelihood, d.Impact)
		if err != nil {
			return RiskRecord{}, err
		}
		rec.Likelihood, rec.Impact = a.Likelihood, a.Impact
		rec.Score, rec.Band = a.Score, a.Band
	}

	if err := s.store.Create(ctx, &rec); err != nil {
		return RiskRecord{}, err
	}
	return rec, nil
}

// Update mutates an editable record. Score and band are recomputed only
// when likelihood or impact are explicitly part of the update.
func (s *Service) Update(ctx context.Context, id string, upd Update) (RiskRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return RiskRecord{}, err
	}
	if !IsEditable(rec, s.now()) {
		return RiskRecord{}, ErrReadOnly
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return RiskRecord{}, ErrInvalidInput
		}
		rec.Title = title
	}
	if upd.Description != nil {
		rec.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Category != nil {
		if !ValidCategory(*upd.Category) {
			return RiskRecord{}, ErrInvalidInput
		}
		rec.Category = *upd.Category
	}
	if upd.PrincipalOwner != nil {
		rec.PrincipalOwner = strings.TrimSpace(*upd.PrincipalOwner)
	}
	if upd.SupportingUnits != nil {
		rec.SupportingUnits = dedupeUnits(*upd.SupportingUnits)
	}
	if upd.Causes != nil {
		rec.Causes = strings.TrimSpace(*upd.Causes)
	}
	if upd.Consequences != nil {
		rec.Consequences = strings.TrimSpace(*upd.Consequences)
	}
	if upd.ExistingControls != nil {
		rec.ExistingControls = strings.TrimSpace(*upd.ExistingControls)
	}
	if upd.Mitigation != nil {
		mit := strings.TrimSpace(*upd.Mitigation)
		if mit == "" {
			return RiskRecord{}, ErrInvalidInput
		}
		rec.Mitigation = mit
	}

	if upd.Likelihood != nil || upd.Impact != nil {
		likelihood, impact := rec.Likelihood, rec.Impact
		if upd.Likelihood != nil {
			likelihood = *upd.Likelihood
		}
		if upd.Impact != nil {
			impact = *upd.Impact
		}
		a, err := rating.Rate(likelihood, impact)
		if err != nil {
			return RiskRecord{}, err
		}
		rec.Likelihood, rec.Impact = a.Likelihood, a.Impact
		rec.Score, rec.Band = a.Score, a.Band
	}

	rec.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, &rec); err != nil {
		return RiskRecord{}, err
	}
	return rec, nil
}

// Submit moves a champion draft to submitted; the rating is computed once
// here and frozen onto the record.
func (s *Service) Submit(ctx context.Context, id string) (RiskRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return RiskRecord{}, err
	}
	if rec.Workflow != WorkflowChampion || rec.Status != StatusDraft {
		return RiskRecord{}, ErrInvalidTransition
	}
	if !IsEditable(rec, s.now()) {
		return RiskRecord{}, ErrReadOnly
	}
	if rec.Likelihood == 0 || rec.Impact == 0 || rec.Title == "" || rec.Mitigation == "" {
		return RiskRecord{}, ErrIncompleteRecord
	}
	a, err := rating.Rate(rec.Likelihood, rec.Impact)
	if err != nil {
		return RiskRecord{}, err
	}
	rec.Score, rec.Band = a.Score, a.Band
	rec.Status = StatusSubmitted
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, &rec); err != nil {
		return RiskRecord{}, err
	}
	return rec, nil
}

// Review decides a submitted record. Any other starting state fails with
// ErrInvalidTransition, including a second review of the same record.
func (s *Service) Review(ctx context.Context, id string, decision Decision) (RiskRecord, error) {
	if decision != DecisionApproved && decision != DecisionRejected {
		return RiskRecord{}, ErrInvalidInput
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return RiskRecord{}, err
	}
	if rec.Workflow != WorkflowChampion || rec.Status != StatusSubmitted {
		return RiskRecord{}, ErrInvalidTransition
	}
	if decision == DecisionApproved {
		rec.Status = StatusApproved
	} else {
		rec.Status = StatusRejected
	}
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, &rec); err != nil {
		return RiskRecord{}, err
	}
	return rec, nil
}

// Advance moves a coordinator-authored record forward through its
// lifecycle (open -> mitigating -> under_review -> closed). Backward moves
// and moves out of closed fail with ErrInvalidTransition.
func (s *Service) Advance(ctx context.Context, id string, to Status) (RiskRecord, error) {
	toWf, ok := to.workflow()
	if !ok || toWf != WorkflowCoordinator {
		return RiskRecord{}, ErrInvalidInput
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return RiskRecord{}, err
	}
	if rec.Workflow != WorkflowCoordinator {
		return RiskRecord{}, ErrInvalidTransition
	}
	if coordinatorOrder(to) <= coordinatorOrder(rec.Status) || rec.Status == StatusClosed {
		return RiskRecord{}, ErrInvalidTransition
	}
	rec.Status = to
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, &rec); err != nil {
		return RiskRecord{}, err
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (RiskRecord, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]RiskRecord, error) {
	return s.store.List(ctx, f)
}

// Summarize aggregates the whole register (or a filtered slice of it).
func (s *Service) Summarize(ctx context.Context, f Filter) (Summary, error) {
	records, err := s.store.List(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{
		ByBand:     make(map[rating.Band]int),
		ByCategory: make(map[Category]int),
		ByStatus:   make(map[Status]int),
	}
	for _, rec := range records {
		sum.Total++
		if rec.Band != "" {
			sum.ByBand[rec.Band]++
		}
		sum.ByCategory[rec.Category]++
		sum.ByStatus[rec.Status]++
	}
	return sum, nil
}

func dedupeUnits(units []string) []string {
	if len(units) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(units))
	var out []string
	for _, u := range units {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// InMemory implements Store with in-process concurrency safety. Used by
// tests and DSN-less runs; production deployments use the Postgres store.
type InMemory struct {
	mu    sync.RWMutex
	recs  map[string]*RiskRecord
	codes map[string]string // code -> record id
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		recs:  make(map[string]*RiskRecord),
		codes: make(map[string]string),
	}
}

func (m *InMemory) Create(ctx context.Context, rec *RiskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Code != "" {
		if _, ok := m.codes[rec.Code]; ok {
			return ErrDuplicateCode
		}
		m.codes[rec.Code] = rec.ID
	}
	cp := cloneRecord(*rec)
	m.recs[rec.ID] = &cp
	return nil
}

func (m *InMemory) Get(ctx context.Context, id string) (RiskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return RiskRecord{}, ErrNotFound
	}
	return cloneRecord(*rec), nil
}

func (m *InMemory) Update(ctx context.Context, rec *RiskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; !ok {
		return ErrNotFound
	}
	cp := cloneRecord(*rec)
	m.recs[rec.ID] = &cp
	return nil
}

func (m *InMemory) List(ctx context.Context, f Filter) ([]RiskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []RiskRecord
	for _, rec := range m.recs {
		if f.OwnerID != "" && rec.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if f.Quarter != 0 && rec.Quarter != f.Quarter {
			continue
		}
		if f.Year != 0 && rec.Year != f.Year {
			continue
		}
		out = append(out, cloneRecord(*rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneRecord(rec RiskRecord) RiskRecord {
	if len(rec.SupportingUnits) > 0 {
		units := make([]string, len(rec.SupportingUnits))
		copy(units, rec.SupportingUnits)
		rec.SupportingUnits = units
	}
	return rec
}
