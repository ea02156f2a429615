package risk

import (
	"errors"
	"time"

	"rmis.udsm.ac.tz/internal/rating"
)

var (
	ErrNotFound          = errors.New("risk: not found")
	ErrIncompleteRecord  = errors.New("risk: likelihood, impact, title and mitigation are required before submission")
	ErrInvalidTransition = errors.New("risk: invalid status transition")
	ErrReadOnly          = errors.New("risk: record is no longer editable")
	ErrInvalidInput      = errors.New("risk: invalid input")
	ErrDuplicateCode     = errors.New("risk: code already registered")
)

// Workflow discriminates the two authoring lifecycles that coexist in the
// register: champion-authored records move through a submission/review
// machine, coordinator-authored records through an operational one. The
// two vocabularies are never mixed on a single record.
type Workflow string

const (
	WorkflowChampion    Workflow = "champion"
	WorkflowCoordinator Workflow = "coordinator"
)

// Status values, scoped by workflow.
type Status string

const (
	// Champion-authored machine.
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"

	// Coordinator-authored machine.
	StatusOpen        Status = "open"
	StatusMitigating  Status = "mitigating"
	StatusUnderReview Status = "under_review"
	StatusClosed      Status = "closed"
)

func (s Status) workflow() (Workflow, bool) {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return WorkflowChampion, true
	case StatusOpen, StatusMitigating, StatusUnderReview, StatusClosed:
		return WorkflowCoordinator, true
	}
	return "", false
}

// editable reports whether the status still permits field mutation,
// independent of the period gate. Approved and closed are terminal.
func (s Status) editable() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusOpen, StatusMitigating, StatusUnderReview:
		return true
	}
	return false
}

// coordinatorOrder positions a coordinator status in its lifecycle;
// transitions only move forward.
func coordinatorOrder(s Status) int {
	switch s {
	case StatusOpen:
		return 0
	case StatusMitigating:
		return 1
	case StatusUnderReview:
		return 2
	case StatusClosed:
		return 3
	}
	return -1
}

// Category is the register's fixed classification set.
type Category string

const (
	CategoryAcademic       Category = "academic"
	CategoryCompliance     Category = "compliance"
	CategoryFinancial      Category = "financial"
	CategoryFraud          Category = "fraud-corruption"
	CategoryGovernance     Category = "governance"
	CategoryHealthSafety   Category = "health-safety-welfare"
	CategoryHumanCapital   Category = "human-capital"
	CategoryICT            Category = "ict"
	CategoryInfrastructure Category = "infrastructure-management"
	CategoryOperational    Category = "operational"
	CategoryResearch       Category = "research-consultancy"
)

var categories = map[Category]struct{}{
	CategoryAcademic:       {},
	CategoryCompliance:     {},
	CategoryFinancial:      {},
	CategoryFraud:          {},
	CategoryGovernance:     {},
	CategoryHealthSafety:   {},
	CategoryHumanCapital:   {},
	CategoryICT:            {},
	CategoryInfrastructure: {},
	CategoryOperational:    {},
	CategoryResearch:       {},
}

// ValidCategory reports whether c belongs to the fixed category set.
func ValidCategory(c Category) bool {
	_, ok := categories[c]
	return ok
}

// RiskRecord is a register entry through its whole lifecycle. Score and
// Band are frozen at submission time and only recomputed when likelihood
// or impact are explicitly edited.
type RiskRecord struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`

	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Category        Category `json:"category"`
	OwnerID         string   `json:"owner_id"`
	PrincipalOwner  string   `json:"principal_owner,omitempty"`
	SupportingUnits []string `json:"supporting_units,omitempty"`

	Likelihood int         `json:"likelihood,omitempty"` // 0 = not assessed yet
	Impact     int         `json:"impact,omitempty"`
	Score      int         `json:"score,omitempty"`
	Band       rating.Band `json:"band,omitempty"`

	Causes           string `json:"causes,omitempty"`
	Consequences     string `json:"consequences,omitempty"`
	ExistingControls string `json:"existing_controls,omitempty"`
	Mitigation       string `json:"mitigation,omitempty"`

	Workflow Workflow `json:"workflow"`
	Status   Status   `json:"status"`

	Quarter int `json:"quarter"`
	Year    int `json:"year"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	OwnerID  string
	Status   Status
	Category Category
	Quarter  int
	Year     int
}

// Decision is a coordinator's verdict on a submitted record.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)
