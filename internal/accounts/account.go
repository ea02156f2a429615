package accounts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("accounts: not found")
	ErrDuplicateAccount   = errors.New("accounts: email already registered")
	ErrInvalidEmailDomain = errors.New("accounts: email must belong to the institutional domain")
	ErrInvalidInput       = errors.New("accounts: invalid input")
)

// Role is the fixed privilege enumeration. Ordering of privilege:
// admin > risk_coordinator > review roles > risk_champion.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleCoordinator    Role = "risk_coordinator"
	RoleCommittee      Role = "steering_committee"
	RoleChampion       Role = "risk_champion"
	RoleDeputyVC       Role = "deputy_vice_chancellor"
	RoleViceChancellor Role = "vice_chancellor"
)

// DefaultRole is assigned at self-registration; elevation is an explicit
// act of an authorized caller.
const DefaultRole = RoleChampion

var roles = map[Role]struct{}{
	RoleAdmin:          {},
	RoleCoordinator:    {},
	RoleCommittee:      {},
	RoleChampion:       {},
	RoleDeputyVC:       {},
	RoleViceChancellor: {},
}

// ValidRole reports whether r belongs to the fixed role set.
func ValidRole(r Role) bool {
	_, ok := roles[r]
	return ok
}

// Account is a staff identity. The credential hash is deliberately not a
// field here: default reads never carry it, and the privileged login read
// path returns it out-of-band (see Store.FindByEmailWithSecret).
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	UnitID    *string   `json:"unit_id,omitempty"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store describes account persistence. Email uniqueness (spanning
// deactivated rows) is enforced atomically by the store, not by callers;
// Create surfaces a violated constraint as ErrDuplicateAccount.
type Store interface {
	Create(ctx context.Context, acc *Account, secretHash string) error
	FindByID(ctx context.Context, id string) (Account, error)
	// FindByEmailWithSecret is the privileged login read: it returns the
	// stored hash alongside the account and only matches active rows.
	FindByEmailWithSecret(ctx context.Context, email string) (Account, string, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	Deactivate(ctx context.Context, id string) error
}
