package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCredential covers every login-time failure: unknown email,
// wrong password, deactivated account. Callers must not be able to tell
// the cases apart (account-enumeration hardening).
var ErrInvalidCredential = errors.New("accounts: invalid email or password")

var localPartPattern = regexp.MustCompile(`^[a-z0-9._%+-]+$`)

// RegisterInput carries the fields accepted at registration time.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      Role // empty means DefaultRole
	UnitID    *string
}

// Service implements registration and credential verification on top of a
// Store. Hashing is an explicit step here, not a persistence hook.
type Service struct {
	store  Store
	domain string
	cost   int
	now    func() time.Time
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

// NewService constructs the credential store service. domain is the
// institutional email domain (e.g. "udsm.ac.tz"); cost is the bcrypt cost
// factor, raised to MinHashCost when weaker.
func NewService(store Store, domain string, cost int, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("accounts: store is required")
	}
	domain = strings.TrimSpace(strings.ToLower(domain))
	if domain == "" {
		return nil, errors.New("accounts: email domain is required")
	}
	s := &Service{store: store, domain: domain, cost: cost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// checkEmail validates (local-part)@(institution-domain).
func (s *Service) checkEmail(email string) error {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return ErrInvalidEmailDomain
	}
	local, dom := email[:at], email[at+1:]
	if dom != s.domain || !localPartPattern.MatchString(local) {
		return ErrInvalidEmailDomain
	}
	return nil
}

// Register validates the institutional email, hashes the secret and
// persists the account. Duplicate emails, including deactivated ones,
// surface as ErrDuplicateAccount via the store's unique constraint.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return Account{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return Account{}, ErrInvalidInput
	}
	if err := s.checkEmail(email); err != nil {
		return Account{}, err
	}
	role := in.Role
	if role == "" {
		role = DefaultRole
	}
	if !ValidRole(role) {
		return Account{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return Account{}, err
	}

	now := s.now().UTC()
	acc := Account{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
		UnitID:    in.UnitID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, &acc, hash); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// Verify checks a credential pair against the store. Every failure mode
// (unknown email, deactivated account, wrong password) collapses to
// ErrInvalidCredential.
func (s *Service) Verify(ctx context.Context, email, password string) (Account, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Account{}, ErrInvalidCredential
	}
	acc, hash, err := s.store.FindByEmailWithSecret(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredential
		}
		return Account{}, err
	}
	if err := VerifyPassword(hash, password); err != nil {
		return Account{}, ErrInvalidCredential
	}
	return acc, nil
}

// Get returns an account by id; deactivated accounts read as not found.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, ErrInvalidInput
	}
	return s.store.FindByID(ctx, id)
}

// SetRole elevates or demotes an account. Role validity is checked here;
// authorization to call this lives with the HTTP gate.
func (s *Service) SetRole(ctx context.Context, id string, role Role) error {
	if !ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.store.UpdateRole(ctx, strings.TrimSpace(id), role)
}

// Deactivate marks an account inactive; the terminal state in place of
// deletion.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.store.Deactivate(ctx, strings.TrimSpace(id))
}
