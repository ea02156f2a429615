package auth

import (
	"context"
	"errors"
	"time"

	"rmis.udsm.ac.tz/internal/accounts"
)

// Session is the product of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   accounts.Account
}

// Service ties credential verification to token minting.
type Service struct {
	accounts *accounts.Service
	tokens   *TokenService
}

// NewService wires the login flow.
func NewService(acc *accounts.Service, tokens *TokenService) (*Service, error) {
	if acc == nil {
		return nil, errors.New("auth: accounts service is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	return &Service{accounts: acc, tokens: tokens}, nil
}

// Login exchanges a credential pair for a signed session token. Credential
// failures pass through as accounts.ErrInvalidCredential unchanged, so the
// response never reveals whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	acc, err := s.accounts.Verify(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	token, expires, err := s.tokens.Mint(acc)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, Account: acc}, nil
}
