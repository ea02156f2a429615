package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"rmis.udsm.ac.tz/internal/accounts"
)

const testSecret = "unit-test-secret"

func newTestTokens(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, 24*time.Hour, "rmis-test", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testAccount() accounts.Account {
	return accounts.Account{
		ID:    "acc-42",
		Email: "a.mushi@udsm.ac.tz",
		Role:  accounts.RoleChampion,
	}
}

func TestMintAndParse(t *testing.T) {
	ts := newTestTokens(t)
	token, expires, err := ts.Mint(testAccount())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expected future expiry, got %v", expires)
	}

	claims, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "acc-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Email != "a.mushi@udsm.ac.tz" {
		t.Fatalf("unexpected email: %s", claims.Email)
	}
	if claims.Role != accounts.RoleChampion {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if claims.Issuer != "rmis-test" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	ts := newTestTokens(t)
	for _, token := range []string{"", "   ", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := ts.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	ts := newTestTokens(t)
	token, _, err := ts.Mint(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewTokenService("a-different-secret", 24*time.Hour, "rmis-test")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	minted := newTestTokens(t)
	token, _, err := minted.Mint(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewTokenService(testSecret, 24*time.Hour, "someone-else")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseExpired(t *testing.T) {
	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	clock := base
	ts := newTestTokens(t, WithTokenClock(func() time.Time { return clock }))

	token, _, err := ts.Mint(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	clock = base.Add(25 * time.Hour)
	if _, err := ts.Parse(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ts := newTestTokens(t)
	token, _, err := ts.Mint(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ts.Parse(token)
	if err != nil {
		t.Fatal(err)
	}

	ctx := ContextWithClaims(context.Background(), claims)
	got, ok := ClaimsFromContext(ctx)
	if !ok || got.Subject != "acc-42" {
		t.Fatalf("lost claims in context: %v ok=%v", got, ok)
	}
	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Fatalf("empty context should carry no claims")
	}
}

func TestRequire(t *testing.T) {
	claims := &Claims{Role: accounts.RoleChampion}
	ctx := ContextWithClaims(context.Background(), claims)

	if _, err := Require(ctx); err != nil {
		t.Fatalf("any authenticated caller should pass an open gate: %v", err)
	}
	if _, err := Require(ctx, accounts.RoleChampion); err != nil {
		t.Fatalf("matching role should pass: %v", err)
	}
	if _, err := Require(ctx, accounts.RoleCoordinator); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := Require(context.Background(), accounts.RoleChampion); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken without identity, got %v", err)
	}

	adminCtx := ContextWithClaims(context.Background(), &Claims{Role: accounts.RoleAdmin})
	if _, err := Require(adminCtx, accounts.RoleCoordinator); err != nil {
		t.Fatalf("admin should pass every gate: %v", err)
	}
}

func TestLoginService(t *testing.T) {
	store := accounts.NewInMemory()
	accSvc, err := accounts.NewService(store, "udsm.ac.tz", accounts.MinHashCost)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := accSvc.Register(context.Background(), accounts.RegisterInput{
		Email: "a@udsm.ac.tz", Password: "pw123456", FirstName: "A", LastName: "B",
	}); err != nil {
		t.Fatal(err)
	}

	tokens := newTestTokens(t)
	svc, err := NewService(accSvc, tokens)
	if err != nil {
		t.Fatal(err)
	}

	session, err := svc.Login(context.Background(), "a@udsm.ac.tz", "pw123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Token == "" || !session.ExpiresAt.After(time.Now()) {
		t.Fatalf("unusable session: %+v", session)
	}
	claims, err := tokens.Parse(session.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != session.Account.ID {
		t.Fatalf("token subject mismatch")
	}

	_, badPw := svc.Login(context.Background(), "a@udsm.ac.tz", "nope")
	_, badEmail := svc.Login(context.Background(), "ghost@udsm.ac.tz", "pw123456")
	if !errors.Is(badPw, accounts.ErrInvalidCredential) || !errors.Is(badEmail, accounts.ErrInvalidCredential) {
		t.Fatalf("expected uniform credential failure, got %v / %v", badPw, badEmail)
	}
}
