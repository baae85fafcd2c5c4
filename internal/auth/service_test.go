package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZeroR0R/LSBank/internal/config"
	"github.com/ZeroR0R/LSBank/internal/identity"
)

func setup(t *testing.T) (*Service, *identity.Service, identity.User) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo)
	user, err := ids.Register(context.Background(), identity.Credentials{Phone: "555", PIN: "1234", DeviceID: "d1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	cfg := config.Config{
		JWTSecret:       "access",
		RefreshSecret:   "refresh",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	return NewService(cfg, repo), ids, user
}

func TestLoginAndAuthorize(t *testing.T) {
	svc, _, user := setup(t)
	ctx := context.Background()

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.ExpiresIn != 60 {
		t.Fatalf("expected 60s expiry, got %d", pair.ExpiresIn)
	}
	got, err := svc.Authorize(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if got.ID != user.ID || got.Address != user.Address {
		t.Fatalf("unexpected principal %+v", got)
	}

	// refresh tokens are signed with a different secret
	if _, err := svc.Authorize(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token to be rejected as access token, got %v", err)
	}
	if _, err := svc.Authorize(ctx, "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	svc, _, user := setup(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Authorize(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	svc, _, user := setup(t)
	ctx := context.Background()

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	access, exp, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if exp != 60 || access == "" {
		t.Fatalf("unexpected refresh result %q %d", access, exp)
	}

	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authorize(ctx, access); !errors.Is(err, ErrTokenInvalidated) {
		t.Fatalf("expected invalidated access token, got %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenInvalidated) {
		t.Fatalf("expected invalidated refresh token, got %v", err)
	}
}

func TestTokenTypesAreNotInterchangeableWithSharedSecret(t *testing.T) {
	svc, _, user := setup(t)
	svc.cfg.RefreshSecret = svc.cfg.JWTSecret
	ctx := context.Background()

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Authorize(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not authorize requests, got %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
	if err := svc.Logout(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not log out, got %v", err)
	}
	if _, err := svc.Authorize(ctx, pair.AccessToken); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
}
