package auth

import (
	"context"
	"time"

	"github.com/ZeroR0R/LSBank/internal/config"
	"github.com/ZeroR0R/LSBank/internal/identity"
)

// Service issues and validates access and refresh tokens.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
	now    func() time.Time
}

func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo, now: time.Now}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues a token pair for an authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	now := s.now()
	access, err := signClaims(newClaims(tokenTypeAccess, user.ID, user.Address.Hex(), user.TokenVersion, now, s.cfg.AccessTokenTTL), s.cfg.JWTSecret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := signClaims(newClaims(tokenTypeRefresh, user.ID, user.Address.Hex(), user.TokenVersion, now, s.cfg.RefreshTokenTTL), s.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

// Authorize validates an access token and returns the current user. Tokens
// issued before the last logout are rejected.
func (s *Service) Authorize(ctx context.Context, accessToken string) (identity.User, error) {
	claims, err := parseClaims(accessToken, s.cfg.JWTSecret, tokenTypeAccess)
	if err != nil {
		return identity.User{}, err
	}
	return s.current(ctx, claims)
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := parseClaims(refreshToken, s.cfg.RefreshSecret, tokenTypeRefresh)
	if err != nil {
		return "", 0, err
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return "", 0, err
	}
	signed, err := signClaims(newClaims(tokenTypeAccess, user.ID, user.Address.Hex(), user.TokenVersion, s.now(), s.cfg.AccessTokenTTL), s.cfg.JWTSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := parseClaims(refreshToken, s.cfg.RefreshSecret, tokenTypeRefresh)
	if err != nil {
		return err
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}

func (s *Service) current(ctx context.Context, claims Claims) (identity.User, error) {
	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return identity.User{}, ErrInvalidToken
	}
	if user.TokenVersion != claims.Version {
		return identity.User{}, ErrTokenInvalidated
	}
	return user, nil
}
