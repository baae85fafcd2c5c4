package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenInvalidated = errors.New("token version invalidated")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims carried by access and refresh tokens. The subject is the user id.
type Claims struct {
	Type    string `json:"typ"`
	Address string `json:"addr"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

func signClaims(claims Claims, secret string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parseClaims verifies token and requires it to be of tokenType, so a
// refresh token is never accepted as an access token even when both share
// a secret.
func parseClaims(token, secret, tokenType string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Type != tokenType {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func newClaims(tokenType, userID, address string, version int, now time.Time, ttl time.Duration) Claims {
	return Claims{
		Type:    tokenType,
		Address: address,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
