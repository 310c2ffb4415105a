package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// clockSkew tolerates drift between the identity provider and this service.
const clockSkew = 30 * time.Second

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrMissingIssuer = errors.New("jwt issuer is required")
	ErrNoUsername    = errors.New("token carries no username")
)

var signingMethod = jwt.SigningMethodHS256

// MintAccessToken signs a token for payload. Production tokens come from the
// identity provider; this is used by tests and local tooling.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", ErrMissingSecret
	case cfg.Issuer == "":
		return "", ErrMissingIssuer
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if err := checkIdentity(payload.Username, payload.Role); err != nil {
		return "", err
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		Username: payload.Username,
		Role:     payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then checks that
// the token names an actor with a known role.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return nil, err
	}
	if err := checkIdentity(claims.Username, claims.Role); err != nil {
		return nil, err
	}
	return claims, nil
}

func checkIdentity(username string, role enums.UserRole) error {
	if strings.TrimSpace(username) == "" {
		return ErrNoUsername
	}
	if !role.IsValid() {
		return fmt.Errorf("invalid user role %q", role)
	}
	return nil
}
