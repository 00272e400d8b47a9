// Package auth verifies the HS256 access tokens issued by the identity
// service. Minting exists for tooling and tests only.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/enums"
)

var method = jwt.SigningMethodHS256

// Claims is the token body. UserID and Role are checked by Validate, which
// the jwt parser calls after the registered claims pass.
type Claims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (c Claims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token has no user_id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token role %q is not recognised", c.Role)
	}
	return nil
}

func (c Claims) IsAdmin() bool { return c.Role == enums.UserRoleAdmin }

type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if cfg.Secret == "" || cfg.Issuer == "" {
		return nil, errors.New("jwt secret and issuer are required")
	}
	return &Verifier{
		key: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}, nil
}

// Verify checks signature, issuer, expiry and the custom claims.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := new(Claims)
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return v.key, nil }); err != nil {
		return nil, err
	}
	return claims, nil
}

// Mint signs a token for userID valid from now for ttl.
func Mint(cfg config.JWTConfig, now time.Time, ttl time.Duration, userID uuid.UUID, role enums.UserRole) (string, error) {
	if ttl <= 0 {
		return "", errors.New("jwt ttl must be positive")
	}
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}
	if cfg.Secret == "" {
		return "", errors.New("jwt secret is required")
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(cfg.Secret))
}
