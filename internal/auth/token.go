package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskmanager/backend/internal/utils"
)

// MinSecretLength is the shortest HS256 signing secret accepted.
const MinSecretLength = 32

// Claims is the signed payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Identity converts verified claims into the request identity.
func (c *Claims) Identity() utils.Identity {
	return utils.Identity{
		UserID: c.Subject,
		Email:  c.Email,
		Role:   c.Role,
		Name:   c.Name,
	}
}

// TokenConfig is the process-wide signing configuration.
type TokenConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenIssuer mints and verifies HS256 session tokens. It holds only
// immutable configuration and is safe for concurrent use.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("token issuer and audience are required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenIssuer{
		secret:   secret,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue signs a token for the account, valid from now until now+TTL.
func (t *TokenIssuer) Issue(a *Account) (string, time.Time, error) {
	now := t.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   a.ID,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:      a.DisplayName(),
		Email:     a.Email,
		Role:      a.Role,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, expiry, issuer and audience. Every
// failure yields ErrInvalidToken; the reason is deliberately not reported.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := t.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyIdentity adapts Verify for the request gateway.
func (t *TokenIssuer) VerifyIdentity(token string) (utils.Identity, error) {
	claims, err := t.Verify(token)
	if err != nil {
		return utils.Identity{}, err
	}
	return claims.Identity(), nil
}
