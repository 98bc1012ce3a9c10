// Package auth issues and validates the bearer tokens that guard the API.
package auth

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"reportverify/internal/config"
	"reportverify/internal/domain"
)

const audience = "reportverify-api"

// Scope grants access to a group of endpoints.
type Scope string

const (
	ScopeRead  Scope = "verifications:read"
	ScopeWrite Scope = "verifications:write"
)

// Claims are the JWT claims of an API token.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []Scope `json:"scopes"`
}

// HasScope reports whether the token grants s.
func (c *Claims) HasScope(s Scope) bool {
	return slices.Contains(c.Scopes, s)
}

// TokenService signs and validates API tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService from auth configuration.
func NewTokenService(cfg *config.AuthConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		expiry: cfg.TokenExpiry,
		now:    time.Now,
	}
}

// Issue mints a token for subject. A non-positive ttl uses the configured expiry.
func (s *TokenService) Issue(subject string, ttl time.Duration, scopes ...Scope) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.expiry
	}
	if len(scopes) == 0 {
		scopes = []Scope{ScopeRead, ScopeWrite}
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{audience},
		},
		Scopes: scopes,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token and returns its claims. Every failure wraps
// domain.ErrInvalidToken.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithAudience(audience),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return claims, nil
}
