package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

// TokenClaims are the verified claims of a bearer token. Values of this type are
// only produced by TokenService.Validate.
type TokenClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId,omitempty"`
	Role      string `json:"role,omitempty"`
}

// TokenService issues and validates HS256 bearer tokens. The signing key is fixed
// for the lifetime of the service; replacing it invalidates every issued token.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenService returns a TokenService signing with secret for ttl.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{key: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Intended for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject carrying claims. iat is now and exp is now+TTL;
// the registered sub, iat and exp keys always win over values in claims.
func (s *TokenService) Issue(subject string, claims map[string]any) (string, error) {
	now := s.now()

	mc := make(jwt.MapClaims, len(claims)+3)
	for k, v := range claims {
		mc[k] = v
	}
	mc["sub"] = subject
	mc["iat"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(now.Add(s.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueFor signs a token for account with its id and role embedded.
func (s *TokenService) IssueFor(account *domain.Account) (string, time.Time, error) {
	expiresAt := jwt.NewNumericDate(s.now().Add(s.ttl)).Time
	token, err := s.Issue(account.Username, map[string]any{
		"accountId": account.ID,
		"role":      account.Role.String(),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate verifies the signature and expiry of token. It returns
// domain.ErrTokenExpired when the current time is at or past exp, and
// domain.ErrTokenMalformed for every other failure.
func (s *TokenService) Validate(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrTokenMalformed)
	}
	return claims, nil
}

// ExtractSubject validates token and returns its subject.
func (s *TokenService) ExtractSubject(token string) (string, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractExpiry validates token and returns its expiry.
func (s *TokenService) ExtractExpiry(token string) (time.Time, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}
