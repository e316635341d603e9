package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/service"
	"github.com/fourseasons/crowdfunding-api/internal/pkg/metrics"
)

// PrincipalKey is the echo context key holding the request's domain.Principal.
const PrincipalKey = "principal"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (*service.TokenClaims, error)
}

// AccountFinder resolves the account named by a token subject.
type AccountFinder interface {
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// Authenticate resolves the bearer token into a principal and attaches it to both
// the echo context and the request context. It never rejects a request: a
// missing, invalid or expired token, or a vanished or disabled account, leaves the
// request anonymous and authorization decides downstream.
func Authenticate(tokens TokenValidator, accounts AccountFinder, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := resolvePrincipal(c, tokens, accounts, log)

			c.Set(PrincipalKey, p)
			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), p)))

			return next(c)
		}
	}
}

func resolvePrincipal(c echo.Context, tokens TokenValidator, accounts AccountFinder, log zerolog.Logger) domain.Principal {
	token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return domain.Anonymous
	}

	claims, err := tokens.Validate(token)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, domain.ErrTokenExpired) {
			reason = "expired"
		}
		metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
		log.Debug().Err(err).Str("reason", reason).Msg("bearer token rejected")
		return domain.Anonymous
	}

	account, err := accounts.FindByUsername(c.Request().Context(), claims.Subject)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			log.Error().Err(err).Str("subject", claims.Subject).Msg("account lookup failed")
		}
		metrics.TokenRejectionsTotal.WithLabelValues("unknown_account").Inc()
		return domain.Anonymous
	}
	// A recreated account with the same username does not inherit old tokens.
	if claims.AccountID != "" && claims.AccountID != account.ID {
		metrics.TokenRejectionsTotal.WithLabelValues("unknown_account").Inc()
		return domain.Anonymous
	}
	if !account.Enabled {
		metrics.TokenRejectionsTotal.WithLabelValues("disabled").Inc()
		return domain.Anonymous
	}

	return account.Principal()
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// Principal returns the principal attached by Authenticate, or domain.Anonymous.
func Principal(c echo.Context) domain.Principal {
	if p, ok := c.Get(PrincipalKey).(domain.Principal); ok {
		return p
	}
	return domain.PrincipalFrom(c.Request().Context())
}

// RequireAuthenticated rejects anonymous requests with domain.ErrUnauthenticated.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Principal(c).IsAnonymous() {
				return domain.ErrUnauthenticated
			}
			return next(c)
		}
	}
}
