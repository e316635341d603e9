package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
	"github.com/fourseasons/crowdfunding-api/internal/pkg/metrics"
)

// AuthService implements registration, login and logout.
type AuthService struct {
	repo   ports.AccountRepository
	tokens *TokenService
	guard  *LockoutGuard
	sink   ports.ActivitySink
	cost   int
	dummy  []byte
	now    func() time.Time
	log    zerolog.Logger
}

func NewAuthService(
	repo ports.AccountRepository,
	tokens *TokenService,
	guard *LockoutGuard,
	sink ports.ActivitySink,
	bcryptCost int,
	log zerolog.Logger,
) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	// Unknown identifiers are compared against this hash so they cost the same as a
	// real password check.
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		panic(fmt.Sprintf("auth: generate dummy hash: %v", err))
	}
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		guard:  guard,
		sink:   sinkOrNop(sink),
		cost:   bcryptCost,
		dummy:  dummy,
		now:    time.Now,
		log:    log,
	}
}

// WithClock overrides the time source used for lockout decisions. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Register creates a MEMBER account and returns a token for it. Email conflicts are
// reported before username conflicts.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrValidation)
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}
	exists, err = s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.DefaultRole,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	token, expiresAt, err := s.tokens.IssueFor(account)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues("register").Inc()
	s.sink.Publish(newActivity(domain.ActivityAccountRegistered, account.ID, account.ID, now))
	s.log.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("account registered")

	return &ports.AuthResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// Login verifies credentials and returns a token. Every rejection is reported as
// domain.ErrInvalidCredentials; the lockout counters are persisted on both the
// success and the failure path.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.findByIdentifier(ctx, identifier)
	if errors.Is(err, domain.ErrAccountNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		metrics.LoginAttemptsTotal.WithLabelValues("unknown_account").Inc()
		s.log.Debug().Str("identifier", identifier).Msg("login for unknown account")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	now := s.now().UTC()
	account, locked, err := s.guard.Check(ctx, account, now)
	if err != nil {
		return nil, fmt.Errorf("login: lockout check: %w", err)
	}
	if locked {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
		s.sink.Publish(newActivity(domain.ActivityLoginBlocked, account.ID, account.ID, now))
		s.log.Warn().Err(domain.ErrAccountLocked).Str("account_id", account.ID).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}
	if !account.Enabled {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		metrics.LoginAttemptsTotal.WithLabelValues("disabled").Inc()
		s.log.Warn().Str("account_id", account.ID).Msg("login rejected: account disabled")
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, s.recordFailure(ctx, account, now)
	}

	policy := s.guard.Policy()
	account, err = updateAccount(ctx, s.repo, account, func(a *domain.Account) bool {
		if a.FailedLogins == 0 && a.LastFailedLoginAt == nil {
			return false
		}
		policy.RecordSuccess(a)
		a.UpdatedAt = now
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("login: record success: %w", err)
	}

	token, expiresAt, err := s.tokens.IssueFor(account)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	s.sink.Publish(newActivity(domain.ActivityLoginSucceeded, account.ID, account.ID, now))
	s.log.Info().Str("account_id", account.ID).Msg("login succeeded")

	return &ports.AuthResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// Logout drops the caller's principal from ctx. The token itself stays valid until
// it expires: there is no server-side revocation list.
func (s *AuthService) Logout(ctx context.Context) context.Context {
	p := domain.PrincipalFrom(ctx)
	if !p.IsAnonymous() {
		s.log.Debug().Str("account_id", p.AccountID).Msg("logout")
	}
	return domain.WithPrincipal(ctx, domain.Anonymous)
}

// recordFailure persists a failed attempt and returns the error Login reports.
func (s *AuthService) recordFailure(ctx context.Context, account *domain.Account, now time.Time) error {
	policy := s.guard.Policy()
	var lockedNow bool
	stored, err := updateAccount(ctx, s.repo, account, func(a *domain.Account) bool {
		// A concurrent attempt may have locked the account since it was read.
		if locked, _ := policy.IsLocked(a, now); locked {
			lockedNow = false
			return false
		}
		policy.RecordFailure(a, now)
		a.UpdatedAt = now
		lockedNow = policy.Reached(a)
		return true
	})
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("failed to record login failure")
		return fmt.Errorf("login: record failure: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("bad_password").Inc()
	s.sink.Publish(newActivity(domain.ActivityLoginFailed, stored.ID, stored.ID, now,
		"failed_logins", fmt.Sprint(stored.FailedLogins)))

	if lockedNow {
		metrics.AccountLockoutsTotal.Inc()
		s.sink.Publish(newActivity(domain.ActivityAccountLocked, stored.ID, stored.ID, now, "reason", "failed_logins"))
		s.log.Warn().Str("account_id", stored.ID).Int("failed_logins", stored.FailedLogins).Msg("account locked after repeated failures")
	}
	return domain.ErrInvalidCredentials
}

// findByIdentifier resolves an account by username or email. Identifiers that look
// like an email are tried as email first.
func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	byEmail := func() (*domain.Account, error) {
		return s.repo.FindByEmail(ctx, strings.ToLower(identifier))
	}
	byUsername := func() (*domain.Account, error) {
		return s.repo.FindByUsername(ctx, identifier)
	}

	first, second := byUsername, byEmail
	if strings.Contains(identifier, "@") {
		first, second = byEmail, byUsername
	}

	account, err := first()
	if errors.Is(err, domain.ErrAccountNotFound) {
		return second()
	}
	return account, err
}
