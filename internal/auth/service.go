package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/taskmanager/backend/internal/metrics"
)

// Service implements registration, login, password change and account lookup.
// It keeps no state between calls beyond its immutable collaborators.
type Service struct {
	store   AccountStore
	hasher  *Hasher
	tokens  *TokenIssuer
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService wires the service. m may be nil.
func NewService(store AccountStore, hasher *Hasher, tokens *TokenIssuer, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger.With("component", "auth"),
		metrics: m,
		now:     time.Now,
	}
}

// Register creates an active account and returns a session for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	sess, err := s.register(ctx, in)
	s.observe(ctx, "register", err)
	return sess, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*Session, error) {
	invalid := in.validate()
	email := NormalizeEmail(in.Email)
	role, _ := CanonicalRole(in.Role)

	fail := func(op string, err error) error {
		return &Error{
			Kind:    KindInternal,
			Message: msgRegisterFailed,
			Err:     oops.In("auth").Code("AUTH_REGISTER_FAILED").With("operation", op).With("email", email).Wrap(err),
		}
	}

	// A taken address is reported ahead of any other field problem.
	if validEmail(in.Email) {
		_, err := s.store.FindByEmail(ctx, email)
		if err == nil {
			return nil, &Error{Kind: KindDuplicateEmail, Message: msgDuplicateEmail}
		}
		if invalid == nil && !errors.Is(err, ErrAccountNotFound) {
			return nil, fail("find by email", err)
		}
	}
	if invalid != nil {
		return nil, invalid
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fail("hash password", err)
	}

	acct, err := s.store.Insert(ctx, &Account{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost the race with a concurrent registration; the index caught it.
			return nil, &Error{Kind: KindDuplicateEmail, Message: msgDuplicateEmail}
		}
		return nil, fail("insert account", err)
	}

	sess, err := s.issue(acct)
	if err != nil {
		return nil, fail("issue token", err)
	}
	s.logger.InfoContext(ctx, "account registered", "user_id", acct.ID, "role", acct.Role)
	return sess, nil
}

// Login verifies credentials. Unknown email, inactive account and wrong
// password all produce the same KindInvalidCredentials error.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	sess, err := s.login(ctx, in)
	s.observe(ctx, "login", err)
	return sess, err
}

func (s *Service) login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	email := NormalizeEmail(in.Email)
	invalid := &Error{Kind: KindInvalidCredentials, Message: msgInvalidCredentials}

	fail := func(op string, err error) error {
		return &Error{
			Kind:    KindInternal,
			Message: msgLoginFailed,
			Err:     oops.In("auth").Code("AUTH_LOGIN_FAILED").With("operation", op).With("email", email).Wrap(err),
		}
	}

	acct, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.hasher.burn(in.Password)
			return nil, invalid
		}
		return nil, fail("find by email", err)
	}

	// Verify before looking at IsActive so both paths cost the same.
	if !s.hasher.Verify(in.Password, acct.PasswordHash) || !acct.IsActive {
		return nil, invalid
	}

	now := s.now().UTC()
	if now.Before(acct.CreatedAt) {
		now = acct.CreatedAt
	}
	acct.LastLoginAt = &now
	if err := s.store.Update(ctx, acct); err != nil {
		return nil, fail("record login", err)
	}

	sess, err := s.issue(acct)
	if err != nil {
		return nil, fail("issue token", err)
	}
	s.logger.InfoContext(ctx, "account logged in", "user_id", acct.ID)
	return sess, nil
}

// ChangePassword replaces the password after checking the current one. It
// returns false without an error when the account is missing or inactive or
// the current password is wrong. Existing tokens stay valid.
func (s *Service) ChangePassword(ctx context.Context, accountID string, in ChangePasswordInput) (bool, error) {
	ok, err := s.changePassword(ctx, accountID, in)
	switch {
	case err != nil:
		s.observe(ctx, "change_password", err)
	case !ok:
		s.metrics.ObserveAuth("change_password", "rejected")
	default:
		s.metrics.ObserveAuth("change_password", "ok")
	}
	return ok, err
}

func (s *Service) changePassword(ctx context.Context, accountID string, in ChangePasswordInput) (bool, error) {
	if err := in.validate(); err != nil {
		return false, err
	}
	fail := func(op string, err error) error {
		return &Error{
			Kind:    KindInternal,
			Message: msgChangeFailed,
			Err:     oops.In("auth").Code("AUTH_CHANGE_PASSWORD_FAILED").With("operation", op).With("user_id", accountID).Wrap(err),
		}
	}

	acct, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, fail("find by id", err)
	}
	if !acct.IsActive || !s.hasher.Verify(in.CurrentPassword, acct.PasswordHash) {
		return false, nil
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return false, fail("hash password", err)
	}
	acct.PasswordHash = hash
	if err := s.store.Update(ctx, acct); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, fail("update account", err)
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", acct.ID)
	return true, nil
}

// GetAccountByID returns the active account with id, or nil when there is none.
func (s *Service) GetAccountByID(ctx context.Context, id string) (*Account, error) {
	acct, err := s.store.FindByID(ctx, id)
	return s.activeOnly(acct, err, "find by id")
}

// GetAccountByEmail looks the email up case-insensitively; nil when there is
// no active match.
func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	acct, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	return s.activeOnly(acct, err, "find by email")
}

func (s *Service) activeOnly(acct *Account, err error, op string) (*Account, error) {
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil
		}
		return nil, &Error{
			Kind:    KindInternal,
			Message: msgLookupFailed,
			Err:     oops.In("auth").Code("AUTH_LOOKUP_FAILED").With("operation", op).Wrap(err),
		}
	}
	if !acct.IsActive {
		return nil, nil
	}
	return acct, nil
}

// Tokens exposes the issuer, e.g. for the gateway.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

func (s *Service) issue(acct *Account) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(acct)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Account: acct}, nil
}

func (s *Service) observe(ctx context.Context, op string, err error) {
	if err == nil {
		s.metrics.ObserveAuth(op, "ok")
		return
	}
	kind := KindOf(err)
	s.metrics.ObserveAuth(op, kind.String())
	if kind == KindInternal {
		s.logger.ErrorContext(ctx, op+" failed", "error", err)
		return
	}
	s.logger.WarnContext(ctx, op+" rejected", "outcome", kind.String())
}
