// Package account implements the user account lifecycle: registration,
// confirmation by emailed code, login, password reset and change, and
// profile updates.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/cashtrackr/internal/apperr"
	"github.com/dukerupert/cashtrackr/internal/credential"
	"github.com/dukerupert/cashtrackr/internal/email"
	"github.com/dukerupert/cashtrackr/internal/model"
	"github.com/dukerupert/cashtrackr/internal/store"
)

const (
	maxTokenAttempts = 5
	mailTimeout      = 30 * time.Second
)

type UserStore interface {
	Create(ctx context.Context, nu store.NewUser) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByToken(ctx context.Context, token string) (*model.User, error)
	SetToken(ctx context.Context, id int64, token string, expiresAt *time.Time) error
	Confirm(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string, clearToken bool) error
	UpdateProfile(ctx context.Context, id int64, name, lastname, email string) (*model.User, error)
}

type Mailer interface {
	SendConfirmation(ctx context.Context, to email.Recipient, token string) error
	SendPasswordReset(ctx context.Context, to email.Recipient, token string) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Check(plain, hash string) bool
}

type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// TokenObserver is told about every confirmation or reset token generated.
// Tests use it to read codes that otherwise only travel by email.
type TokenObserver func(email, token string)

type Service struct {
	users    UserStore
	mailer   Mailer
	hasher   PasswordHasher
	issuer   TokenIssuer
	newToken func() (string, error)
	tokenTTL time.Duration
	observe  TokenObserver
	logger   *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

type Option func(*Service)

func WithTokenObserver(fn TokenObserver) Option {
	return func(s *Service) { s.observe = fn }
}

// WithTokenTTL makes generated tokens expire. Zero keeps them valid until
// consumed or overwritten.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

func WithTokenGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newToken = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(users UserStore, mailer Mailer, hasher PasswordHasher, issuer TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:    users,
		mailer:   mailer,
		hasher:   hasher,
		issuer:   issuer,
		newToken: credential.GenerateToken,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registration is the input to Register.
type Registration struct {
	Name     string
	Lastname string
	Email    string
	Password string
}

// Register creates an unconfirmed account and emails its confirmation code.
// Email delivery failures are logged and do not fail the call.
func (s *Service) Register(ctx context.Context, reg Registration) (*model.User, error) {
	existing, err := s.users.GetByEmail(ctx, reg.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	var user *model.User
	for attempt := 0; ; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, apperr.Internal(err)
		}
		user, err = s.users.Create(ctx, store.NewUser{
			Name:           reg.Name,
			Lastname:       reg.Lastname,
			Email:          reg.Email,
			Password:       hash,
			Token:          token,
			TokenExpiresAt: s.tokenExpiry(),
		})
		if err == nil {
			break
		}
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		case errors.Is(err, store.ErrTokenTaken) && attempt+1 < maxTokenAttempts:
			continue
		default:
			return nil, apperr.Internal(err)
		}
	}

	s.tokenIssued(user.Email, user.Token)
	s.dispatch("confirmation", func(ctx context.Context) error {
		return s.mailer.SendConfirmation(ctx, recipient(user), user.Token)
	})
	return user, nil
}

// ConfirmAccount consumes a confirmation token. The token is cleared, so a
// second call with the same value fails.
func (s *Service) ConfirmAccount(ctx context.Context, token string) error {
	user, err := s.users.GetByToken(ctx, token)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return ErrInvalidConfirmToken
	}
	if err := s.users.Confirm(ctx, user.ID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Login checks, in order, that the user exists, is confirmed and supplied
// the right password, then returns a signed JWT.
func (s *Service) Login(ctx context.Context, addr, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, addr)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if !user.Confirmed {
		return "", ErrAccountNotConfirmed
	}
	if !s.hasher.Check(password, user.Password) {
		return "", ErrInvalidPassword
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

// ForgotPassword replaces any pending token with a fresh one and emails it.
func (s *Service) ForgotPassword(ctx context.Context, addr string) error {
	user, err := s.users.GetByEmail(ctx, addr)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	token, err := s.assignToken(ctx, user.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	s.tokenIssued(user.Email, token)
	s.dispatch("password_reset", func(ctx context.Context) error {
		return s.mailer.SendPasswordReset(ctx, recipient(user), token)
	})
	return nil
}

// ValidateToken reports whether a reset token is redeemable without
// consuming it.
func (s *Service) ValidateToken(ctx context.Context, token string) error {
	user, err := s.users.GetByToken(ctx, token)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return ErrInvalidResetToken
	}
	return nil
}

// ResetPassword stores a new password for the token's owner and consumes
// the token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	user, err := s.users.GetByToken(ctx, token)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return ErrInvalidResetToken
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, true); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// hashPassword maps bcrypt's 72-byte input limit to a password field error.
func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return hash, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, current, password string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Check(current, user.Password) {
		return ErrWrongCurrentPassword
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, false); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// CheckPassword verifies the password of the authenticated user. Nothing is
// modified.
func (s *Service) CheckPassword(ctx context.Context, userID int64, password string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Check(password, user.Password) {
		return ErrWrongCurrentPassword
	}
	return nil
}

// ProfileUpdate is the input to UpdateProfile.
type ProfileUpdate struct {
	Name     string
	Lastname string
	Email    string
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, p ProfileUpdate) (*model.User, error) {
	owner, err := s.users.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if owner != nil && owner.ID != userID {
		return nil, ErrDuplicateEmail
	}

	user, err := s.users.UpdateProfile(ctx, userID, p.Name, p.Lastname, p.Email)
	if errors.Is(err, store.ErrDuplicateEmail) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// Wait blocks until every email dispatched so far has been attempted.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) loadUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// assignToken gives the user a fresh token, retrying on the rare collision
// with another user's pending code.
func (s *Service) assignToken(ctx context.Context, userID int64) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}
		err = s.users.SetToken(ctx, userID, token, s.tokenExpiry())
		if errors.Is(err, store.ErrTokenTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		return token, nil
	}
	return "", fmt.Errorf("assign token: %w after %d attempts", store.ErrTokenTaken, maxTokenAttempts)
}

func (s *Service) tokenExpiry() *time.Time {
	if s.tokenTTL <= 0 {
		return nil
	}
	t := s.now().Add(s.tokenTTL)
	return &t
}

func (s *Service) tokenIssued(addr, token string) {
	if s.observe != nil {
		s.observe(addr, token)
	}
}

// dispatch sends an email on its own goroutine. The request that triggered
// it never waits and never sees the outcome.
func (s *Service) dispatch(kind string, send func(ctx context.Context) error) {
	if s.mailer == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Error("send email", "kind", kind, "error", err)
		}
	}()
}

func recipient(u *model.User) email.Recipient {
	return email.Recipient{Name: u.Name, Lastname: u.Lastname, Email: u.Email}
}
