package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("not authenticated")
)

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid registration: %d field(s)", len(e.Fields))
}

type Service struct {
	repo       Repository
	sessionTTL time.Duration
	cost       int
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, sessionTTL time.Duration, logger *slog.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		sessionTTL: sessionTTL,
		cost:       bcrypt.DefaultCost,
		logger:     logger,
		now:        time.Now,
	}
}

func validateRegistration(r Registration) error {
	fields := map[string]string{}
	if len(strings.TrimSpace(r.Username)) < 3 {
		fields["username"] = "Username must be at least 3 characters"
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		fields["email"] = "Invalid email address"
	}
	if len(r.Password) < 6 {
		fields["password"] = "Password must be at least 6 characters"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Register creates the user and logs them in.
func (s *Service) Register(ctx context.Context, r Registration) (User, Session, error) {
	if err := validateRegistration(r); err != nil {
		return User{}, Session{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return User{}, Session{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		Username:     strings.TrimSpace(r.Username),
		Email:        strings.TrimSpace(r.Email),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(r.FullName),
	}
	if err := s.repo.Create(ctx, &u); err != nil {
		return User{}, Session{}, err
	}

	sess, err := s.startSession(ctx, u.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	s.logger.Info("user registered", "user_id", u.ID)
	return u, sess, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (User, Session, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, Session{}, ErrInvalidCredentials
		}
		return User{}, Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, Session{}, ErrInvalidCredentials
	}

	sess, err := s.startSession(ctx, u.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	return u, sess, nil
}

func (s *Service) startSession(ctx context.Context, userID int64) (Session, error) {
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.sessionTTL).UTC(),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthenticated
	}
	u, err := s.repo.SessionUser(ctx, token, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, err
	}
	return u, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, p Profile) (User, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Address = strings.TrimSpace(p.Address)
	p.City = strings.TrimSpace(p.City)
	p.State = strings.TrimSpace(p.State)
	p.ZipCode = strings.TrimSpace(p.ZipCode)
	return s.repo.UpdateProfile(ctx, userID, p)
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, s.now().UTC())
}
