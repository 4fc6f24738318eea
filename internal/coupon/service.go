package coupon

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrCodeRequired = errors.New("coupon code is required")

// Repository is the lookup surface Service needs; *PostgresRepository satisfies it.
type Repository interface {
	ListActive(ctx context.Context, now time.Time) ([]Coupon, error)
	GetByCode(ctx context.Context, code string, now time.Time) (Coupon, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) ListActive(ctx context.Context) ([]Coupon, error) {
	return s.repo.ListActive(ctx, s.now())
}

// Validate looks up an active coupon by code and rejects exhausted ones.
// Minimum purchase is left to the caller, which knows the subtotal.
func (s *Service) Validate(ctx context.Context, code string) (Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Coupon{}, ErrCodeRequired
	}

	c, err := s.repo.GetByCode(ctx, code, s.now())
	if err != nil {
		return Coupon{}, err
	}
	if c.Exhausted() {
		return Coupon{}, ErrUsageLimitReached
	}
	return c, nil
}
