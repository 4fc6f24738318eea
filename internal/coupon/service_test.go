package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

type fakeRepo struct {
	coupons map[string]Coupon
}

func (r *fakeRepo) ListActive(ctx context.Context, now time.Time) ([]Coupon, error) {
	out := []Coupon{}
	for _, c := range r.coupons {
		if c.ActiveAt(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetByCode(ctx context.Context, code string, now time.Time) (Coupon, error) {
	c, ok := r.coupons[code]
	if !ok || !c.ActiveAt(now) {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func newTestService(now time.Time, coupons ...Coupon) *Service {
	repo := &fakeRepo{coupons: map[string]Coupon{}}
	for _, c := range coupons {
		repo.coupons[c.Code] = c
	}
	s := NewService(repo)
	s.now = func() time.Time { return now }
	return s
}

func TestService_Validate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	base := Coupon{
		DiscountType:  pricing.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		IsActive:      true,
		StartsAt:      now.Add(-24 * time.Hour),
		ExpiresAt:     now.Add(24 * time.Hour),
	}

	ok := base
	ok.ID, ok.Code = 1, "SAVE10"

	used := base
	used.ID, used.Code, used.UsageLimit, used.UsageCount = 2, "USED", intPtr(10), 10

	expired := base
	expired.ID, expired.Code, expired.ExpiresAt = 3, "OLD", now.Add(-time.Minute)

	s := newTestService(now, ok, used, expired)
	ctx := context.Background()

	c, err := s.Validate(ctx, "  SAVE10 ")
	require.NoError(t, err)
	require.Equal(t, int64(1), c.ID)

	_, err = s.Validate(ctx, "")
	require.ErrorIs(t, err, ErrCodeRequired)

	_, err = s.Validate(ctx, "USED")
	require.ErrorIs(t, err, ErrUsageLimitReached)

	_, err = s.Validate(ctx, "OLD")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Validate(ctx, "MISSING")
	require.ErrorIs(t, err, ErrNotFound)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
}

func TestCoupon_ActiveAt(t *testing.T) {
	now := time.Now()
	c := Coupon{IsActive: true, StartsAt: now, ExpiresAt: now.Add(time.Hour)}
	require.True(t, c.ActiveAt(now))
	require.False(t, c.ActiveAt(now.Add(-time.Second)))
	require.False(t, c.ActiveAt(now.Add(2*time.Hour)))

	c.IsActive = false
	require.False(t, c.ActiveAt(now))
}
