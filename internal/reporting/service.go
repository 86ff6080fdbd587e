package reporting

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marisol-pos/marisol/internal/shared"
)

const topItemLimit = 10

// Service produces cached monthly snapshots.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService constructs a Service. cache may be nil (no caching).
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// MonthlySnapshot returns the rollup for one calendar month ("2006-01").
func (s *Service) MonthlySnapshot(ctx context.Context, filter SnapshotFilter) (MonthlySnapshot, error) {
	from, to, err := monthBounds(filter.Month)
	if err != nil {
		return MonthlySnapshot{}, shared.Validationf("invalid month %q, want YYYY-MM", filter.Month)
	}

	key, err := s.cache.BuildKey(ctx, "reporting", "monthly", filter.Month, sellerToken(filter.Seller))
	if err != nil {
		return MonthlySnapshot{}, shared.Internal("cache key", err)
	}

	var snapshot MonthlySnapshot
	err = s.cache.FetchJSON(ctx, key, &snapshot, func(ctx context.Context) (interface{}, error) {
		return s.load(ctx, filter, from, to)
	})
	if err != nil {
		return MonthlySnapshot{}, shared.Internal("monthly snapshot", err)
	}
	return snapshot, nil
}

// Warm precomputes the snapshot for the given month so dashboard reads hit
// the cache. Used by the background worker.
func (s *Service) Warm(ctx context.Context, month string) error {
	_, err := s.MonthlySnapshot(ctx, SnapshotFilter{Month: month})
	return err
}

func (s *Service) load(ctx context.Context, filter SnapshotFilter, from, to time.Time) (MonthlySnapshot, error) {
	var (
		snapshot MonthlySnapshot
		top      []TopItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot, err = s.repo.MonthlyTotals(gctx, from, to, filter.Seller)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = s.repo.TopItems(gctx, from, to, filter.Seller, topItemLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return MonthlySnapshot{}, err
	}
	snapshot.Month = filter.Month
	snapshot.TopItems = top
	return snapshot, nil
}

func monthBounds(month string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("reporting: parse month: %w", err)
	}
	return from, from.AddDate(0, 1, 0), nil
}

func sellerToken(seller string) string {
	if seller == "" {
		return "all"
	}
	return seller
}
