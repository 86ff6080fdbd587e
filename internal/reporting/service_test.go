package reporting

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/marisol-pos/marisol/internal/shared"
)

type mockRepo struct {
	snapshot     MonthlySnapshot
	top          []TopItem
	totalCalls   int
	topCalls     int
	lastSeller   string
	lastFrom     time.Time
	lastTo       time.Time
	lastTopLimit int
}

func (m *mockRepo) MonthlyTotals(ctx context.Context, from, to time.Time, seller string) (MonthlySnapshot, error) {
	m.totalCalls++
	m.lastSeller = seller
	m.lastFrom = from
	m.lastTo = to
	return m.snapshot, nil
}

func (m *mockRepo) TopItems(ctx context.Context, from, to time.Time, seller string, limit int) ([]TopItem, error) {
	m.topCalls++
	m.lastTopLimit = limit
	return m.top, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestMonthlySnapshotAggregates(t *testing.T) {
	repo := &mockRepo{
		snapshot: MonthlySnapshot{
			Revenue:      decimal.NewFromInt(5000),
			Collected:    decimal.NewFromInt(3200),
			Outstanding:  decimal.NewFromInt(1800),
			InvoiceCount: 12,
			VoidedCount:  2,
		},
		top: []TopItem{{ItemID: 1, Name: "City Tour", Quantity: 9, Revenue: decimal.NewFromInt(900)}},
	}
	svc := newTestService(t, repo)

	snap, err := svc.MonthlySnapshot(context.Background(), SnapshotFilter{Month: "2026-08"})
	require.NoError(t, err)
	require.Equal(t, "2026-08", snap.Month)
	require.True(t, snap.Revenue.Equal(decimal.NewFromInt(5000)))
	require.Equal(t, int64(12), snap.InvoiceCount)
	require.Len(t, snap.TopItems, 1)
	require.Equal(t, "City Tour", snap.TopItems[0].Name)

	require.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), repo.lastFrom)
	require.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), repo.lastTo)
	require.Equal(t, topItemLimit, repo.lastTopLimit)
}

func TestMonthlySnapshotCaches(t *testing.T) {
	repo := &mockRepo{snapshot: MonthlySnapshot{InvoiceCount: 3}}
	svc := newTestService(t, repo)
	ctx := context.Background()
	filter := SnapshotFilter{Month: "2026-08"}

	_, err := svc.MonthlySnapshot(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 1, repo.totalCalls)

	// Second read comes from cache.
	_, err = svc.MonthlySnapshot(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 1, repo.totalCalls)

	// A bump invalidates; the next read reloads.
	require.NoError(t, svc.cache.Bump(ctx))
	repo.snapshot.InvoiceCount = 4
	snap, err := svc.MonthlySnapshot(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, int64(4), snap.InvoiceCount)
	require.Equal(t, 2, repo.totalCalls)
}

func TestMonthlySnapshotSellerScopesKey(t *testing.T) {
	repo := &mockRepo{snapshot: MonthlySnapshot{InvoiceCount: 1}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.MonthlySnapshot(ctx, SnapshotFilter{Month: "2026-08", Seller: "maria"})
	require.NoError(t, err)
	require.Equal(t, "maria", repo.lastSeller)

	// A different seller filter must not reuse the cached value.
	_, err = svc.MonthlySnapshot(ctx, SnapshotFilter{Month: "2026-08", Seller: "pedro"})
	require.NoError(t, err)
	require.Equal(t, 2, repo.totalCalls)
}

func TestMonthlySnapshotRejectsBadMonth(t *testing.T) {
	svc := newTestService(t, &mockRepo{})

	_, err := svc.MonthlySnapshot(context.Background(), SnapshotFilter{Month: "August 2026"})
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestWorksWithoutRedis(t *testing.T) {
	repo := &mockRepo{snapshot: MonthlySnapshot{InvoiceCount: 5}}
	svc := NewService(repo, NewCache(nil, time.Minute))

	snap, err := svc.MonthlySnapshot(context.Background(), SnapshotFilter{Month: "2026-08"})
	require.NoError(t, err)
	require.Equal(t, int64(5), snap.InvoiceCount)
}
