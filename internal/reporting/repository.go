package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marisol-pos/marisol/internal/platform/db"
)

// Repository reads rollups straight off the sale lines. Everything here is
// read-only; the figures are derived, never stored.
type Repository interface {
	MonthlyTotals(ctx context.Context, from, to time.Time, seller string) (MonthlySnapshot, error)
	TopItems(ctx context.Context, from, to time.Time, seller string, limit int) ([]TopItem, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) MonthlyTotals(ctx context.Context, from, to time.Time, seller string) (MonthlySnapshot, error) {
	query := `
		SELECT
			COALESCE(SUM(total) FILTER (WHERE voided_at IS NULL), 0),
			COALESCE(SUM(abono) FILTER (WHERE voided_at IS NULL), 0),
			COALESCE(SUM(pendiente) FILTER (WHERE voided_at IS NULL), 0),
			COUNT(DISTINCT batch_id) FILTER (WHERE voided_at IS NULL),
			COUNT(DISTINCT batch_id) FILTER (WHERE voided_at IS NOT NULL)
		FROM sale_lines
		WHERE created_at >= $1 AND created_at < $2`
	args := []interface{}{from, to}
	if seller != "" {
		query += " AND seller = $3"
		args = append(args, seller)
	}

	var (
		snapshot             MonthlySnapshot
		revenue, paid, owing pgtype.Numeric
	)
	err := r.pool.QueryRow(ctx, query, args...).Scan(&revenue, &paid, &owing, &snapshot.InvoiceCount, &snapshot.VoidedCount)
	if err != nil {
		return MonthlySnapshot{}, fmt.Errorf("reporting: monthly totals: %w", err)
	}
	snapshot.Revenue = db.DecimalFromNumeric(revenue)
	snapshot.Collected = db.DecimalFromNumeric(paid)
	snapshot.Outstanding = db.DecimalFromNumeric(owing)
	return snapshot, nil
}

func (r *repository) TopItems(ctx context.Context, from, to time.Time, seller string, limit int) ([]TopItem, error) {
	query := `
		SELECT l.item_id, i.name, SUM(l.quantity) AS qty, COALESCE(SUM(l.total), 0) AS revenue
		FROM sale_lines l
		JOIN sellable_items i ON i.id = l.item_id
		WHERE l.voided_at IS NULL AND l.created_at >= $1 AND l.created_at < $2`
	args := []interface{}{from, to}
	argPos := 3
	if seller != "" {
		query += fmt.Sprintf(" AND l.seller = $%d", argPos)
		args = append(args, seller)
		argPos++
	}
	query += fmt.Sprintf(" GROUP BY l.item_id, i.name ORDER BY qty DESC, revenue DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reporting: top items: %w", err)
	}
	defer rows.Close()

	var items []TopItem
	for rows.Next() {
		var (
			item    TopItem
			revenue pgtype.Numeric
		)
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Quantity, &revenue); err != nil {
			return nil, err
		}
		item.Revenue = db.DecimalFromNumeric(revenue)
		items = append(items, item)
	}
	return items, rows.Err()
}
