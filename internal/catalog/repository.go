package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marisol-pos/marisol/internal/platform/db"
	"github.com/marisol-pos/marisol/internal/shared"
)

// Repository owns sellable item records. Stock and sold counters are only
// written through the transactional surface consumed by the billing services.
type Repository interface {
	Get(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context, req ListItemsRequest) ([]Item, int, error)
	Create(ctx context.Context, item Item) (int64, error)
	Update(ctx context.Context, id int64, item Item) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const itemColumns = `id, name, category, unit_price, tier_price, currency, stock, sold, is_active, position, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Item, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM sellable_items WHERE id = $1`, itemColumns), id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundf("item %d not found", id)
		}
		return nil, err
	}
	return item, nil
}

func (r *repository) List(ctx context.Context, req ListItemsRequest) ([]Item, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if req.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argPos))
		args = append(args, req.Category)
		argPos++
	}
	if req.ActiveOnly {
		conditions = append(conditions, "is_active")
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sellable_items %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM sellable_items %s ORDER BY position, id LIMIT $%d OFFSET $%d`,
		itemColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *item)
	}
	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, item Item) (int64, error) {
	unitPrice, err := db.NumericFromDecimal(item.UnitPrice)
	if err != nil {
		return 0, err
	}
	tierPrice, err := encodeTierPrice(item)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO sellable_items (name, category, unit_price, tier_price, currency, stock, sold, is_active, position)
		VALUES ($1, $2, $3, $4, $5, $6, 0, TRUE, $7)
		RETURNING id`,
		item.Name, item.Category, unitPrice, tierPrice, item.Currency, item.Stock.DBValue(), item.Position,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, item Item) error {
	unitPrice, err := db.NumericFromDecimal(item.UnitPrice)
	if err != nil {
		return err
	}
	tierPrice, err := encodeTierPrice(item)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE sellable_items
		SET name = $1, category = $2, unit_price = $3, tier_price = $4, is_active = $5, position = $6, updated_at = NOW()
		WHERE id = $7`,
		item.Name, item.Category, unitPrice, tierPrice, item.IsActive, item.Position, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("item %d not found", id)
	}
	return nil
}

func encodeTierPrice(item Item) (pgtype.Numeric, error) {
	if item.TierPrice == nil {
		return pgtype.Numeric{}, nil
	}
	return db.NumericFromDecimal(*item.TierPrice)
}

func scanItem(row pgx.Row) (*Item, error) {
	var (
		item      Item
		unitPrice pgtype.Numeric
		tierPrice pgtype.Numeric
		stock     int64
	)
	err := row.Scan(&item.ID, &item.Name, &item.Category, &unitPrice, &tierPrice, &item.Currency,
		&stock, &item.Sold, &item.IsActive, &item.Position, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.UnitPrice = db.DecimalFromNumeric(unitPrice)
	if tierPrice.Valid {
		tp := db.DecimalFromNumeric(tierPrice)
		item.TierPrice = &tp
	}
	if item.Stock, err = StockFromDB(stock); err != nil {
		return nil, err
	}
	return &item, nil
}
