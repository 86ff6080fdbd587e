package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marisol-pos/marisol/internal/catalog"
	"github.com/marisol-pos/marisol/internal/platform/db"
)

// ErrBatchNotFound indicates an unknown batch id at the storage layer.
var ErrBatchNotFound = errors.New("billing: batch not found")

// Repository is the storage surface of the invoice engine.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, batchID uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListSalesRequest) ([]Invoice, int, error)
}

// TxRepository is the mutation surface, only reachable inside WithTx.
// GetItemForUpdate takes a row lock, serialising the check-then-decrement
// of concurrent sales against the same item.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, batchID uuid.UUID) (*Invoice, error)
	GetItemForUpdate(ctx context.Context, itemID int64) (*catalog.Item, error)
	UpdateItemCounters(ctx context.Context, itemID int64, stock catalog.Stock, sold int64) error
	InsertLine(ctx context.Context, line Line) (int64, error)
	UpdateLine(ctx context.Context, line Line) error
	DeleteLine(ctx context.Context, lineID int64) error
	MarkVoided(ctx context.Context, batchID uuid.UUID, at time.Time, reason string) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const lineColumns = `id, batch_id, item_id, quantity, unit_price, total, abono, pendiente,
	customer_name, customer_phone, customer_document, customer_address, customer_locality,
	seller, supervisor, scheduled_for, paid, position, voided_at, void_reason, created_at`

func (r *repository) GetInvoice(ctx context.Context, batchID uuid.UUID) (*Invoice, error) {
	return r.loadInvoice(ctx, batchID, false)
}

func (r *repository) GetInvoiceForUpdate(ctx context.Context, batchID uuid.UUID) (*Invoice, error) {
	return r.loadInvoice(ctx, batchID, true)
}

func (r *repository) loadInvoice(ctx context.Context, batchID uuid.UUID, forUpdate bool) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM sale_lines WHERE batch_id = $1 ORDER BY position, id`, lineColumns)
	if forUpdate {
		query += " FOR UPDATE"
	}
	rows, err := r.db.Query(ctx, query, batchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inv := Invoice{BatchID: batchID}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(inv.Lines) == 0 {
		return nil, ErrBatchNotFound
	}
	return &inv, nil
}

func (r *repository) ListInvoices(ctx context.Context, req ListSalesRequest) ([]Invoice, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if req.Seller != "" {
		conditions = append(conditions, fmt.Sprintf("seller = $%d", argPos))
		args = append(args, req.Seller)
		argPos++
	}
	if !req.IncludeVoid {
		conditions = append(conditions, "voided_at IS NULL")
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT batch_id) FROM sale_lines %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	batchQuery := fmt.Sprintf(`
		SELECT batch_id FROM sale_lines %s
		GROUP BY batch_id
		ORDER BY MIN(created_at) DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, batchQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var batchIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, err
		}
		batchIDs = append(batchIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(batchIDs) == 0 {
		return nil, total, nil
	}

	lineQuery := fmt.Sprintf(`SELECT %s FROM sale_lines WHERE batch_id = ANY($1::uuid[]) ORDER BY created_at DESC, position, id`, lineColumns)
	lineRows, err := r.db.Query(ctx, lineQuery, batchIDs)
	if err != nil {
		return nil, 0, err
	}
	defer lineRows.Close()

	byBatch := make(map[uuid.UUID]*Invoice)
	var ordered []uuid.UUID
	for lineRows.Next() {
		line, err := scanLine(lineRows)
		if err != nil {
			return nil, 0, err
		}
		inv, ok := byBatch[line.BatchID]
		if !ok {
			inv = &Invoice{BatchID: line.BatchID}
			byBatch[line.BatchID] = inv
			ordered = append(ordered, line.BatchID)
		}
		inv.Lines = append(inv.Lines, *line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, 0, err
	}

	invoices := make([]Invoice, 0, len(ordered))
	for _, id := range ordered {
		invoices = append(invoices, *byBatch[id])
	}
	return invoices, total, nil
}

func (r *repository) GetItemForUpdate(ctx context.Context, itemID int64) (*catalog.Item, error) {
	const query = `
		SELECT id, name, category, unit_price, tier_price, currency, stock, sold, is_active, position, created_at, updated_at
		FROM sellable_items WHERE id = $1 FOR UPDATE`
	row := r.db.QueryRow(ctx, query, itemID)

	var (
		item      catalog.Item
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
	if item.Stock, err = catalog.StockFromDB(stock); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateItemCounters(ctx context.Context, itemID int64, stock catalog.Stock, sold int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sellable_items SET stock = $1, sold = $2, updated_at = NOW() WHERE id = $3`,
		stock.DBValue(), sold, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("billing: item %d vanished during update", itemID)
	}
	return nil
}

func (r *repository) InsertLine(ctx context.Context, line Line) (int64, error) {
	unitPrice, err := db.NumericFromDecimal(line.UnitPrice)
	if err != nil {
		return 0, err
	}
	total, err := db.NumericFromDecimal(line.Total)
	if err != nil {
		return 0, err
	}
	paid, err := db.NumericFromDecimal(line.AmountPaid)
	if err != nil {
		return 0, err
	}
	owing, err := db.NumericFromDecimal(line.AmountOwing)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO sale_lines (batch_id, item_id, quantity, unit_price, total, abono, pendiente,
			customer_name, customer_phone, customer_document, customer_address, customer_locality,
			seller, supervisor, scheduled_for, paid, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		line.BatchID.String(), line.ItemID, line.Quantity, unitPrice, total, paid, owing,
		line.CustomerName, line.CustomerPhone, line.CustomerDocument, line.CustomerAddress, line.CustomerLocality,
		line.Seller, line.Supervisor, line.ScheduledFor, line.Paid, line.Position,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateLine(ctx context.Context, line Line) error {
	unitPrice, err := db.NumericFromDecimal(line.UnitPrice)
	if err != nil {
		return err
	}
	total, err := db.NumericFromDecimal(line.Total)
	if err != nil {
		return err
	}
	paid, err := db.NumericFromDecimal(line.AmountPaid)
	if err != nil {
		return err
	}
	owing, err := db.NumericFromDecimal(line.AmountOwing)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE sale_lines
		SET item_id = $1, quantity = $2, unit_price = $3, total = $4, abono = $5, pendiente = $6,
		    paid = $7, position = $8
		WHERE id = $9 AND voided_at IS NULL`,
		line.ItemID, line.Quantity, unitPrice, total, paid, owing, line.Paid, line.Position, line.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("billing: line %d not updatable", line.ID)
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, lineID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sale_lines WHERE id = $1`, lineID)
	return err
}

func (r *repository) MarkVoided(ctx context.Context, batchID uuid.UUID, at time.Time, reason string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sale_lines SET voided_at = $1, void_reason = $2 WHERE batch_id = $3 AND voided_at IS NULL`,
		at, reason, batchID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func scanLine(row pgx.Row) (*Line, error) {
	var (
		line       Line
		batchID    string
		unitPrice  pgtype.Numeric
		total      pgtype.Numeric
		paid       pgtype.Numeric
		owing      pgtype.Numeric
		supervisor pgtype.Text
		scheduled  pgtype.Timestamptz
		voidedAt   pgtype.Timestamptz
		voidReason pgtype.Text
	)
	err := row.Scan(&line.ID, &batchID, &line.ItemID, &line.Quantity, &unitPrice, &total, &paid, &owing,
		&line.CustomerName, &line.CustomerPhone, &line.CustomerDocument, &line.CustomerAddress, &line.CustomerLocality,
		&line.Seller, &supervisor, &scheduled, &line.Paid, &line.Position, &voidedAt, &voidReason, &line.CreatedAt)
	if err != nil {
		return nil, err
	}
	if line.BatchID, err = uuid.Parse(batchID); err != nil {
		return nil, err
	}
	line.UnitPrice = db.DecimalFromNumeric(unitPrice)
	line.Total = db.DecimalFromNumeric(total)
	line.AmountPaid = db.DecimalFromNumeric(paid)
	line.AmountOwing = db.DecimalFromNumeric(owing)
	if supervisor.Valid {
		line.Supervisor = supervisor.String
	}
	if scheduled.Valid {
		t := scheduled.Time
		line.ScheduledFor = &t
	}
	if voidedAt.Valid {
		t := voidedAt.Time
		line.VoidedAt = &t
	}
	if voidReason.Valid {
		s := voidReason.String
		line.VoidReason = &s
	}
	return &line, nil
}
