package billing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/marisol-pos/marisol/internal/catalog"
	"github.com/marisol-pos/marisol/internal/shared"
)

type memoryRepo struct {
	items  map[int64]catalog.Item
	lines  map[int64]Line
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]catalog.Item), lines: make(map[int64]Line)}
}

func (r *memoryRepo) addItem(item catalog.Item) {
	r.items[item.ID] = item
}

// WithTx snapshots state so a failing callback leaves the repo untouched,
// mirroring a rolled-back database transaction.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	itemsBackup := make(map[int64]catalog.Item, len(r.items))
	for k, v := range r.items {
		itemsBackup[k] = v
	}
	linesBackup := make(map[int64]Line, len(r.lines))
	for k, v := range r.lines {
		linesBackup[k] = v
	}
	idBackup := r.nextID

	if err := fn(ctx, r); err != nil {
		r.items = itemsBackup
		r.lines = linesBackup
		r.nextID = idBackup
		return err
	}
	return nil
}

func (r *memoryRepo) batchLines(batchID uuid.UUID) []Line {
	var lines []Line
	for _, l := range r.lines {
		if l.BatchID == batchID {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Position != lines[j].Position {
			return lines[i].Position < lines[j].Position
		}
		return lines[i].ID < lines[j].ID
	})
	return lines
}

func (r *memoryRepo) GetInvoice(ctx context.Context, batchID uuid.UUID) (*Invoice, error) {
	lines := r.batchLines(batchID)
	if len(lines) == 0 {
		return nil, ErrBatchNotFound
	}
	return &Invoice{BatchID: batchID, Lines: lines}, nil
}

func (r *memoryRepo) GetInvoiceForUpdate(ctx context.Context, batchID uuid.UUID) (*Invoice, error) {
	return r.GetInvoice(ctx, batchID)
}

func (r *memoryRepo) ListInvoices(ctx context.Context, req ListSalesRequest) ([]Invoice, int, error) {
	byBatch := make(map[uuid.UUID][]Line)
	for _, l := range r.lines {
		if req.Seller != "" && l.Seller != req.Seller {
			continue
		}
		if !req.IncludeVoid && l.Voided() {
			continue
		}
		byBatch[l.BatchID] = append(byBatch[l.BatchID], l)
	}
	invoices := make([]Invoice, 0, len(byBatch))
	for id, lines := range byBatch {
		sort.Slice(lines, func(i, j int) bool { return lines[i].Position < lines[j].Position })
		invoices = append(invoices, Invoice{BatchID: id, Lines: lines})
	}
	return invoices, len(invoices), nil
}

func (r *memoryRepo) GetItemForUpdate(ctx context.Context, itemID int64) (*catalog.Item, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &item, nil
}

func (r *memoryRepo) UpdateItemCounters(ctx context.Context, itemID int64, stock catalog.Stock, sold int64) error {
	item := r.items[itemID]
	item.Stock = stock
	item.Sold = sold
	r.items[itemID] = item
	return nil
}

func (r *memoryRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	r.nextID++
	line.ID = r.nextID
	r.lines[line.ID] = line
	return line.ID, nil
}

func (r *memoryRepo) UpdateLine(ctx context.Context, line Line) error {
	current := r.lines[line.ID]
	current.ItemID = line.ItemID
	current.Quantity = line.Quantity
	current.UnitPrice = line.UnitPrice
	current.Total = line.Total
	current.AmountPaid = line.AmountPaid
	current.AmountOwing = line.AmountOwing
	current.Paid = line.Paid
	current.Position = line.Position
	r.lines[line.ID] = current
	return nil
}

func (r *memoryRepo) DeleteLine(ctx context.Context, lineID int64) error {
	delete(r.lines, lineID)
	return nil
}

func (r *memoryRepo) MarkVoided(ctx context.Context, batchID uuid.UUID, at time.Time, reason string) error {
	marked := false
	for id, l := range r.lines {
		if l.BatchID == batchID && !l.Voided() {
			t := at
			s := reason
			l.VoidedAt = &t
			l.VoidReason = &s
			r.lines[id] = l
			marked = true
		}
	}
	if !marked {
		return ErrBatchNotFound
	}
	return nil
}

func tracked(t *testing.T, qty int64) catalog.Stock {
	t.Helper()
	s, err := catalog.Tracked(qty)
	require.NoError(t, err)
	return s
}

func testItem(id int64, name string, stock catalog.Stock) catalog.Item {
	return catalog.Item{
		ID:        id,
		Name:      name,
		UnitPrice: d("100"),
		Currency:  "DOP",
		Stock:     stock,
		IsActive:  true,
	}
}

var seller = shared.Actor{ID: 7, Name: "maria", Role: shared.RoleSupervisor}

func saleRequest(lines ...SaleLineRequest) CreateSaleRequest {
	return CreateSaleRequest{
		Items:            lines,
		CustomerName:     "Juan Perez",
		CustomerPhone:    "809-555-0100",
		CustomerDocument: "00112345678",
	}
}

func TestCreateSaleReservesStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 10)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	abono := d("100")
	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 3, Total: d("300"), Abono: &abono}), seller)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)

	line := inv.Lines[0]
	require.True(t, line.AmountPaid.Equal(d("100")))
	require.True(t, line.AmountOwing.Equal(d("200")))
	require.False(t, line.Paid)
	require.Equal(t, "maria", line.Seller)

	item := repo.items[1]
	require.Equal(t, int64(7), item.Stock.Qty())
	require.Equal(t, int64(3), item.Sold)
}

func TestVoidSaleRestoresInventory(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 10)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	abono := d("100")
	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 3, Total: d("300"), Abono: &abono}), seller)
	require.NoError(t, err)

	voided, err := svc.VoidSale(ctx, inv.BatchID, "customer cancelled", seller)
	require.NoError(t, err)
	require.True(t, voided.Voided())
	require.NotNil(t, voided.Lines[0].VoidedAt)
	require.Equal(t, "customer cancelled", *voided.Lines[0].VoidReason)

	item := repo.items[1]
	require.Equal(t, int64(10), item.Stock.Qty())
	require.Equal(t, int64(0), item.Sold)

	_, err = svc.VoidSale(ctx, inv.BatchID, "again", seller)
	require.Error(t, err)
	require.Equal(t, shared.KindConflict, shared.KindOf(err))
}

func TestUnlimitedStockNeverDecrements(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(2, "Airport Pickup", catalog.Unlimited()))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 2, Quantity: 5, Total: d("500")}), seller)
	require.NoError(t, err)

	item := repo.items[2]
	require.True(t, item.Stock.IsUnlimited())
	require.Equal(t, int64(5), item.Sold)

	_, err = svc.VoidSale(ctx, inv.BatchID, "cancelled", seller)
	require.NoError(t, err)

	item = repo.items[2]
	require.True(t, item.Stock.IsUnlimited())
	require.Equal(t, int64(0), item.Sold)
}

func TestVoidClampsSoldAtZero(t *testing.T) {
	repo := newMemoryRepo()
	item := testItem(3, "Snorkel Set", tracked(t, 20))
	repo.addItem(item)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 3, Quantity: 4, Total: d("400")}), seller)
	require.NoError(t, err)

	// Sold counter reset externally; the void must not drive it negative.
	reset := repo.items[3]
	reset.Sold = 1
	repo.items[3] = reset

	_, err = svc.VoidSale(ctx, inv.BatchID, "", seller)
	require.NoError(t, err)
	require.Equal(t, int64(0), repo.items[3].Sold)
}

func TestDistinctUnitPricesStaySeparate(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "Park Ticket", tracked(t, 50)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	inv, err := svc.CreateSale(ctx, saleRequest(
		SaleLineRequest{ItemID: 1, Quantity: 2, Total: d("200")}, // adult
		SaleLineRequest{ItemID: 1, Quantity: 2, Total: d("100")}, // child
	), seller)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 2)

	for _, line := range inv.Lines {
		require.True(t, line.AmountPaid.Add(line.AmountOwing).Equal(line.Total))
	}
	require.Equal(t, int64(46), repo.items[1].Stock.Qty())
	require.Equal(t, int64(4), repo.items[1].Sold)
}

func TestDuplicateUnitPricesMerge(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "Park Ticket", tracked(t, 50)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	abono := d("50")
	inv, err := svc.CreateSale(ctx, saleRequest(
		SaleLineRequest{ItemID: 1, Quantity: 1, Total: d("100"), Abono: &abono},
		SaleLineRequest{ItemID: 1, Quantity: 2, Total: d("200")},
	), seller)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)

	line := inv.Lines[0]
	require.Equal(t, int64(3), line.Quantity)
	require.True(t, line.Total.Equal(d("300")))
	require.True(t, line.AmountPaid.Equal(d("50")))
	require.True(t, line.AmountOwing.Equal(d("250")))
}

func TestInsufficientStockAbortsWholeSale(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "Kayak Rental", tracked(t, 10)))
	repo.addItem(testItem(2, "Paddle", tracked(t, 1)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, saleRequest(
		SaleLineRequest{ItemID: 1, Quantity: 2, Total: d("200")},
		SaleLineRequest{ItemID: 2, Quantity: 5, Total: d("250")},
	), seller)
	require.Error(t, err)
	require.Equal(t, shared.KindConflict, shared.KindOf(err))

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.Equal(t, int64(2), short.ItemID)
	require.Equal(t, int64(5), short.Requested)
	require.Equal(t, int64(1), short.Available)

	// Nothing moved: neither item counters nor lines.
	require.Equal(t, int64(10), repo.items[1].Stock.Qty())
	require.Equal(t, int64(0), repo.items[1].Sold)
	require.Empty(t, repo.lines)
}

func TestInactiveItemRejected(t *testing.T) {
	repo := newMemoryRepo()
	item := testItem(1, "Retired Tour", tracked(t, 10))
	item.IsActive = false
	repo.addItem(item)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CreateSale(context.Background(), saleRequest(SaleLineRequest{ItemID: 1, Quantity: 1, Total: d("100")}), seller)
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestUnknownItemRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CreateSale(context.Background(), saleRequest(SaleLineRequest{ItemID: 99, Quantity: 1, Total: d("100")}), seller)
	require.Error(t, err)
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestEditSaleMovesInventory(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 10)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 3, Total: d("300")}), seller)
	require.NoError(t, err)
	lineID := inv.Lines[0].ID

	// Quantity up: two more units reserved.
	edited, err := svc.EditSale(ctx, inv.BatchID, EditSaleRequest{Items: []EditLineRequest{
		{ID: &lineID, ItemID: 1, Quantity: 5, Total: d("500")},
	}}, seller)
	require.NoError(t, err)
	require.Equal(t, int64(5), edited.Lines[0].Quantity)
	require.Equal(t, int64(5), repo.items[1].Stock.Qty())
	require.Equal(t, int64(5), repo.items[1].Sold)

	// Quantity down: four units restored.
	edited, err = svc.EditSale(ctx, inv.BatchID, EditSaleRequest{Items: []EditLineRequest{
		{ID: &lineID, ItemID: 1, Quantity: 1, Total: d("100")},
	}}, seller)
	require.NoError(t, err)
	require.Equal(t, int64(1), edited.Lines[0].Quantity)
	require.Equal(t, int64(9), repo.items[1].Stock.Qty())
	require.Equal(t, int64(1), repo.items[1].Sold)
}

func TestEditSaleRemovesAndAddsLines(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 10)))
	repo.addItem(testItem(2, "Beach Day", tracked(t, 10)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 2, Total: d("200")}), seller)
	require.NoError(t, err)

	// Replace the only line with a line for a different item.
	edited, err := svc.EditSale(ctx, inv.BatchID, EditSaleRequest{Items: []EditLineRequest{
		{ItemID: 2, Quantity: 3, Total: d("450")},
	}}, seller)
	require.NoError(t, err)
	require.Len(t, edited.Lines, 1)
	require.Equal(t, int64(2), edited.Lines[0].ItemID)

	// The customer on the replacement line carries over from the batch.
	require.Equal(t, "Juan Perez", edited.Lines[0].CustomerName)

	require.Equal(t, int64(10), repo.items[1].Stock.Qty())
	require.Equal(t, int64(0), repo.items[1].Sold)
	require.Equal(t, int64(7), repo.items[2].Stock.Qty())
	require.Equal(t, int64(3), repo.items[2].Sold)
}

func TestEditSaleRecomputesSplit(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 10)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	abono := d("200")
	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 3, Total: d("300"), Abono: &abono}), seller)
	require.NoError(t, err)
	lineID := inv.Lines[0].ID

	// No abono in the edit: the collected 200 re-clamps against the new total.
	edited, err := svc.EditSale(ctx, inv.BatchID, EditSaleRequest{Items: []EditLineRequest{
		{ID: &lineID, ItemID: 1, Quantity: 1, Total: d("100")},
	}}, seller)
	require.NoError(t, err)
	require.True(t, edited.Lines[0].AmountPaid.Equal(d("100")))
	require.True(t, edited.Lines[0].AmountOwing.IsZero())
	require.True(t, edited.Lines[0].Paid)

	// Explicit abono restates the payment.
	newAbono := d("30")
	edited, err = svc.EditSale(ctx, inv.BatchID, EditSaleRequest{Items: []EditLineRequest{
		{ID: &lineID, ItemID: 1, Quantity: 1, Total: d("100"), Abono: &newAbono},
	}}, seller)
	require.NoError(t, err)
	require.True(t, edited.Lines[0].AmountPaid.Equal(d("30")))
	require.True(t, edited.Lines[0].AmountOwing.Equal(d("70")))
	require.False(t, edited.Lines[0].Paid)
}

func TestEditVoidedSaleRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 10)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 1, Total: d("100")}), seller)
	require.NoError(t, err)
	_, err = svc.VoidSale(ctx, inv.BatchID, "cancelled", seller)
	require.NoError(t, err)

	_, err = svc.EditSale(ctx, inv.BatchID, EditSaleRequest{Items: []EditLineRequest{
		{ItemID: 1, Quantity: 1, Total: d("100")},
	}}, seller)
	require.Error(t, err)
	require.Equal(t, shared.KindConflict, shared.KindOf(err))
}

func TestEditRejectsForeignLineID(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 10)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 1, Total: d("100")}), seller)
	require.NoError(t, err)

	bogus := int64(9999)
	_, err = svc.EditSale(ctx, inv.BatchID, EditSaleRequest{Items: []EditLineRequest{
		{ID: &bogus, ItemID: 1, Quantity: 1, Total: d("100")},
	}}, seller)
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestEditShortStockLeavesSaleUntouched(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 4)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	inv, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 3, Total: d("300")}), seller)
	require.NoError(t, err)
	lineID := inv.Lines[0].ID

	_, err = svc.EditSale(ctx, inv.BatchID, EditSaleRequest{Items: []EditLineRequest{
		{ID: &lineID, ItemID: 1, Quantity: 10, Total: d("1000")},
	}}, seller)
	require.Error(t, err)
	require.Equal(t, shared.KindConflict, shared.KindOf(err))

	current, err := svc.GetSale(ctx, inv.BatchID)
	require.NoError(t, err)
	require.Equal(t, int64(3), current.Lines[0].Quantity)
	require.Equal(t, int64(1), repo.items[1].Stock.Qty())
	require.Equal(t, int64(3), repo.items[1].Sold)
}

func TestSellersOnlySeeOwnSales(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(testItem(1, "City Tour", tracked(t, 100)))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 1, Total: d("100")}), seller)
	require.NoError(t, err)
	other := shared.Actor{ID: 8, Name: "pedro", Role: shared.RoleSeller}
	_, err = svc.CreateSale(ctx, saleRequest(SaleLineRequest{ItemID: 1, Quantity: 1, Total: d("100")}), other)
	require.NoError(t, err)

	mine, total, err := svc.ListSales(ctx, ListSalesRequest{}, other)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, mine, 1)
	require.Equal(t, "pedro", mine[0].Lines[0].Seller)

	all, total, err := svc.ListSales(ctx, ListSalesRequest{}, seller)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, all, 2)
}

func TestVoidUnknownBatch(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.VoidSale(context.Background(), uuid.New(), "", seller)
	require.Error(t, err)
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}
