package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/marisol-pos/marisol/internal/shared"
)

// InsufficientStockError names the item that could not cover a sale.
type InsufficientStockError struct {
	ItemID    int64
	ItemName  string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ItemName, e.Requested, e.Available)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheBumper invalidates derived read models after a mutation.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service coordinates sale creation, voiding and editing. Every mutation
// runs inside one transaction: inventory counters and line rows change
// together or not at all.
type Service struct {
	repo        Repository
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	bumper      CacheBumper
}

// NewService builds a Service. audit, idempotency and bumper may be nil.
func NewService(repo Repository, audit AuditPort, idem *shared.IdempotencyStore, bumper CacheBumper) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, bumper: bumper}
}

// GetSale loads one invoice batch.
func (s *Service) GetSale(ctx context.Context, batchID uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, batchID)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return nil, shared.NotFoundf("sale %s not found", batchID)
		}
		return nil, shared.Internal("load sale", err)
	}
	return inv, nil
}

// ListSales lists invoices. Sellers only see their own sales; supervisors
// and admins see everything.
func (s *Service) ListSales(ctx context.Context, req ListSalesRequest, actor shared.Actor) ([]Invoice, int, error) {
	if !actor.Role.AtLeast(shared.RoleSupervisor) {
		req.Seller = actor.Name
	}
	invoices, total, err := s.repo.ListInvoices(ctx, req)
	if err != nil {
		return nil, 0, shared.Internal("list sales", err)
	}
	return invoices, total, nil
}

// mergedLine is one line after collapsing duplicate (item, unit price) pairs.
type mergedLine struct {
	itemID    int64
	quantity  int64
	unitPrice decimal.Decimal
	total     decimal.Decimal
	abono     decimal.Decimal
}

// CreateSale validates the proposed invoice, reserves inventory and persists
// all lines under a fresh batch id, atomically.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest, actor shared.Actor) (*Invoice, error) {
	merged, err := mergeSaleLines(req.Items)
	if err != nil {
		return nil, err
	}

	idemKey := ""
	if req.ClientRef != "" && s.idempotency != nil {
		idemKey = "sale:" + req.ClientRef
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "billing"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, shared.Conflictf("sale %s already registered", req.ClientRef)
			}
			return nil, shared.Internal("idempotency check", err)
		}
	}

	batchID := uuid.New()
	now := time.Now().UTC()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.consumeInventory(ctx, tx, quantityByItem(merged)); err != nil {
			return err
		}
		for i, m := range merged {
			paid, owing := Split(m.total, m.abono)
			line := Line{
				BatchID:          batchID,
				ItemID:           m.itemID,
				Quantity:         m.quantity,
				UnitPrice:        m.unitPrice,
				Total:            m.total,
				AmountPaid:       paid,
				AmountOwing:      owing,
				CustomerName:     req.CustomerName,
				CustomerPhone:    req.CustomerPhone,
				CustomerDocument: req.CustomerDocument,
				CustomerAddress:  req.CustomerAddress,
				CustomerLocality: req.CustomerLocality,
				Seller:           actor.Name,
				Supervisor:       supervisorName(actor),
				ScheduledFor:     req.ScheduledFor,
				Paid:             owing.IsZero(),
				Position:         int32(i + 1),
				CreatedAt:        now,
			}
			if _, err := tx.InsertLine(ctx, line); err != nil {
				return shared.Internal("insert sale line", err)
			}
		}
		return nil
	})
	if err != nil {
		if idemKey != "" {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return nil, err
	}

	s.recordAudit(ctx, actor, "sale:create", batchID, map[string]any{
		"lines": len(merged), "customer": req.CustomerName,
	})
	s.bump(ctx)
	return s.GetSale(ctx, batchID)
}

// VoidSale cancels a batch terminally and restores exactly the inventory
// reserved at creation time. A second void attempt is rejected outright.
func (s *Service) VoidSale(ctx context.Context, batchID uuid.UUID, reason string, actor shared.Actor) (*Invoice, error) {
	now := time.Now().UTC()

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, batchID)
		if err != nil {
			if errors.Is(err, ErrBatchNotFound) {
				return shared.NotFoundf("sale %s not found", batchID)
			}
			return shared.Internal("load sale", err)
		}
		for _, l := range inv.Lines {
			if l.Voided() {
				return shared.Conflictf("sale %s already voided", batchID)
			}
		}

		reserved := quantityByLines(inv.Lines)
		for _, itemID := range sortedItemIDs(reserved) {
			qty := reserved[itemID]
			item, err := tx.GetItemForUpdate(ctx, itemID)
			if err != nil {
				return shared.Internal("load item", err)
			}
			sold := item.Sold - qty
			if sold < 0 {
				sold = 0
			}
			if err := tx.UpdateItemCounters(ctx, itemID, item.Stock.Add(qty), sold); err != nil {
				return shared.Internal("restore inventory", err)
			}
		}

		if err := tx.MarkVoided(ctx, batchID, now, reason); err != nil {
			return shared.Internal("mark voided", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "sale:void", batchID, map[string]any{"reason": reason})
	s.bump(ctx)
	return s.GetSale(ctx, batchID)
}

// EditSale rewrites the line set of an existing, non-voided batch. Quantity
// deltas move inventory symmetrically with creation, so stock consumed
// always equals the sum of active line quantities.
func (s *Service) EditSale(ctx context.Context, batchID uuid.UUID, req EditSaleRequest, actor shared.Actor) (*Invoice, error) {
	if len(req.Items) == 0 {
		return nil, shared.Validationf("an invoice needs at least one line")
	}
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return nil, shared.Validationf("quantity must be at least 1")
		}
		if it.Total.IsNegative() {
			return nil, shared.Validationf("line total must not be negative")
		}
		if it.Abono != nil && it.Abono.IsNegative() {
			return nil, shared.Validationf("abono must not be negative")
		}
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, batchID)
		if err != nil {
			if errors.Is(err, ErrBatchNotFound) {
				return shared.NotFoundf("sale %s not found", batchID)
			}
			return shared.Internal("load sale", err)
		}
		for _, l := range inv.Lines {
			if l.Voided() {
				return shared.Conflictf("sale %s is voided and cannot be edited", batchID)
			}
		}

		existing := make(map[int64]Line, len(inv.Lines))
		for _, l := range inv.Lines {
			existing[l.ID] = l
		}
		keep := make(map[int64]bool, len(req.Items))
		for _, it := range req.Items {
			if it.ID == nil {
				continue
			}
			if _, ok := existing[*it.ID]; !ok {
				return shared.Validationf("line %d does not belong to sale %s", *it.ID, batchID)
			}
			keep[*it.ID] = true
		}

		// Inventory reconciliation: new demand minus old demand, per item.
		deltas := make(map[int64]int64)
		for _, l := range inv.Lines {
			deltas[l.ItemID] -= l.Quantity
		}
		for _, it := range req.Items {
			deltas[it.ItemID] += it.Quantity
		}
		if err := s.applyDeltas(ctx, tx, deltas); err != nil {
			return err
		}

		for _, l := range inv.Lines {
			if !keep[l.ID] {
				if err := tx.DeleteLine(ctx, l.ID); err != nil {
					return shared.Internal("delete sale line", err)
				}
			}
		}

		template := inv.Lines[0]
		for i, it := range req.Items {
			unitPrice := unitPriceOf(it.Total, it.Quantity)
			if it.ID != nil {
				line := existing[*it.ID]
				var paid, owing decimal.Decimal
				if it.Abono != nil {
					paid, owing = Split(it.Total, *it.Abono)
				} else {
					paid, owing = Resplit(line.AmountPaid, it.Total)
				}
				line.ItemID = it.ItemID
				line.Quantity = it.Quantity
				line.UnitPrice = unitPrice
				line.Total = it.Total
				line.AmountPaid = paid
				line.AmountOwing = owing
				line.Paid = owing.IsZero()
				line.Position = int32(i + 1)
				if err := tx.UpdateLine(ctx, line); err != nil {
					return shared.Internal("update sale line", err)
				}
				continue
			}

			abono := decimal.Zero
			if it.Abono != nil {
				abono = *it.Abono
			}
			paid, owing := Split(it.Total, abono)
			line := Line{
				BatchID:          batchID,
				ItemID:           it.ItemID,
				Quantity:         it.Quantity,
				UnitPrice:        unitPrice,
				Total:            it.Total,
				AmountPaid:       paid,
				AmountOwing:      owing,
				CustomerName:     template.CustomerName,
				CustomerPhone:    template.CustomerPhone,
				CustomerDocument: template.CustomerDocument,
				CustomerAddress:  template.CustomerAddress,
				CustomerLocality: template.CustomerLocality,
				Seller:           template.Seller,
				Supervisor:       template.Supervisor,
				ScheduledFor:     template.ScheduledFor,
				Paid:             owing.IsZero(),
				Position:         int32(i + 1),
				CreatedAt:        template.CreatedAt,
			}
			if _, err := tx.InsertLine(ctx, line); err != nil {
				return shared.Internal("insert sale line", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "sale:edit", batchID, map[string]any{"lines": len(req.Items)})
	s.bump(ctx)
	return s.GetSale(ctx, batchID)
}

// consumeInventory locks items in ascending id order, verifies availability
// and applies the decrement. The whole sale aborts on the first short item.
func (s *Service) consumeInventory(ctx context.Context, tx TxRepository, required map[int64]int64) error {
	for _, itemID := range sortedItemIDs(required) {
		qty := required[itemID]
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.NotFoundf("item %d not found", itemID)
			}
			return shared.Internal("load item", err)
		}
		if !item.IsActive {
			return shared.Validationf("item %q is not available for sale", item.Name)
		}
		if !item.Stock.Covers(qty) {
			short := &InsufficientStockError{ItemID: item.ID, ItemName: item.Name, Requested: qty, Available: item.Stock.Qty()}
			return &shared.Error{Kind: shared.KindConflict, Message: short.Error(), Err: short}
		}
		newStock, err := item.Stock.Sub(qty)
		if err != nil {
			return shared.Internal("consume stock", err)
		}
		if err := tx.UpdateItemCounters(ctx, item.ID, newStock, item.Sold+qty); err != nil {
			return shared.Internal("update counters", err)
		}
	}
	return nil
}

// applyDeltas moves inventory for edit-time quantity changes. Positive
// deltas consume stock like a sale; negative deltas restore it like a void.
func (s *Service) applyDeltas(ctx context.Context, tx TxRepository, deltas map[int64]int64) error {
	for _, itemID := range sortedItemIDs(deltas) {
		delta := deltas[itemID]
		if delta == 0 {
			continue
		}
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.NotFoundf("item %d not found", itemID)
			}
			return shared.Internal("load item", err)
		}
		if delta > 0 {
			if !item.IsActive {
				return shared.Validationf("item %q is not available for sale", item.Name)
			}
			if !item.Stock.Covers(delta) {
				short := &InsufficientStockError{ItemID: item.ID, ItemName: item.Name, Requested: delta, Available: item.Stock.Qty()}
				return &shared.Error{Kind: shared.KindConflict, Message: short.Error(), Err: short}
			}
			newStock, err := item.Stock.Sub(delta)
			if err != nil {
				return shared.Internal("consume stock", err)
			}
			if err := tx.UpdateItemCounters(ctx, item.ID, newStock, item.Sold+delta); err != nil {
				return shared.Internal("update counters", err)
			}
			continue
		}
		restore := -delta
		sold := item.Sold - restore
		if sold < 0 {
			sold = 0
		}
		if err := tx.UpdateItemCounters(ctx, item.ID, item.Stock.Add(restore), sold); err != nil {
			return shared.Internal("update counters", err)
		}
	}
	return nil
}

// mergeSaleLines validates money fields and collapses duplicate
// (item, unit price) pairs. Distinct price tiers of one item stay separate.
func mergeSaleLines(items []SaleLineRequest) ([]mergedLine, error) {
	if len(items) == 0 {
		return nil, shared.Validationf("an invoice needs at least one line")
	}
	var merged []mergedLine
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, shared.Validationf("quantity must be at least 1")
		}
		if it.Total.IsNegative() {
			return nil, shared.Validationf("line total must not be negative")
		}
		abono := decimal.Zero
		if it.Abono != nil {
			if it.Abono.IsNegative() {
				return nil, shared.Validationf("abono must not be negative")
			}
			abono = *it.Abono
		}
		unitPrice := unitPriceOf(it.Total, it.Quantity)

		found := false
		for i := range merged {
			if merged[i].itemID == it.ItemID && merged[i].unitPrice.Equal(unitPrice) {
				merged[i].quantity += it.Quantity
				merged[i].total = merged[i].total.Add(it.Total)
				merged[i].abono = merged[i].abono.Add(abono)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, mergedLine{
				itemID:    it.ItemID,
				quantity:  it.Quantity,
				unitPrice: unitPrice,
				total:     it.Total,
				abono:     abono,
			})
		}
	}
	return merged, nil
}

func unitPriceOf(total decimal.Decimal, quantity int64) decimal.Decimal {
	return total.DivRound(decimal.NewFromInt(quantity), 2)
}

func quantityByItem(merged []mergedLine) map[int64]int64 {
	required := make(map[int64]int64, len(merged))
	for _, m := range merged {
		required[m.itemID] += m.quantity
	}
	return required
}

func quantityByLines(lines []Line) map[int64]int64 {
	required := make(map[int64]int64, len(lines))
	for _, l := range lines {
		required[l.ItemID] += l.Quantity
	}
	return required
}

func sortedItemIDs(m map[int64]int64) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func supervisorName(actor shared.Actor) string {
	if actor.Role.AtLeast(shared.RoleSupervisor) {
		return actor.Name
	}
	return ""
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, batchID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "sale_batch",
		EntityID: batchID.String(),
		Meta:     meta,
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.bumper != nil {
		_ = s.bumper.Bump(ctx)
	}
}
