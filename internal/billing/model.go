package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one sellable-item × quantity × price entry of an invoice. The
// charged unit price is captured at sale time and kept independent of later
// catalog price changes, as is the stored line total.
type Line struct {
	ID        int64           `json:"id"`
	BatchID   uuid.UUID       `json:"batch_id"`
	ItemID    int64           `json:"item_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	// AmountPaid (abono) and AmountOwing (pendiente) always satisfy
	// paid + owing == total with both components in [0, total].
	AmountPaid  decimal.Decimal `json:"abono"`
	AmountOwing decimal.Decimal `json:"pendiente"`

	CustomerName     string `json:"customer_name"`
	CustomerPhone    string `json:"customer_phone"`
	CustomerDocument string `json:"customer_document"`
	CustomerAddress  string `json:"customer_address,omitempty"`
	CustomerLocality string `json:"customer_locality,omitempty"`

	Seller     string `json:"seller"`
	Supervisor string `json:"supervisor,omitempty"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Paid         bool       `json:"paid"`
	Position     int32      `json:"position"`
	VoidedAt     *time.Time `json:"voided_at,omitempty"`
	VoidReason   *string    `json:"void_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Voided reports whether the line has been terminally cancelled.
func (l Line) Voided() bool { return l.VoidedAt != nil }

// Invoice is the batch aggregate: every line sharing one batch id. There is
// no separate header row; batch-level figures are always computed.
type Invoice struct {
	BatchID uuid.UUID `json:"batch_id"`
	Lines   []Line    `json:"lines"`
}

// Subtotal sums the line totals.
func (inv Invoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range inv.Lines {
		sum = sum.Add(l.Total)
	}
	return sum
}

// TotalPaid sums the per-line abono.
func (inv Invoice) TotalPaid() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range inv.Lines {
		sum = sum.Add(l.AmountPaid)
	}
	return sum
}

// TotalOwing sums the per-line pendiente.
func (inv Invoice) TotalOwing() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range inv.Lines {
		sum = sum.Add(l.AmountOwing)
	}
	return sum
}

// Voided reports whether the batch has been cancelled. Lines of one batch
// are always voided together, so checking any line suffices.
func (inv Invoice) Voided() bool {
	return len(inv.Lines) > 0 && inv.Lines[0].Voided()
}
