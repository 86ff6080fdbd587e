package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleLineRequest is one proposed line of a new sale. Total is the agreed
// amount for the whole line; Abono is the optional down payment.
type SaleLineRequest struct {
	ItemID   int64            `json:"item_id" validate:"required,gt=0"`
	Quantity int64            `json:"quantity" validate:"required,min=1"`
	Total    decimal.Decimal  `json:"total"`
	Abono    *decimal.Decimal `json:"abono,omitempty"`
}

// CreateSaleRequest proposes a new invoice batch.
type CreateSaleRequest struct {
	Items []SaleLineRequest `json:"items" validate:"required,min=1,dive"`

	CustomerName     string `json:"customer_name" validate:"required,max=200"`
	CustomerPhone    string `json:"customer_phone" validate:"required,max=50"`
	CustomerDocument string `json:"customer_document" validate:"required,max=50"`
	CustomerAddress  string `json:"customer_address" validate:"max=300"`
	CustomerLocality string `json:"customer_locality" validate:"max=100"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	// ClientRef makes offline resubmissions idempotent.
	ClientRef string `json:"client_ref,omitempty" validate:"omitempty,max=100"`
}

// EditLineRequest describes one line of the desired post-edit state. A
// present ID updates that line; a missing ID inserts a new line; lines of
// the batch absent from the request are removed.
type EditLineRequest struct {
	ID       *int64           `json:"id,omitempty"`
	ItemID   int64            `json:"item_id" validate:"required,gt=0"`
	Quantity int64            `json:"quantity" validate:"required,min=1"`
	Total    decimal.Decimal  `json:"total"`
	Abono    *decimal.Decimal `json:"abono,omitempty"`
}

// EditSaleRequest rewrites the line set of an existing batch. Line order in
// Items becomes the display order.
type EditSaleRequest struct {
	Items []EditLineRequest `json:"items" validate:"required,min=1,dive"`
}

// VoidSaleRequest cancels a batch.
type VoidSaleRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// ListSalesRequest filters invoice listings.
type ListSalesRequest struct {
	Seller      string     `json:"seller,omitempty"`
	IncludeVoid bool       `json:"include_void,omitempty"`
	DateFrom    *time.Time `json:"date_from,omitempty"`
	DateTo      *time.Time `json:"date_to,omitempty"`
	Limit       int        `json:"limit" validate:"gte=0,lte=500"`
	Offset      int        `json:"offset" validate:"gte=0"`
}
