package reporting

import "github.com/shopspring/decimal"

// MonthlySnapshot aggregates one calendar month of active (non-voided) sales.
type MonthlySnapshot struct {
	Month        string          `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	Collected    decimal.Decimal `json:"collected"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	InvoiceCount int64           `json:"invoice_count"`
	VoidedCount  int64           `json:"voided_count"`
	TopItems     []TopItem       `json:"top_items"`
}

// TopItem ranks an item by quantity sold in the period.
type TopItem struct {
	ItemID   int64           `json:"item_id"`
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// SnapshotFilter scopes a snapshot. Seller is empty for unrestricted views.
type SnapshotFilter struct {
	Month  string
	Seller string
}
