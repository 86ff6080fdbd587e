package catalog

import "github.com/shopspring/decimal"

// CreateItemRequest describes a new catalog entry. Stock of -1 marks the
// item as unlimited (bookings, services).
type CreateItemRequest struct {
	Name      string           `json:"name" validate:"required,max=200"`
	Category  string           `json:"category" validate:"required,max=100"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	TierPrice *decimal.Decimal `json:"tier_price,omitempty"`
	Currency  string           `json:"currency" validate:"required,len=3"`
	Stock     int64            `json:"stock" validate:"gte=-1"`
	Position  int32            `json:"position" validate:"gte=0"`
}

// UpdateItemRequest carries partial catalog edits. Stock and sold counters
// are not editable here; only the sale, void and edit services move them.
type UpdateItemRequest struct {
	Name      *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Category  *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	TierPrice *decimal.Decimal `json:"tier_price,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
	Position  *int32           `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// ListItemsRequest filters the catalog listing.
type ListItemsRequest struct {
	Category   string `json:"category,omitempty"`
	ActiveOnly bool   `json:"active_only,omitempty"`
	Limit      int    `json:"limit" validate:"gte=0,lte=500"`
	Offset     int    `json:"offset" validate:"gte=0"`
}
