package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a sellable catalog entry: a physical product or a bookable slot.
type Item struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	TierPrice *decimal.Decimal `json:"tier_price,omitempty"`
	Currency  string           `json:"currency"`
	Stock     Stock            `json:"stock"`
	Sold      int64            `json:"sold"`
	IsActive  bool             `json:"is_active"`
	Position  int32            `json:"position"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
