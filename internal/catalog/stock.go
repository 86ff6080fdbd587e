package catalog

import (
	"encoding/json"
	"fmt"
)

// unlimitedSentinel is the storage encoding for never-decremented stock.
// Tour slots and services are sold without a counted inventory; products
// carry a tracked, non-negative quantity.
const unlimitedSentinel int64 = -1

// Stock is either Unlimited or a tracked non-negative quantity. The sentinel
// only exists at the storage and JSON boundaries; all arithmetic goes
// through this type.
type Stock struct {
	qty       int64
	unlimited bool
}

// Unlimited returns the never-decremented stock value.
func Unlimited() Stock {
	return Stock{unlimited: true}
}

// Tracked returns a counted stock value.
func Tracked(qty int64) (Stock, error) {
	if qty < 0 {
		return Stock{}, fmt.Errorf("catalog: tracked stock must be >= 0, got %d", qty)
	}
	return Stock{qty: qty}, nil
}

// StockFromDB decodes the persisted integer (-1 meaning unlimited).
func StockFromDB(v int64) (Stock, error) {
	if v == unlimitedSentinel {
		return Unlimited(), nil
	}
	return Tracked(v)
}

// DBValue encodes the stock for persistence.
func (s Stock) DBValue() int64 {
	if s.unlimited {
		return unlimitedSentinel
	}
	return s.qty
}

// IsUnlimited reports whether the stock is never decremented.
func (s Stock) IsUnlimited() bool { return s.unlimited }

// Qty returns the tracked quantity; zero for unlimited stock.
func (s Stock) Qty() int64 {
	if s.unlimited {
		return 0
	}
	return s.qty
}

// Covers reports whether a sale of qty units can be served.
func (s Stock) Covers(qty int64) bool {
	if s.unlimited {
		return true
	}
	return s.qty >= qty
}

// Sub consumes qty units. Unlimited stock is returned unchanged.
func (s Stock) Sub(qty int64) (Stock, error) {
	if s.unlimited {
		return s, nil
	}
	if qty > s.qty {
		return Stock{}, fmt.Errorf("catalog: cannot consume %d of %d", qty, s.qty)
	}
	return Stock{qty: s.qty - qty}, nil
}

// Add restores qty units. Unlimited stock is returned unchanged.
func (s Stock) Add(qty int64) Stock {
	if s.unlimited {
		return s
	}
	return Stock{qty: s.qty + qty}
}

func (s Stock) String() string {
	if s.unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", s.qty)
}

// MarshalJSON keeps the wire format the clients already speak: -1 or a count.
func (s Stock) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.DBValue())
}

// UnmarshalJSON accepts -1 or a non-negative count.
func (s *Stock) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	decoded, err := StockFromDB(v)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
