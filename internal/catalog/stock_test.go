package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackedRejectsNegative(t *testing.T) {
	_, err := Tracked(-5)
	require.Error(t, err)

	s, err := Tracked(0)
	require.NoError(t, err)
	require.Equal(t, int64(0), s.Qty())
	require.False(t, s.IsUnlimited())
}

func TestStockFromDB(t *testing.T) {
	s, err := StockFromDB(-1)
	require.NoError(t, err)
	require.True(t, s.IsUnlimited())
	require.Equal(t, int64(-1), s.DBValue())

	s, err = StockFromDB(12)
	require.NoError(t, err)
	require.False(t, s.IsUnlimited())
	require.Equal(t, int64(12), s.DBValue())

	_, err = StockFromDB(-2)
	require.Error(t, err)
}

func TestStockCovers(t *testing.T) {
	require.True(t, Unlimited().Covers(1000000))

	s, err := Tracked(3)
	require.NoError(t, err)
	require.True(t, s.Covers(3))
	require.False(t, s.Covers(4))
}

func TestStockSub(t *testing.T) {
	s, err := Tracked(10)
	require.NoError(t, err)

	s, err = s.Sub(4)
	require.NoError(t, err)
	require.Equal(t, int64(6), s.Qty())

	_, err = s.Sub(7)
	require.Error(t, err)

	u, err := Unlimited().Sub(500)
	require.NoError(t, err)
	require.True(t, u.IsUnlimited())
}

func TestStockAdd(t *testing.T) {
	s, err := Tracked(2)
	require.NoError(t, err)
	require.Equal(t, int64(5), s.Add(3).Qty())

	require.True(t, Unlimited().Add(3).IsUnlimited())
}

func TestStockJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(Unlimited())
	require.NoError(t, err)
	require.Equal(t, "-1", string(raw))

	s, err := Tracked(7)
	require.NoError(t, err)
	raw, err = json.Marshal(s)
	require.NoError(t, err)
	require.Equal(t, "7", string(raw))

	var decoded Stock
	require.NoError(t, json.Unmarshal([]byte("-1"), &decoded))
	require.True(t, decoded.IsUnlimited())

	require.NoError(t, json.Unmarshal([]byte("42"), &decoded))
	require.Equal(t, int64(42), decoded.Qty())

	require.Error(t, json.Unmarshal([]byte("-3"), &decoded))
}
