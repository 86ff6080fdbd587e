package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "300", "-12.50", "99.99", "12345678.90"} {
		want, err := decimal.NewFromString(s)
		require.NoError(t, err)

		n, err := NumericFromDecimal(want)
		require.NoError(t, err)
		got := DecimalFromNumeric(n)
		require.True(t, got.Equal(want), "round trip %s: got %s", s, got)
	}
}

func TestDecimalFromNullNumeric(t *testing.T) {
	require.True(t, DecimalFromNumeric(pgtype.Numeric{}).IsZero())
}
