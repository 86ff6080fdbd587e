package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestSplit(t *testing.T) {
	cases := []struct {
		name      string
		total     string
		requested string
		paid      string
		owing     string
	}{
		{"partial payment", "300", "100", "100", "200"},
		{"full payment", "300", "300", "300", "0"},
		{"no payment", "300", "0", "0", "300"},
		{"overpayment clamps to total", "300", "450", "300", "0"},
		{"negative payment clamps to zero", "300", "-50", "0", "300"},
		{"zero total", "0", "100", "0", "0"},
		{"cents survive", "99.99", "33.33", "33.33", "66.66"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			paid, owing := Split(d(tc.total), d(tc.requested))
			require.True(t, paid.Equal(d(tc.paid)), "paid: got %s want %s", paid, tc.paid)
			require.True(t, owing.Equal(d(tc.owing)), "owing: got %s want %s", owing, tc.owing)
			require.True(t, paid.Add(owing).Equal(d(tc.total)))
		})
	}
}

func TestSplitInvariantHolds(t *testing.T) {
	totals := []string{"0", "1", "10.50", "300", "9999.99"}
	payments := []string{"-10", "0", "5", "10.50", "300", "100000"}
	for _, total := range totals {
		for _, payment := range payments {
			paid, owing := Split(d(total), d(payment))
			require.True(t, paid.Add(owing).Equal(d(total)), "total=%s payment=%s", total, payment)
			require.False(t, paid.IsNegative())
			require.False(t, owing.IsNegative())
		}
	}
}

func TestResplit(t *testing.T) {
	// A shrinking total can never leave paid above it.
	paid, owing := Resplit(d("200"), d("150"))
	require.True(t, paid.Equal(d("150")))
	require.True(t, owing.IsZero())

	// A growing total keeps the collected amount and reopens the balance.
	paid, owing = Resplit(d("100"), d("500"))
	require.True(t, paid.Equal(d("100")))
	require.True(t, owing.Equal(d("400")))
}
