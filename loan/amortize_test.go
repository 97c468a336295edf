package loan_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/loan"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// SCHEDULE COMPUTATION
// =============================================================================

func TestAmortize_KnownSchedules(t *testing.T) {
	cases := []struct {
		name      string
		principal string
		rate      string
		term      int

		wantPayment  string
		wantTotal    string
		wantInterest string
	}{
		{"5000 at 8.5 over 24", "5000", "8.5", 24, "227.28", "5454.72", "454.72"},
		{"1000 at 12 over 12", "1000", "12", 12, "88.85", "1066.2", "66.2"},
		{"10000 at 10 over 36", "10000", "10", 36, "322.67", "11616.12", "1616.12"},
		{"small principal", "50", "5", 6, "8.46", "50.76", "0.76"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, err := loan.Amortize(dec(c.principal), dec(c.rate), c.term)
			require.NoError(t, err)

			assert.True(t, s.MonthlyPayment.Equal(dec(c.wantPayment)),
				"payment: want %s got %s", c.wantPayment, s.MonthlyPayment)
			assert.True(t, s.TotalRepayment.Equal(dec(c.wantTotal)),
				"total: want %s got %s", c.wantTotal, s.TotalRepayment)
			assert.True(t, s.TotalInterest.Equal(dec(c.wantInterest)),
				"interest: want %s got %s", c.wantInterest, s.TotalInterest)
		})
	}
}

func TestAmortize_ZeroRate(t *testing.T) {
	// GIVEN: An interest-free loan
	// WHEN: Amortizing 1200 over 12 months
	// THEN: Payment is principal/term and interest is zero

	s, err := loan.Amortize(dec("1200"), decimal.Zero, 12)
	require.NoError(t, err)

	assert.True(t, s.MonthlyPayment.Equal(dec("100")), "payment %s", s.MonthlyPayment)
	assert.True(t, s.TotalRepayment.Equal(dec("1200")), "total %s", s.TotalRepayment)
	assert.True(t, s.TotalInterest.IsZero(), "interest %s", s.TotalInterest)
}

func TestAmortize_Deterministic(t *testing.T) {
	first, err := loan.Amortize(dec("5000"), dec("8.5"), 24)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := loan.Amortize(dec("5000"), dec("8.5"), 24)
		require.NoError(t, err)
		assert.True(t, first.MonthlyPayment.Equal(again.MonthlyPayment))
		assert.True(t, first.TotalRepayment.Equal(again.TotalRepayment))
	}
}

func TestAmortize_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name      string
		principal string
		rate      string
		term      int
	}{
		{"zero principal", "0", "8.5", 24},
		{"negative principal", "-100", "8.5", 24},
		{"negative rate", "1000", "-1", 12},
		{"zero term", "1000", "8.5", 0},
		{"negative term", "1000", "8.5", -3},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := loan.Amortize(dec(c.principal), dec(c.rate), c.term)
			assert.ErrorIs(t, err, bank.ErrInvalidAmount)
		})
	}
}
