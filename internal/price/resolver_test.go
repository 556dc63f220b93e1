package price

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string // "" means nil
	}{
		{
			name:     "grand total beats larger bare total",
			text:     "Total ₹900.00\nGrand Total ₹488.00",
			expected: "488",
		},
		{
			name:     "grand total beats smaller bare total",
			text:     "Grand Total ₹48.00\nTotal ₹900.00",
			expected: "48",
		},
		{
			name:     "largest within the same tier",
			text:     "TOTAL 7\nCash on delivery fee\nTOTAL 488",
			expected: "488",
		},
		{
			name:     "bare total takes last money token on its line",
			text:     "TOTAL: 1 ₹74.44 ₹488.00",
			expected: "488",
		},
		{
			name:     "total amount when no stronger label",
			text:     "Subtotal 500.00\nTotal Amount 590.00",
			expected: "590",
		},
		{
			name:     "net amount is the weakest label",
			text:     "Net Amount 410.00\nTotal Amount 590.00",
			expected: "590",
		},
		{
			name:     "total quantity is not a payable",
			text:     "Total Qty 2\nTotal ₹300.00",
			expected: "300",
		},
		{
			name:     "figure on the line after the label",
			text:     "Grand Total\n₹ 1,249.00",
			expected: "1249",
		},
		{
			name:     "amount in words line does not borrow the address below",
			text:     "Total Amount ₹799.00\nTotal Amount in words: Seven Hundred Ninety Nine Only\nACME Traders, Bengaluru 560001",
			expected: "799",
		},
		{
			name:     "pin code under a bare label is not a figure",
			text:     "Grand Total\nKoramangala Bengaluru 560034",
			expected: "",
		},
		{
			name:     "phone number under a worded amount is not a figure",
			text:     "Net Amount: Rupees Four Hundred Only\nPhone 9845012",
			expected: "",
		},
		{
			name:     "indian digit grouping",
			text:     "Grand Total ₹1,23,456.50",
			expected: "123456.5",
		},
		{
			name:     "labeled amount wins over larger unlabeled",
			text:     "MRP ₹999.00\nTotal 120.00",
			expected: "120",
		},
		{
			name:     "unlabeled fallback takes largest currency amount",
			text:     "Paid ₹ 349.00 via UPI\nconvenience fee ₹5",
			expected: "349",
		},
		{
			name:     "fallback ignores amounts under ten",
			text:     "fee ₹5",
			expected: "",
		},
		{
			name:     "dates and identifiers are not amounts",
			text:     "Order Date 22-02-2024\nHSN 85165000",
			expected: "",
		},
		{
			name:     "empty text",
			text:     "",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.text)
			if tc.expected == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, decimal.RequireFromString(tc.expected).Equal(*got), "got %s", got.String())
		})
	}
}

func TestCandidates_Tiers(t *testing.T) {
	text := "Grand Total ₹488.00\nTotal ₹42.00\nTotal Amount ₹500.00\nFinal Amount ₹10.00"
	cands := Candidates(text)
	require.Len(t, cands, 4)

	assert.Equal(t, TierGrandTotal, cands[0].Tier)
	assert.Equal(t, TierTotal, cands[1].Tier)
	assert.Equal(t, TierTotalAmount, cands[2].Tier)
	assert.Equal(t, TierFinalNet, cands[3].Tier)
	for i, c := range cands {
		assert.Equal(t, i, c.Occurrence)
		assert.True(t, c.Value.IsPositive())
	}
}

func TestTokens(t *testing.T) {
	toks := Tokens("Sellers 5 Rs. 1,200.50 at 10:45 on 01/02/2024 18% ₹99")
	var values []string
	for _, tok := range toks {
		values = append(values, tok.Value.String())
	}
	assert.Equal(t, []string{"5", "1200.5", "99"}, values)
	assert.False(t, toks[0].Currency)
	assert.True(t, toks[1].Currency)
	assert.True(t, toks[2].MoneyLike)
}

func TestMaxDetectedTotal(t *testing.T) {
	v, ok := MaxDetectedTotal("Total 7\nGrand Total 488.00")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(488)))

	v, ok = MaxDetectedTotal("Paid ₹ 35.00")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(35)))

	_, ok = MaxDetectedTotal("Grand Total\nKoramangala Bengaluru 560034")
	assert.False(t, ok)

	_, ok = MaxDetectedTotal("no money here")
	assert.False(t, ok)
}
