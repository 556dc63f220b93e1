package pages

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/price"
)

const codPage = `Tax Invoice
Cash on Delivery charges collected by Ekart Logistics
Description Qty Amount
Cash on Delivery Fee 1 ₹7.00
TOTAL 7`

const productPage = `Tax Invoice
Order ID: OD430543585270089100
Product Title Qty Gross Amount Total
Electric Jug(heater) Pigeon Favourite Electric Kettle 1.5 L
1 ₹488.00 ₹488.00
FSN: KTLFZ3GHBMXGYZCQ HSN/SAC: 85161000
TOTAL 488`

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultWeights(), nil)

	cod := c.Classify(entity.NewPageText(0, codPage))
	assert.Equal(t, constants.PageService, cod.Type)
	assert.Less(t, cod.Score, 0)
	assert.Contains(t, cod.MatchedIndicators, "small_total")
	require.NotNil(t, cod.MaxDetectedTotal)
	assert.True(t, cod.MaxDetectedTotal.Equal(decimal.NewFromInt(7)))

	prod := c.Classify(entity.NewPageText(1, productPage))
	assert.Equal(t, constants.PageProduct, prod.Type)
	assert.Greater(t, prod.Score, 0)
	for _, ind := range []string{"large_total", "category_code", "table_header", "item_line", "item_code"} {
		assert.Contains(t, prod.MatchedIndicators, ind)
	}
	assert.Equal(t, 20+20+30+30+40, prod.Score)
}

func TestSelect_ServicePageBundledWithProduct(t *testing.T) {
	c := NewClassifier(DefaultWeights(), nil)
	sel, err := c.Select(context.Background(), []entity.PageText{
		entity.NewPageText(0, codPage),
		entity.NewPageText(1, productPage),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sel.Page.Index)
	assert.False(t, sel.LowConfidence)
	require.Len(t, sel.Classifications, 2)

	got := price.Resolve(sel.Page.Text)
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.NewFromInt(488)))
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		selected int
		low      bool
	}{
		{
			name:     "single page skips scoring",
			pages:    []string{codPage},
			selected: 0,
		},
		{
			name:     "tie breaks on larger total",
			pages:    []string{"Total ₹60.00", "Total ₹90.00"},
			selected: 1,
		},
		{
			name:     "all negative keeps least negative and flags it",
			pages:    []string{"Cash on delivery fee, platform fee\nTotal 5", "Total 12"},
			selected: 1,
			low:      true,
		},
		{
			name:     "service page loses to a worse non-service page",
			pages:    []string{"Convenience fee ₹200.00\nTotal ₹200.00", "misc Total ₹20.00"},
			selected: 1,
			low:      true,
		},
		{
			name:     "only service pages",
			pages:    []string{"COD charges Total 10", "Service fee, handling fee Total 10"},
			selected: 0,
			low:      true,
		},
	}
	c := NewClassifier(DefaultWeights(), nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pages := make([]entity.PageText, len(tc.pages))
			for i, p := range tc.pages {
				pages[i] = entity.NewPageText(i, p)
			}
			sel, err := c.Select(context.Background(), pages)
			require.NoError(t, err)
			assert.Equal(t, tc.selected, sel.Page.Index)
			assert.Equal(t, tc.low, sel.LowConfidence)
		})
	}
}

func TestSelect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClassifier(DefaultWeights(), nil).Select(ctx, []entity.PageText{
		entity.NewPageText(0, "a"), entity.NewPageText(1, "b"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
