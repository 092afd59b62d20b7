package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputePRTotals(t *testing.T) {
	lines := []PRLine{
		{ItemCode: "LPT-14", Qty: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
		{ItemCode: "DOCK-01", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
	}
	total := ComputePRTotals(lines)
	require.True(t, total.Equal(decimal.NewFromInt(250)), "got %s", total)
	require.True(t, lines[0].Subtotal.Equal(decimal.NewFromInt(200)))
	require.True(t, lines[1].Subtotal.Equal(decimal.NewFromInt(50)))
}

func TestComputePOTotals(t *testing.T) {
	po := PurchaseOrder{
		TaxPercent:     decimal.NewFromInt(10),
		DiscountAmount: decimal.NewFromInt(20),
		Lines: []POLine{
			{ItemCode: "LPT-14", Qty: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
			{ItemCode: "DOCK-01", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
		},
	}
	ComputePOTotals(&po)
	require.True(t, po.Subtotal.Equal(decimal.NewFromInt(250)), "subtotal %s", po.Subtotal)
	require.True(t, po.TaxAmount.Equal(decimal.NewFromInt(25)), "tax %s", po.TaxAmount)
	require.True(t, po.GrandTotal.Equal(decimal.NewFromInt(255)), "grand %s", po.GrandTotal)
}

func TestComputePOTotalsFractionalQty(t *testing.T) {
	po := PurchaseOrder{
		Lines: []POLine{
			{ItemCode: "CBL-2M", Qty: decimal.RequireFromString("2.5"), UnitPrice: decimal.RequireFromString("19.99")},
		},
	}
	ComputePOTotals(&po)
	require.True(t, po.Subtotal.Equal(decimal.RequireFromString("49.975")), "subtotal %s", po.Subtotal)
	require.True(t, po.GrandTotal.Equal(decimal.RequireFromString("49.975")))
}

func TestBaseAmountUsesSnapshottedRate(t *testing.T) {
	po := PurchaseOrder{GrandTotal: decimal.NewFromInt(255), ExchangeRate: decimal.RequireFromString("15500")}
	require.True(t, po.BaseAmount().Equal(decimal.NewFromInt(3952500)))
}
