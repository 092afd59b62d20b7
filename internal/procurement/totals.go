package procurement

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineTotal computes qty x unit price for one line.
func LineTotal(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice)
}

// ComputePRTotals fills in each line's subtotal and returns the total
// estimate. Line amounts are always derived from qty and unit price, never
// taken from the caller.
func ComputePRTotals(lines []PRLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		lines[i].Subtotal = LineTotal(lines[i].Qty, lines[i].UnitPrice)
		total = total.Add(lines[i].Subtotal)
	}
	return total
}

// ComputePOTotals recomputes the order's derived amounts from its lines and
// header tax/discount. Grand total = subtotal + tax - discount.
func ComputePOTotals(po *PurchaseOrder) {
	subtotal := decimal.Zero
	for i := range po.Lines {
		po.Lines[i].LineTotal = LineTotal(po.Lines[i].Qty, po.Lines[i].UnitPrice)
		subtotal = subtotal.Add(po.Lines[i].LineTotal)
	}
	po.Subtotal = subtotal
	po.TaxAmount = subtotal.Mul(po.TaxPercent).Div(hundred)
	po.GrandTotal = subtotal.Add(po.TaxAmount).Sub(po.DiscountAmount)
}
