// Package checkout computes order totals and submits orders built from a
// cart.
package checkout

import (
	"encoding/json"

	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/shopspring/decimal"
)

var (
	TaxRate          = decimal.RequireFromString("0.06")
	BaseShipping     = decimal.NewFromInt(10)
	ShippingPerExtra = decimal.NewFromInt(2)
)

type Totals struct {
	ItemCount  int
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Shipping   decimal.Decimal
	GrandTotal decimal.Decimal
}

// Formatted is Totals with every amount rendered to two fraction digits.
type Formatted struct {
	ItemCount  int    `json:"itemCount"`
	Subtotal   string `json:"subtotal"`
	Tax        string `json:"tax"`
	Shipping   string `json:"shipping"`
	GrandTotal string `json:"orderTotal"`
}

// ComputeSubtotal sums quantities and line totals. Lines with a zero
// price or quantity contribute nothing.
func ComputeSubtotal(items []cart.Item) (int, decimal.Decimal) {
	count := 0
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Quantity > 0 {
			count += it.Quantity
		}
		subtotal = subtotal.Add(it.LineTotal())
	}
	return count, subtotal
}

func ComputeOrderTotals(subtotal decimal.Decimal, itemCount int) (tax, shipping, grandTotal decimal.Decimal) {
	tax = subtotal.Mul(TaxRate).Round(2)

	shipping = decimal.Zero
	if itemCount > 0 {
		shipping = BaseShipping.Add(ShippingPerExtra.Mul(decimal.NewFromInt(int64(itemCount - 1))))
	}

	grandTotal = subtotal.Add(tax).Add(shipping)
	return tax, shipping, grandTotal
}

func Compute(items []cart.Item) Totals {
	count, subtotal := ComputeSubtotal(items)
	tax, shipping, grand := ComputeOrderTotals(subtotal, count)

	return Totals{
		ItemCount:  count,
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   shipping,
		GrandTotal: grand,
	}
}

func (t Totals) Format() Formatted {
	return Formatted{
		ItemCount:  t.ItemCount,
		Subtotal:   t.Subtotal.StringFixed(2),
		Tax:        t.Tax.StringFixed(2),
		Shipping:   t.Shipping.StringFixed(2),
		GrandTotal: t.GrandTotal.StringFixed(2),
	}
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format())
}
