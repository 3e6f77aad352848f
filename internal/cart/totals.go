package cart

import (
	"math"
	"sort"

	"bebamart/internal/domain"

	"github.com/shopspring/decimal"
)

// Line is one priced cart item together with the stock available for it.
type Line struct {
	ListingID uint   `json:"listing_id"`
	VendorID  uint   `json:"vendor_profile_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
}

// LineTotal is the unit price times the quantity. Lines accepted by
// ComputeTotals never overflow.
func (l Line) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Totals is the priced breakdown of a set of lines, in minor units.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// ShippingRule prices shipping for one order.
type ShippingRule interface {
	Shipping(lines []Line, subtotal int64) int64
}

// TaxRule prices tax on an order subtotal.
type TaxRule interface {
	Tax(subtotal int64) int64
}

// Rules bundles the rate collaborators. Nil rules charge nothing.
type Rules struct {
	Shipping ShippingRule
	Tax      TaxRule
}

// ComputeTotals prices lines under rules. It has no side effects and fails
// with a validation error when any line cannot be fulfilled.
func ComputeTotals(lines []Line, rules Rules) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, domain.Validationf("cart is empty")
	}
	var t Totals
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Totals{}, domain.Validationf("quantity for listing %d must be positive", l.ListingID)
		}
		if l.Available <= 0 {
			return Totals{}, domain.Validationf("listing %d is out of stock", l.ListingID)
		}
		if l.Quantity > l.Available {
			return Totals{}, domain.Validationf("only %d units of listing %d available", l.Available, l.ListingID)
		}
		if l.UnitPrice < 0 {
			return Totals{}, domain.Validationf("listing %d has a negative price", l.ListingID)
		}
		line, ok := checkedMul(l.UnitPrice, int64(l.Quantity))
		if !ok {
			return Totals{}, domain.Validationf("line total for listing %d is too large", l.ListingID)
		}
		if t.Subtotal, ok = checkedAdd(t.Subtotal, line); !ok {
			return Totals{}, domain.Validationf("order subtotal is too large")
		}
	}
	if rules.Shipping != nil {
		t.Shipping = rules.Shipping.Shipping(lines, t.Subtotal)
	}
	if rules.Tax != nil {
		t.Tax = rules.Tax.Tax(t.Subtotal)
	}
	total, ok := checkedAdd(t.Subtotal, t.Shipping)
	if ok {
		total, ok = checkedAdd(total, t.Tax)
	}
	if !ok {
		return Totals{}, domain.Validationf("order total is too large")
	}
	t.Total = total
	return t, nil
}

// Add sums two breakdowns, failing when any field overflows.
func (t Totals) Add(o Totals) (Totals, error) {
	var sum Totals
	var ok [4]bool
	sum.Subtotal, ok[0] = checkedAdd(t.Subtotal, o.Subtotal)
	sum.Shipping, ok[1] = checkedAdd(t.Shipping, o.Shipping)
	sum.Tax, ok[2] = checkedAdd(t.Tax, o.Tax)
	sum.Total, ok[3] = checkedAdd(t.Total, o.Total)
	if !ok[0] || !ok[1] || !ok[2] || !ok[3] {
		return Totals{}, domain.Validationf("cart total is too large")
	}
	return sum, nil
}

func checkedAdd(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// checkedMul multiplies non-negative a and b.
func checkedMul(a, b int64) (int64, bool) {
	if b != 0 && a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

// VendorGroup holds the lines sold by one vendor.
type VendorGroup struct {
	VendorID uint   `json:"vendor_profile_id"`
	Lines    []Line `json:"lines"`
}

// GroupByVendor splits lines per vendor, ordered by vendor id. Each group
// becomes one order.
func GroupByVendor(lines []Line) []VendorGroup {
	byVendor := make(map[uint][]Line)
	for _, l := range lines {
		byVendor[l.VendorID] = append(byVendor[l.VendorID], l)
	}
	groups := make([]VendorGroup, 0, len(byVendor))
	for id, ls := range byVendor {
		groups = append(groups, VendorGroup{VendorID: id, Lines: ls})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].VendorID < groups[j].VendorID })
	return groups
}

// FlatShipping charges Fee per order, waived once the subtotal reaches
// FreeOver (zero never waives).
type FlatShipping struct {
	Fee      int64
	FreeOver int64
}

func (f FlatShipping) Shipping(_ []Line, subtotal int64) int64 {
	if f.FreeOver > 0 && subtotal >= f.FreeOver {
		return 0
	}
	return f.Fee
}

// PercentageTax charges Rate of the subtotal, rounded half up to whole minor
// units.
type PercentageTax struct {
	Rate decimal.Decimal
}

// NewPercentageTax parses a decimal rate such as "0.18".
func NewPercentageTax(rate string) (PercentageTax, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return PercentageTax{}, domain.Validationf("invalid tax rate %q", rate)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return PercentageTax{}, domain.Validationf("tax rate %s out of range", d)
	}
	return PercentageTax{Rate: d}, nil
}

func (p PercentageTax) Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(p.Rate).Round(0).IntPart()
}
