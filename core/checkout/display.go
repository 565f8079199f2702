package checkout

import "strconv"

// Region names a place where a formatted total is shown.
type Region string

const (
	RegionItemCount  Region = "items-count"
	RegionSubtotal   Region = "subtotal"
	RegionTax        Region = "tax"
	RegionShipping   Region = "shipping"
	RegionOrderTotal Region = "orderTotal"
)

// AllRegions lists every region Project knows how to fill.
var AllRegions = []Region{RegionItemCount, RegionSubtotal, RegionTax, RegionShipping, RegionOrderTotal}

type Setter interface {
	SetText(text string)
}

// Surface exposes the regions it has. A surface need not have them all.
type Surface interface {
	Region(name Region) (Setter, bool)
}

// Project writes formatted totals into whichever regions the surface has.
func Project(s Surface, t Totals) {
	f := t.Format()
	values := map[Region]string{
		RegionItemCount:  strconv.Itoa(f.ItemCount),
		RegionSubtotal:   f.Subtotal,
		RegionTax:        f.Tax,
		RegionShipping:   f.Shipping,
		RegionOrderTotal: f.GrandTotal,
	}

	for _, r := range AllRegions {
		if set, ok := s.Region(r); ok {
			set.SetText(values[r])
		}
	}
}

// Regions is a map backed surface. Only keys present in the map are
// regions.
type Regions map[Region]string

func NewRegions(names ...Region) Regions {
	rs := make(Regions, len(names))
	for _, n := range names {
		rs[n] = ""
	}
	return rs
}

func (rs Regions) Region(name Region) (Setter, bool) {
	if _, ok := rs[name]; !ok {
		return nil, false
	}
	return regionSetter{rs, name}, true
}

type regionSetter struct {
	rs   Regions
	name Region
}

func (s regionSetter) SetText(text string) { s.rs[s.name] = text }
