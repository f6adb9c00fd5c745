package catalog

// CreditPackage is a purchasable bundle of interview minutes. The catalog is
// fixed configuration, consulted read-only when fulfilling a purchase.
type CreditPackage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Minutes    int    `json:"minutes"`
}

var packages = []CreditPackage{
	{ID: "starter", Name: "Starter Pack", PriceCents: 500, Minutes: 30},
	{ID: "practice", Name: "Practice Pack", PriceCents: 1500, Minutes: 100},
	{ID: "intensive", Name: "Intensive Pack", PriceCents: 3500, Minutes: 250},
	{ID: "marathon", Name: "Marathon Pack", PriceCents: 6000, Minutes: 500},
}

// All returns the catalog in display order.
func All() []CreditPackage {
	out := make([]CreditPackage, len(packages))
	copy(out, packages)
	return out
}

// Find resolves a package id. ok is false for unknown ids.
func Find(id string) (CreditPackage, bool) {
	for _, p := range packages {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPackage{}, false
}
