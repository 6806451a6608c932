package plan

import "math"

// Plan is a purchasable VIP tier. The catalog is fixed at process start and
// never persisted.
type Plan struct {
	ID     string
	Title  string
	Price  float64
	Button string // label for the payment button on /start
}

// Tolerance is the absolute difference tolerated when comparing currency
// amounts, in currency units.
const Tolerance = 0.01

var catalog = []Plan{
	{ID: "mensal", Title: "Plano Mensal", Price: 11.99, Button: "💳 11,99 / MÊS 💎"},
	{ID: "vitalicio", Title: "Plano Vitalício", Price: 19.99, Button: "💥 19,99 VITALÍCIO 🔥"},
}

// All returns the catalog in display order.
func All() []Plan {
	return catalog
}

// ByID looks a plan up by its catalog id.
func ByID(id string) (Plan, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// ByAmount returns the plan whose price is within Tolerance of amount.
func ByAmount(amount float64) (Plan, bool) {
	for _, p := range catalog {
		if CloseMoney(p.Price, amount) {
			return p, true
		}
	}
	return Plan{}, false
}

// CloseMoney reports whether two currency amounts differ by at most
// Tolerance. The extra epsilon keeps exact one-cent differences inside the
// tolerance (12.00-11.99 lands slightly above 0.01 in float64).
func CloseMoney(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance+1e-9
}
