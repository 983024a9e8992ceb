// Package pricing computes order amounts. All values are whole currency
// units (integer yen); there is no floating point anywhere in the money path.
package pricing

// Policy constants for the shipping fee schedule.
const (
	FreeShippingThreshold = 10000 // subtotal at or above this ships free

	defaultItemWeight = 100 // grams, when a product has no recorded weight

	weightBandLight  = 500  // total grams
	weightBandMedium = 1000
	weightBandHeavy  = 2000

	feeLight   = 500
	feeMedium  = 700
	feeHeavy   = 900
	feeMassive = 1200
)

const taxRatePercent = 10

// Weighted is anything with a shippable weight and a quantity.
type Weighted struct {
	Weight   int // grams per unit; 0 means unknown
	Quantity int
}

// Subtotal sums price*quantity over line items.
func Subtotal(prices, quantities []int) int {
	total := 0
	for i := range prices {
		total += prices[i] * quantities[i]
	}
	return total
}

// Tax is 10% of the subtotal, truncated. Integer division gives the same
// floor the order records have always carried.
func Tax(subtotal int) int {
	return subtotal * taxRatePercent / 100
}

// ShippingFee maps the order's total weight onto the fee schedule. Orders at
// or above the free-shipping threshold cost nothing to ship.
func ShippingFee(subtotal int, items []Weighted) int {
	if subtotal >= FreeShippingThreshold {
		return 0
	}

	totalWeight := 0
	for _, it := range items {
		w := it.Weight
		if w == 0 {
			w = defaultItemWeight
		}
		totalWeight += w * it.Quantity
	}

	switch {
	case totalWeight <= weightBandLight:
		return feeLight
	case totalWeight <= weightBandMedium:
		return feeMedium
	case totalWeight <= weightBandHeavy:
		return feeHeavy
	default:
		return feeMassive
	}
}

// OrderTotal is the amount the customer pays.
func OrderTotal(subtotal, shippingFee, tax int) int {
	return subtotal + shippingFee + tax
}
