package service

import (
	"math"

	"turfbook/pkg/calendar"
)

// Quote is the price split of a reservation. Advance and Remaining always add
// up to Total.
type Quote struct {
	Total     float64
	Advance   float64
	Remaining float64
}

// PriceRange charges pricePerHour for every hour of r and takes an advance of
// advancePercent rounded to a whole currency unit.
func PriceRange(pricePerHour float64, r calendar.Range, advancePercent int) Quote {
	total := pricePerHour * r.Hours()
	advance := math.Round(total * float64(advancePercent) / 100)
	return Quote{
		Total:     total,
		Advance:   advance,
		Remaining: total - advance,
	}
}
