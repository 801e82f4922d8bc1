package model

type OperatingHours struct {
	Open  string `json:"open" bson:"open"`
	Close string `json:"close" bson:"close"`
}

// Venue is owned by the catalogue service. Reservations only read it.
type Venue struct {
	ID             string          `json:"id" bson:"_id,omitempty"`
	Name           string          `json:"name" bson:"name"`
	OwnerID        string          `json:"owner_id" bson:"owner_id"`
	PricePerHour   float64         `json:"price_per_hour" bson:"price_per_hour"`
	OperatingHours *OperatingHours `json:"operating_hours,omitempty" bson:"operating_hours,omitempty"`
	IsActive       bool            `json:"is_active" bson:"is_active"`
	IsApproved     bool            `json:"is_approved" bson:"is_approved"`
}

func (v *Venue) Bookable() bool {
	return v.IsActive && v.IsApproved
}
