package domain

import "time"

// Product is read-only for the payment flow; Price is in major currency units.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
	Stock       int
	Images      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
