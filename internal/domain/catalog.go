package domain

// Package is a purchasable Stars bundle shown on the storefront.
type Package struct {
	ID      int     `json:"id"`
	Stars   int     `json:"stars"`
	Price   float64 `json:"price"`
	Desc    string  `json:"desc"`
	Popular bool    `json:"popular,omitempty"`
}
