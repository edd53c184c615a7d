package models

import "time"

// DefaultButtonText is the call-to-action label used when none is given.
const DefaultButtonText = "Ver más"

// Advertising is a promotional banner shown as a storefront interstitial.
// At most one row has Status set at any time.
type Advertising struct {
	ID         int64     `json:"id"`
	Image      string    `json:"image"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Link       string    `json:"link,omitempty"`
	ButtonText string    `json:"buttonText"`
	Status     bool      `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
