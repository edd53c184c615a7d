package models

import "time"

// Brand is a vehicle manufacturer parts are catalogued under.
type Brand struct {
	ID        int64     `json:"id"`
	Brand     string    `json:"brand"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VehicleModel is a model line of a brand (e.g. Corolla for Toyota).
type VehicleModel struct {
	ID        int64     `json:"id"`
	Model     string    `json:"model"`
	BrandID   int64     `json:"brandId"`
	BrandName string    `json:"brand,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
