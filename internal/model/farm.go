package model

import (
	"time"

	"gorm.io/gorm"

	"plaasstop-backend/internal/geo"
)

// Farm types. A lead is a community-sourced record nobody operates yet; a
// vendor farm is claimed and run by a registered user.
const (
	FarmTypeLead   = "lead"
	FarmTypeVendor = "vendor"
)

// Farm lifecycle statuses. Informational only; the claim workflow keys off
// Type, not Status.
const (
	FarmStatusUnclaimed           = "unclaimed"
	FarmStatusPending             = "pending"
	FarmStatusPendingVerification = "pending_verification"
)

// Farm represents a farm listing. OwnerID is set if and only if the farm
// has Type "vendor"; leads always have a nil owner. Location is optional
// until the operator sets it.
type Farm struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Type      string         `json:"type" gorm:"type:varchar(20);default:'lead';index"`
	Status    string         `json:"status" gorm:"type:varchar(50);default:'unclaimed'"`
	Products  []string       `json:"products" gorm:"serializer:json"`
	OwnerID   *string        `json:"owner_id,omitempty" gorm:"type:varchar(64);index"`
	Lat       *float64       `json:"lat,omitempty"`
	Lng       *float64       `json:"lng,omitempty"`
	Geohash   string         `json:"-" gorm:"type:varchar(12);index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeSave keeps the geohash column in sync with the location so the
// index-scan search backend never reads a stale hash.
func (f *Farm) BeforeSave(tx *gorm.DB) error {
	if f.Lat != nil && f.Lng != nil {
		f.Geohash = geo.Encode(*f.Lat, *f.Lng)
	} else {
		f.Geohash = ""
	}
	return nil
}
