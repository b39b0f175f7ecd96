package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// CodeLength is the number of characters kept from the generated UUID.
const CodeLength = 8

type Property struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	Address            string    `json:"address" gorm:"not null"`
	PriceGuide         int64     `json:"price_guide" gorm:"not null"`
	UniqueCode         string    `json:"unique_code" gorm:"size:8;not null;uniqueIndex"`
	CreatedAt          time.Time `json:"created_at"`
	Ended              bool      `json:"ended" gorm:"not null;default:false"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
	GeocodingAttempted bool      `json:"-" gorm:"not null;default:false"`
}

func (Property) TableName() string {
	return "properties"
}

// NewProperty builds a property with its own freshly generated code.
// CreatedAt is left zero; the store stamps it on insert.
func NewProperty(address string, priceGuide int64) *Property {
	return &Property{
		Address:    address,
		PriceGuide: priceGuide,
		UniqueCode: NewCode(),
	}
}

// NewCode returns the first CodeLength characters of a random UUID.
func NewCode() string {
	return uuid.NewString()[:CodeLength]
}

// BidderPath is the shareable path of the property's bidder page.
func (p Property) BidderPath() string {
	return "/bud/" + p.UniqueCode
}

// Location returns the geocoded point, or nil if the property has not been geocoded.
func (p Property) Location() *orb.Point {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	// orb points are (lon, lat)
	point := orb.Point{*p.Longitude, *p.Latitude}
	return &point
}
