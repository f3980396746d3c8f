package types

import (
	"fmt"
	"strings"
	"time"
)

// PropertyStatus is the listing state of a property.
type PropertyStatus string

const (
	PropertyAvailable   PropertyStatus = "available"
	PropertyRented      PropertyStatus = "rented"
	PropertyUnavailable PropertyStatus = "unavailable"
)

// ParsePropertyStatus normalizes raw and rejects unknown values.
func ParsePropertyStatus(raw string) (PropertyStatus, error) {
	status := PropertyStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case PropertyAvailable, PropertyRented, PropertyUnavailable:
		return status, nil
	default:
		return "", fmt.Errorf("unknown property status %q", raw)
	}
}

// Property represents a rental listing owned by a landlord.
type Property struct {
	// ID is the unique identifier of the property.
	ID int `json:"id" db:"id"`

	// Title is the headline shown in listings.
	Title string `json:"title" db:"title"`

	// Price is the monthly rent in the smallest currency unit.
	Price int64 `json:"price" db:"price"`

	Bedrooms  int `json:"bedrooms" db:"bedrooms"`
	Bathrooms int `json:"bathrooms" db:"bathrooms"`

	// Type is a free-form category such as "apartment" or "house".
	Type string `json:"type" db:"type"`

	Address     string `json:"address" db:"address"`
	City        string `json:"city" db:"city"`
	Description string `json:"description" db:"description"`

	// Image is the object key of the cover image, if any.
	Image string `json:"image,omitempty" db:"image"`

	Status PropertyStatus `json:"status" db:"status"`

	// LandlordID references the owning user.
	LandlordID int `json:"landlord_id" db:"landlord_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PropertyListItem is a property card as shown in the public listing.
// Liked is always false for anonymous viewers.
type PropertyListItem struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Price         int64          `json:"price"`
	Bedrooms      int            `json:"bedrooms"`
	Bathrooms     int            `json:"bathrooms"`
	Type          string         `json:"type"`
	Address       string         `json:"address"`
	City          string         `json:"city"`
	Image         string         `json:"image,omitempty"`
	Status        PropertyStatus `json:"status"`
	LandlordID    int            `json:"landlord_id"`
	LandlordPhoto string         `json:"landlord_photo,omitempty"`
	Liked         bool           `json:"liked"`
}

// PropertyDetails is a single property joined with its landlord contact.
type PropertyDetails struct {
	Property
	LandlordName  string `json:"landlord_name"`
	LandlordPhone string `json:"landlord_phone"`
	LandlordPhoto string `json:"landlord_photo,omitempty"`
}
