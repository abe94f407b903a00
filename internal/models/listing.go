package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListingStatus is the moderation state of a listing.
type ListingStatus string

const (
	StatusDraft    ListingStatus = "draft"
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Listing represents a property listing.
//
// Content fields carry omitempty so a draft never stores blank values. The
// validate tags describe the full schema enforced once a listing leaves draft.
type Listing struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Status    ListingStatus       `bson:"status" json:"status" validate:"required,oneof=draft pending approved rejected"`
	Title     string              `bson:"title" json:"title" validate:"required"`
	Tags      []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedBy *primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`

	Slug             string     `bson:"slug,omitempty" json:"slug,omitempty" validate:"required"`
	Address          string     `bson:"address,omitempty" json:"address,omitempty" validate:"required"`
	Location         string     `bson:"location,omitempty" json:"location,omitempty" validate:"required"`
	Price            *float64   `bson:"price,omitempty" json:"price,omitempty" validate:"required,gte=0"`
	Description      string     `bson:"description,omitempty" json:"description,omitempty" validate:"required"`
	Images           []string   `bson:"images,omitempty" json:"images,omitempty" validate:"omitempty,dive,url"`
	Bedrooms         *int       `bson:"bedrooms,omitempty" json:"bedrooms,omitempty" validate:"required,gte=0"`
	Bathrooms        *int       `bson:"bathrooms,omitempty" json:"bathrooms,omitempty" validate:"required,gte=0"`
	SquareFootage    *float64   `bson:"squareFootage,omitempty" json:"squareFootage,omitempty" validate:"omitempty,gt=0"`
	PropertyType     string     `bson:"propertyType,omitempty" json:"propertyType,omitempty" validate:"required"`
	YearBuilt        *int       `bson:"yearBuilt,omitempty" json:"yearBuilt,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	ParkingAvailable *bool      `bson:"parkingAvailable,omitempty" json:"parkingAvailable,omitempty"`
	ListingType      string     `bson:"listingType,omitempty" json:"listingType,omitempty" validate:"required"`
	AvailableFrom    *time.Time `bson:"availableFrom,omitempty" json:"availableFrom,omitempty"`
	Features         []string   `bson:"features,omitempty" json:"features,omitempty"`
	Amenities        []string   `bson:"amenities,omitempty" json:"amenities,omitempty"`
	Facilities       []string   `bson:"facilities,omitempty" json:"facilities,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsDraft reports whether the listing is still a draft.
func (l *Listing) IsDraft() bool {
	return l.Status == StatusDraft
}
