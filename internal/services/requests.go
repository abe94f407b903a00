package services

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"estatehub/listings/internal/models"
)

// ListingFields are the caller-writable listing attributes. A nil field was not
// supplied. createdBy is deliberately absent: it comes from the caller identity only.
type ListingFields struct {
	Status           *models.ListingStatus `json:"status"`
	Title            *string               `json:"title"`
	Tags             []string              `json:"tags"`
	Slug             *string               `json:"slug"`
	Address          *string               `json:"address"`
	Location         *string               `json:"location"`
	Price            *float64              `json:"price"`
	Description      *string               `json:"description"`
	Images           []string              `json:"images"`
	Bedrooms         *int                  `json:"bedrooms"`
	Bathrooms        *int                  `json:"bathrooms"`
	SquareFootage    *float64              `json:"squareFootage"`
	PropertyType     *string               `json:"propertyType"`
	YearBuilt        *int                  `json:"yearBuilt"`
	ParkingAvailable *bool                 `json:"parkingAvailable"`
	ListingType      *string               `json:"listingType"`
	AvailableFrom    *time.Time            `json:"availableFrom"`
	Features         []string              `json:"features"`
	Amenities        []string              `json:"amenities"`
	Facilities       []string              `json:"facilities"`
}

// CreateListingRequest is the body of POST /listings.
type CreateListingRequest struct {
	ListingFields
}

// UpdateListingRequest is the body of PATCH /listings/:id.
type UpdateListingRequest struct {
	ListingFields
}

// DuplicateDraftRequest is the body of POST /listings/check-duplicate.
type DuplicateDraftRequest struct {
	Title     *string `json:"title"`
	Slug      *string `json:"slug"`
	Address   *string `json:"address"`
	CreatedBy *string `json:"createdBy"`
	ListingID *string `json:"listingId"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// toListing builds the listing record. For drafts, blank strings and empty
// slices are dropped so they are never persisted.
func (f *ListingFields) toListing(status models.ListingStatus) *models.Listing {
	l := &models.Listing{
		Status:           status,
		Title:            deref(f.Title),
		Tags:             f.Tags,
		Slug:             deref(f.Slug),
		Address:          deref(f.Address),
		Location:         deref(f.Location),
		Price:            f.Price,
		Description:      deref(f.Description),
		Images:           NormalizeImageURLs(f.Images),
		Bedrooms:         f.Bedrooms,
		Bathrooms:        f.Bathrooms,
		SquareFootage:    f.SquareFootage,
		PropertyType:     deref(f.PropertyType),
		YearBuilt:        f.YearBuilt,
		ParkingAvailable: f.ParkingAvailable,
		ListingType:      deref(f.ListingType),
		AvailableFrom:    f.AvailableFrom,
		Features:         f.Features,
		Amenities:        f.Amenities,
		Facilities:       f.Facilities,
	}
	if status == models.StatusDraft {
		stripEmptyContent(l)
	}
	return l
}

func stripEmptyContent(l *models.Listing) {
	for _, s := range []*string{&l.Slug, &l.Address, &l.Location, &l.Description, &l.PropertyType, &l.ListingType} {
		if strings.TrimSpace(*s) == "" {
			*s = ""
		}
	}
	for _, list := range []*[]string{&l.Images, &l.Features, &l.Amenities, &l.Facilities} {
		if len(*list) == 0 {
			*list = nil
		}
	}
	if l.AvailableFrom != nil && l.AvailableFrom.IsZero() {
		l.AvailableFrom = nil
	}
}

// setDoc returns a $set document holding exactly the supplied fields, with
// image URLs normalized. Values are stored as given.
func (f *ListingFields) setDoc() bson.M {
	set := bson.M{}
	putString := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	putList := func(key string, v []string) {
		if v != nil {
			set[key] = v
		}
	}

	if f.Status != nil {
		set["status"] = *f.Status
	}
	putString("title", f.Title)
	putList("tags", f.Tags)
	putString("slug", f.Slug)
	putString("address", f.Address)
	putString("location", f.Location)
	if f.Price != nil {
		set["price"] = *f.Price
	}
	putString("description", f.Description)
	putList("images", NormalizeImageURLs(f.Images))
	if f.Bedrooms != nil {
		set["bedrooms"] = *f.Bedrooms
	}
	if f.Bathrooms != nil {
		set["bathrooms"] = *f.Bathrooms
	}
	if f.SquareFootage != nil {
		set["squareFootage"] = *f.SquareFootage
	}
	putString("propertyType", f.PropertyType)
	if f.YearBuilt != nil {
		set["yearBuilt"] = *f.YearBuilt
	}
	if f.ParkingAvailable != nil {
		set["parkingAvailable"] = *f.ParkingAvailable
	}
	putString("listingType", f.ListingType)
	if f.AvailableFrom != nil {
		set["availableFrom"] = *f.AvailableFrom
	}
	putList("features", f.Features)
	putList("amenities", f.Amenities)
	putList("facilities", f.Facilities)
	return set
}
