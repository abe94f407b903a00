package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estatehub/listings/internal/db"
	"estatehub/listings/internal/models"
)

// ListingsCollection is the Mongo collection holding listing documents.
const ListingsCollection = "listings"

// ListingFilter holds optional equality filters. Zero values are ignored.
type ListingFilter struct {
	Tag       string
	Status    models.ListingStatus
	CreatedBy *primitive.ObjectID
}

// DuplicateDraftQuery matches drafts owned by CreatedBy whose title, slug or
// address equals the corresponding value. Empty values never match.
type DuplicateDraftQuery struct {
	CreatedBy primitive.ObjectID
	Title     string
	Slug      string
	Address   string
	ExcludeID *primitive.ObjectID
}

// IListingRepository is the document-store surface used by the listing service.
// Not-found conditions are reported as mongo.ErrNoDocuments.
type IListingRepository interface {
	Find(ctx context.Context, filter ListingFilter) ([]models.Listing, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	Insert(ctx context.Context, listing *models.Listing) error
	FindByIDAndUpdate(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Listing, error)
	FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	Exists(ctx context.Context, query DuplicateDraftQuery) (bool, error)
	DeleteDraftsUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ParseID converts a hex string into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}

// IsValidID reports whether hex is a well-formed ObjectID.
func IsValidID(hex string) bool {
	return primitive.IsValidObjectID(hex)
}

type mongoListingRepository struct {
	collection *mongo.Collection
}

// NewMongoListingRepository returns a repository backed by the listings collection of database.
func NewMongoListingRepository(database *mongo.Database) IListingRepository {
	return &mongoListingRepository{collection: database.Collection(ListingsCollection)}
}

func listingFilterDoc(f ListingFilter) bson.M {
	filter := bson.M{}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.CreatedBy != nil {
		filter["createdBy"] = *f.CreatedBy
	}
	return filter
}

// duplicateDraftDoc builds the exists filter. ok is false when no value could match.
func duplicateDraftDoc(q DuplicateDraftQuery) (filter bson.M, ok bool) {
	or := bson.A{}
	if q.Title != "" {
		or = append(or, bson.M{"title": q.Title})
	}
	if q.Slug != "" {
		or = append(or, bson.M{"slug": q.Slug})
	}
	if q.Address != "" {
		or = append(or, bson.M{"address": q.Address})
	}
	if len(or) == 0 {
		return nil, false
	}
	filter = bson.M{
		"createdBy": q.CreatedBy,
		"status":    models.StatusDraft,
		"$or":       or,
	}
	if q.ExcludeID != nil {
		filter["_id"] = bson.M{"$ne": *q.ExcludeID}
	}
	return filter, true
}

func (r *mongoListingRepository) Find(ctx context.Context, f ListingFilter) ([]models.Listing, error) {
	cursor, err := r.collection.Find(ctx, listingFilterDoc(f))
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

func (r *mongoListingRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding listing by ID %s: %w", id.Hex(), err)
	}
	return &listing, nil
}

// Insert stores listing, assigning a fresh ObjectID on every attempt.
func (r *mongoListingRepository) Insert(ctx context.Context, listing *models.Listing) error {
	operation := func() error {
		listing.ID = primitive.NewObjectID()
		_, err := r.collection.InsertOne(ctx, listing)
		return err
	}
	if err := db.Try(operation); err != nil {
		listing.ID = primitive.NilObjectID
		return fmt.Errorf("failed to insert listing %q after retries: %w", listing.Title, err)
	}
	return nil
}

func (r *mongoListingRepository) FindByIDAndUpdate(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Listing, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Listing
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", id.Hex(), err)
	}
	return &updated, nil
}

func (r *mongoListingRepository) FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	var deleted models.Listing
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to delete listing %s: %w", id.Hex(), err)
	}
	return &deleted, nil
}

func (r *mongoListingRepository) Exists(ctx context.Context, q DuplicateDraftQuery) (bool, error) {
	filter, ok := duplicateDraftDoc(q)
	if !ok {
		return false, nil
	}
	err := r.collection.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check for duplicate draft: %w", err)
	}
	return true, nil
}

func (r *mongoListingRepository) DeleteDraftsUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"status":    models.StatusDraft,
		"updatedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale drafts: %w", err)
	}
	return res.DeletedCount, nil
}
