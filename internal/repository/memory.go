package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"estatehub/listings/internal/models"
)

// MemoryListingRepository keeps listings as BSON documents in memory.
// Documents go through the same bson encoding as the Mongo driver, so
// omitempty and $set behave like they do against a real collection.
type MemoryListingRepository struct {
	mu    sync.RWMutex
	docs  map[primitive.ObjectID]bson.Raw
	order []primitive.ObjectID
}

// NewMemoryListingRepository returns an empty in-memory repository.
func NewMemoryListingRepository() *MemoryListingRepository {
	return &MemoryListingRepository{docs: make(map[primitive.ObjectID]bson.Raw)}
}

// Document returns the stored document for id as a map, for inspecting which fields were persisted.
func (r *MemoryListingRepository) Document(id primitive.ObjectID) (bson.M, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.docs[id]
	if !ok {
		return nil, false
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// Len returns the number of stored listings.
func (r *MemoryListingRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func decodeListing(raw bson.Raw) (*models.Listing, error) {
	var l models.Listing
	if err := bson.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return &l, nil
}

func (r *MemoryListingRepository) all() ([]*models.Listing, error) {
	out := make([]*models.Listing, 0, len(r.order))
	for _, id := range r.order {
		l, err := decodeListing(r.docs[id])
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func matchesFilter(l *models.Listing, f ListingFilter) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.CreatedBy != nil && (l.CreatedBy == nil || *l.CreatedBy != *f.CreatedBy) {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range l.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *MemoryListingRepository) Find(ctx context.Context, f ListingFilter) ([]models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all, err := r.all()
	if err != nil {
		return nil, err
	}
	listings := []models.Listing{}
	for _, l := range all {
		if matchesFilter(l, f) {
			listings = append(listings, *l)
		}
	}
	return listings, nil
}

func (r *MemoryListingRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return decodeListing(raw)
}

func (r *MemoryListingRepository) Insert(ctx context.Context, listing *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing.ID = primitive.NewObjectID()
	raw, err := bson.Marshal(listing)
	if err != nil {
		listing.ID = primitive.NilObjectID
		return fmt.Errorf("failed to encode listing: %w", err)
	}
	r.docs[listing.ID] = raw
	r.order = append(r.order, listing.ID)
	return nil
}

func (r *MemoryListingRepository) FindByIDAndUpdate(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode listing %s: %w", id.Hex(), err)
	}
	for k, v := range set {
		doc[k] = v
	}
	updated, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode listing %s: %w", id.Hex(), err)
	}
	r.docs[id] = updated
	return decodeListing(updated)
}

func (r *MemoryListingRepository) FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	r.remove(id)
	return decodeListing(raw)
}

func (r *MemoryListingRepository) remove(id primitive.ObjectID) {
	delete(r.docs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *MemoryListingRepository) Exists(ctx context.Context, q DuplicateDraftQuery) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all, err := r.all()
	if err != nil {
		return false, err
	}
	for _, l := range all {
		if l.Status != models.StatusDraft || l.CreatedBy == nil || *l.CreatedBy != q.CreatedBy {
			continue
		}
		if q.ExcludeID != nil && l.ID == *q.ExcludeID {
			continue
		}
		if (q.Title != "" && l.Title == q.Title) ||
			(q.Slug != "" && l.Slug == q.Slug) ||
			(q.Address != "" && l.Address == q.Address) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryListingRepository) DeleteDraftsUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all, err := r.all()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, l := range all {
		if l.Status == models.StatusDraft && l.UpdatedAt.Before(cutoff) {
			r.remove(l.ID)
			n++
		}
	}
	return n, nil
}

var _ IListingRepository = (*MemoryListingRepository)(nil)
