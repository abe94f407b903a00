package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"estatehub/listings/internal/models"
	"estatehub/listings/internal/utils"
)

func TestListingFilterDoc(t *testing.T) {
	owner := primitive.NewObjectID()

	assert.Equal(t, bson.M{}, listingFilterDoc(ListingFilter{}))
	assert.Equal(t, bson.M{"tags": "pool", "status": models.StatusApproved},
		listingFilterDoc(ListingFilter{Tag: "pool", Status: models.StatusApproved}))
	assert.Equal(t, bson.M{"createdBy": owner}, listingFilterDoc(ListingFilter{CreatedBy: &owner}))
}

func TestDuplicateDraftDoc(t *testing.T) {
	owner := primitive.NewObjectID()
	exclude := primitive.NewObjectID()

	filter, ok := duplicateDraftDoc(DuplicateDraftQuery{CreatedBy: owner, Title: "T", Address: "1 Main St", ExcludeID: &exclude})
	require.True(t, ok)
	assert.Equal(t, owner, filter["createdBy"])
	assert.Equal(t, models.StatusDraft, filter["status"])
	assert.Equal(t, bson.A{bson.M{"title": "T"}, bson.M{"address": "1 Main St"}}, filter["$or"])
	assert.Equal(t, bson.M{"$ne": exclude}, filter["_id"])

	_, ok = duplicateDraftDoc(DuplicateDraftQuery{CreatedBy: owner})
	assert.False(t, ok)
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID(primitive.NewObjectID().Hex()))
	assert.False(t, IsValidID("not-an-id"))
	assert.False(t, IsValidID(""))
	assert.False(t, IsValidID("zzzzzzzzzzzzzzzzzzzzzzzz"))
}

func TestMemoryListingRepository_UpdateKeepsOmittedFieldsAbsent(t *testing.T) {
	repo := NewMemoryListingRepository()
	ctx := context.Background()

	l := &models.Listing{Status: models.StatusDraft, Title: "Loft"}
	require.NoError(t, repo.Insert(ctx, l))
	require.False(t, l.ID.IsZero())

	doc, ok := repo.Document(l.ID)
	require.True(t, ok)
	assert.NotContains(t, doc, "price")
	assert.NotContains(t, doc, "description")

	price := 500.0
	updated, err := repo.FindByIDAndUpdate(ctx, l.ID, bson.M{"price": &price})
	require.NoError(t, err)
	require.NotNil(t, updated.Price)
	assert.Equal(t, 500.0, *updated.Price)
	assert.Equal(t, models.StatusDraft, updated.Status)

	_, err = repo.FindByIDAndUpdate(ctx, primitive.NewObjectID(), bson.M{"title": "x"})
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestMemoryListingRepository_DeleteDraftsUpdatedBefore(t *testing.T) {
	repo := NewMemoryListingRepository()
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	stale := &models.Listing{Status: models.StatusDraft, Title: "stale", UpdatedAt: old}
	fresh := &models.Listing{Status: models.StatusDraft, Title: "fresh", UpdatedAt: time.Now()}
	approved := &models.Listing{Status: models.StatusApproved, Title: "live", UpdatedAt: old}
	for _, l := range []*models.Listing{stale, fresh, approved} {
		require.NoError(t, repo.Insert(ctx, l))
	}

	n, err := repo.DeleteDraftsUpdatedBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, repo.Len())

	_, err = repo.FindByID(ctx, stale.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestMongoListingRepository_CRUD(t *testing.T) {
	database := utils.SetupTestDB(t, "testdb_listing_repository", ListingsCollection)
	repo := NewMongoListingRepository(database)
	ctx := context.Background()
	owner := primitive.NewObjectID()

	draft := &models.Listing{Status: models.StatusDraft, Title: "Cottage", CreatedBy: &owner, Tags: []string{"garden"}, UpdatedAt: time.Now()}
	require.NoError(t, repo.Insert(ctx, draft))

	found, err := repo.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cottage", found.Title)

	byTag, err := repo.Find(ctx, ListingFilter{Tag: "garden"})
	require.NoError(t, err)
	assert.Len(t, byTag, 1)

	exists, err := repo.Exists(ctx, DuplicateDraftQuery{CreatedBy: owner, Title: "Cottage"})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, DuplicateDraftQuery{CreatedBy: owner, Title: "Cottage", ExcludeID: &draft.ID})
	require.NoError(t, err)
	assert.False(t, exists)

	updated, err := repo.FindByIDAndUpdate(ctx, draft.ID, bson.M{"status": models.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)

	_, err = repo.FindByIDAndDelete(ctx, draft.ID)
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, draft.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}
