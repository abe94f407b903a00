package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"estatehub/listings/internal/cache"
	"estatehub/listings/internal/events"
	"estatehub/listings/internal/metrics"
	"estatehub/listings/internal/models"
	"estatehub/listings/internal/repository"
)

// IListingService defines the interface for listing-related operations.
// IDs are hex ObjectID strings; malformed IDs fail with ErrInvalidID before
// the store is touched.
type IListingService interface {
	ListAll(ctx context.Context, tag, status string) ([]models.Listing, error)
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	Create(ctx context.Context, req CreateListingRequest, callerID string) (*models.Listing, error)
	Update(ctx context.Context, id string, req UpdateListingRequest) (*models.Listing, error)
	Delete(ctx context.Context, id string) error
	ListByStatusForUser(ctx context.Context, status, userID string) ([]models.Listing, error)
	Approve(ctx context.Context, id string) (*models.Listing, error)
	Reject(ctx context.Context, id string) (*models.Listing, error)
	CheckDuplicateDraft(ctx context.Context, req DuplicateDraftRequest) (bool, error)
	DeleteStaleDrafts(ctx context.Context, maxAge time.Duration) (int64, error)
}

// listingService implements IListingService.
type listingService struct {
	repo      repository.IListingRepository
	cache     cache.IListingCache
	publisher events.IPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	validate  *validator.Validate
}

// NewListingService creates a new ListingService. listingCache, publisher and
// m may be nil; the service then runs without caching, events or metrics.
func NewListingService(repo repository.IListingRepository, listingCache cache.IListingCache, publisher events.IPublisher, m *metrics.Metrics, logger *zap.Logger) IListingService {
	if listingCache == nil {
		listingCache = cache.NoopListingCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &listingService{
		repo:      repo,
		cache:     listingCache,
		publisher: publisher,
		metrics:   m,
		logger:    logger.Named("listing_service"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func parseID(hex string) (primitive.ObjectID, error) {
	if !repository.IsValidID(hex) {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return repository.ParseID(hex)
}

// storeErr maps a repository error, turning mongo.ErrNoDocuments into ErrNotFound.
func (s *listingService) storeErr(op, id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	s.logger.Error("store operation failed", zap.String("op", op), zap.String("listing_id", id), zap.Error(err))
	return fmt.Errorf("%s listing %s: %w", op, id, err)
}

func (s *listingService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate cached listing", zap.String("listing_id", id), zap.Error(err))
	}
}

func (s *listingService) publish(ctx context.Context, subject string, l *models.Listing) {
	if err := s.publisher.Publish(ctx, subject, events.NewListingEvent(l)); err != nil {
		s.logger.Warn("failed to publish listing event", zap.String("subject", subject), zap.String("listing_id", l.ID.Hex()), zap.Error(err))
	}
}

// ListAll returns every listing matching the optional tag and status filters.
func (s *listingService) ListAll(ctx context.Context, tag, status string) ([]models.Listing, error) {
	listings, err := s.repo.Find(ctx, repository.ListingFilter{Tag: tag, Status: models.ListingStatus(status)})
	if err != nil {
		s.logger.Error("failed to list listings", zap.String("tag", tag), zap.String("status", status), zap.Error(err))
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// GetByID returns a single listing, served from cache when possible.
func (s *listingService) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, oid.Hex())
	if err != nil {
		s.logger.Warn("listing cache read failed", zap.String("listing_id", id), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	readAt := time.Now()
	listing, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, s.storeErr("find", id, err)
	}
	if err := s.cache.Set(ctx, listing, readAt); err != nil {
		s.logger.Warn("listing cache write failed", zap.String("listing_id", id), zap.Error(err))
	}
	return listing, nil
}

// Create stores a new listing. Status defaults to draft. Drafts are stored
// as supplied; any other status must satisfy the full listing schema.
func (s *listingService) Create(ctx context.Context, req CreateListingRequest, callerID string) (*models.Listing, error) {
	status := models.StatusDraft
	if req.Status != nil && *req.Status != "" {
		status = *req.Status
	}

	listing := req.toListing(status)

	if callerID != "" {
		owner, err := parseID(callerID)
		if err != nil {
			return nil, err
		}
		listing.CreatedBy = &owner
	}

	if err := s.validateListing(listing); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	if err := s.repo.Insert(ctx, listing); err != nil {
		s.logger.Error("failed to insert listing", zap.String("title", listing.Title), zap.Error(err))
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ListingsCreated.WithLabelValues(string(listing.Status)).Inc()
	}
	s.publish(ctx, events.SubjectListingCreated, listing)
	return listing, nil
}

func (s *listingService) validateListing(l *models.Listing) error {
	var err error
	if l.IsDraft() {
		err = s.validate.StructPartial(l, "Status")
	} else {
		err = s.validate.Struct(l)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// Update applies exactly the supplied fields. Blank values are stored as given.
func (s *listingService) Update(ctx context.Context, id string, req UpdateListingRequest) (*models.Listing, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
	}

	set := req.setDoc()
	set["updatedAt"] = time.Now().UTC()

	updated, err := s.repo.FindByIDAndUpdate(ctx, oid, set)
	if err != nil {
		return nil, s.storeErr("update", id, err)
	}

	s.invalidate(ctx, oid.Hex())
	if s.metrics != nil {
		s.metrics.ListingsUpdated.Inc()
	}
	s.publish(ctx, events.SubjectListingUpdated, updated)
	return updated, nil
}

// Delete removes a listing.
func (s *listingService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.FindByIDAndDelete(ctx, oid)
	if err != nil {
		return s.storeErr("delete", id, err)
	}

	s.invalidate(ctx, oid.Hex())
	if s.metrics != nil {
		s.metrics.ListingsDeleted.Inc()
	}
	s.publish(ctx, events.SubjectListingDeleted, deleted)
	return nil
}

// ListByStatusForUser returns listings created by userID, optionally narrowed to status.
func (s *listingService) ListByStatusForUser(ctx context.Context, status, userID string) ([]models.Listing, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingParam)
	}
	owner, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	listings, err := s.repo.Find(ctx, repository.ListingFilter{Status: models.ListingStatus(status), CreatedBy: &owner})
	if err != nil {
		s.logger.Error("failed to list user listings", zap.String("user_id", userID), zap.String("status", status), zap.Error(err))
		return nil, fmt.Errorf("failed to list listings for user %s: %w", userID, err)
	}
	return listings, nil
}

// Approve sets the listing status to approved regardless of its current status.
func (s *listingService) Approve(ctx context.Context, id string) (*models.Listing, error) {
	return s.moderate(ctx, id, models.StatusApproved, events.SubjectListingApproved)
}

// Reject sets the listing status to rejected regardless of its current status.
func (s *listingService) Reject(ctx context.Context, id string) (*models.Listing, error) {
	return s.moderate(ctx, id, models.StatusRejected, events.SubjectListingRejected)
}

func (s *listingService) moderate(ctx context.Context, id string, status models.ListingStatus, subject string) (*models.Listing, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByIDAndUpdate(ctx, oid, bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	})
	if err != nil {
		return nil, s.storeErr(string(status), id, err)
	}

	s.invalidate(ctx, oid.Hex())
	if s.metrics != nil {
		s.metrics.ListingsModerated.WithLabelValues(string(status)).Inc()
	}
	s.publish(ctx, subject, updated)
	return updated, nil
}

// CheckDuplicateDraft reports whether createdBy already owns a draft whose
// title, slug or address matches the trimmed values in req. The draft named by
// req.ListingID, if any, is ignored.
func (s *listingService) CheckDuplicateDraft(ctx context.Context, req DuplicateDraftRequest) (bool, error) {
	var missing []string
	if req.Title == nil {
		missing = append(missing, "title")
	}
	if req.Slug == nil {
		missing = append(missing, "slug")
	}
	if req.Address == nil {
		missing = append(missing, "address")
	}
	if blank(req.CreatedBy) {
		missing = append(missing, "createdBy")
	}
	if len(missing) > 0 {
		return false, fmt.Errorf("%w: %s", ErrMissingParam, strings.Join(missing, ", "))
	}

	owner, err := parseID(strings.TrimSpace(*req.CreatedBy))
	if err != nil {
		return false, err
	}
	q := repository.DuplicateDraftQuery{
		CreatedBy: owner,
		Title:     strings.TrimSpace(*req.Title),
		Slug:      strings.TrimSpace(*req.Slug),
		Address:   strings.TrimSpace(*req.Address),
	}
	if !blank(req.ListingID) {
		exclude, err := parseID(strings.TrimSpace(*req.ListingID))
		if err != nil {
			return false, err
		}
		q.ExcludeID = &exclude
	}

	exists, err := s.repo.Exists(ctx, q)
	if err != nil {
		s.logger.Error("duplicate draft check failed", zap.String("created_by", owner.Hex()), zap.Error(err))
		return false, fmt.Errorf("failed to check for duplicate draft: %w", err)
	}
	return exists, nil
}

// DeleteStaleDrafts removes drafts whose last update is older than maxAge.
func (s *listingService) DeleteStaleDrafts(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	n, err := s.repo.DeleteDraftsUpdatedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale draft cleanup failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("failed to delete stale drafts: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DraftsCleanedUp.Add(float64(n))
	}
	s.logger.Info("stale drafts removed", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	return n, nil
}
