package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"estatehub/listings/internal/api/middleware"
	"estatehub/listings/internal/services"
	"estatehub/listings/internal/storage"
)

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService   services.IListingService
	imageStorage     storage.IImageStorage
	hideErrorDetails bool
}

// NewRestListingHandler creates a new RestListingHandler. imageStorage may be
// nil, in which case upload requests answer 503.
func NewRestListingHandler(listingService services.IListingService, imageStorage storage.IImageStorage, hideErrorDetails bool) *RestListingHandler {
	return &RestListingHandler{
		listingService:   listingService,
		imageStorage:     imageStorage,
		hideErrorDetails: hideErrorDetails,
	}
}

func (h *RestListingHandler) fail(c *gin.Context, err error, fallback string) {
	respondError(c, err, fallback, h.hideErrorDetails)
}

func (h *RestListingHandler) badBody(c *gin.Context, err error) {
	body := gin.H{"message": "Invalid request body"}
	if !h.hideErrorDetails {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// ListListings handles GET /listings?tag=&status=
func (h *RestListingHandler) ListListings(c *gin.Context) {
	listings, err := h.listingService.ListAll(c.Request.Context(), c.Query("tag"), c.Query("status"))
	if err != nil {
		h.fail(c, err, "Failed to fetch listings")
		return
	}
	c.JSON(http.StatusOK, listings)
}

// GetListingByID handles GET /listings/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listing, err := h.listingService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to fetch listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CreateListing handles POST /listings. The creator is taken from the
// authenticated caller, never from the body.
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	var req services.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	listing, err := h.listingService.Create(c.Request.Context(), req, middleware.CallerID(c))
	if err != nil {
		h.fail(c, err, "Failed to create listing")
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// UpdateListing handles PATCH /listings/:id. An empty body supplies no fields.
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	var req services.UpdateListingRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.badBody(c, err)
			return
		}
	}

	listing, err := h.listingService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Failed to update listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /listings/:id
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	if err := h.listingService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete listing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted successfully"})
}

// ListUserListingsByStatus handles GET /listings/status/:status?userId= and GET /listings/status?userId=
func (h *RestListingHandler) ListUserListingsByStatus(c *gin.Context) {
	listings, err := h.listingService.ListByStatusForUser(c.Request.Context(), c.Param("status"), c.Query("userId"))
	if err != nil {
		h.fail(c, err, "Failed to fetch listings")
		return
	}
	c.JSON(http.StatusOK, listings)
}

// ApproveListing handles PATCH /listings/:id/approve
func (h *RestListingHandler) ApproveListing(c *gin.Context) {
	listing, err := h.listingService.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to approve listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// RejectListing handles PATCH /listings/:id/reject
func (h *RestListingHandler) RejectListing(c *gin.Context) {
	listing, err := h.listingService.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to reject listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CheckDuplicateDraft handles POST /listings/check-duplicate
func (h *RestListingHandler) CheckDuplicateDraft(c *gin.Context) {
	var req services.DuplicateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	exists, err := h.listingService.CheckDuplicateDraft(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to check for duplicate draft")
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// ImageUploadRequest is the body of POST /listings/uploads.
type ImageUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// CreateImageUpload handles POST /listings/uploads. It returns a presigned PUT
// URL and the public URL to store in the listing's images.
func (h *RestListingHandler) CreateImageUpload(c *gin.Context) {
	if h.imageStorage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Image uploads are not configured"})
		return
	}

	var req ImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}
	if !strings.HasPrefix(strings.ToLower(req.ContentType), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Only image uploads are allowed"})
		return
	}

	target, err := h.imageStorage.PresignImageUpload(c.Request.Context(), middleware.CallerID(c), req.Filename, req.ContentType)
	if err != nil {
		h.fail(c, err, "Failed to prepare image upload")
		return
	}
	target.PublicURL = services.NormalizeImageURL(target.PublicURL)
	c.JSON(http.StatusOK, target)
}
