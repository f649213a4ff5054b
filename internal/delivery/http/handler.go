package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ProductSearcher searches real products across retailers
type ProductSearcher interface {
	SearchRealProducts(ctx context.Context, query string, opts domain.ProductSearchOptions) ([]domain.RealProductResult, error)
}

// OutfitSuggester generates outfit suggestions
type OutfitSuggester interface {
	GenerateOutfitSuggestion(ctx context.Context, req domain.OutfitRequest) (*domain.OutfitSuggestion, error)
	ShopOutfit(ctx context.Context, req domain.OutfitRequest) (*domain.ShoppableOutfit, error)
}

// ImageUploader validates and stores user images
type ImageUploader interface {
	UploadImage(ctx context.Context, filename, contentType string, data []byte) (*domain.MediaAsset, error)
}

// NotificationDispatcher fans a notification out to users
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, req domain.NotificationRequest) (*domain.DispatchReport, error)
}

// PreferenceStore saves notification preferences
type PreferenceStore interface {
	SavePreference(ctx context.Context, p domain.NotificationPreference) error
}

// DashboardReader answers "updates since" queries
type DashboardReader interface {
	Updates(ctx context.Context, userID string, since time.Time) (*domain.DashboardUpdate, error)
}

// Services groups the handler's dependencies. Nil fields make their endpoints answer 501.
type Services struct {
	Products      ProductSearcher
	Outfits       OutfitSuggester
	Media         ImageUploader
	Notifications NotificationDispatcher
	Preferences   PreferenceStore
	Dashboard     DashboardReader
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	services       Services
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, logger zerolog.Logger) *Handler {
	return &Handler{
		services:       services,
		maxUploadBytes: domain.MaxUploadBytes,
		logger:         logger,
	}
}

// SearchRequest is the body of POST /api/v1/products/search
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	domain.ProductSearchOptions
}

// SearchResponse is returned by POST /api/v1/products/search
type SearchResponse struct {
	Products []domain.RealProductResult `json:"products"`
	Count    int                        `json:"count"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "drape-backend",
		"version": "1.0.0",
		"features": gin.H{
			"products":      h.services.Products != nil,
			"outfits":       h.services.Outfits != nil,
			"media":         h.services.Media != nil,
			"notifications": h.services.Notifications != nil,
			"dashboard":     h.services.Dashboard != nil,
		},
	})
}

// SearchProducts handles product search requests
func (h *Handler) SearchProducts(c *gin.Context) {
	if h.services.Products == nil {
		notConfigured(c, "product search")
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	products, err := h.services.Products.SearchRealProducts(c.Request.Context(), req.Query, req.ProductSearchOptions)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SearchResponse{Products: products, Count: len(products)})
}

// SuggestOutfit handles outfit suggestion requests
func (h *Handler) SuggestOutfit(c *gin.Context) {
	if h.services.Outfits == nil {
		notConfigured(c, "outfit suggestions")
		return
	}

	var req domain.OutfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	suggestion, err := h.services.Outfits.GenerateOutfitSuggestion(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

// ShopOutfit handles suggestion requests that also need real products per item
func (h *Handler) ShopOutfit(c *gin.Context) {
	if h.services.Outfits == nil {
		notConfigured(c, "outfit suggestions")
		return
	}

	var req domain.OutfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	outfit, err := h.services.Outfits.ShopOutfit(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outfit)
}

// UploadImage handles multipart image uploads in the "image" field
func (h *Handler) UploadImage(c *gin.Context) {
	if h.services.Media == nil {
		notConfigured(c, "media uploads")
		return
	}

	// room for multipart framing on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+64<<10)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(c, domain.ErrMediaTooLarge)
			return
		}
		badRequest(c, fmt.Errorf("image field is required: %w", err))
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		h.respondError(c, domain.ErrMediaTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		badRequest(c, err)
		return
	}

	asset, err := h.services.Media.UploadImage(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

// SendNotification creates and delivers a notification to a set of users
func (h *Handler) SendNotification(c *gin.Context) {
	if h.services.Notifications == nil {
		notConfigured(c, "notifications")
		return
	}

	var req domain.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	report, err := h.services.Notifications.Dispatch(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SavePreferences upserts a user's notification preferences
func (h *Handler) SavePreferences(c *gin.Context) {
	if h.services.Preferences == nil {
		notConfigured(c, "notification preferences")
		return
	}

	var pref domain.NotificationPreference
	if err := c.ShouldBindJSON(&pref); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(pref.UserID) == "" {
		badRequest(c, errors.New("userId is required"))
		return
	}

	if err := h.services.Preferences.SavePreference(c.Request.Context(), pref); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DashboardUpdates returns notifications newer than the "since" query parameter (RFC 3339)
func (h *Handler) DashboardUpdates(c *gin.Context) {
	if h.services.Dashboard == nil {
		notConfigured(c, "dashboard")
		return
	}

	userID := c.Query("userId")
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			badRequest(c, fmt.Errorf("since must be RFC 3339: %w", err))
			return
		}
		since = parsed
	}

	update, err := h.services.Dashboard.Updates(c.Request.Context(), userID, since)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, update)
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Int("status", status).Msg("request failed")
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, gin.H{"error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrMediaTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrFeatureDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrSuggestionUnavailable),
		errors.Is(err, domain.ErrMediaUploadFailed),
		errors.Is(err, domain.ErrUpstreamFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", domain.ErrInvalidRequest, err)})
}

func notConfigured(c *gin.Context, feature string) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": feature + " not configured"})
}
