package usecase

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

// MediaService validates user images and forwards them to the media host
type MediaService struct {
	uploader domain.MediaUploader
	maxBytes int
	logger   zerolog.Logger
}

// NewMediaService creates a media service; maxBytes <= 0 uses domain.MaxUploadBytes
func NewMediaService(uploader domain.MediaUploader, maxBytes int, logger zerolog.Logger) *MediaService {
	if maxBytes <= 0 {
		maxBytes = domain.MaxUploadBytes
	}
	return &MediaService{uploader: uploader, maxBytes: maxBytes, logger: logger}
}

// UploadImage accepts image/* payloads up to the size limit and returns the hosted asset.
// The declared content type is checked against the sniffed one so renamed files are rejected.
func (s *MediaService) UploadImage(ctx context.Context, filename, contentType string, data []byte) (*domain.MediaAsset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidRequest)
	}
	if len(data) > s.maxBytes {
		return nil, domain.ErrMediaTooLarge
	}

	declared := mediaType(contentType)
	sniffed := mediaType(http.DetectContentType(data))
	if !strings.HasPrefix(sniffed, "image/") {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, sniffed)
	}
	if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, declared)
	}

	name := sanitizeFilename(filename, sniffed)
	asset, err := s.uploader.Upload(ctx, name, data)
	if err != nil {
		s.logger.Error().Err(err).Str("filename", name).Int("bytes", len(data)).Msg("media upload failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUploadFailed, err)
	}

	s.logger.Info().Str("public_id", asset.PublicID).Int("bytes", len(data)).Msg("media uploaded")
	return asset, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// sanitizeFilename keeps the base name and gives it an extension matching the sniffed type
func sanitizeFilename(filename, contentType string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	if filepath.Ext(base) == "" {
		if ext, ok := imageExtensions[contentType]; ok {
			base += ext
		}
	}
	return base
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}
