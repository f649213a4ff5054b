package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrSuggestionUnavailable is returned when the language-model call fails outright
	ErrSuggestionUnavailable = errors.New("suggestion service unavailable")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrUnauthorized is returned when the backend rejects the session token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstreamFailure is returned when a backend or third-party request fails
	ErrUpstreamFailure = errors.New("upstream request failed")

	// ErrUnsupportedMedia is returned for uploads that are not images
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrMediaTooLarge is returned for uploads over the size limit
	ErrMediaTooLarge = errors.New("media exceeds size limit")

	// ErrMediaUploadFailed is returned when the media host rejects an upload
	ErrMediaUploadFailed = errors.New("media upload failed")

	// ErrFeatureDisabled is returned when a feature has no credentials configured
	ErrFeatureDisabled = errors.New("feature not configured")
)
