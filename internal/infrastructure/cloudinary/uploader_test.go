package cloudinary

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	t.Run("matches the documented example", func(t *testing.T) {
		params := map[string]string{
			"eager":     "w_400,h_300,c_pad|w_260,h_200,c_crop",
			"public_id": "sample_image",
			"timestamp": "1315060510",
		}
		assert.Equal(t, "bfd09f95f331f558cbd1320e67aa8d488770583e", Sign(params, "abcd"))
	})

	t.Run("ignores unsigned and empty params", func(t *testing.T) {
		base := map[string]string{"folder": "drape", "timestamp": "1315060510"}
		withExtras := map[string]string{
			"folder":        "drape",
			"timestamp":     "1315060510",
			"api_key":       "123",
			"file":          "data",
			"resource_type": "image",
			"tags":          "",
		}
		assert.Equal(t, Sign(base, "abcd"), Sign(withExtras, "abcd"))
		assert.Equal(t, "087085cd60f5b84066c519a74fa6ecfc5f320f7c", Sign(base, "abcd"))
	})
}

func TestNewUploader(t *testing.T) {
	assert.Nil(t, NewUploader(Config{CloudName: "demo", APIKey: "key"}, zerolog.Nop()))

	u := NewUploader(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/drape/"}, zerolog.Nop())
	require.NotNil(t, u)
	assert.Equal(t, "drape", u.folder)
	assert.Equal(t, defaultBaseURL, u.baseURL)
}

func TestUpload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "1315060510", r.FormValue("timestamp"))
		assert.Equal(t, "drape", r.FormValue("folder"))
		assert.Equal(t, Sign(map[string]string{"folder": "drape", "timestamp": "1315060510"}, "secret"), r.FormValue("signature"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "look.png", header.Filename)
		assert.Equal(t, []byte("png-bytes"), content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"public_id": "drape/abc123",
			"secure_url": "https://res.cloudinary.com/demo/image/upload/v1/drape/abc123.png",
			"url": "http://res.cloudinary.com/demo/image/upload/v1/drape/abc123.png",
			"width": 800, "height": 1200, "format": "png", "bytes": 9
		}`))
	}))
	defer server.Close()

	u := NewUploader(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "drape", BaseURL: server.URL}, zerolog.Nop())
	u.now = func() time.Time { return time.Unix(1315060510, 0) }

	asset, err := u.Upload(context.Background(), "look.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, &domain.MediaAsset{
		URL:      "https://res.cloudinary.com/demo/image/upload/v1/drape/abc123.png",
		PublicID: "drape/abc123",
		Width:    800,
		Height:   1200,
		Format:   "png",
		Bytes:    9,
	}, asset)
}

func TestUpload_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature 1a2b"}}`))
	}))
	defer server.Close()

	u := NewUploader(Config{CloudName: "demo", APIKey: "key", APISecret: "wrong", BaseURL: server.URL}, zerolog.Nop())
	_, err := u.Upload(context.Background(), "a.png", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "Invalid Signature")
}
