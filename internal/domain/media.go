package domain

// MaxUploadBytes caps a single image upload
const MaxUploadBytes = 10 << 20

// MediaAsset is an image stored on the managed media host
type MediaAsset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Bytes    int    `json:"bytes"`
}
