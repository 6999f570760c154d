package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// Photo handles evidence photo storage. When Cloudinary is not configured
// the photo stays embedded in the record as a data URI.
type Photo struct{}

// StoreImage uploads a data-URI photo to Cloudinary and returns its URL.
// Without CLOUDINARY_URL, or when the upload fails, the data URI itself is
// the image reference.
func (p Photo) StoreImage(ctx context.Context, dataURI string) string {
	if os.Getenv("CLOUDINARY_URL") == "" {
		return dataURI
	}
	cld, err := cloudinary.New()
	if err != nil {
		zap.S().Errorw("failed to create cloudinary client, keeping embedded photo", "error", err)
		return dataURI
	}
	resp, err := cld.Upload.Upload(ctx, dataURI, uploader.UploadParams{Folder: "govlens-evidence"})
	if err != nil {
		zap.S().Errorw("cloudinary upload failed, keeping embedded photo", "error", err)
		return dataURI
	}
	return resp.SecureURL
}

// GenerateSignature generates a signature for direct Cloudinary uploads from
// the officer dashboard
func (p Photo) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	uploadPreset := os.Getenv("CLOUDINARY_UPLOAD_PRESET")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")

	h := hmac.New(sha1.New, []byte(apiSecret))
	h.Write([]byte("timestamp=" + timestamp + "&upload_preset=" + uploadPreset))
	signature := hex.EncodeToString(h.Sum(nil))

	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
