package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedImage is returned for files that are not jpg, png, gif or webp
var ErrUnsupportedImage = errors.New("unsupported image type")

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageExtension validates the filename and returns its lowercased extension
func ImageExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := imageExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, filepath.Ext(filename))
	}
	return ext, nil
}

// ObjectKey derives a stable, unguessable key for an upload:
// {target}/{year}/{month}/{hmac}{ext}. The digest covers the owner, the
// original name and the upload time so re-uploads never collide.
func ObjectKey(secret []byte, target Target, ownerID, filename string, now time.Time) (string, error) {
	ext, err := ImageExtension(filename)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s\x00%s\x00%s\x00%d", target, ownerID, filename, now.UnixNano())
	digest := hex.EncodeToString(mac.Sum(nil))[:32]

	return fmt.Sprintf("%s/%d/%02d/%s%s", target, now.Year(), now.Month(), digest, ext), nil
}

// getContentTypeForImage returns the MIME type for image extensions
func getContentTypeForImage(extension string) string {
	if ct, ok := imageExtensions[strings.ToLower(extension)]; ok {
		return ct
	}
	return "application/octet-stream"
}
