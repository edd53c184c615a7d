package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/autoparts-market/backend/pkg/apperr"
)

const (
	// MaxImageSize is the maximum decoded size of an uploaded image (10MB).
	MaxImageSize = 10 * 1024 * 1024
	// FolderAdvertising is the directory (or key prefix) holding advertising images.
	FolderAdvertising = "advertising"

	dataURIPrefix = "data:image/"
	base64Marker  = ";base64,"
)

// AllowedImageSubtypes maps the media subtype of a data URI to the file extension written to disk.
var AllowedImageSubtypes = map[string]string{
	"jpeg": "jpeg",
	"jpg":  "jpg",
	"png":  "png",
	"webp": "webp",
	"gif":  "gif",
}

// ImageStore turns inbound image payloads into durable references and removes them again.
type ImageStore interface {
	// Store persists a data URI and returns the generated filename. URLs and existing
	// filenames are returned unchanged.
	Store(ctx context.Context, payload, discriminator string) (string, error)
	// Remove deletes a locally owned image. External URLs and missing files are not errors.
	Remove(ctx context.Context, stored string) error
	// URL returns the address clients use to fetch stored.
	URL(stored string) string
}

// IsDataURI reports whether v is an inline image (data:image/...).
func IsDataURI(v string) bool {
	return strings.HasPrefix(v, dataURIPrefix)
}

// IsExternal reports whether v is a hosted URL the application never writes or deletes.
func IsExternal(v string) bool {
	lower := strings.ToLower(v)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// IsLocallyOwned reports whether v names a file written by an ImageStore.
func IsLocallyOwned(v string) bool {
	return v != "" && !IsExternal(v) && !IsDataURI(v)
}

// ParseDataURI validates a data:image/<ext>;base64,<data> payload and returns the extension and
// decoded bytes. Every failure is an apperr.ErrValidation.
func ParseDataURI(payload string) (ext string, data []byte, err error) {
	if !IsDataURI(payload) {
		return "", nil, apperr.Validation("image is not a data URI")
	}
	rest := payload[len(dataURIPrefix):]
	idx := strings.Index(rest, base64Marker)
	if idx <= 0 {
		return "", nil, apperr.Validation("malformed image data URI")
	}
	subtype := strings.ToLower(rest[:idx])
	ext, ok := AllowedImageSubtypes[subtype]
	if !ok {
		return "", nil, apperr.Validation("unsupported image type %q", subtype)
	}
	encoded := rest[idx+len(base64Marker):]
	if encoded == "" {
		return "", nil, apperr.Validation("empty image data")
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxImageSize+3 {
		return "", nil, apperr.Validation("image exceeds 10MB limit")
	}
	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return "", nil, apperr.Validation("image data is not valid base64")
		}
	}
	if len(data) > MaxImageSize {
		return "", nil, apperr.Validation("image exceeds 10MB limit")
	}
	if detected := mimetype.Detect(data); !strings.HasPrefix(detected.String(), "image/") {
		return "", nil, apperr.Validation("image data is %s, not an image", detected.String())
	}
	return ext, data, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-]+`)

// GenerateFilename builds adv_<discriminator>_<unix millis>_<random token>.<ext>.
// The random token keeps names unique when two writes share a millisecond.
func GenerateFilename(discriminator, ext string) string {
	disc := unsafeChars.ReplaceAllString(discriminator, "")
	if disc == "" {
		disc = "new"
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("adv_%s_%d_%s.%s", disc, time.Now().UnixMilli(), token, ext)
}

// checkOpaqueName rejects references that could escape the image directory.
func checkOpaqueName(v string) error {
	if strings.ContainsAny(v, `/\`) || strings.Contains(v, "..") {
		return apperr.Validation("invalid image reference %q", v)
	}
	return nil
}
