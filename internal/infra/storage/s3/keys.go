package s3

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ProductPhotoKey returns a fresh object key for a listing photo. Keys are
// never reused, so an upload can't clobber an existing image.
func ProductPhotoKey(userID, contentType string) string {
	return fmt.Sprintf("products/%s/%s%s", userID, uuid.NewString(), extensionFor(contentType))
}

// AvatarKey returns the fixed per-user avatar key. Re-uploading replaces the
// previous profile picture in place.
func AvatarKey(userID string) string {
	return fmt.Sprintf("avatars/%s/profile.jpg", userID)
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
