package domain

import (
	"context"
	"io"
	"strings"
)

// Storage buckets.
const (
	BucketEventBanners = "event-banners"
	BucketAvatars      = "avatars"
)

// ObjectStorage is a bucketed binary store with public URLs.
type ObjectStorage interface {
	// Upload stores body under bucket/path, replacing any existing object, and
	// returns its public URL.
	Upload(ctx context.Context, bucket, path, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, bucket, path string) error
}

// ImageProcessor normalizes an uploaded image into a JPEG of bounded size.
type ImageProcessor interface {
	NormalizeJPEG(r io.Reader, maxWidth, maxHeight int) ([]byte, error)
}

// ExtractBucketPath returns the object path in a public URL of the form
// ".../public/<bucket>/<path>", or "" when the URL does not point into bucket.
func ExtractBucketPath(publicURL, bucket string) string {
	marker := "/public/" + bucket + "/"
	i := strings.Index(publicURL, marker)
	if i < 0 {
		return ""
	}
	path := publicURL[i+len(marker):]
	if q := strings.IndexAny(path, "?#"); q >= 0 {
		path = path[:q]
	}
	return path
}

// MediaService uploads and removes event banners and profile avatars.
type MediaService interface {
	UploadBanner(ctx context.Context, eventID, callerID string, body io.Reader) (*Event, error)
	UploadAvatar(ctx context.Context, userID string, body io.Reader) (*Account, error)
	DeleteAvatar(ctx context.Context, userID string) (*Account, error)
}
