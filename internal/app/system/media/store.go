package media

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the binary object storage behind the adapter.
// Implementations: localstore (filesystem with signed links) and s3store.
type ObjectStore interface {
	// Put writes r to path, replacing any existing object.
	Put(ctx context.Context, path string, r io.Reader, opts *PutOptions) error
	// PresignedURL returns a time-limited link to the object at path.
	PresignedURL(ctx context.Context, path string, opts *PresignOptions) (string, error)
	// Delete removes the object at path. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
}

// PutOptions describe the object being written.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// PresignOptions control a presigned link.
type PresignOptions struct {
	Expires time.Duration
}
