// Package media stores captured attendance photos and hands out fresh,
// time-limited links to them.
//
// A photo arrives as a data URI or bare base64 string. Store validates it,
// normalizes it to a square JPEG plus a thumbnail, and writes both objects
// under "<folder>/<uuid>". Only the returned PublicRef is persisted; URLs are
// minted again on every read by ResolveURL / ResolveThumbnail.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/timeouts"
	"github.com/dalemusser/meraki/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultMaxBytes  int64 = 5 << 20
	DefaultMaxPixels int64 = 40_000_000
	DefaultURLTTL          = time.Hour
)

const (
	mainSuffix  = ".jpg"
	thumbSuffix = "_thumb.jpg"
	contentJPEG = "image/jpeg"
)

// Options configure an Adapter.
type Options struct {
	MaxBytes  int64         // decoded payload limit
	MaxPixels int64         // width*height limit read from the image header
	URLTTL    time.Duration // lifetime of resolved links
}

// Adapter is the media capture adapter used by the attendance ledger.
type Adapter struct {
	store     ObjectStore
	maxBytes  int64
	maxPixels int64
	ttl       time.Duration
	log       *zap.Logger
}

// New returns an Adapter writing to store.
func New(store ObjectStore, opts Options, logger *zap.Logger) *Adapter {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = DefaultURLTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{store: store, maxBytes: opts.MaxBytes, maxPixels: opts.MaxPixels, ttl: opts.URLTTL, log: logger}
}

// Store validates and writes a captured photo, returning its reference.
//
// Payload problems (bad encoding, too large, not an image) fail with
// ValidationFailed before anything is written. Storage errors fail with
// MediaUploadFailed and leave nothing behind.
func (a *Adapter) Store(ctx context.Context, payload, folder string) (models.MediaRef, error) {
	raw, err := decodePayload(payload, a.maxBytes)
	if err != nil {
		return models.MediaRef{}, err
	}
	full, thumb, err := normalizeImage(raw, a.maxPixels)
	if err != nil {
		return models.MediaRef{}, err
	}

	ref := path.Join(cleanFolder(folder), uuid.New().String())

	ctx, cancel := context.WithTimeout(ctx, timeouts.Upload())
	defer cancel()

	opts := &PutOptions{ContentType: contentJPEG, CacheControl: "private, max-age=31536000, immutable"}
	if err := a.store.Put(ctx, ref+mainSuffix, bytes.NewReader(full), opts); err != nil {
		return models.MediaRef{}, apperr.Wrap(apperr.MediaUploadFailed, apperr.ErrMediaUploadFailed.Message, err)
	}
	if err := a.store.Put(ctx, ref+thumbSuffix, bytes.NewReader(thumb), opts); err != nil {
		if derr := a.store.Delete(context.WithoutCancel(ctx), ref+mainSuffix); derr != nil {
			a.log.Warn("failed to remove image after thumbnail upload error",
				zap.String("ref", ref), zap.Error(derr))
		}
		return models.MediaRef{}, apperr.Wrap(apperr.MediaUploadFailed, apperr.ErrMediaUploadFailed.Message, err)
	}

	a.log.Debug("stored media", zap.String("ref", ref), zap.Int("bytes", len(full)))
	return models.MediaRef{PublicRef: ref}, nil
}

// Delete removes both objects written for publicRef. A missing object is not
// an error, so Delete may be called on a partially cleaned reference.
func (a *Adapter) Delete(ctx context.Context, publicRef string) error {
	if publicRef == "" {
		return errors.New("media: empty reference")
	}
	return errors.Join(
		a.store.Delete(ctx, publicRef+mainSuffix),
		a.store.Delete(ctx, publicRef+thumbSuffix),
	)
}

// ResolveURL returns a fresh time-limited link to the full-size image.
func (a *Adapter) ResolveURL(ctx context.Context, publicRef string) (string, error) {
	return a.presign(ctx, publicRef, mainSuffix)
}

// ResolveThumbnail returns a fresh time-limited link to the thumbnail.
func (a *Adapter) ResolveThumbnail(ctx context.Context, publicRef string) (string, error) {
	return a.presign(ctx, publicRef, thumbSuffix)
}

// Resolve fills URL and ThumbnailURL on ref in place. A nil ref is a no-op.
func (a *Adapter) Resolve(ctx context.Context, ref *models.MediaRef) error {
	if ref == nil {
		return nil
	}
	u, err := a.ResolveURL(ctx, ref.PublicRef)
	if err != nil {
		return err
	}
	th, err := a.ResolveThumbnail(ctx, ref.PublicRef)
	if err != nil {
		return err
	}
	ref.URL, ref.ThumbnailURL = u, th
	return nil
}

func (a *Adapter) presign(ctx context.Context, publicRef, suffix string) (string, error) {
	if publicRef == "" {
		return "", errors.New("media: empty reference")
	}
	u, err := a.store.PresignedURL(ctx, publicRef+suffix, &PresignOptions{Expires: a.ttl})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", publicRef, err)
	}
	return u, nil
}

func cleanFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+strings.TrimSpace(folder)), "/")
	if folder == "" || folder == "." {
		return "attendance"
	}
	return folder
}
