package media_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/media"
	"github.com/disintegration/imaging"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestAdapter_Store(t *testing.T) {
	store := media.NewMemoryStore()
	a := media.New(store, media.Options{}, nil)

	ref, err := a.Store(context.Background(), pngDataURI(t, 640, 480), "attendance/time-in")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !strings.HasPrefix(ref.PublicRef, "attendance/time-in/") {
		t.Errorf("PublicRef = %q", ref.PublicRef)
	}
	if ref.URL != "" || ref.ThumbnailURL != "" {
		t.Error("Store must not return resolved URLs")
	}
	if store.Len() != 2 {
		t.Fatalf("stored %d objects, want 2", store.Len())
	}

	for suffix, size := range map[string]int{".jpg": media.FullSize, "_thumb.jpg": media.ThumbSize} {
		data, ct, err := store.Get(ref.PublicRef + suffix)
		if err != nil {
			t.Fatalf("Get(%s): %v", suffix, err)
		}
		if ct != "image/jpeg" {
			t.Errorf("content type = %q", ct)
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode %s: %v", suffix, err)
		}
		if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
			t.Errorf("%s is %dx%d, want %dx%d", suffix, b.Dx(), b.Dy(), size, size)
		}
	}
}

func TestAdapter_Store_AcceptsBareBase64(t *testing.T) {
	a := media.New(media.NewMemoryStore(), media.Options{}, nil)
	bare := strings.TrimPrefix(pngDataURI(t, 20, 20), "data:image/png;base64,")

	if _, err := a.Store(context.Background(), bare, "x"); err != nil {
		t.Fatalf("Store: %v", err)
	}
}

func TestAdapter_Store_Validation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"not base64", "data:image/png;base64,@@@@"},
		{"not a data uri", "data:image/png,abc"},
		{"not an image", "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello world"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := media.NewMemoryStore()
			a := media.New(store, media.Options{}, nil)

			_, err := a.Store(context.Background(), tt.payload, "x")
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err = %v, want ValidationFailed", err)
			}
			if store.Len() != 0 {
				t.Error("nothing should be written for an invalid payload")
			}
		})
	}
}

func TestAdapter_Store_TooLarge(t *testing.T) {
	a := media.New(media.NewMemoryStore(), media.Options{MaxBytes: 64}, nil)

	_, err := a.Store(context.Background(), pngDataURI(t, 50, 50), "x")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ValidationFailed", err)
	}
}

func TestAdapter_Store_UploadFailure(t *testing.T) {
	store := media.NewMemoryStore()
	store.FailPut = func(path string) error {
		if strings.HasSuffix(path, "_thumb.jpg") {
			return errors.New("bucket unavailable")
		}
		return nil
	}
	a := media.New(store, media.Options{}, nil)

	_, err := a.Store(context.Background(), pngDataURI(t, 32, 32), "x")
	if !errors.Is(err, apperr.ErrMediaUploadFailed) {
		t.Fatalf("err = %v, want MediaUploadFailed", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected the main image to be removed, %d objects left", store.Len())
	}
}

func TestAdapter_Resolve_FreshEachCall(t *testing.T) {
	a := media.New(media.NewMemoryStore(), media.Options{}, nil)
	ctx := context.Background()

	ref, err := a.Store(ctx, pngDataURI(t, 16, 16), "x")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	first, err := a.ResolveURL(ctx, ref.PublicRef)
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	second, _ := a.ResolveURL(ctx, ref.PublicRef)
	if first == "" || first == second {
		t.Errorf("expected distinct fresh links, got %q and %q", first, second)
	}

	if err := a.Resolve(ctx, &ref); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref.URL == "" || !strings.Contains(ref.ThumbnailURL, "_thumb.jpg") {
		t.Errorf("resolved ref = %+v", ref)
	}

	if err := a.Resolve(ctx, nil); err != nil {
		t.Errorf("Resolve(nil) = %v", err)
	}
}

func TestAdapter_Store_RejectsOversizedDimensions(t *testing.T) {
	// A blank 12000x12000 PNG compresses to a few hundred KB but would decode
	// to well over a gigabyte of pixels.
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 12000, 12000))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	store := media.NewMemoryStore()
	a := media.New(store, media.Options{}, nil)

	_, err := a.Store(context.Background(), payload, "x")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ValidationFailed", err)
	}
	if store.Len() != 0 {
		t.Error("nothing should be written for an oversized image")
	}
}

func TestAdapter_Store_MaxPixelsOption(t *testing.T) {
	a := media.New(media.NewMemoryStore(), media.Options{MaxPixels: 100}, nil)

	if _, err := a.Store(context.Background(), pngDataURI(t, 10, 10), "x"); err != nil {
		t.Fatalf("10x10 at the limit: %v", err)
	}
	if _, err := a.Store(context.Background(), pngDataURI(t, 11, 10), "x"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("11x10 over the limit: err = %v, want ValidationFailed", err)
	}
}

func TestAdapter_Delete(t *testing.T) {
	store := media.NewMemoryStore()
	a := media.New(store, media.Options{}, nil)
	ctx := context.Background()

	ref, err := a.Store(ctx, pngDataURI(t, 16, 16), "x")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := a.Delete(ctx, ref.PublicRef); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("%d objects left after Delete", store.Len())
	}
	if err := a.Delete(ctx, ref.PublicRef); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if err := a.Delete(ctx, ""); err == nil {
		t.Error("expected an error for an empty reference")
	}
}
