package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
)

// Output geometry of stored photos.
const (
	FullSize  = 400
	ThumbSize = 150
	quality   = 85
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// decodePayload accepts "data:image/...;base64,XXXX" or bare base64 and
// returns the raw bytes.
func decodePayload(payload string, maxBytes int64) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, apperr.Validation("image is empty")
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, apperr.Validation("image must be a base64 data URI")
		}
		payload = payload[comma+1:]
	}

	// Reject before decoding when the encoded form is already too large.
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, apperr.Validation("image is too large")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, apperr.Validation("image is not valid base64")
		}
	}
	if int64(len(raw)) > maxBytes {
		return nil, apperr.Validation("image is too large")
	}

	mt := mimetype.Detect(raw)
	if !allowedTypes[mt.String()] {
		return nil, apperr.Validation("unsupported image type " + mt.String())
	}
	return raw, nil
}

// normalizeImage center-crops raw to a FullSize square JPEG and a ThumbSize
// square thumbnail. Images whose header declares more than maxPixels pixels
// are rejected before any pixel data is decoded.
func normalizeImage(raw []byte, maxPixels int64) (full, thumb []byte, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, apperr.Validation("image could not be decoded")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, nil, apperr.Validation("image dimensions are too large")
	}

	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, apperr.Validation("image could not be decoded")
	}

	if full, err = encodeJPEG(imaging.Fill(src, FullSize, FullSize, imaging.Center, imaging.Lanczos)); err != nil {
		return nil, nil, err
	}
	if thumb, err = encodeJPEG(imaging.Fill(src, ThumbSize, ThumbSize, imaging.Center, imaging.Lanczos)); err != nil {
		return nil, nil, err
	}
	return full, thumb, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to encode image", err)
	}
	return buf.Bytes(), nil
}
