// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging prepares uploaded event images for blob storage: decode,
// EXIF auto-rotation, re-encode, and a thumbnail variant. Everything is pure
// Go; output goes to the remote storage bucket, never to local disk.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/rmcosta/fedsite-go/internal/model"
)

// Encoding qualities for the re-encoded original and the thumbnail.
const (
	originalQuality  = 95
	thumbnailQuality = 85
)

// Thumbnail bounding box.
const (
	ThumbnailWidth  = 480
	ThumbnailHeight = 320
)

// Processed is the result of preparing an image for upload. Thumbnail is nil
// when the source already fits inside the thumbnail bounds.
type Processed struct {
	Data      []byte
	Thumbnail []byte
	MimeType  string
	Width     int
	Height    int
}

// Process decodes image data, applies the EXIF orientation, and re-encodes
// the image together with a thumbnail. The re-encode strips EXIF metadata;
// WebP input is converted to JPEG since pure Go cannot encode WebP.
func Process(data []byte) (*Processed, error) {
	format := detectFormat(data)
	if format == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	orientation := readExifOrientation(bytes.NewReader(data))
	img = applyOrientation(img, orientation)

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	encoded, err := encodeImage(img, format, originalQuality)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	var thumbnail []byte
	if width > ThumbnailWidth || height > ThumbnailHeight {
		thumb := imaging.Fit(img, ThumbnailWidth, ThumbnailHeight, imaging.Lanczos)
		thumbnail, err = encodeImage(thumb, format, thumbnailQuality)
		if err != nil {
			return nil, fmt.Errorf("encoding thumbnail: %w", err)
		}
	}

	return &Processed{
		Data:      encoded,
		Thumbnail: thumbnail,
		MimeType:  formatToMimeType(format),
		Width:     width,
		Height:    height,
	}, nil
}

// DetectMimeType detects the MIME type of image data.
func DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return contentType
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies EXIF orientation transformation to an image.
// Orientation values:
// 1: Normal
// 2: Flip horizontal
// 3: Rotate 180°
// 4: Flip vertical
// 5: Rotate 90° CW + flip horizontal
// 6: Rotate 90° CW
// 7: Rotate 90° CCW + flip horizontal
// 8: Rotate 90° CCW
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage encodes an image to bytes with the specified format and quality.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		// WebP and anything else re-encodes as JPEG
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// formatToMimeType converts format string to MIME type.
func formatToMimeType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return model.MimeTypeJPEG
	case "png":
		return model.MimeTypePNG
	case "gif":
		return model.MimeTypeGIF
	case "webp":
		// WebP input is re-encoded as JPEG
		return model.MimeTypeJPEG
	default:
		return "application/octet-stream"
	}
}
