// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// Supported MIME types for document uploads.
const (
	MimeTypePDF  = "application/pdf"
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypeDOC  = "application/msword"
	MimeTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypeXLS  = "application/vnd.ms-excel"
	MimeTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Document represents a federation document stored in the documents bucket.
// Uploader is the denormalized AdminUser join; it is populated on every read
// so the caller never needs a second lookup.
type Document struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	FileName    string     `json:"file_name"`
	FilePath    string     `json:"file_path"`
	FileSize    int64      `json:"file_size"`
	FileType    string     `json:"file_type"`
	Tags        []string   `json:"tags"`
	UploadedBy  string     `json:"uploaded_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Uploader    *AdminUser `json:"admin_users,omitempty"`
}

// SupportedDocumentTypes returns the MIME types accepted for document uploads.
func SupportedDocumentTypes() []string {
	return []string{
		MimeTypePDF, MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP,
		MimeTypeDOC, MimeTypeDOCX, MimeTypeXLS, MimeTypeXLSX,
	}
}

// SupportedImageTypes returns the image MIME types accepted for event images.
func SupportedImageTypes() []string {
	return []string{MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP}
}

// IsSupportedMimeType checks if a MIME type is accepted for document uploads.
func IsSupportedMimeType(mimeType string) bool {
	for _, t := range SupportedDocumentTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}

// IsImageMimeType checks if a MIME type is a supported image type.
func IsImageMimeType(mimeType string) bool {
	for _, t := range SupportedImageTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}

// NormalizeTags trims and drops empty tag entries, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
