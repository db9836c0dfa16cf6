// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package facade

import (
	"errors"
	"strings"

	"github.com/rmcosta/fedsite-go/internal/model"
)

// MaxUploadSize is the upload ceiling. Larger files are rejected before any
// backend I/O happens.
const MaxUploadSize = 10 * 1024 * 1024

// ValidationError reports invalid input. Validation always runs before any
// backend I/O, so a failed validation leaves both backends untouched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateUpload checks a file against the size ceiling and MIME allowlist.
func ValidateUpload(fileName, mimeType string, size int64) error {
	if strings.TrimSpace(fileName) == "" {
		return &ValidationError{Field: "file_name", Message: "file name is required"}
	}
	if size <= 0 {
		return &ValidationError{Field: "file_size", Message: "file is empty"}
	}
	if size > MaxUploadSize {
		return &ValidationError{Field: "file_size", Message: "file exceeds the 10MB limit"}
	}
	if mimeType == "application/zip" || mimeType == "application/x-zip-compressed" {
		return &ValidationError{Field: "file_type", Message: "zip archives are not accepted"}
	}
	if !model.IsSupportedMimeType(mimeType) {
		return &ValidationError{Field: "file_type", Message: "unsupported file type " + mimeType}
	}
	return nil
}

// ValidateImageUpload checks an event image against the size ceiling and the
// image MIME allowlist.
func ValidateImageUpload(fileName, mimeType string, size int64) error {
	if strings.TrimSpace(fileName) == "" {
		return &ValidationError{Field: "image_name", Message: "image name is required"}
	}
	if size <= 0 {
		return &ValidationError{Field: "image_size", Message: "image is empty"}
	}
	if size > MaxUploadSize {
		return &ValidationError{Field: "image_size", Message: "image exceeds the 10MB limit"}
	}
	if !model.IsImageMimeType(mimeType) {
		return &ValidationError{Field: "image_type", Message: "unsupported image type " + mimeType}
	}
	return nil
}

func (in DocumentInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &ValidationError{Field: "category", Message: "category is required"}
	}
	if len(in.FileData) > 0 || in.FileSize > 0 {
		size := in.FileSize
		if size == 0 {
			size = int64(len(in.FileData))
		}
		if err := ValidateUpload(in.FileName, in.FileType, size); err != nil {
			return err
		}
	}
	return nil
}

func (in EventInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "description", Message: "description is required"}
	}
	if in.Budget != nil && *in.Budget < 0 {
		return &ValidationError{Field: "budget", Message: "budget cannot be negative"}
	}
	if in.ParticipantsExpected != nil && *in.ParticipantsExpected < 0 {
		return &ValidationError{Field: "participants_expected", Message: "cannot be negative"}
	}
	if len(in.ImageData) > 0 {
		if err := ValidateImageUpload(in.ImageName, in.ImageType, int64(len(in.ImageData))); err != nil {
			return err
		}
	}
	return nil
}

func (in CategoryInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}
