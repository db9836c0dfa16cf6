// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render converts the markdown descriptions on documents and events
// into sanitized HTML for the public API responses.
package render

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// htmlSanitizer strips dangerous elements from rendered markdown. UGCPolicy
// allows the safe subset suitable for user-generated content.
var htmlSanitizer = bluemonday.UGCPolicy()

// Markdown converts markdown to sanitized HTML.
func Markdown(source string) (string, error) {
	if source == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return htmlSanitizer.Sanitize(buf.String()), nil
}

// MarkdownOrEmpty converts markdown to sanitized HTML, returning an empty
// string when rendering fails. Used where a description must never break a
// read response.
func MarkdownOrEmpty(source string) string {
	html, err := Markdown(source)
	if err != nil {
		return ""
	}
	return html
}
