// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"
)

func TestMarkdownBasic(t *testing.T) {
	html, err := Markdown("# Estatuto\n\nTexto **importante**.")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "<strong>importante</strong>") {
		t.Errorf("unexpected output: %s", html)
	}
}

func TestMarkdownSanitizesScript(t *testing.T) {
	html, err := Markdown("Olá <script>alert('x')</script> mundo")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if strings.Contains(html, "<script") {
		t.Errorf("script tag survived sanitization: %s", html)
	}
	if !strings.Contains(html, "mundo") {
		t.Errorf("legitimate content stripped: %s", html)
	}
}

func TestMarkdownEmpty(t *testing.T) {
	html, err := Markdown("")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if html != "" {
		t.Errorf("Markdown(\"\") = %q, want empty", html)
	}
}
