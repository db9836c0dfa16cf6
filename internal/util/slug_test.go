// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple name",
			input:    "Atas e Estatutos",
			expected: "atas-e-estatutos",
		},
		{
			name:     "with special characters",
			input:    "Editais: 2026!",
			expected: "editais-2026",
		},
		{
			name:     "portuguese accents",
			input:    "Convocatórias Técnicas",
			expected: "convocatorias-tecnicas",
		},
		{
			name:     "with multiple spaces",
			input:    "Prestação   de Contas",
			expected: "prestacao-de-contas",
		},
		{
			name:     "with hyphens",
			input:    "Financeiro - Relatórios",
			expected: "financeiro-relatorios",
		},
		{
			name:     "leading and trailing spaces",
			input:    "  Arquivado  ",
			expected: "arquivado",
		},
		{
			name:     "all special characters",
			input:    "!@#$%^&*()",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "mixed case",
			input:    "EsTaTuTo",
			expected: "estatuto",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slugify(tt.input)
			if result != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug  string
		valid bool
	}{
		{"atas", true},
		{"atas-e-estatutos", true},
		{"editais-2026", true},
		{"", false},
		{"Atas", false},
		{"-atas", false},
		{"atas-", false},
		{"atas--estatutos", false},
		{"atas estatutos", false},
		{"convocatórias", false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := IsValidSlug(tt.slug); got != tt.valid {
				t.Errorf("IsValidSlug(%q) = %v, want %v", tt.slug, got, tt.valid)
			}
		})
	}
}
