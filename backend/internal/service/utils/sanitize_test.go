package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Alice", "Alice"},
		{"markup stripped", "<b>Alice</b><script>alert(1)</script>", "Alice"},
		{"ampersand kept readable", "Tom & Jerry", "Tom & Jerry"},
		{"whitespace collapsed", "  Alice \t\n  Smith ", "Alice Smith"},
		{"control characters", "Ali\u0085ce", "Ali ce"},
		{"empty after stripping", "<img src=x>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeDisplayName(tt.input))
		})
	}
}

func TestSanitizeDisplayName_Length(t *testing.T) {
	got := SanitizeDisplayName(strings.Repeat("ж", MaxDisplayNameLength+10))
	assert.Equal(t, MaxDisplayNameLength, utf8.RuneCountInString(got))
}
