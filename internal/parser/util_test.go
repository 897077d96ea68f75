package parser

import (
	"testing"
	"unicode/utf8"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"$12.34", "12.34", false},
		{"$1,234.56", "1234.56", false},
		{"-$25.99", "-25.99", false},
		{"$1,234,567.89", "1234567.89", false},
		{"$0.00", "0.00", false},
		{" $25.99 ", "25.99", false},
		{"$", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.StringFixed(2) != tt.expected {
				t.Errorf("got %s, want %s", got.StringFixed(2), tt.expected)
			}
		})
	}
}

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  JAN15JAN17 $12.34 SHOP  ", "JAN15JAN17 $12.34 SHOP"},
		{"JAN15\u00A0JAN17", "JAN15 JAN17"},
		{"JAN\u200B15", "JAN15"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeLine(tt.input); got != tt.expected {
				t.Errorf("normalizeLine(%q): got %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := collapseSpaces("  Purchase on \t at   SHOP "); got != "Purchase on at SHOP" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"short", "JAN15 SHOP", 20, "JAN15 SHOP"},
		{"exact", "ABCDE", 5, "ABCDE"},
		{"long", "ABCDEFGH", 5, "ABCDE..."},
		{"multibyte", "CAFÉ ÉCLAIR", 4, "CAFÉ..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.n)
			if got != tt.expected {
				t.Errorf("truncate(%q, %d): got %q, want %q", tt.input, tt.n, got, tt.expected)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}
