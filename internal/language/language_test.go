package language

import (
	"reflect"
	"testing"
)

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "eng"},
		{"EN", "eng"},
		{"es", "spa"},
		{"fr", "fra"},
		{"fre", "fra"},
		{"de", "deu"},
		{"ger", "deu"},
		{"zh", "zho"},
		{"eng", "eng"},
		{"french", "fra"},
		{"hu", "hun"},
		{"x1", "x1"}, // unparseable passes through
		{"", "und"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ToISO3(tt.input)
			if result != tt.expected {
				t.Errorf("ToISO3(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestAliases(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"fr", []string{"fr", "fra", "fre"}},
		{"fre", []string{"fre", "fr", "fra"}},
		{"FRENCH", []string{"french", "fr", "fra", "fre"}},
		{"eng", []string{"eng", "en"}},
		{"hun", []string{"hun", "hu"}},
		{"x1", []string{"x1"}},
		{" ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Aliases(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("Aliases(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestExpandList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		aliases  bool
		expected []string
	}{
		{"nil", nil, false, nil},
		{"blank only", []string{" ", ""}, false, nil},
		{"dedup and lower", []string{"FRA", "fra", " spa "}, false, []string{"fra", "spa"}},
		{"aliases", []string{"fre", "de"}, true, []string{"fre", "fr", "fra", "de", "deu", "ger"}},
		{"aliases dedup across entries", []string{"fr", "fra"}, true, []string{"fr", "fra", "fre"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandList(tt.input, tt.aliases)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Fatalf("ExpandList(%v, %v) = %v, want %v", tt.input, tt.aliases, result, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"fre", "French"},
		{"fra", "French"},
		{"ger", "German"},
		{"chi", "Chinese"},
		{"dut", "Dutch"},
		{"english", "English"},
		{"hun", "Hungarian"},
		{"", "Unknown"},
		{"x1", "X1"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := DisplayName(tt.input)
			if result != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
