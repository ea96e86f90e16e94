package library

import (
	"strings"
	"testing"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantSegments   []string
		wantAbsolute   bool
		wantFinalName  string
		wantParentPath []string
		wantErr        bool
	}{
		{
			name:           "simple name",
			input:          "chapter one",
			wantSegments:   []string{"chapter one"},
			wantAbsolute:   false,
			wantFinalName:  "chapter one",
			wantParentPath: nil,
		},
		{
			name:           "relative path",
			input:          "Characters/Villains/Shadow",
			wantSegments:   []string{"Characters", "Villains", "Shadow"},
			wantAbsolute:   false,
			wantFinalName:  "Shadow",
			wantParentPath: []string{"Characters", "Villains"},
		},
		{
			name:           "absolute path",
			input:          "/Characters/Aria",
			wantSegments:   []string{"Characters", "Aria"},
			wantAbsolute:   true,
			wantFinalName:  "Aria",
			wantParentPath: []string{"Characters"},
		},
		{
			name:           "segments are trimmed",
			input:          " Notes /Draft",
			wantSegments:   []string{"Notes", "Draft"},
			wantAbsolute:   false,
			wantFinalName:  "Draft",
			wantParentPath: []string{"Notes"},
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
		{
			name:    "trailing slash",
			input:   "Characters/",
			wantErr: true,
		},
		{
			name:    "consecutive slashes",
			input:   "a//b",
			wantErr: true,
		},
		{
			name:    "whitespace only segment",
			input:   "a/ /b",
			wantErr: true,
		},
		{
			name:    "invalid character",
			input:   "notes/dra*ft",
			wantErr: true,
		},
		{
			name:    "segment too long",
			input:   "a/" + strings.Repeat("x", 300),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParsePath(tt.input, 255)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePath(%q) expected error, got %+v", tt.input, result)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q) unexpected error: %v", tt.input, err)
			}

			if result.IsAbsolute != tt.wantAbsolute {
				t.Errorf("IsAbsolute = %v, want %v", result.IsAbsolute, tt.wantAbsolute)
			}
			if result.FinalName != tt.wantFinalName {
				t.Errorf("FinalName = %q, want %q", result.FinalName, tt.wantFinalName)
			}
			if len(result.Segments) != len(tt.wantSegments) {
				t.Fatalf("Segments = %v, want %v", result.Segments, tt.wantSegments)
			}
			for i, seg := range tt.wantSegments {
				if result.Segments[i] != seg {
					t.Errorf("Segments[%d] = %q, want %q", i, result.Segments[i], seg)
				}
			}
			if len(result.ParentPath) != len(tt.wantParentPath) {
				t.Fatalf("ParentPath = %v, want %v", result.ParentPath, tt.wantParentPath)
			}
			for i, seg := range tt.wantParentPath {
				if result.ParentPath[i] != seg {
					t.Errorf("ParentPath[%d] = %q, want %q", i, result.ParentPath[i], seg)
				}
			}
		})
	}
}

func TestIsPathNotation(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"plain name", false},
		{"a/b", true},
		{"/absolute", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsPathNotation(tt.input); got != tt.want {
			t.Errorf("IsPathNotation(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateSimpleName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		maxLen  int
		wantErr bool
	}{
		{name: "valid name", input: "Chapter One", maxLen: 255},
		{name: "empty", input: "", maxLen: 255, wantErr: true},
		{name: "whitespace only", input: "   ", maxLen: 255, wantErr: true},
		{name: "contains slash", input: "a/b", maxLen: 255, wantErr: true},
		{name: "too long", input: strings.Repeat("x", 10), maxLen: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSimpleName(tt.input, tt.maxLen)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSimpleName(%q, %d) error = %v, wantErr %v", tt.input, tt.maxLen, err, tt.wantErr)
			}
		})
	}
}
