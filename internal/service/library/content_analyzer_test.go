package library

import (
	"strings"
	"testing"
)

func TestCountWords(t *testing.T) {
	analyzer := NewContentAnalyzer()

	tests := []struct {
		name     string
		markdown string
		want     int
	}{
		{
			name:     "plain prose",
			markdown: "The quick brown fox",
			want:     4,
		},
		{
			name:     "empty content",
			markdown: "",
			want:     0,
		},
		{
			name:     "heading markers ignored",
			markdown: "# Chapter One\n\nSome text here",
			want:     5,
		},
		{
			name:     "bold and italic markers ignored",
			markdown: "**bold** and *italic* words",
			want:     4,
		},
		{
			name:     "code blocks excluded",
			markdown: "before\n```\ncode that should not count\n```\nafter",
			want:     2,
		},
		{
			name:     "list markers ignored",
			markdown: "- first item\n- second item",
			want:     4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := analyzer.CountWords(tt.markdown); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.markdown, got, tt.want)
			}
		})
	}
}

func TestCleanMarkdown(t *testing.T) {
	analyzer := NewContentAnalyzer()

	t.Run("strips syntax markers", func(t *testing.T) {
		cleaned := analyzer.CleanMarkdown("# Title\n\n**bold** `code` ~~strike~~")
		for _, marker := range []string{"#", "**", "`", "~~"} {
			if strings.Contains(cleaned, marker) {
				t.Errorf("cleaned text still contains %q: %q", marker, cleaned)
			}
		}
	})

	t.Run("keeps prose", func(t *testing.T) {
		cleaned := analyzer.CleanMarkdown("Some *emphasized* prose")
		if !strings.Contains(cleaned, "emphasized") {
			t.Errorf("prose lost during cleaning: %q", cleaned)
		}
	})

	t.Run("removes fenced code blocks entirely", func(t *testing.T) {
		cleaned := analyzer.CleanMarkdown("keep\n```go\nfunc secret() {}\n```\nalso keep")
		if strings.Contains(cleaned, "secret") {
			t.Errorf("code block content survived cleaning: %q", cleaned)
		}
		if !strings.Contains(cleaned, "keep") {
			t.Errorf("surrounding prose lost: %q", cleaned)
		}
	})
}
