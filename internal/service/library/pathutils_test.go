package library

import "testing"

func TestBuildFullPath(t *testing.T) {
	tests := []struct {
		folderPath string
		docName    string
		want       string
	}{
		{"chapters", "intro", "chapters/intro"},
		{"book/part1", "intro", "book/part1/intro"},
		{"", "readme", "readme"},
	}

	for _, tt := range tests {
		if got := BuildFullPath(tt.folderPath, tt.docName); got != tt.want {
			t.Errorf("BuildFullPath(%q, %q) = %q, want %q", tt.folderPath, tt.docName, got, tt.want)
		}
	}
}

func TestBuildLookupKey(t *testing.T) {
	// Same name in different folders must produce different keys
	a := BuildLookupKey("chapters/intro", "intro")
	b := BuildLookupKey("appendix/intro", "intro")
	if a == b {
		t.Errorf("lookup keys for different folders collide: %q", a)
	}

	if got, want := BuildLookupKey("chapters/intro", "intro"), "chapters/intro|intro"; got != want {
		t.Errorf("BuildLookupKey = %q, want %q", got, want)
	}
}

func TestSanitizeDocName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal", "normal"},
		{"a/b", "a-b"},
		{"a/b/c", "a-b-c"},
	}

	for _, tt := range tests {
		if got := SanitizeDocName(tt.input); got != tt.want {
			t.Errorf("SanitizeDocName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
