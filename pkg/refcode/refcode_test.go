package refcode

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPrefix string
	}{
		{"simple name", "John", "JOHN"},
		{"mixed case with space", "Jane Doe", "JANEDOE"},
		{"digits kept", "agent 47", "AGENT47"},
		{"punctuation stripped", "o'brien!", "OBRIEN"},
		{"long name truncated", "Bartholomew Cubbins", "BARTHOLOMEWC"},
		{"empty falls back", "", "REF"},
		{"symbols only fall back", "---", "REF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Generate(tt.input)
			if err != nil {
				t.Fatalf("Generate(%q) error: %v", tt.input, err)
			}
			prefix, suffix, ok := strings.Cut(code, "-")
			if !ok {
				t.Fatalf("Generate(%q) = %q, want PREFIX-SUFFIX shape", tt.input, code)
			}
			if prefix != tt.wantPrefix {
				t.Errorf("Generate(%q) prefix = %q, want %q", tt.input, prefix, tt.wantPrefix)
			}
			if len(suffix) != suffixLen {
				t.Errorf("Generate(%q) suffix = %q, want %d chars", tt.input, suffix, suffixLen)
			}
			for _, c := range suffix {
				if !strings.ContainsRune(alphabet, c) {
					t.Errorf("Generate(%q) suffix char %q outside alphabet", tt.input, c)
				}
			}
		})
	}
}

func TestGenerateVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := Generate("Jane")
		if err != nil {
			t.Fatal(err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("50 generations produced %d distinct codes", len(seen))
	}
}

func TestAlphabetOmitsAmbiguousCharacters(t *testing.T) {
	for _, c := range "0O1I" {
		if strings.ContainsRune(alphabet, c) {
			t.Errorf("alphabet contains ambiguous character %q", c)
		}
	}
}
