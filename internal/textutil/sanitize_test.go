package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"diacritics", "Café del Mar", "Cafe_del_Mar"},
		{"reserved characters", `AC/DC: "Back" <in> Black?*|\`, "ACDC_Back_in_Black"},
		{"whitespace runs", "  multiple   spaces\tand\nnewlines  ", "multiple_spaces_and_newlines"},
		{"mixed scripts", "Ñandú & Über", "Nandu_&_Uber"},
		{"leading dots", "..hidden file", "hidden_file"},
		{"hangul survives", "아리랑 노래", "아리랑_노래"},
		{"all illegal", `???***`, ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.input); got != tt.want {
				t.Fatalf("SanitizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeTitleProperties(t *testing.T) {
	inputs := []string{
		"Beyoncé – Déjà Vu (Live) [HD]",
		"a < b > c : d \" e / f \\ g | h ? i * j",
		"tabs\t\tand   spaces",
		"Ça va?  Très   bien!",
		strings.Repeat("é", 300),
	}
	for _, input := range inputs {
		got := SanitizeTitle(input)
		if strings.ContainsAny(got, reservedChars) {
			t.Fatalf("SanitizeTitle(%q) = %q still contains reserved characters", input, got)
		}
		if strings.Contains(got, "__") || strings.ContainsAny(got, " \t\n") {
			t.Fatalf("SanitizeTitle(%q) = %q has whitespace runs", input, got)
		}
		if again := SanitizeTitle(input); again != got {
			t.Fatalf("SanitizeTitle is not deterministic: %q vs %q", got, again)
		}
		if twice := SanitizeTitle(got); twice != got {
			t.Fatalf("SanitizeTitle is not idempotent: %q -> %q", got, twice)
		}
	}
}

func TestSanitizeTitleTruncatesOnRuneBoundary(t *testing.T) {
	got := SanitizeTitle(strings.Repeat("日", 100))
	if len(got) > MaxNameBytes {
		t.Fatalf("expected at most %d bytes, got %d", MaxNameBytes, len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if len(got) != 198 {
		t.Fatalf("expected 66 whole runes (198 bytes), got %d bytes", len(got))
	}
}

func TestSafeNameFallsBack(t *testing.T) {
	if got := SafeName(`<>:"`, "track-1a2b3c4d"); got != "track-1a2b3c4d" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := SafeName("Song", "track-1a2b3c4d"); got != "Song" {
		t.Fatalf("expected sanitized title, got %q", got)
	}
}

func TestEscapeTagValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`He said "hi"`, "He said hi"},
		{"line1\nline2", "line1 line2"},
		{`back\slash`, "backslash"},
		{"  padded  ", "padded"},
		{"tab\t\tsep", "tab sep"},
		{"Déjà vu", "Déjà vu"},
		{`""`, ""},
	}
	for _, tt := range tests {
		if got := EscapeTagValue(tt.input); got != tt.want {
			t.Fatalf("EscapeTagValue(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
