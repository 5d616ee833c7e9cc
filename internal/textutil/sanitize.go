package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxNameBytes bounds sanitized names so that a suffix and extension still fit
// within the 255-byte filename limit of common filesystems.
const MaxNameBytes = 200

// reservedChars are rejected by at least one common filesystem.
const reservedChars = `<>:"/\|?*`

// SanitizeTitle converts arbitrary text into a filesystem-safe name.
//
// The text is decomposed (NFD), combining marks are dropped, reserved and
// control characters are removed, whitespace runs become a single underscore,
// and surrounding underscores and dots are trimmed. The result may be empty;
// use SafeName when a non-empty name is required.
func SanitizeTitle(text string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		stripped = text
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case r == utf8.RuneError, unicode.IsControl(r), strings.ContainsRune(reservedChars, r):
			continue
		}
		if pendingSpace {
			b.WriteByte('_')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "_.")
	return truncateBytes(out, MaxNameBytes)
}

// SafeName returns SanitizeTitle(text), or fallback when that is empty.
func SafeName(text, fallback string) string {
	if name := SanitizeTitle(text); name != "" {
		return name
	}
	return fallback
}

// EscapeTagValue prepares a value for a command-line metadata argument.
// Double quotes and backslashes are removed, newlines and other control
// characters become spaces, and space runs are collapsed.
func EscapeTagValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	lastSpace := true
	for _, r := range value {
		switch {
		case r == '"' || r == '\\' || r == utf8.RuneError:
			continue
		case unicode.IsControl(r) || unicode.IsSpace(r):
			if lastSpace {
				continue
			}
			b.WriteByte(' ')
			lastSpace = true
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], "_.")
}
