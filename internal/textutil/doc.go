// Package textutil turns untrusted titles and tag values into strings that are
// safe to use as file names and as ffmpeg metadata arguments.
//
// SanitizeTitle strips diacritics via Unicode decomposition, removes characters
// reserved on common filesystems, and collapses whitespace to underscores.
// EscapeTagValue removes quoting characters so a tag value can never break out
// of its argument.
package textutil
