package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxSegmentLen bounds one path segment; most filesystems cap names at 255
// bytes and long titles add nothing past this point.
const maxSegmentLen = 180

// unsafeReplacer replaces filesystem-unsafe characters with safe alternatives.
var unsafeReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeSegment converts an arbitrary title or channel name into a single
// safe path segment. Input is NFC-normalized so visually identical strings
// produce identical segments, control characters are stripped, unsafe
// characters are replaced, and the result is length-capped. Returns fallback
// when nothing survives.
func SanitizeSegment(name, fallback string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(unsafeReplacer.Replace(name))

	// Dots hide files or escape the segment on some tooling.
	name = strings.Trim(name, ". ")

	if len(name) > maxSegmentLen {
		name = strings.TrimSpace(name[:maxSegmentLen])
	}
	if name == "" {
		return fallback
	}
	return name
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores survive, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range norm.NFC.String(value) {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
