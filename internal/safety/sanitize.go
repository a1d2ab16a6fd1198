package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

// truncationMarker ends text cut at MaxMessageLength.
const truncationMarker = "..."

var controlTokens = []*regexp.Regexp{
	regexp.MustCompile(`<\|[^>]*\|>`),
	regexp.MustCompile(`\[INST\]|\[/INST\]`),
	regexp.MustCompile(`<<SYS>>|<</SYS>>`),
	regexp.MustCompile(`### ?(System|Human|Assistant|Instruction):?`),
}

// Sanitize scrubs text for inclusion in a model context: non-printable
// characters other than newline and tab are dropped, model-control tokens
// are removed until none remain, and the result is trimmed and capped at
// MaxMessageLength characters including the truncation marker.
//
// Sanitize(Sanitize(s)) == Sanitize(s) for every s.
func Sanitize(text string) string {
	out := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			return r
		}
		return -1
	}, text)

	// Removing one token can splice a new one together ("[IN[INST]ST]").
	for {
		next := out
		for _, re := range controlTokens {
			next = re.ReplaceAllString(next, "")
		}
		if next == out {
			break
		}
		out = next
	}

	out = strings.TrimSpace(out)
	if runes := []rune(out); len(runes) > MaxMessageLength {
		out = string(runes[:MaxMessageLength-len(truncationMarker)]) + truncationMarker
	}
	return out
}

// Fingerprint identifies a client by IP and user agent without storing
// either: the first 16 hex characters of sha256("ip:ua").
func Fingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + ":" + userAgent))
	return hex.EncodeToString(sum[:])[:16]
}

// DisplayName returns a visitor name fit for model context, or fallback
// when the name is empty or fails classification.
func DisplayName(name, fallback string) string {
	clean := Sanitize(name)
	if clean == "" || !Classify(clean).Safe {
		return fallback
	}
	return clean
}
