package db

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// trackingParams are query parameters that never affect which video a URL
// points at and are stripped before identity calculation.
var trackingParams = []string{
	"feature", "si", "pp", "ab_channel", "list", "index", "t",
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
}

// NormalizeURL canonicalizes a video URL so the same video always maps to
// the same row: lowercased scheme and host, youtu.be expanded to the watch
// form, tracking parameters dropped.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return strings.TrimSpace(raw)
	}

	parsed.Scheme = "https"
	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	// youtu.be/<id> is the same video as youtube.com/watch?v=<id>
	if host == "youtu.be" {
		if id := strings.Trim(parsed.Path, "/"); id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
	}

	query := parsed.Query()
	for _, param := range trackingParams {
		query.Del(param)
	}

	if host == "youtube.com" {
		if id := query.Get("v"); id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
		parsed.Host = "www.youtube.com"
	} else {
		parsed.Host = host
	}

	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""
	return parsed.String()
}

// NormalizeTitle lowercases, transliterates accents, and collapses
// whitespace so fuzzy title comparisons behave predictably.
func NormalizeTitle(s string) string {
	if s == "" {
		return ""
	}
	s = transliterate(s)
	s = collapseSpaces(s)
	return strings.ToLower(s)
}

// transliterate converts accented characters to their ASCII equivalents.
func transliterate(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)), // Mn: Mark, Nonspacing
		norm.NFC,
	)

	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// collapseSpaces replaces runs of whitespace with a single space and trims.
func collapseSpaces(s string) string {
	space := regexp.MustCompile(`\s+`)
	return strings.TrimSpace(space.ReplaceAllString(s, " "))
}

// CalculateIdentityHash derives the dedupe key for a video from its
// normalized URL. Returns a 16-character hex string (first 16 chars of
// SHA256), matching the identity_hash column width.
func CalculateIdentityHash(rawURL string) string {
	hash := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return hex.EncodeToString(hash[:])[:16]
}
