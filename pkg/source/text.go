package source

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases text, drops URLs and collapses whitespace.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CombineTitleBody normalises both parts and joins them as "title. body".
func CombineTitleBody(title, body string) string {
	title = NormalizeText(title)
	body = NormalizeText(body)

	switch {
	case title != "" && body != "":
		return title + ". " + body
	case title != "":
		return title
	}
	return body
}

// ContentHash returns the hex MD5 of the normalised text.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// Dedupe drops posts whose combined text hashes the same as an earlier post.
func Dedupe(posts []RawPost) []RawPost {
	seen := make(map[string]bool, len(posts))
	out := posts[:0:0]
	for _, p := range posts {
		h := ContentHash(p.Text)
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, p)
	}
	return out
}

// Truncate cuts s to at most maxLen runes, preferring a word boundary near the end.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	cut := string(runes[:max(maxLen, 0)])
	if i := strings.LastIndex(cut, " "); i > len(cut)*4/5 {
		cut = cut[:i]
	}
	return cut + "..."
}
