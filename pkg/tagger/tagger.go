// Package tagger detects topical keywords in post text.
package tagger

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// HighValueCategories earn a bonus in RelevanceScore.
var HighValueCategories = []string{"ai_ml", "frameworks", "languages"}

// Tagger matches text against category-grouped keyword lists.
type Tagger struct {
	categories []category
}

type category struct {
	name     string
	keywords []keyword
}

type keyword struct {
	text string
	re   *regexp.Regexp
}

// New compiles one matcher per keyword. The mapping must contain at least one keyword.
func New(categories map[string][]string) (*Tagger, error) {
	if len(categories) == 0 {
		return nil, errors.New("tagger: keyword mapping is empty")
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &Tagger{}
	total := 0
	for _, name := range names {
		cat := category{name: name}
		seen := make(map[string]bool)
		for _, kw := range categories[name] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			re, err := regexp.Compile(regexp.QuoteMeta(kw))
			if err != nil {
				return nil, fmt.Errorf("tagger: compile %q: %w", kw, err)
			}
			cat.keywords = append(cat.keywords, keyword{text: kw, re: re})
		}
		total += len(cat.keywords)
		t.categories = append(t.categories, cat)
	}

	if total == 0 {
		return nil, errors.New("tagger: keyword mapping has no keywords")
	}
	return t, nil
}

// MustNew is New for static mappings; it panics on error.
func MustNew(categories map[string][]string) *Tagger {
	t, err := New(categories)
	if err != nil {
		panic(err)
	}
	return t
}

// ExtractTags returns the sorted, deduplicated keywords found in text.
func (t *Tagger) ExtractTags(text string) []string {
	if text == "" {
		return []string{}
	}
	lower := strings.ToLower(text)

	found := make(map[string]bool)
	for _, cat := range t.categories {
		for _, kw := range cat.keywords {
			if utf8.RuneCountInString(kw.text) > 1 && kw.matches(lower) {
				found[kw.text] = true
			}
		}
	}
	return sortedKeys(found)
}

// CategoryDistribution returns the matched keywords per category. Categories without matches are omitted.
func (t *Tagger) CategoryDistribution(text string) map[string][]string {
	dist := make(map[string][]string)
	if text == "" {
		return dist
	}
	lower := strings.ToLower(text)

	for _, cat := range t.categories {
		found := make(map[string]bool)
		for _, kw := range cat.keywords {
			if kw.matches(lower) {
				found[kw.text] = true
			}
		}
		if len(found) > 0 {
			dist[cat.name] = sortedKeys(found)
		}
	}
	return dist
}

// RelevanceScore rates how technical text is, in [0, 1]: one tenth per unique tag
// plus 0.1 per match (up to 3) in each high-value category.
func (t *Tagger) RelevanceScore(text string) float64 {
	tags := t.ExtractTags(text)
	if len(tags) == 0 {
		return 0
	}

	score := min(float64(len(tags))/10.0, 1.0)

	dist := t.CategoryDistribution(text)
	for _, name := range HighValueCategories {
		if n := len(dist[name]); n > 0 {
			score += 0.1 * float64(min(n, 3))
		}
	}
	return min(score, 1.0)
}

// matches reports a whole-word occurrence: the runes around the match must not be word characters.
func (k keyword) matches(lower string) bool {
	for _, loc := range k.re.FindAllStringIndex(lower, -1) {
		if boundaryBefore(lower, loc[0]) && boundaryAfter(lower, loc[1]) {
			return true
		}
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
