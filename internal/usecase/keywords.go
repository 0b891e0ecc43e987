package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/couponlens/backend/internal/domain"
)

// keywordSet matches a fixed vocabulary against text.
// Word terms match at word boundaries and tolerate simple inflections
// (code/codes, subscribe/subscribed); symbol terms such as "%" match anywhere.
type keywordSet struct {
	terms    []string
	patterns []*regexp.Regexp
}

func newKeywordSet(terms []string) *keywordSet {
	k := &keywordSet{}
	seen := make(map[string]bool, len(terms))

	for _, term := range terms {
		lower := strings.ToLower(strings.TrimSpace(term))
		if lower == "" || seen[lower] {
			continue
		}
		seen[lower] = true

		pattern := regexp.QuoteMeta(lower)
		if isWordByte(lower[0]) {
			pattern = `\b` + pattern
		}
		if isWordByte(lower[len(lower)-1]) {
			pattern += `(?:s|es|d|ed|ing)?\b`
		}

		k.terms = append(k.terms, lower)
		k.patterns = append(k.patterns, regexp.MustCompile(`(?i)`+pattern))
	}

	return k
}

// CountDistinct returns how many distinct terms occur in text
func (k *keywordSet) CountDistinct(text string) int {
	return len(k.Matches(text))
}

// Matches returns the terms that occur in text, in vocabulary order
func (k *keywordSet) Matches(text string) []string {
	var found []string
	for i, re := range k.patterns {
		if re.MatchString(text) {
			found = append(found, k.terms[i])
		}
	}
	return found
}

// brandEntry is one dictionary brand with its precomputed lowercase form
type brandEntry struct {
	name     string
	industry string
	lower    string
	exact    bool
}

// index finds the entry in text[from:], case-insensitively unless exact.
// lower is asciiLower(text), which has the same byte offsets.
func (e brandEntry) index(text, lower string, from int) int {
	if e.exact {
		return strings.Index(text[from:], e.name)
	}
	return strings.Index(lower[from:], e.lower)
}

// BrandMention is an occurrence of a dictionary brand in a text
type BrandMention struct {
	Brand    string
	Industry string
	Start    int
	End      int
}

// BrandDictionary is the immutable brand lookup shared by the gate, validator and resolver
type BrandDictionary struct {
	entries []brandEntry
	byLower map[string]brandEntry
}

// NewBrandDictionary indexes brand groups. A name listed under several
// industries keeps the first one.
func NewBrandDictionary(groups []domain.BrandGroup) *BrandDictionary {
	d := &BrandDictionary{byLower: make(map[string]brandEntry)}

	add := func(name, industry string, exact bool) {
		name = strings.TrimSpace(name)
		lower := asciiLower(name)
		if lower == "" {
			return
		}
		if _, exists := d.byLower[lower]; exists {
			return
		}
		entry := brandEntry{name: name, industry: industry, lower: lower, exact: exact}
		d.byLower[lower] = entry
		d.entries = append(d.entries, entry)
	}

	for _, group := range groups {
		for _, name := range group.Names {
			add(name, group.Industry, false)
		}
		for _, name := range group.ExactCase {
			add(name, group.Industry, true)
		}
	}

	// Longer names first so overlapping mentions list the most specific brand first
	sort.SliceStable(d.entries, func(i, j int) bool {
		return len(d.entries[i].lower) > len(d.entries[j].lower)
	})

	return d
}

// Len returns the number of distinct brands
func (d *BrandDictionary) Len() int {
	return len(d.entries)
}

// Lookup returns the dictionary spelling and industry of name (case-insensitive)
func (d *BrandDictionary) Lookup(name string) (brand, industry string, ok bool) {
	entry, ok := d.byLower[asciiLower(strings.TrimSpace(name))]
	if !ok {
		return "", "", false
	}
	return entry.name, entry.industry, true
}

// FindAll returns every word-bounded brand mention in text ordered by position
func (d *BrandDictionary) FindAll(text string) []BrandMention {
	lower := asciiLower(text)
	var mentions []BrandMention

	for _, entry := range d.entries {
		from := 0
		for {
			idx := entry.index(text, lower, from)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(entry.lower)
			if isBoundary(lower, start, end) {
				mentions = append(mentions, BrandMention{
					Brand:    entry.name,
					Industry: entry.industry,
					Start:    start,
					End:      end,
				})
			}
			from = start + 1
		}
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].Start < mentions[j].Start
	})
	return mentions
}

// ContainsAny reports whether any dictionary brand is mentioned in text
func (d *BrandDictionary) ContainsAny(text string) bool {
	lower := asciiLower(text)
	for _, entry := range d.entries {
		from := 0
		for {
			idx := entry.index(text, lower, from)
			if idx < 0 {
				break
			}
			start := from + idx
			if isBoundary(lower, start, start+len(entry.lower)) {
				return true
			}
			from = start + 1
		}
	}
	return false
}

// isBoundary checks that text[start:end] is not glued to surrounding word characters
func isBoundary(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) && isWordByte(text[start]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) && isWordByte(text[end-1]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// asciiLower lower-cases ASCII letters only so byte offsets stay aligned with the input
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
