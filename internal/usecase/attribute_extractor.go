package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/couponlens/backend/internal/domain"
	"github.com/kljensen/snowball"
)

// Percent bounds applied to every extracted value
const (
	minPercent = 1
	maxPercent = 99
)

// Percentage forms: "25% off", "save 30%", "flat 40%", "15 percent off"
var percentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b([0-9]{1,3})\s*%\s*(?:flat\s+)?(?:off|discount|savings?|cashback)\b`),
	regexp.MustCompile(`(?i)\b(?:save|get|enjoy|flat|upto|up\s+to|extra|additional)\s+(?:an?\s+)?(?:extra\s+|flat\s+)?([0-9]{1,3})\s*%`),
	regexp.MustCompile(`(?i)\b([0-9]{1,3})\s*percent\s+(?:off|discount)\b`),
}

// Amount forms: "₹200 off", "Rs. 500 off", "flat $15", "save £10"
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(₹|\$|€|£|\b(?:rs|inr)\.?)\s*([0-9]{1,6}(?:,[0-9]{3})*(?:\.[0-9]{1,2})?)\s*(?:/-\s*)?(?:off|discount|cashback)\b`),
	regexp.MustCompile(`(?i)\b(?:flat|save|get|extra)\s+(₹|\$|€|£|\b(?:rs|inr)\.?)\s*([0-9]{1,6}(?:,[0-9]{3})*(?:\.[0-9]{1,2})?)`),
}

// Expiry forms: an expiry phrase followed by a numeric or month-name date
var (
	expiryPhrase = `(?i:\b(?:valid\s+(?:till|until|upto|up\s+to|through|thru)|offer\s+valid(?:\s+(?:till|until))?|expires?(?:\s+on)?|expiring(?:\s+on)?|ends?(?:\s+on)?|until|till|last\s+date)\s*:?\s*)`
	monthNames   = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

	numericExpiryPattern   = regexp.MustCompile(expiryPhrase + `([0-9]{1,2})[/.-]([0-9]{1,2})[/.-]([0-9]{2}|[0-9]{4})\b`)
	dayMonthExpiryPattern  = regexp.MustCompile(expiryPhrase + `((?i:[0-9]{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?(?:\s+[0-9]{4})?))\b`)
	monthDayExpiryPattern  = regexp.MustCompile(expiryPhrase + `((?i:` + monthNames + `\.?\s+[0-9]{1,2}(?:st|nd|rd|th)?,?(?:\s+[0-9]{4})?))\b`)
	categoryTokenSeparator = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// currencyCodes maps currency markers to ISO codes
var currencyCodes = map[string]string{
	"₹":   "INR",
	"rs":  "INR",
	"rs.": "INR",
	"inr": "INR",
	"$":   "USD",
	"€":   "EUR",
	"£":   "GBP",
}

// ExtractorConfig holds configuration for the attribute extractors
type ExtractorConfig struct {
	TopCategories int
}

// categoryMatcher holds one category's keywords split into stems and phrases
type categoryMatcher struct {
	name    string
	stems   map[string]bool
	phrases []*regexp.Regexp
}

// AttributeExtractor derives percentage, amount, category and expiry values from text
type AttributeExtractor struct {
	categories    []categoryMatcher
	topCategories int
	stemmer       *stemCache
}

// NewAttributeExtractor builds the category matchers from the reference keyword table
func NewAttributeExtractor(ref *domain.ReferenceData, config ExtractorConfig) *AttributeExtractor {
	top := config.TopCategories
	if top <= 0 {
		top = 3
	}

	e := &AttributeExtractor{topCategories: top, stemmer: newStemCache("english")}

	for _, cat := range ref.Categories {
		m := categoryMatcher{name: cat.Name, stems: make(map[string]bool)}
		for _, kw := range cat.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.ContainsAny(kw, " -") {
				m.phrases = append(m.phrases, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
				continue
			}
			m.stems[e.stemmer.Stem(kw)] = true
		}
		e.categories = append(e.categories, m)
	}

	return e
}

// Extract runs every extractor over text
func (e *AttributeExtractor) Extract(text string) domain.Attributes {
	amount, currency := e.AmountOff(text)
	return domain.Attributes{
		Percentages: e.Percentages(text),
		AmountOff:   amount,
		Currency:    currency,
		Categories:  e.Categories(text),
		ExpiryDates: e.ExpiryDates(text),
	}
}

// Percentages returns distinct percent-off values clamped to [1,99], highest first
func (e *AttributeExtractor) Percentages(text string) []int {
	seen := make(map[int]bool)
	var values []int

	for _, re := range percentPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			n = clampPercent(n)
			if !seen[n] {
				seen[n] = true
				values = append(values, n)
			}
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(values)))
	return values
}

// AmountOff returns the first fixed amount discount and its currency code
func (e *AttributeExtractor) AmountOff(text string) (float64, string) {
	bestPos := -1
	var amount float64
	var currency string

	for _, re := range amountPatterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil || (bestPos >= 0 && loc[0] >= bestPos) {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(text[loc[4]:loc[5]], ",", ""), 64)
		if err != nil || value <= 0 {
			continue
		}
		marker := strings.ToLower(strings.TrimSpace(text[loc[2]:loc[3]]))
		bestPos = loc[0]
		amount = value
		currency = currencyCodes[marker]
	}

	return amount, currency
}

// Categories returns the top categories by keyword hit count, empty when none match
func (e *AttributeExtractor) Categories(text string) []string {
	tokens := categoryTokenSeparator.Split(strings.ToLower(text), -1)
	stems := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok != "" {
			stems = append(stems, e.stemmer.Stem(tok))
		}
	}

	type scored struct {
		name  string
		hits  int
		order int
	}
	var results []scored

	for i, cat := range e.categories {
		hits := 0
		for _, s := range stems {
			if cat.stems[s] {
				hits++
			}
		}
		for _, re := range cat.phrases {
			hits += len(re.FindAllStringIndex(text, -1))
		}
		if hits > 0 {
			results = append(results, scored{name: cat.name, hits: hits, order: i})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].hits != results[j].hits {
			return results[i].hits > results[j].hits
		}
		return results[i].order < results[j].order
	})

	var names []string
	for i := 0; i < len(results) && i < e.topCategories; i++ {
		names = append(names, results[i].name)
	}
	return names
}

// ExpiryDates returns plausible dates following an expiry phrase, in text order
func (e *AttributeExtractor) ExpiryDates(text string) []string {
	type hit struct {
		pos  int
		date string
	}
	var hits []hit

	for _, m := range numericExpiryPattern.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		if !plausibleDayMonth(day, month) {
			continue
		}
		hits = append(hits, hit{pos: m[2], date: text[m[2]:m[7]]})
	}
	for _, re := range []*regexp.Regexp{dayMonthExpiryPattern, monthDayExpiryPattern} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			date := strings.TrimRight(text[m[2]:m[3]], ",.")
			if !plausibleDayInText(date) {
				continue
			}
			hits = append(hits, hit{pos: m[2], date: date})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var dates []string
	seen := make(map[string]bool)
	for _, h := range hits {
		if !seen[h.date] {
			seen[h.date] = true
			dates = append(dates, h.date)
		}
	}
	return dates
}

func clampPercent(n int) int {
	if n < minPercent {
		return minPercent
	}
	if n > maxPercent {
		return maxPercent
	}
	return n
}

// plausibleDayMonth accepts DD/MM and also MM/DD when the day is above 12
func plausibleDayMonth(day, month int) bool {
	if day >= 1 && day <= 31 && month >= 1 && month <= 12 {
		return true
	}
	return month >= 1 && month <= 31 && day >= 1 && day <= 12
}

var dayInTextPattern = regexp.MustCompile(`[0-9]{1,2}`)

// plausibleDayInText checks the day number of a month-name date
func plausibleDayInText(date string) bool {
	d := dayInTextPattern.FindString(date)
	if d == "" {
		return false
	}
	day, _ := strconv.Atoi(d)
	return day >= 1 && day <= 31
}

// stemCache memoizes Snowball stems; the extractor is shared across requests
type stemCache struct {
	language string
	mu       sync.RWMutex
	cache    map[string]string
}

func newStemCache(language string) *stemCache {
	return &stemCache{language: language, cache: make(map[string]string)}
}

// Stem returns the stem of a lower-case word, or the word itself if stemming fails
func (s *stemCache) Stem(word string) string {
	s.mu.RLock()
	stem, ok := s.cache[word]
	s.mu.RUnlock()
	if ok {
		return stem
	}

	stem, err := snowball.Stem(word, s.language, true)
	if err != nil || stem == "" {
		stem = word
	}

	s.mu.Lock()
	s.cache[word] = stem
	s.mu.Unlock()
	return stem
}
