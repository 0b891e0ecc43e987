package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/couponlens/backend/internal/domain"
	"go.uber.org/zap"
)

// Brand-shape bounds for names captured by fallback templates
const (
	minBrandLength = 3
	maxBrandLength = 20
)

// brandTemplate captures a brand-like word in group 1
type brandTemplate struct {
	pattern    *regexp.Regexp
	fromDomain bool
}

// Fallback templates used only when no dictionary brand is near the code
var brandTemplates = []brandTemplate{
	// "Acme coupon", "Acme's promo code"
	{pattern: regexp.MustCompile(`\b([A-Z][A-Za-z'&.-]{2,19})(?:'s)?\s+(?i:coupons?|codes?|discounts?|offers?|promo|vouchers?)\b`)},
	// "acme.com", "shop.acme.in"
	{pattern: regexp.MustCompile(`(?i)\b([a-z][a-z-]{2,19})\.(?:com|in|co\.uk|org|net|io|shop|store)\b`), fromDomain: true},
	// "for Acme", "at Acme", "on Acme"
	{pattern: regexp.MustCompile(`(?i:\b(?:for|at|on)\s+)([A-Z][A-Za-z'&.-]{2,19})\b`)},
}

var brandShapePattern = regexp.MustCompile(`^[A-Z][A-Za-z'&.-]{2,19}$`)

// suspiciousBrandPrefixes mark marketing words that the templates mistake for brands
var suspiciousBrandPrefixes = []string{
	"GET", "SAVE", "NEW", "BEST", "TOP", "FREE", "BUY", "SHOP", "CLICK", "USE",
	"FLAT", "UPTO", "EXTRA", "HUGE", "MEGA", "VOUCHER", "REFERRAL", "SECRET",
}

// ResolverConfig holds configuration for the brand resolver
type ResolverConfig struct {
	MaxBrandDistance   int
	EnableDebugLogging bool
}

// BrandResolution is the brand linked to a candidate
type BrandResolution struct {
	Brand    string
	Industry string // empty for brands found by fallback templates
	Distance int
	Source   string // "dictionary" or "template"
}

// BrandResolver links a candidate code to a brand found in its context window
type BrandResolver struct {
	brands             *BrandDictionary
	stopwords          map[string]bool
	maxBrandDistance   int
	enableDebugLogging bool
	logger             *zap.Logger
}

// NewBrandResolver creates a resolver over the injected dictionary and stopwords
func NewBrandResolver(ref *domain.ReferenceData, brands *BrandDictionary, config ResolverConfig, logger *zap.Logger) *BrandResolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	stopwords := make(map[string]bool, len(ref.BrandStopwords))
	for _, w := range ref.BrandStopwords {
		stopwords[strings.ToLower(w)] = true
	}

	maxDistance := config.MaxBrandDistance
	if maxDistance <= 0 {
		maxDistance = 500
	}

	return &BrandResolver{
		brands:             brands,
		stopwords:          stopwords,
		maxBrandDistance:   maxDistance,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger,
	}
}

// Resolve returns the brand nearest to the candidate code, preferring a mention
// in the code's own sentence. Dictionary mentions win; templates are tried only
// when the window has none.
func (r *BrandResolver) Resolve(candidate domain.CandidateCode) (BrandResolution, error) {
	window := candidate.Context
	codeStart := window.CodeOffset
	codeEnd := codeStart + len(candidate.Text)

	if res, ok := r.fromDictionary(window.Text, codeStart, codeEnd); ok {
		r.debug(candidate.Text, res)
		return res, nil
	}

	if res, ok := r.fromTemplates(window.Text, candidate.Text, codeStart, codeEnd); ok {
		r.debug(candidate.Text, res)
		return res, nil
	}

	return BrandResolution{}, fmt.Errorf("%w: %s", domain.ErrBrandUnresolved, candidate.Text)
}

func (r *BrandResolver) fromDictionary(text string, codeStart, codeEnd int) (BrandResolution, bool) {
	sentStart, sentEnd := sentenceBounds(text, codeStart, codeEnd)

	var best BrandResolution
	found, bestInSentence := false, false

	for _, m := range r.brands.FindAll(text) {
		dist, ok := spanDistance(m.Start, m.End, codeStart, codeEnd)
		if !ok || dist > r.maxBrandDistance {
			continue
		}
		inSentence := m.Start >= sentStart && m.End <= sentEnd
		if !found || preferMention(inSentence, dist, len(m.Brand), bestInSentence, best.Distance, len(best.Brand)) {
			best = BrandResolution{Brand: m.Brand, Industry: m.Industry, Distance: dist, Source: "dictionary"}
			found, bestInSentence = true, inSentence
		}
	}

	return best, found
}

func (r *BrandResolver) fromTemplates(text, code string, codeStart, codeEnd int) (BrandResolution, bool) {
	sentStart, sentEnd := sentenceBounds(text, codeStart, codeEnd)

	var best BrandResolution
	found, bestInSentence := false, false

	for _, tmpl := range brandTemplates {
		for _, loc := range tmpl.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2], loc[3]
			dist, ok := spanDistance(start, end, codeStart, codeEnd)
			if !ok || dist > r.maxBrandDistance {
				continue
			}

			name := strings.TrimRight(text[start:end], ".-'&")
			if tmpl.fromDomain {
				name = domain.NormalizeBrand(strings.ToLower(name))
			}
			if !r.isBrandShaped(name, code) {
				continue
			}

			inSentence := start >= sentStart && end <= sentEnd
			if !found || preferMention(inSentence, dist, 0, bestInSentence, best.Distance, 0) {
				best = BrandResolution{Brand: name, Distance: dist, Source: "template"}
				found, bestInSentence = true, inSentence
			}
		}
	}

	return best, found
}

// isBrandShaped checks a captured name: capitalized, 3-20 letters with limited
// punctuation, not a stopword or marketing word, not the code itself
func (r *BrandResolver) isBrandShaped(name, code string) bool {
	if len(name) < minBrandLength || len(name) > maxBrandLength {
		return false
	}
	if !brandShapePattern.MatchString(name) {
		return false
	}
	if r.stopwords[strings.ToLower(name)] {
		return false
	}
	upper := strings.ToUpper(name)
	if upper == domain.NormalizeCode(code) {
		return false
	}
	for _, prefix := range suspiciousBrandPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return false
		}
	}
	return true
}

func (r *BrandResolver) debug(code string, res BrandResolution) {
	if !r.enableDebugLogging {
		return
	}
	r.logger.Debug("[BRAND] resolved",
		zap.String("code", code),
		zap.String("brand", res.Brand),
		zap.String("source", res.Source),
		zap.Int("distance", res.Distance))
}

// preferMention orders brand mentions: the code's own sentence first, then
// the nearer span, then the longer name
func preferMention(inSentence bool, dist, length int, bestInSentence bool, bestDist, bestLength int) bool {
	if inSentence != bestInSentence {
		return inSentence
	}
	if dist != bestDist {
		return dist < bestDist
	}
	return length > bestLength
}

// spanDistance is the gap in bytes between two spans; overlapping spans are not comparable
func spanDistance(start, end, codeStart, codeEnd int) (int, bool) {
	switch {
	case end <= codeStart:
		return codeStart - end, true
	case start >= codeEnd:
		return start - codeEnd, true
	default:
		return 0, false
	}
}
