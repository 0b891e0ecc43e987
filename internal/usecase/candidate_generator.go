package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/couponlens/backend/internal/domain"
	"go.uber.org/zap"
)

// Confidence tiers assigned by rule method
const (
	confidenceExplicit   = 0.9
	confidenceContextual = 0.7
)

// extractionRule is one entry of the ordered candidate rule table.
// Capture group 1 of pattern is the code.
type extractionRule struct {
	pattern    *regexp.Regexp
	confidence float64
	tag        string
	method     domain.ExtractionMethod
}

// candidateRules is ordered from most to least explicit.
// Keyword parts are case-insensitive via (?i:...) groups while contextual
// tokens must be written in capitals, the way codes appear in descriptions.
var candidateRules = []extractionRule{
	// "use code X", "apply the coupon code: X", "enter promo code X"
	{
		pattern:    regexp.MustCompile(`(?i)\b(?:use|apply|enter|redeem)\s+(?:the\s+|my\s+|our\s+|this\s+)?(?:promo\s+|coupon\s+|discount\s+|voucher\s+)?code\s*[:=\-]?\s*["']?([a-z0-9_-]{3,25})\b`),
		confidence: confidenceExplicit,
		tag:        "use_code",
		method:     domain.MethodExplicit,
	},
	// "coupon code: X", "promo code X", "discount code - X"
	{
		pattern:    regexp.MustCompile(`(?i)\b(?:coupon|promo|discount|offer|voucher|referral)\s+code\s*[:=\-]?\s*["']?([a-z0-9_-]{3,25})\b`),
		confidence: confidenceExplicit,
		tag:        "typed_code",
		method:     domain.MethodExplicit,
	},
	// "checkout with code X", "at payment using code X"
	{
		pattern:    regexp.MustCompile(`(?i)\b(?:checkout|payment)\s+(?:with|using)\s+(?:the\s+)?code\s*[:=\-]?\s*["']?([a-z0-9_-]{3,25})\b`),
		confidence: confidenceExplicit,
		tag:        "checkout_code",
		method:     domain.MethodExplicit,
	},
	// discount keyword followed closely by a LETTERS+DIGITS token
	{
		pattern:    regexp.MustCompile(`(?i:\b(?:off|discount|save|deal|offer|coupon|promo|cashback|voucher)\b)[^.!?\n]{0,60}?\b([A-Z]{2,10}[0-9]{2,8})\b`),
		confidence: confidenceContextual,
		tag:        "keyword_near_token",
		method:     domain.MethodContextual,
	},
	// LETTERS+DIGITS token followed closely by a discount keyword
	{
		pattern:    regexp.MustCompile(`\b([A-Z]{2,10}[0-9]{2,8})\b[^.!?\n]{0,60}?(?i:\b(?:off|discount|cashback)\b)`),
		confidence: confidenceContextual,
		tag:        "token_near_keyword",
		method:     domain.MethodContextual,
	},
	// "code"/"offer" near a DIGITS+LETTERS token such as 50FLAT
	{
		pattern:    regexp.MustCompile(`(?i:\b(?:code|offer)\b)[^.!?\n]{0,40}?\b([0-9]{2,4}[A-Z]{2,6})\b`),
		confidence: confidenceContextual,
		tag:        "code_near_numeric_token",
		method:     domain.MethodContextual,
	},
	// bare "code X" with an upper-case token
	{
		pattern:    regexp.MustCompile(`(?i:\bcodes?\b)\s*[:=\-]?\s*["']?([A-Z0-9][A-Z0-9_-]{2,24})\b`),
		confidence: confidenceContextual,
		tag:        "code_token",
		method:     domain.MethodContextual,
	},
	// "save N% ... X ... code"
	{
		pattern:    regexp.MustCompile(`(?i:\bsave\s+[0-9]{1,2}\s*%)[^.!?\n]{0,60}?\b([A-Z0-9]{4,15})\b[^.!?\n]{0,30}?(?i:\bcode\b)`),
		confidence: confidenceContextual,
		tag:        "save_percent_code",
		method:     domain.MethodContextual,
	},
}

// GeneratorConfig holds configuration for the candidate generator
type GeneratorConfig struct {
	ContextRadius      int
	MaxCandidates      int
	EnableDebugLogging bool
}

// CandidateGenerator scans text for coupon-shaped tokens
type CandidateGenerator struct {
	rules              []extractionRule
	contextRadius      int
	maxCandidates      int
	enableDebugLogging bool
	logger             *zap.Logger
}

// NewCandidateGenerator creates a generator using the built-in rule table
func NewCandidateGenerator(config GeneratorConfig, logger *zap.Logger) *CandidateGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}

	radius := config.ContextRadius
	if radius <= 0 {
		radius = 150
	}
	maxCandidates := config.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 10
	}

	return &CandidateGenerator{
		rules:              candidateRules,
		contextRadius:      radius,
		maxCandidates:      maxCandidates,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger,
	}
}

// Generate returns the distinct candidates in text, highest confidence first.
// A code matched by several rules keeps its highest-confidence occurrence,
// the earliest one on ties.
func (g *CandidateGenerator) Generate(text string) []domain.CandidateCode {
	best := make(map[string]domain.CandidateCode)

	for _, rule := range g.rules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			if len(loc) < 4 || loc[2] < 0 {
				continue
			}
			start, end := loc[2], loc[3]
			code := strings.ToUpper(text[start:end])

			candidate := domain.CandidateCode{
				Text:       code,
				Position:   start,
				Context:    g.window(text, start, end),
				Confidence: rule.confidence,
				Method:     rule.method,
				RuleTag:    rule.tag,
			}

			existing, seen := best[code]
			if !seen || candidate.Confidence > existing.Confidence ||
				(candidate.Confidence == existing.Confidence && candidate.Position < existing.Position) {
				best[code] = candidate
			}
		}
	}

	candidates := make([]domain.CandidateCode, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Position < candidates[j].Position
	})

	if len(candidates) > g.maxCandidates {
		candidates = candidates[:g.maxCandidates]
	}

	if g.enableDebugLogging {
		for _, c := range candidates {
			g.logger.Debug("[CANDIDATE] matched",
				zap.String("code", c.Text),
				zap.String("rule", c.RuleTag),
				zap.Float64("confidence", c.Confidence),
				zap.Int("position", c.Position))
		}
	}

	return candidates
}

// window cuts the context around text[start:end], aligned to rune boundaries
func (g *CandidateGenerator) window(text string, start, end int) domain.ContextWindow {
	return contextWindow(text, start, end, g.contextRadius)
}

func contextWindow(text string, start, end, radius int) domain.ContextWindow {
	from := start - radius
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}

	to := end + radius
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}

	return domain.ContextWindow{
		Text:       text[from:to],
		Start:      from,
		CodeOffset: start - from,
	}
}
