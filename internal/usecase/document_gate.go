package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/couponlens/backend/internal/domain"
	"go.uber.org/zap"
)

// GateConfig holds thresholds for the document gate
type GateConfig struct {
	MaxRedFlagDensity  float64
	MinGreenFlags      int
	EnableDebugLogging bool
}

// GateVerdict reports what the gate counted for one document
type GateVerdict struct {
	Words        int
	RedFlags     []string
	GreenFlags   int
	BrandPresent bool
	Accepted     bool
	Reason       string
}

// RedDensity returns distinct red flags per word
func (v GateVerdict) RedDensity() float64 {
	if v.Words == 0 {
		return 0
	}
	return float64(len(v.RedFlags)) / float64(v.Words)
}

// DocumentGate decides whether a whole document is coupon-shaped before any candidate work
type DocumentGate struct {
	redFlags           *keywordSet
	greenFlags         []*regexp.Regexp
	couponWordPattern  *regexp.Regexp
	brands             *BrandDictionary
	maxRedFlagDensity  float64
	minGreenFlags      int
	enableDebugLogging bool
	logger             *zap.Logger
}

// NewDocumentGate compiles the red/green flag tables from reference data.
// Green flag patterns are validated by the reference loader.
func NewDocumentGate(ref *domain.ReferenceData, brands *BrandDictionary, config GateConfig, logger *zap.Logger) *DocumentGate {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxDensity := config.MaxRedFlagDensity
	if maxDensity <= 0 {
		maxDensity = 0.05
	}
	minGreen := config.MinGreenFlags
	if minGreen <= 0 {
		minGreen = 2
	}

	greens := make([]*regexp.Regexp, 0, len(ref.GreenFlags))
	for _, pattern := range ref.GreenFlags {
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			logger.Warn("skipping invalid green flag", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		greens = append(greens, re)
	}

	return &DocumentGate{
		redFlags:           newKeywordSet(ref.RedFlags),
		greenFlags:         greens,
		couponWordPattern:  buildCouponWordPattern(ref.CouponWords),
		brands:             brands,
		maxRedFlagDensity:  maxDensity,
		minGreenFlags:      minGreen,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger,
	}
}

// buildCouponWordPattern matches a coupon word right after a brand mention ("Nykaa coupon", "Nike's promo")
func buildCouponWordPattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(w)))
		}
	}
	if len(quoted) == 0 {
		quoted = []string{"coupon", "code", "promo"}
	}
	return regexp.MustCompile(`(?i)^(?:'s)?\s+(?:` + strings.Join(quoted, "|") + `)s?\b`)
}

// Evaluate counts flags for text and decides acceptance
func (g *DocumentGate) Evaluate(text string) GateVerdict {
	v := GateVerdict{Words: len(strings.Fields(text))}
	if v.Words == 0 {
		v.Reason = "empty document"
		return v
	}

	v.RedFlags = g.redFlags.Matches(text)

	for _, re := range g.greenFlags {
		if re.MatchString(text) {
			v.GreenFlags++
		}
	}

	mentions := g.brands.FindAll(text)
	v.BrandPresent = len(mentions) > 0
	for _, m := range mentions {
		if g.couponWordPattern.MatchString(text[m.End:]) {
			v.GreenFlags++
			break
		}
	}

	switch {
	case v.RedDensity() > g.maxRedFlagDensity:
		v.Reason = fmt.Sprintf("red flag density %.3f exceeds %.3f", v.RedDensity(), g.maxRedFlagDensity)
	case v.GreenFlags >= g.minGreenFlags:
		v.Accepted = true
	case v.GreenFlags >= 1 && v.BrandPresent:
		v.Accepted = true
	default:
		v.Reason = fmt.Sprintf("only %d green flags", v.GreenFlags)
	}

	if g.enableDebugLogging {
		g.logger.Debug("[GATE] document evaluated",
			zap.Int("words", v.Words),
			zap.Strings("red_flags", v.RedFlags),
			zap.Int("green_flags", v.GreenFlags),
			zap.Bool("brand_present", v.BrandPresent),
			zap.Bool("accepted", v.Accepted))
	}

	return v
}

// Check returns ErrDocumentGated when text is not coupon-shaped
func (g *DocumentGate) Check(text string) error {
	v := g.Evaluate(text)
	if !v.Accepted {
		return fmt.Errorf("%w: %s", domain.ErrDocumentGated, v.Reason)
	}
	return nil
}
