package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/couponlens/backend/internal/domain"
	"go.uber.org/zap"
)

// Structural and context thresholds
const (
	minCodeLength      = 3
	maxCodeLength      = 25
	minDistinctChars   = 2
	minValidKeywords   = 2
	maxInvalidKeywords = 1
)

// Structural patterns for codes, applied to the upper-cased code
var (
	codeCharsPattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)
	yearPattern      = regexp.MustCompile(`^(?:19|20)[0-9]{2}$`)
	ordinalPattern   = regexp.MustCompile(`^[0-9]{1,2}(?:ST|ND|RD|TH)$`)
	percentOffShape  = regexp.MustCompile(`^[0-9]{1,3}(?:OFF|PERCENT|PCT|PC)$`)
	monthDigitsShape = regexp.MustCompile(`^(?:JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|SEPT|OCT|NOV|DEC)[0-9]{1,4}$`)
	hasLetterPattern = regexp.MustCompile(`[A-Z]`)
	hasDigitPattern  = regexp.MustCompile(`[0-9]`)
	allDigitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

// ValidatorConfig holds configuration for the code validator
type ValidatorConfig struct {
	// RequireMixed demands at least one letter and one digit in every code
	RequireMixed       bool
	EnableDebugLogging bool
}

// CodeValidator rejects candidates failing structural, stoplist or context rules
type CodeValidator struct {
	stoplist           map[string]bool
	digitStopwords     []string
	trivialPrefixes    []string
	validContext       *keywordSet
	invalidContext     *keywordSet
	brands             *BrandDictionary
	requireMixed       bool
	enableDebugLogging bool
	logger             *zap.Logger
}

// NewCodeValidator creates a validator over the injected reference data
func NewCodeValidator(ref *domain.ReferenceData, brands *BrandDictionary, config ValidatorConfig, logger *zap.Logger) *CodeValidator {
	if logger == nil {
		logger = zap.NewNop()
	}

	stoplist := make(map[string]bool, len(ref.CodeStoplist))
	for _, w := range ref.CodeStoplist {
		stoplist[strings.ToUpper(w)] = true
	}

	prefixes := make([]string, 0, len(ref.TrivialPrefixes))
	isPrefix := make(map[string]bool, len(ref.TrivialPrefixes))
	for _, p := range ref.TrivialPrefixes {
		p = strings.ToUpper(p)
		prefixes = append(prefixes, p)
		isPrefix[p] = true
	}

	// Trivial prefixes (SAVE, FREE) are only trivial with a short number,
	// so SAVE2024 survives while SUBSCRIBE2024 does not.
	var digitStopwords []string
	for _, w := range ref.CodeStoplist {
		if w = strings.ToUpper(w); !isPrefix[w] {
			digitStopwords = append(digitStopwords, w)
		}
	}

	return &CodeValidator{
		stoplist:           stoplist,
		digitStopwords:     digitStopwords,
		trivialPrefixes:    prefixes,
		validContext:       newKeywordSet(ref.ValidContext),
		invalidContext:     newKeywordSet(ref.InvalidContext),
		brands:             brands,
		requireMixed:       config.RequireMixed,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger,
	}
}

// Validate runs the structural and context rules on a candidate
func (v *CodeValidator) Validate(candidate domain.CandidateCode) error {
	if err := v.ValidateCode(candidate.Text); err != nil {
		return err
	}
	return v.CheckContext(candidate.Context)
}

// ValidateCode applies the structural and stoplist rules, independent of context
func (v *CodeValidator) ValidateCode(raw string) error {
	code := domain.NormalizeCode(raw)

	if n := len(code); n < minCodeLength || n > maxCodeLength {
		return v.reject(code, "length %d outside [%d,%d]", n, minCodeLength, maxCodeLength)
	}
	if !codeCharsPattern.MatchString(code) {
		return v.reject(code, "characters outside [A-Z0-9_-]")
	}
	if distinctChars(code) < minDistinctChars {
		return v.reject(code, "fewer than %d distinct characters", minDistinctChars)
	}
	if v.stoplist[code] {
		return v.reject(code, "stoplisted word")
	}
	if word, ok := v.stoplistWithDigits(code); ok {
		return v.reject(code, "stoplisted word %s followed by digits", word)
	}
	if shape, ok := v.trivialShape(code); ok {
		return v.reject(code, "trivial shape %s", shape)
	}
	if v.requireMixed && (!hasLetterPattern.MatchString(code) || !hasDigitPattern.MatchString(code)) {
		return v.reject(code, "needs both letters and digits")
	}

	return nil
}

// CheckContext requires promotional support in the window: two distinct
// valid-context keywords with at most one invalid one, or a known brand plus
// one valid-context keyword.
func (v *CodeValidator) CheckContext(window domain.ContextWindow) error {
	valid := v.validContext.CountDistinct(window.Text)
	invalid := v.invalidContext.CountDistinct(window.Text)

	if valid >= minValidKeywords && invalid <= maxInvalidKeywords {
		return nil
	}
	if valid >= 1 && v.brands.ContainsAny(window.Text) {
		return nil
	}

	if v.enableDebugLogging {
		v.logger.Debug("[VALIDATE] weak context",
			zap.Int("valid_keywords", valid),
			zap.Int("invalid_keywords", invalid))
	}
	return fmt.Errorf("%w: %d valid and %d invalid context keywords", domain.ErrContextRejection, valid, invalid)
}

// stoplistWithDigits detects a stoplisted word followed only by digits (SUBSCRIBE20)
func (v *CodeValidator) stoplistWithDigits(code string) (string, bool) {
	for _, word := range v.digitStopwords {
		if len(code) > len(word) && strings.HasPrefix(code, word) && allDigitsPattern.MatchString(code[len(word):]) {
			return word, true
		}
	}
	return "", false
}

// trivialShape detects codes that look like ordinary text rather than a code
func (v *CodeValidator) trivialShape(code string) (string, bool) {
	for _, prefix := range v.trivialPrefixes {
		rest := strings.TrimPrefix(code, prefix)
		if rest != code && len(rest) >= 1 && len(rest) <= 2 && allDigitsPattern.MatchString(rest) {
			return "prefix+digits", true
		}
	}

	switch {
	case yearPattern.MatchString(code):
		return "year", true
	case ordinalPattern.MatchString(code):
		return "ordinal date", true
	case percentOffShape.MatchString(code):
		return "percent off", true
	case monthDigitsShape.MatchString(code):
		return "month date", true
	}
	return "", false
}

func (v *CodeValidator) reject(code, format string, args ...any) error {
	reason := fmt.Sprintf(format, args...)
	if v.enableDebugLogging {
		v.logger.Debug("[VALIDATE] rejected", zap.String("code", code), zap.String("reason", reason))
	}
	return fmt.Errorf("%w: %s: %s", domain.ErrValidationRejection, code, reason)
}

func distinctChars(s string) int {
	seen := make(map[rune]bool, len(s))
	for _, r := range s {
		seen[r] = true
	}
	return len(seen)
}
