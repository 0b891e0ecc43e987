package usecase

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Compiled regex patterns for text cleaning
var (
	// Matches http(s) links, which never carry a code worth extracting
	urlPattern = regexp.MustCompile(`https?://\S+`)

	// Matches repeated exclamation/question marks ("!!!", "???")
	repeatedBangPattern     = regexp.MustCompile(`!{2,}`)
	repeatedQuestionPattern = regexp.MustCompile(`\?{2,}`)

	// Matches characters outside the set the extractors understand (emoji, decorative symbols).
	// Currency signs and slashes survive for amount and date extraction.
	specialCharPattern = regexp.MustCompile(`[^\p{L}\p{N}\s\-_.,:;!?%$@&()\[\]/'₹€£+]`)

	// Multiple spaces cleanup
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// TextCleaner normalizes raw producer text before any rule runs on it
type TextCleaner struct {
	policy             *bluemonday.Policy
	enableDebugLogging bool
	logger             *zap.Logger
}

// NewTextCleaner creates a text cleaner
func NewTextCleaner(logger *zap.Logger, enableDebugLogging bool) *TextCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextCleaner{
		policy:             bluemonday.StrictPolicy(),
		enableDebugLogging: enableDebugLogging,
		logger:             logger,
	}
}

// Clean strips markup, links and decorative characters and collapses whitespace
func (c *TextCleaner) Clean(text string) string {
	if text == "" {
		return ""
	}

	// Step 1: Drop stray markup (descriptions pasted from HTML editors)
	cleaned := text
	if strings.ContainsAny(cleaned, "<>") {
		cleaned = html.UnescapeString(c.policy.Sanitize(cleaned))
	}

	// Step 2: Remove links
	cleaned = urlPattern.ReplaceAllString(cleaned, " ")

	// Step 3: Collapse excessive punctuation
	cleaned = repeatedBangPattern.ReplaceAllString(cleaned, "!")
	cleaned = repeatedQuestionPattern.ReplaceAllString(cleaned, "?")

	// Step 4: Remove emoji and other decoration
	cleaned = specialCharPattern.ReplaceAllString(cleaned, " ")

	// Step 5: Normalize whitespace
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))

	if c.enableDebugLogging {
		c.logger.Debug("[CLEAN] text normalized",
			zap.Int("input_len", len(text)),
			zap.Int("output_len", len(cleaned)))
	}

	return cleaned
}

// Sanitize strips markup from a fragment and collapses whitespace without
// removing any characters, for user-facing descriptions
func (c *TextCleaner) Sanitize(text string) string {
	if strings.ContainsAny(text, "<>") {
		text = html.UnescapeString(c.policy.Sanitize(text))
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
