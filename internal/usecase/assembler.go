package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/couponlens/backend/internal/domain"
)

// currencySymbols renders ISO codes back to the symbol used in titles
var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// AssemblerConfig holds configuration for record assembly
type AssemblerConfig struct {
	DescriptionMaxLength int
}

// Assembler merges a validated candidate, its brand and its attributes into a record
type Assembler struct {
	cleaner              *TextCleaner
	descriptionMaxLength int
}

// NewAssembler creates an assembler
func NewAssembler(cleaner *TextCleaner, config AssemblerConfig) *Assembler {
	maxLen := config.DescriptionMaxLength
	if maxLen <= 0 {
		maxLen = 200
	}
	return &Assembler{cleaner: cleaner, descriptionMaxLength: maxLen}
}

// Assemble builds the record for one candidate
func (a *Assembler) Assemble(
	doc domain.Document,
	candidate domain.CandidateCode,
	brand BrandResolution,
	attrs domain.Attributes,
) domain.CouponRecord {
	record := domain.CouponRecord{
		Code:             domain.NormalizeCode(candidate.Text),
		Brand:            brand.Brand,
		Category:         resolveCategory(attrs, brand.Industry),
		Currency:         attrs.Currency,
		AmountOff:        attrs.AmountOff,
		Confidence:       clampConfidence(candidate.Confidence),
		ExtractionMethod: candidate.Method,
		DocumentID:       doc.ID,
		SourceTitle:      doc.Title,
	}

	if len(attrs.Percentages) > 0 {
		record.PercentOff = attrs.Percentages[0]
	}
	if len(attrs.ExpiryDates) > 0 {
		record.ExpiryDate = attrs.ExpiryDates[0]
	}

	record.Title = buildTitle(record)
	record.Description = a.description(candidate.Context.Text)

	return record
}

// resolveCategory prefers a keyword category, then the brand's industry
func resolveCategory(attrs domain.Attributes, industry string) string {
	if len(attrs.Categories) > 0 {
		return attrs.Categories[0]
	}
	if industry != "" {
		return industry
	}
	return domain.DefaultCategory
}

// buildTitle renders "<percent>% OFF <Brand> <Category>" or an amount variant,
// falling back to "Discount Code <code>" when nothing was extracted
func buildTitle(r domain.CouponRecord) string {
	var offer string
	switch {
	case r.PercentOff > 0:
		offer = fmt.Sprintf("%d%% OFF", r.PercentOff)
	case r.AmountOff > 0:
		offer = currencySymbols[r.Currency] + strconv.FormatFloat(r.AmountOff, 'f', -1, 64) + " OFF"
	}

	hasCategory := r.Category != "" && r.Category != domain.DefaultCategory
	if offer == "" && !hasCategory && r.ExpiryDate == "" {
		return "Discount Code " + r.Code
	}

	parts := make([]string, 0, 3)
	if offer != "" {
		parts = append(parts, offer)
	}
	parts = append(parts, r.Brand)
	if hasCategory {
		parts = append(parts, domain.NormalizeBrand(r.Category))
	}
	if offer == "" {
		parts = append(parts, "Code "+r.Code)
	}
	return strings.Join(parts, " ")
}

// description strips markup from the window and truncates it on a rune boundary
func (a *Assembler) description(window string) string {
	text := a.cleaner.Sanitize(window)
	if len(text) <= a.descriptionMaxLength {
		return text
	}

	cut := a.descriptionMaxLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return strings.TrimSpace(text[:cut]) + "..."
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
