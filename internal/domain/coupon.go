package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCategory is assigned when no category keyword or brand industry resolves
const DefaultCategory = "general"

// ExtractionMethod names the rule tier that produced a candidate
type ExtractionMethod string

const (
	MethodExplicit   ExtractionMethod = "explicit"
	MethodContextual ExtractionMethod = "contextual"
)

// Document is a single text blob handed to the pipeline by a producer
type Document struct {
	ID     string `json:"documentId,omitempty"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"` // e.g. "youtube", "web"
}

// ContextWindow is the bounded text slice around a candidate code.
// It is used for validity and brand judgment only and never persisted.
type ContextWindow struct {
	Text       string
	Start      int // byte offset of Text in the cleaned document
	CodeOffset int // byte offset of the code inside Text
}

// CandidateCode is a substring matched by a coupon-shaped rule, pre-validation
type CandidateCode struct {
	Text       string
	Position   int
	Context    ContextWindow
	Confidence float64
	Method     ExtractionMethod
	RuleTag    string
}

// Attributes holds the values derived by the attribute extractors for one candidate
type Attributes struct {
	Percentages []int
	AmountOff   float64
	Currency    string
	Categories  []string
	ExpiryDates []string
}

// DedupStatus records why an accepted record was admitted by the dedup store
type DedupStatus string

const (
	DedupNew                    DedupStatus = "new"
	DedupSameCodeDifferentBrand DedupStatus = "same_code_different_brand"
	DedupDuplicate              DedupStatus = "duplicate"
)

// CouponRecord is a normalized, accepted discount-code record
type CouponRecord struct {
	Code             string           `json:"code"`
	Brand            string           `json:"brand"`
	Title            string           `json:"title"`
	PercentOff       int              `json:"percent_off,omitempty"`
	AmountOff        float64          `json:"amount_off,omitempty"`
	Currency         string           `json:"currency,omitempty"`
	Category         string           `json:"category"`
	ExpiryDate       string           `json:"expiry_date,omitempty"`
	Description      string           `json:"description"`
	Confidence       float64          `json:"confidence"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	DocumentID       string           `json:"document_id,omitempty"`
	SourceTitle      string           `json:"source_title,omitempty"`
	DedupStatus      DedupStatus      `json:"dedup_status,omitempty"`
}

// Key returns the dedup identity of the record
func (r CouponRecord) Key() DedupKey {
	return NewDedupKey(r.Code, r.Brand)
}

// DedupKey is the normalized code+brand identity used to detect re-emission
type DedupKey string

// NewDedupKey builds uppercase(code) + "_" + titlecase(brand)
func NewDedupKey(code, brand string) DedupKey {
	return DedupKey(NormalizeCode(code) + "_" + NormalizeBrand(brand))
}

// NormalizeCode upper-cases and trims a code for comparison
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeBrand title-cases and trims a brand for comparison.
// A Caser keeps state, so one is built per call.
func NormalizeBrand(brand string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(brand), " "))
}

// RejectKind classifies why a candidate or document produced no record
type RejectKind string

const (
	RejectValidation       RejectKind = "validation"
	RejectContext          RejectKind = "context"
	RejectBrandUnresolved  RejectKind = "brand_unresolved"
	RejectLowConfidence    RejectKind = "low_confidence"
	RejectDuplicate        RejectKind = "duplicate"
	RejectDocumentGate     RejectKind = "document_gate"
	RejectExtractorFailure RejectKind = "extractor_failure"
	RejectArtifactParse    RejectKind = "artifact_parse"
	RejectInvalidDocument  RejectKind = "invalid_document"
)

// RejectionCounts tallies rejects per kind
type RejectionCounts map[RejectKind]int

// Add merges other into c
func (c RejectionCounts) Add(other RejectionCounts) {
	for kind, n := range other {
		c[kind] += n
	}
}

// ExtractionResult is the pipeline output for a single document
type ExtractionResult struct {
	DocumentID string          `json:"documentId"`
	Records    []CouponRecord  `json:"records"`
	Rejections RejectionCounts `json:"rejections"`
	Gated      bool            `json:"gated"`
}

// Split separates a key into its code and brand parts.
// Brands never contain an underscore, codes may, so the last one is the separator.
func (k DedupKey) Split() (code, brand string, ok bool) {
	idx := strings.LastIndex(string(k), "_")
	if idx <= 0 || idx == len(k)-1 {
		return "", "", false
	}
	return string(k[:idx]), string(k[idx+1:]), true
}
