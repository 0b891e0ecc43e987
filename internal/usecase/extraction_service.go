package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/couponlens/backend/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errExtractorPanic marks a candidate whose processing panicked
var errExtractorPanic = errors.New("extractor panicked")

// documentNamespace seeds deterministic IDs for documents submitted without one
var documentNamespace = uuid.MustParse("6f0f6a3e-2c1d-5b8e-9a57-3c0e9d1b7a42")

// ExtractionConfig holds configuration for the extraction pipeline
type ExtractionConfig struct {
	MinConfidence        float64
	ContextRadius        int
	MaxBrandDistance     int
	MaxCandidates        int
	DescriptionMaxLength int
	MaxRedFlagDensity    float64
	MinGreenFlags        int
	RequireMixed         bool
	TopCategories        int
	EnableDebugLogging   bool
}

// ExtractionService runs documents through gate, candidates, validation,
// brand resolution, attributes, assembly and deduplication
type ExtractionService struct {
	cleaner       *TextCleaner
	gate          *DocumentGate
	generator     *CandidateGenerator
	validator     *CodeValidator
	resolver      *BrandResolver
	extractor     *AttributeExtractor
	assembler     *Assembler
	store         domain.DedupStore
	minConfidence float64
	logger        *zap.Logger
}

// NewExtractionService wires the pipeline components over one reference data set
func NewExtractionService(
	ref *domain.ReferenceData,
	store domain.DedupStore,
	config ExtractionConfig,
	logger *zap.Logger,
) *ExtractionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	minConfidence := config.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.7
	}

	brands := NewBrandDictionary(ref.Brands)
	cleaner := NewTextCleaner(logger, config.EnableDebugLogging)

	return &ExtractionService{
		cleaner: cleaner,
		gate: NewDocumentGate(ref, brands, GateConfig{
			MaxRedFlagDensity:  config.MaxRedFlagDensity,
			MinGreenFlags:      config.MinGreenFlags,
			EnableDebugLogging: config.EnableDebugLogging,
		}, logger),
		generator: NewCandidateGenerator(GeneratorConfig{
			ContextRadius:      config.ContextRadius,
			MaxCandidates:      config.MaxCandidates,
			EnableDebugLogging: config.EnableDebugLogging,
		}, logger),
		validator: NewCodeValidator(ref, brands, ValidatorConfig{
			RequireMixed:       config.RequireMixed,
			EnableDebugLogging: config.EnableDebugLogging,
		}, logger),
		resolver: NewBrandResolver(ref, brands, ResolverConfig{
			MaxBrandDistance:   config.MaxBrandDistance,
			EnableDebugLogging: config.EnableDebugLogging,
		}, logger),
		extractor: NewAttributeExtractor(ref, ExtractorConfig{
			TopCategories: config.TopCategories,
		}),
		assembler: NewAssembler(cleaner, AssemblerConfig{
			DescriptionMaxLength: config.DescriptionMaxLength,
		}),
		store:         store,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// resolvedCandidate is a candidate that passed validation, brand resolution and the confidence gate
type resolvedCandidate struct {
	candidate domain.CandidateCode
	brand     BrandResolution
}

// Extract processes one document. Per-candidate failures are counted in the
// result; an error is returned only for an empty document, a cancelled
// context or an unavailable dedup store. In the last two cases the result
// still carries the records accepted before the failure.
func (s *ExtractionService) Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionResult, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: document text is empty", domain.ErrInvalidRequest)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewSHA1(documentNamespace, []byte(doc.Text)).String()
	}

	result := &domain.ExtractionResult{
		DocumentID: doc.ID,
		Records:    []domain.CouponRecord{},
		Rejections: domain.RejectionCounts{},
	}

	text := s.cleaner.Clean(doc.Text)

	if err := s.gate.Check(text); err != nil {
		result.Gated = true
		result.Rejections[domain.RejectDocumentGate]++
		s.logger.Debug("document gated", zap.String("document_id", doc.ID), zap.Error(err))
		return result, nil
	}

	// Pass 1: validation, brand resolution and confidence gate
	var survivors []resolvedCandidate
	for _, candidate := range s.generator.Generate(text) {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var resolved resolvedCandidate
		err := safely(func() error {
			var err error
			resolved, err = s.screen(candidate)
			return err
		})
		if err != nil {
			s.reject(result, doc.ID, candidate.Text, err)
			continue
		}
		survivors = append(survivors, resolved)
	}

	// Document-wide attributes only fill gaps when there is a single candidate to own them
	var docAttrs *domain.Attributes
	if len(survivors) == 1 {
		attrs := s.extractor.Extract(text)
		docAttrs = &attrs
	}

	// Pass 2: attributes, assembly and deduplication
	scopes := attributeScopes(text, survivors)
	for i, sc := range survivors {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var record domain.CouponRecord
		err := safely(func() error {
			attrs := s.extractor.Extract(scopes[i])
			if docAttrs != nil {
				backfill(&attrs, *docAttrs)
			}
			record = s.assembler.Assemble(doc, sc.candidate, sc.brand, attrs)
			return nil
		})
		if err != nil {
			s.reject(result, doc.ID, sc.candidate.Text, err)
			continue
		}

		status, err := s.store.Admit(ctx, record.Code, record.Brand)
		if err != nil {
			return result, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if status == domain.DedupDuplicate {
			s.reject(result, doc.ID, record.Code, fmt.Errorf("%w: %s", domain.ErrDuplicateRejection, record.Key()))
			continue
		}

		record.DedupStatus = status
		result.Records = append(result.Records, record)

		s.logger.Info(fmt.Sprintf("Valid coupon extracted: %s -> %s", record.Code, record.Brand),
			zap.String("document_id", doc.ID),
			zap.Float64("confidence", record.Confidence),
			zap.String("dedup_status", string(status)))
	}

	return result, nil
}

// ExtractBatch processes documents one at a time in order. An invalid document
// is counted as invalid_document in its own result and the batch goes on.
// A store failure or cancellation stops the batch; the results gathered so far,
// including the interrupted document's accepted records, are returned with the error.
func (s *ExtractionService) ExtractBatch(ctx context.Context, docs []domain.Document) ([]*domain.ExtractionResult, error) {
	results := make([]*domain.ExtractionResult, 0, len(docs))
	for i, doc := range docs {
		result, err := s.Extract(ctx, doc)
		if errors.Is(err, domain.ErrInvalidRequest) {
			s.logger.Warn("invalid document skipped",
				zap.Int("index", i),
				zap.String("document_id", doc.ID),
				zap.Error(err))
			results = append(results, &domain.ExtractionResult{
				DocumentID: doc.ID,
				Records:    []domain.CouponRecord{},
				Rejections: domain.RejectionCounts{domain.RejectInvalidDocument: 1},
			})
			continue
		}
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			return results, fmt.Errorf("document %d: %w", i, err)
		}
	}
	return results, nil
}

// screen validates a candidate, resolves its brand and applies the confidence threshold
func (s *ExtractionService) screen(candidate domain.CandidateCode) (resolvedCandidate, error) {
	if err := s.validator.Validate(candidate); err != nil {
		return resolvedCandidate{}, err
	}

	brand, err := s.resolver.Resolve(candidate)
	if err != nil {
		return resolvedCandidate{}, err
	}

	if candidate.Confidence < s.minConfidence {
		return resolvedCandidate{}, fmt.Errorf("%w: %s scored %.2f", domain.ErrLowConfidence, candidate.Text, candidate.Confidence)
	}

	return resolvedCandidate{candidate: candidate, brand: brand}, nil
}

func (s *ExtractionService) reject(result *domain.ExtractionResult, docID, code string, err error) {
	kind := rejectKind(err)
	result.Rejections[kind]++

	if kind == domain.RejectExtractorFailure {
		s.logger.Error("candidate processing failed",
			zap.String("document_id", docID),
			zap.String("code", code),
			zap.Error(err))
		return
	}
	s.logger.Debug("candidate rejected",
		zap.String("document_id", docID),
		zap.String("code", code),
		zap.String("kind", string(kind)),
		zap.Error(err))
}

// rejectKind maps a pipeline error to its counter
func rejectKind(err error) domain.RejectKind {
	switch {
	case errors.Is(err, domain.ErrValidationRejection):
		return domain.RejectValidation
	case errors.Is(err, domain.ErrContextRejection):
		return domain.RejectContext
	case errors.Is(err, domain.ErrBrandUnresolved):
		return domain.RejectBrandUnresolved
	case errors.Is(err, domain.ErrLowConfidence):
		return domain.RejectLowConfidence
	case errors.Is(err, domain.ErrDuplicateRejection):
		return domain.RejectDuplicate
	case errors.Is(err, domain.ErrDocumentGated):
		return domain.RejectDocumentGate
	case errors.Is(err, domain.ErrInvalidRequest):
		return domain.RejectInvalidDocument
	default:
		return domain.RejectExtractorFailure
	}
}

// attributeScopes narrows each survivor's context window so that text between
// two codes is split at the sentence end nearest the code, or at the midpoint
// when both codes share a sentence
func attributeScopes(text string, survivors []resolvedCandidate) []string {
	scopes := make([]string, len(survivors))
	for i, sc := range survivors {
		c := sc.candidate
		lo := c.Context.Start
		hi := c.Context.Start + len(c.Context.Text)
		codeEnd := c.Position + len(c.Text)

		for j, other := range survivors {
			if j == i {
				continue
			}
			o := other.candidate
			oEnd := o.Position + len(o.Text)
			switch {
			case oEnd <= c.Position:
				cut := lastSentenceBreak(text, oEnd, c.Position)
				if cut < 0 {
					cut = (oEnd + c.Position) / 2
				}
				if cut > lo {
					lo = cut
				}
			case o.Position >= codeEnd:
				cut := firstSentenceBreak(text, codeEnd, o.Position)
				if cut < 0 {
					cut = (codeEnd + o.Position) / 2
				}
				if cut < hi {
					hi = cut
				}
			}
		}

		for lo > 0 && lo < len(text) && !utf8.RuneStart(text[lo]) {
			lo--
		}
		for hi < len(text) && !utf8.RuneStart(text[hi]) {
			hi++
		}
		scopes[i] = text[lo:hi]
	}
	return scopes
}

// backfill fills empty window attributes from the whole document
func backfill(attrs *domain.Attributes, doc domain.Attributes) {
	if len(attrs.Percentages) == 0 {
		attrs.Percentages = doc.Percentages
	}
	if attrs.AmountOff == 0 {
		attrs.AmountOff, attrs.Currency = doc.AmountOff, doc.Currency
	}
	if len(attrs.Categories) == 0 {
		attrs.Categories = doc.Categories
	}
	if len(attrs.ExpiryDates) == 0 {
		attrs.ExpiryDates = doc.ExpiryDates
	}
}

// safely runs fn and converts a panic into an error
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errExtractorPanic, r)
		}
	}()
	return fn()
}
