package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/couponlens/backend/internal/domain"
	"github.com/couponlens/backend/internal/infrastructure/dedup"
	"github.com/couponlens/backend/internal/infrastructure/htmltext"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxBatchDocuments bounds one batch request
const maxBatchDocuments = 100

// Extractor runs documents through the extraction pipeline
type Extractor interface {
	Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionResult, error)
	ExtractBatch(ctx context.Context, docs []domain.Document) ([]*domain.ExtractionResult, error)
}

// DedupInspector exposes read-only views of the dedup store
type DedupInspector interface {
	Stats() dedup.Stats
	ContainsPair(code, brand string) bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	extractor Extractor
	dedup     DedupInspector
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(extractor Extractor, inspector DedupInspector, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{extractor: extractor, dedup: inspector, logger: logger}
}

// ExtractRequest is one document to extract from. Exactly one of Text or HTML is used;
// HTML wins when both are set.
type ExtractRequest struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	HTML       string `json:"html"`
	Source     string `json:"source"`
}

// BatchExtractRequest carries several documents processed in order
type BatchExtractRequest struct {
	Documents []ExtractRequest `json:"documents" binding:"required"`
}

// BatchExtractResponse is the result of a batch request
type BatchExtractResponse struct {
	Results      []*domain.ExtractionResult `json:"results"`
	TotalRecords int                        `json:"totalRecords"`
	Rejections   domain.RejectionCounts     `json:"rejections"`
}

// ErrorResponse is the JSON body of every failed request. Results carries the
// records accepted before a store failure or cancellation; their keys are
// already stored, so they are not produced again by a retry.
type ErrorResponse struct {
	Error   string                     `json:"error"`
	Results []*domain.ExtractionResult `json:"results,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "couponlens-backend",
		"version": "1.0.0",
	})
}

// ExtractCoupons handles single-document extraction requests
// POST /api/v1/coupons/extract
func (h *Handler) ExtractCoupons(c *gin.Context) {
	if h.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Extraction service not configured"})
		return
	}

	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	doc, err := toDocument(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.extractor.Extract(c.Request.Context(), doc)
	if err != nil {
		h.respondError(c, err, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExtractCouponsBatch handles multi-document extraction requests
// POST /api/v1/coupons/extract/batch
func (h *Handler) ExtractCouponsBatch(c *gin.Context) {
	if h.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Extraction service not configured"})
		return
	}

	var req BatchExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	if len(req.Documents) == 0 || len(req.Documents) > maxBatchDocuments {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Batch must contain between 1 and 100 documents"})
		return
	}

	// An unusable document goes through with empty text so the batch counts it
	// as invalid_document instead of failing the others
	docs := make([]domain.Document, 0, len(req.Documents))
	for i, r := range req.Documents {
		doc, err := toDocument(r)
		if err != nil {
			h.logger.Warn("invalid batch document", zap.Int("index", i), zap.Error(err))
			doc = domain.Document{ID: r.DocumentID, Title: r.Title, Source: r.Source}
		}
		docs = append(docs, doc)
	}

	results, err := h.extractor.ExtractBatch(c.Request.Context(), docs)
	if err != nil {
		h.respondError(c, err, results...)
		return
	}

	resp := BatchExtractResponse{Results: results, Rejections: domain.RejectionCounts{}}
	for _, r := range results {
		resp.TotalRecords += len(r.Records)
		resp.Rejections.Add(r.Rejections)
	}
	c.JSON(http.StatusOK, resp)
}

// DedupStats returns the dedup store counters
// GET /api/v1/dedup/stats
func (h *Handler) DedupStats(c *gin.Context) {
	if h.dedup == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Dedup store not configured"})
		return
	}
	c.JSON(http.StatusOK, h.dedup.Stats())
}

// DedupContains reports whether a code+brand pair was already emitted
// GET /api/v1/dedup/contains?code=&brand=
func (h *Handler) DedupContains(c *gin.Context) {
	if h.dedup == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Dedup store not configured"})
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	brand := strings.TrimSpace(c.Query("brand"))
	if code == "" || brand == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Both code and brand query parameters are required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":      domain.NewDedupKey(code, brand),
		"contains": h.dedup.ContainsPair(code, brand),
	})
}

// respondError maps pipeline errors to status codes. Partial results that
// already hold accepted records are returned with store and cancellation errors.
func (h *Handler) respondError(c *gin.Context, err error, partial ...*domain.ExtractionResult) {
	var results []*domain.ExtractionResult
	for _, r := range partial {
		if r != nil {
			results = append(results, r)
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Error("dedup store unavailable", zap.Error(err), zap.Int("partial_results", len(results)))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Dedup store unavailable", Results: results})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, ErrorResponse{Error: "Request cancelled", Results: results})
	default:
		h.logger.Error("extraction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Results: results})
	}
}

// toDocument converts a request to a pipeline document, rendering HTML to text
func toDocument(req ExtractRequest) (domain.Document, error) {
	doc := domain.Document{
		ID:     req.DocumentID,
		Title:  req.Title,
		Text:   req.Text,
		Source: req.Source,
	}

	if strings.TrimSpace(req.HTML) != "" {
		page, err := htmltext.ExtractString(req.HTML)
		if err != nil {
			return domain.Document{}, errors.Join(domain.ErrInvalidRequest, err)
		}
		doc.Text = page.Text
		if doc.Title == "" {
			doc.Title = page.Title
		}
	}

	if strings.TrimSpace(doc.Text) == "" {
		return domain.Document{}, errors.Join(domain.ErrInvalidRequest, errors.New("text or html is required"))
	}
	return doc, nil
}
