package domain

import "errors"

var (
	// ErrValidationRejection is returned when a candidate code fails a structural or stoplist rule
	ErrValidationRejection = errors.New("candidate code failed validation")

	// ErrContextRejection is returned when the context window lacks promotional support
	ErrContextRejection = errors.New("insufficient contextual support for code")

	// ErrBrandUnresolved is returned when no brand can be linked to a candidate
	ErrBrandUnresolved = errors.New("no brand resolved for code")

	// ErrLowConfidence is returned when the candidate confidence is below the threshold
	ErrLowConfidence = errors.New("candidate confidence below threshold")

	// ErrDuplicateRejection is returned when the code+brand key was already emitted
	ErrDuplicateRejection = errors.New("code and brand already recorded")

	// ErrArtifactParse is returned for a malformed line or row in a historical artifact
	ErrArtifactParse = errors.New("malformed historical artifact entry")

	// ErrDocumentGated is returned when the document is not coupon-shaped
	ErrDocumentGated = errors.New("document rejected by coupon content gate")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrStoreUnavailable is returned when the dedup persistence backend fails
	ErrStoreUnavailable = errors.New("dedup store unavailable")
)
