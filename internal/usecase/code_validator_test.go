package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/couponlens/backend/internal/domain"
)

func newTestValidator(t *testing.T, requireMixed bool) *CodeValidator {
	ref := testReference(t)
	return NewCodeValidator(ref, NewBrandDictionary(ref.Brands), ValidatorConfig{RequireMixed: requireMixed}, nil)
}

func TestCodeValidator_ValidateCode(t *testing.T) {
	validator := newTestValidator(t, true)

	testCases := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "mixed code", code: "WELCOME25", wantErr: false},
		{name: "lowercase is normalized", code: "nykaa20x", wantErr: false},
		{name: "trivial prefix with long number", code: "SAVE2024", wantErr: false},
		{name: "with separators", code: "FLAT-50_NEW", wantErr: false},
		{name: "trivial prefix with short number", code: "SAVE20", wantErr: true},
		{name: "stoplist word plus digits", code: "SUBSCRIBE20", wantErr: true},
		{name: "stoplist word", code: "SUBSCRIBE", wantErr: true},
		{name: "too short", code: "A1", wantErr: true},
		{name: "too long", code: strings.Repeat("AB1", 9), wantErr: true},
		{name: "identical characters", code: "AAAA", wantErr: true},
		{name: "identical digits", code: "111111", wantErr: true},
		{name: "invalid characters", code: "ABC$12", wantErr: true},
		{name: "year", code: "2024", wantErr: true},
		{name: "ordinal date", code: "31ST", wantErr: true},
		{name: "percent shape", code: "50OFF", wantErr: true},
		{name: "month and digits", code: "JAN2025", wantErr: true},
		{name: "letters only", code: "HELLOWORLD", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.ValidateCode(tc.code)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateCode(%q) error = %v, wantErr %v", tc.code, err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidationRejection) {
				t.Errorf("ValidateCode(%q) error = %v, want ErrValidationRejection", tc.code, err)
			}
		})
	}
}

func TestCodeValidator_RelaxedMode(t *testing.T) {
	validator := newTestValidator(t, false)

	if err := validator.ValidateCode("HELLOWORLD"); err != nil {
		t.Errorf("relaxed ValidateCode(HELLOWORLD) error = %v", err)
	}
	if err := validator.ValidateCode("SUBSCRIBE20"); err == nil {
		t.Error("relaxed mode must still enforce the stoplist")
	}
}

func TestCodeValidator_CheckContext(t *testing.T) {
	validator := newTestValidator(t, true)

	testCases := []struct {
		name    string
		window  string
		wantErr bool
	}{
		{name: "promotional window", window: "Use code WELCOME25 at checkout for 25% off", wantErr: false},
		{name: "brand with one keyword", window: "Nykaa XYZ123 offer", wantErr: false},
		{name: "only invalid terms", window: "Subscribe and hit the bell, cookie run kingdom XYZ123", wantErr: true},
		{name: "too many invalid terms", window: "promo XYZ123 code subscribe channel video", wantErr: true},
		{name: "single keyword without brand", window: "grab XYZ123 deal", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.CheckContext(domain.ContextWindow{Text: tc.window})
			if (err != nil) != tc.wantErr {
				t.Fatalf("CheckContext(%q) error = %v, wantErr %v", tc.window, err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrContextRejection) {
				t.Errorf("CheckContext(%q) error = %v, want ErrContextRejection", tc.window, err)
			}
		})
	}
}

func TestCodeValidator_Validate(t *testing.T) {
	validator := newTestValidator(t, true)
	window := "Subscribe to the channel and like the video, code SUBSCRIBE20 for 20% off at Nykaa"

	err := validator.Validate(domain.CandidateCode{
		Text:    "SUBSCRIBE20",
		Context: domain.ContextWindow{Text: window, CodeOffset: strings.Index(window, "SUBSCRIBE20")},
	})
	if !errors.Is(err, domain.ErrValidationRejection) {
		t.Errorf("Validate() error = %v, want ErrValidationRejection", err)
	}
}
