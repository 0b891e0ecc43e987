package usecase

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/couponlens/backend/internal/domain"
)

func TestCandidateGenerator_Generate(t *testing.T) {
	generator := NewCandidateGenerator(GeneratorConfig{}, nil)

	testCases := []struct {
		name           string
		input          string
		expectedCodes  []string
		expectedMethod domain.ExtractionMethod
		expectedConf   float64
	}{
		{
			name:           "explicit use code",
			input:          "Use code WELCOME25 at checkout for 25% off at Nykaa",
			expectedCodes:  []string{"WELCOME25"},
			expectedMethod: domain.MethodExplicit,
			expectedConf:   0.9,
		},
		{
			name:           "lowercase explicit code is upper-cased",
			input:          "apply coupon code: save2024x before it ends",
			expectedCodes:  []string{"SAVE2024X"},
			expectedMethod: domain.MethodExplicit,
			expectedConf:   0.9,
		},
		{
			name:           "discount keyword near token",
			input:          "Flat discount with ABC123 this week",
			expectedCodes:  []string{"ABC123"},
			expectedMethod: domain.MethodContextual,
			expectedConf:   0.7,
		},
		{
			name:          "no coupon shaped tokens",
			input:         "Nothing to see here, just a normal sentence.",
			expectedCodes: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			candidates := generator.Generate(tc.input)

			var codes []string
			for _, c := range candidates {
				codes = append(codes, c.Text)
			}
			if strings.Join(codes, ",") != strings.Join(tc.expectedCodes, ",") {
				t.Fatalf("Generate() codes = %v, want %v", codes, tc.expectedCodes)
			}
			if len(candidates) == 0 {
				return
			}

			first := candidates[0]
			if first.Method != tc.expectedMethod {
				t.Errorf("Method = %s, want %s", first.Method, tc.expectedMethod)
			}
			if first.Confidence != tc.expectedConf {
				t.Errorf("Confidence = %.2f, want %.2f", first.Confidence, tc.expectedConf)
			}
			if !strings.EqualFold(tc.input[first.Position:first.Position+len(first.Text)], first.Text) {
				t.Errorf("Position %d does not point at %s", first.Position, first.Text)
			}
		})
	}
}

func TestCandidateGenerator_KeepsHighestConfidence(t *testing.T) {
	generator := NewCandidateGenerator(GeneratorConfig{}, nil)
	text := "Huge discount ABC123 today. Use code ABC123 now"

	candidates := generator.Generate(text)

	if len(candidates) != 1 {
		t.Fatalf("Generate() returned %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Confidence != confidenceExplicit || c.RuleTag != "use_code" {
		t.Errorf("candidate = %+v, want explicit use_code occurrence", c)
	}
	if c.Position != strings.LastIndex(text, "ABC123") {
		t.Errorf("Position = %d, want %d", c.Position, strings.LastIndex(text, "ABC123"))
	}
}

func TestCandidateGenerator_OrdersByConfidence(t *testing.T) {
	generator := NewCandidateGenerator(GeneratorConfig{}, nil)

	candidates := generator.Generate("Grab 20% off with XYZ99 today. Use code MEGA500 at checkout.")

	if len(candidates) != 2 {
		t.Fatalf("Generate() returned %d candidates, want 2", len(candidates))
	}
	if candidates[0].Text != "MEGA500" || candidates[1].Text != "XYZ99" {
		t.Errorf("order = [%s %s], want [MEGA500 XYZ99]", candidates[0].Text, candidates[1].Text)
	}
	if candidates[0].Confidence < candidates[1].Confidence {
		t.Error("candidates not sorted by confidence")
	}
}

func TestCandidateGenerator_MaxCandidates(t *testing.T) {
	generator := NewCandidateGenerator(GeneratorConfig{MaxCandidates: 5}, nil)

	var sb strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&sb, "Use code TRY%02dX now. ", i)
	}

	candidates := generator.Generate(sb.String())

	if len(candidates) != 5 {
		t.Fatalf("Generate() returned %d candidates, want 5", len(candidates))
	}
	for i, c := range candidates {
		if want := fmt.Sprintf("TRY%02dX", i); c.Text != want {
			t.Errorf("candidates[%d] = %s, want %s", i, c.Text, want)
		}
	}
}

func TestContextWindow(t *testing.T) {
	text := "aé1234é"

	w := contextWindow(text, 3, 7, 1)

	if !utf8.ValidString(w.Text) {
		t.Fatalf("window %q is not valid UTF-8", w.Text)
	}
	if w.Text != "é1234é" || w.Start != 1 || w.CodeOffset != 2 {
		t.Errorf("contextWindow() = %+v, want {é1234é 1 2}", w)
	}

	full := contextWindow("CODE", 0, 4, 150)
	if full.Text != "CODE" || full.Start != 0 || full.CodeOffset != 0 {
		t.Errorf("contextWindow() at edges = %+v", full)
	}
}
