package usecase

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTextCleaner_Clean(t *testing.T) {
	cleaner := NewTextCleaner(nil, false)

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "removes links and repeated punctuation", input: "Check https://ex.com/x?y=1 now!!!", expected: "Check now!"},
		{name: "removes emoji", input: "🔥 Use code SAVE50X 🔥", expected: "Use code SAVE50X"},
		{name: "keeps currency and dates", input: "Flat ₹200 off, valid till 31/12/2025", expected: "Flat ₹200 off, valid till 31/12/2025"},
		{name: "strips markup", input: "<p>Use <b>code</b> ABC123</p>", expected: "Use code ABC123"},
		{name: "collapses whitespace", input: "  25%\t\toff \n\n now ", expected: "25% off now"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := cleaner.Clean(tc.input)
			if result != tc.expected {
				t.Errorf("Clean(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestTextCleaner_Sanitize(t *testing.T) {
	cleaner := NewTextCleaner(nil, false)

	result := cleaner.Sanitize("<b>25%</b>   off\n now 🎉")
	if result != "25% off now 🎉" {
		t.Errorf("Sanitize() = %q, want %q", result, "25% off now 🎉")
	}
}

func TestTextCleaner_DebugTrace(t *testing.T) {
	testCases := []struct {
		name      string
		debug     bool
		wantTrace int
	}{
		{name: "silent by default", debug: false, wantTrace: 0},
		{name: "traced when debug logging is enabled", debug: true, wantTrace: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			cleaner := NewTextCleaner(zap.New(core), tc.debug)

			cleaner.Clean("Use code SAVE50X now!!!")

			got := logs.FilterMessage("[CLEAN] text normalized").Len()
			if got != tc.wantTrace {
				t.Errorf("[CLEAN] entries = %d, want %d", got, tc.wantTrace)
			}
		})
	}
}
