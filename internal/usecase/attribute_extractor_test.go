package usecase

import (
	"reflect"
	"testing"
)

func newTestExtractor(t *testing.T) *AttributeExtractor {
	return NewAttributeExtractor(testReference(t), ExtractorConfig{})
}

func TestAttributeExtractor_Percentages(t *testing.T) {
	extractor := newTestExtractor(t)

	testCases := []struct {
		name     string
		input    string
		expected []int
	}{
		{name: "percent off", input: "Get 25% off on your order", expected: []int{25}},
		{name: "multiple values sorted and clamped", input: "Get 25% off, or save 40% on orders above 999, flat 150% cashback", expected: []int{99, 40, 25}},
		{name: "zero clamps to one", input: "Enjoy 0% off", expected: []int{1}},
		{name: "percent word", input: "15 percent off sitewide", expected: []int{15}},
		{name: "bare number is not a percent", input: "Orders above 999 ship free", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := extractor.Percentages(tc.input)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Percentages(%q) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestAttributeExtractor_AmountOff(t *testing.T) {
	extractor := newTestExtractor(t)

	testCases := []struct {
		name             string
		input            string
		expectedAmount   float64
		expectedCurrency string
	}{
		{name: "rupee symbol", input: "Flat ₹200 off on orders", expectedAmount: 200, expectedCurrency: "INR"},
		{name: "dollar with cents", input: "Save $15.50 on your first order", expectedAmount: 15.5, expectedCurrency: "USD"},
		{name: "rs abbreviation", input: "Get Rs. 500 off", expectedAmount: 500, expectedCurrency: "INR"},
		{name: "thousands separator", input: "₹1,299 off today", expectedAmount: 1299, expectedCurrency: "INR"},
		{name: "pound", input: "£10 discount on shoes", expectedAmount: 10, expectedCurrency: "GBP"},
		{name: "no amount", input: "Get 20% off", expectedAmount: 0, expectedCurrency: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amount, currency := extractor.AmountOff(tc.input)
			if amount != tc.expectedAmount || currency != tc.expectedCurrency {
				t.Errorf("AmountOff(%q) = (%v, %q), want (%v, %q)",
					tc.input, amount, currency, tc.expectedAmount, tc.expectedCurrency)
			}
		})
	}
}

func TestAttributeExtractor_Categories(t *testing.T) {
	extractor := newTestExtractor(t)

	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "stemmed keywords ranked by hits", input: "Best sneakers and jeans for your wardrobe, plus a laptop", expected: []string{"fashion", "electronics"}},
		{name: "phrase keyword", input: "Book bus tickets now", expected: []string{"travel", "entertainment"}},
		{name: "inflected keyword", input: "Glowing skincare for everyone", expected: []string{"beauty"}},
		{name: "no category", input: "Use this code today", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := extractor.Categories(tc.input)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Categories(%q) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestAttributeExtractor_TopCategories(t *testing.T) {
	extractor := NewAttributeExtractor(testReference(t), ExtractorConfig{TopCategories: 1})

	result := extractor.Categories("Best sneakers and jeans for your wardrobe, plus a laptop")
	if !reflect.DeepEqual(result, []string{"fashion"}) {
		t.Errorf("Categories() = %v, want [fashion]", result)
	}
}

func TestAttributeExtractor_ExpiryDates(t *testing.T) {
	extractor := newTestExtractor(t)

	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "numeric day first", input: "Use code X, valid till 31/12/2025", expected: []string{"31/12/2025"}},
		{name: "numeric month first", input: "Sale ends 12/31/2025", expected: []string{"12/31/2025"}},
		{name: "day and month name", input: "Offer valid until 15 March 2025", expected: []string{"15 March 2025"}},
		{name: "month name and ordinal", input: "Expires Dec 5th, 2025", expected: []string{"Dec 5th, 2025"}},
		{name: "implausible date", input: "valid till 45/45/2025", expected: nil},
		{name: "date without expiry phrase", input: "Posted on 01/02/2025", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := extractor.ExpiryDates(tc.input)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("ExpiryDates(%q) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestAttributeExtractor_Extract(t *testing.T) {
	extractor := newTestExtractor(t)

	attrs := extractor.Extract("Use code WELCOME25 at checkout for 25% off at Nykaa skincare, valid till 31/12/2025")

	if !reflect.DeepEqual(attrs.Percentages, []int{25}) {
		t.Errorf("Percentages = %v, want [25]", attrs.Percentages)
	}
	if !reflect.DeepEqual(attrs.Categories, []string{"beauty"}) {
		t.Errorf("Categories = %v, want [beauty]", attrs.Categories)
	}
	if !reflect.DeepEqual(attrs.ExpiryDates, []string{"31/12/2025"}) {
		t.Errorf("ExpiryDates = %v, want [31/12/2025]", attrs.ExpiryDates)
	}
	if attrs.AmountOff != 0 {
		t.Errorf("AmountOff = %v, want 0", attrs.AmountOff)
	}
}

func TestStemCache(t *testing.T) {
	cache := newStemCache("english")

	if got := cache.Stem("sneakers"); got != "sneaker" {
		t.Errorf("Stem(sneakers) = %q, want sneaker", got)
	}
	if got := cache.Stem("sneakers"); got != "sneaker" {
		t.Errorf("cached Stem(sneakers) = %q, want sneaker", got)
	}
}
