// Package refdata loads the brand dictionary, stoplists and keyword tables the
// extraction pipeline judges text against.
package refdata

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/couponlens/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns the embedded reference data
func Default() (*domain.ReferenceData, error) {
	return Parse(defaultYAML)
}

// Load reads reference data from path. An empty path yields the embedded defaults.
func Load(path string) (*domain.ReferenceData, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference data %s: %w", path, err)
	}

	ref, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

// Parse decodes reference data YAML and validates it
func Parse(data []byte) (*domain.ReferenceData, error) {
	var ref domain.ReferenceData
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("decoding reference data: %w", err)
	}

	normalize(&ref)

	if err := validate(&ref); err != nil {
		return nil, fmt.Errorf("invalid reference data: %w", err)
	}
	return &ref, nil
}

// normalize trims entries and drops empty ones so later lookups need not care
func normalize(ref *domain.ReferenceData) {
	for i := range ref.Brands {
		ref.Brands[i].Industry = strings.ToLower(strings.TrimSpace(ref.Brands[i].Industry))
		ref.Brands[i].Names = compact(ref.Brands[i].Names)
		ref.Brands[i].ExactCase = compact(ref.Brands[i].ExactCase)
	}
	for i := range ref.Categories {
		ref.Categories[i].Name = strings.ToLower(strings.TrimSpace(ref.Categories[i].Name))
		ref.Categories[i].Keywords = compact(ref.Categories[i].Keywords)
	}

	ref.CodeStoplist = upper(compact(ref.CodeStoplist))
	ref.TrivialPrefixes = upper(compact(ref.TrivialPrefixes))
	ref.BrandStopwords = compact(ref.BrandStopwords)
	ref.ValidContext = compact(ref.ValidContext)
	ref.InvalidContext = compact(ref.InvalidContext)
	ref.RedFlags = compact(ref.RedFlags)
	ref.GreenFlags = compact(ref.GreenFlags)
	ref.CouponWords = compact(ref.CouponWords)
}

func validate(ref *domain.ReferenceData) error {
	if ref.BrandCount() == 0 {
		return fmt.Errorf("brand dictionary is empty")
	}
	if len(ref.ValidContext) == 0 {
		return fmt.Errorf("valid_context keyword set is empty")
	}
	for _, g := range ref.Brands {
		if g.Industry == "" {
			return fmt.Errorf("brand group without industry")
		}
	}
	for _, pattern := range ref.GreenFlags {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("green flag %q: %w", pattern, err)
		}
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func upper(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToUpper(v)
	}
	return values
}
