package domain

// BrandGroup lists the brand names of one industry. ExactCase names are
// ordinary words as well as brands ("Box", "Nest") and only match with their
// listed capitalization.
type BrandGroup struct {
	Industry  string   `yaml:"industry"`
	Names     []string `yaml:"names"`
	ExactCase []string `yaml:"exact_case"`
}

// CategoryKeywords maps a category to the keywords that indicate it
type CategoryKeywords struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ReferenceData is the read-only vocabulary the pipeline judges text against.
// It is loaded once at startup and injected into components at construction.
type ReferenceData struct {
	Brands          []BrandGroup       `yaml:"brands"`
	CodeStoplist    []string           `yaml:"code_stoplist"`
	TrivialPrefixes []string           `yaml:"trivial_prefixes"`
	BrandStopwords  []string           `yaml:"brand_stopwords"`
	ValidContext    []string           `yaml:"valid_context"`
	InvalidContext  []string           `yaml:"invalid_context"`
	RedFlags        []string           `yaml:"red_flags"`
	GreenFlags      []string           `yaml:"green_flags"`
	CouponWords     []string           `yaml:"coupon_words"`
	Categories      []CategoryKeywords `yaml:"categories"`
}

// BrandCount returns the number of brand names across all industries
func (r *ReferenceData) BrandCount() int {
	n := 0
	for _, g := range r.Brands {
		n += len(g.Names) + len(g.ExactCase)
	}
	return n
}
