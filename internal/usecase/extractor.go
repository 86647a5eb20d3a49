package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/horecawatch/engine/internal/domain"
)

// Package-level compiled patterns; extraction is pure and allocation-light.
var (
	// Stop words common in industrial/commercial product names, stripped
	// before comparison.
	stopWordRegex = regexp.MustCompile(`\b(?:endustriyel|endüstriyel|profesyonel|ticari|adet|piece|pc|professional|industrial|commercial|sanayi|urun|product|oem|original|genuine)\b`)

	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s\-/]`)
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonWordRegex    = regexp.MustCompile(`[^\p{L}\p{N}]`)
	skuSepRegex     = regexp.MustCompile(`[-_\s]+`)
)

// skuPatterns are tried in order of specificity; first hit wins.
var skuPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b[A-Z]{2,6}[-_]?\d{1,2}[-_]?\d{2,4}\b`),        // CG9-41, TL-900
	regexp.MustCompile(`(?i)\b[A-Z]{2,6}[-_]?\d{4,}\b`),                     // CG941, TL9000
	regexp.MustCompile(`(?i)\b[A-Z]{1,3}\d{3,6}[A-Z]?\b`),                   // F410, TL900
	regexp.MustCompile(`(?i)\b\d{3,6}[-_][A-Z]{2,6}\b`),                     // 900-CG
	regexp.MustCompile(`(?i)(?:MOD|MODEL|TYPE)[:\s]*([A-Z0-9-]+)`),          // MOD: CG9-41
	regexp.MustCompile(`(?i)(?:REF|REFERENCE|KOD|KODU)[:\s]*([A-Z0-9-]+)`),  // REF: TL900
	regexp.MustCompile(`(?i)\b[A-Z]{2,4}\d{2,4}[-_]?\w*\b`),                 // PX87
	regexp.MustCompile(`(?i)\b\d{3,}[A-Z]{2,}\b`),                           // 875DC1E
}

// capacityPatterns are tried in fixed priority order; first hit wins.
var capacityPatterns = []struct {
	re   *regexp.Regexp
	kind domain.CapacityKind
}{
	{regexp.MustCompile(`(?i)(\d+)\s*(?:gözlü|gozlu|g|eye|burner|bac|isi)`), domain.CapacityBurner},
	{regexp.MustCompile(`(?i)(\d+)\s*(mm|cm|m)`), domain.CapacityDimension},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:lt|l|litre|liter|ltr)`), domain.CapacityVolume},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:kg|gr|gram)`), domain.CapacityWeight},
	{regexp.MustCompile(`(?i)(\d+)\s*[xX]\s*(\d+)`), domain.CapacityDimensions},
}

// NormalizeName lowers, strips stop words and punctuation, and collapses
// whitespace, preserving numbers, hyphens, and slashes used in model names.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(name))
	s = stopWordRegex.ReplaceAllString(s, "")
	s = nonAlnumRegex.ReplaceAllString(s, " ")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " -/")
}

// ExtractSKU pulls a model/SKU token out of a product name, normalized to
// uppercase with separators collapsed to single hyphens. Returns "" on miss.
func ExtractSKU(name string) string {
	if name == "" {
		return ""
	}
	for _, re := range skuPatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		sku := m[0]
		if len(m) > 1 && m[1] != "" {
			sku = m[1]
		}
		return skuSepRegex.ReplaceAllString(strings.ToUpper(strings.TrimSpace(sku)), "-")
	}
	return ""
}

// ExtractCapacity pulls the first capacity descriptor from a product name,
// or nil when the name carries none.
func ExtractCapacity(name string) *domain.Capacity {
	if name == "" {
		return nil
	}
	for _, p := range capacityPatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		cap := &domain.Capacity{Kind: p.kind}
		if p.kind == domain.CapacityDimensions {
			cap.Width, _ = strconv.ParseFloat(m[1], 64)
			cap.Height, _ = strconv.ParseFloat(m[2], 64)
			return cap
		}
		cap.Value, _ = strconv.ParseFloat(m[1], 64)
		if len(m) > 2 {
			cap.Unit = strings.ToLower(m[2])
		}
		return cap
	}
	return nil
}

// ExtractBrand checks each token against the curated dictionary and alias
// table, skipping descriptive prefixes. When nothing matches, the first
// capitalized token becomes an unverified guess. Returns nil when no brand
// can be derived at all.
func ExtractBrand(name string) *domain.Brand {
	if name == "" {
		return nil
	}
	fields := strings.Fields(name)

	for _, word := range fields {
		clean := nonWordRegex.ReplaceAllString(word, "")
		if clean == "" || descriptivePrefixes[strings.ToLower(clean)] {
			continue
		}
		if IsBrand(clean) {
			if canonical := NormalizeBrand(clean); canonical != "" {
				return &domain.Brand{Name: canonical, Verified: true}
			}
			if canonical := resolveAlias(clean); canonical != "" {
				return &domain.Brand{Name: canonical, Verified: true}
			}
		}
	}

	// Spelling variants buried mid-name ("...arcelik...").
	lower := strings.ToLower(name)
	for _, variant := range brandVariants {
		if strings.Contains(lower, variant) {
			return &domain.Brand{Name: brandNormalization[variant], Verified: true}
		}
	}

	// Unverified guess: first capitalized non-prefix token.
	for _, word := range fields {
		clean := nonWordRegex.ReplaceAllString(word, "")
		if clean == "" || descriptivePrefixes[strings.ToLower(clean)] {
			continue
		}
		runes := []rune(clean)
		if unicode.IsUpper(runes[0]) {
			return &domain.Brand{Name: capitalize(clean), Verified: false}
		}
		break
	}
	return nil
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ExtractIdentity derives the full feature set for a raw product name.
// Pure and referentially transparent; safe to call from any goroutine.
func ExtractIdentity(name string) domain.ProductIdentity {
	return domain.ProductIdentity{
		RawName:        name,
		NormalizedName: NormalizeName(name),
		Brand:          ExtractBrand(name),
		SKU:            ExtractSKU(name),
		Capacity:       ExtractCapacity(name),
	}
}

// IdentityForListing derives the identity of an incoming listing, preferring
// the fetch collaborator's brand hint over extraction.
func IdentityForListing(l domain.Listing) domain.ProductIdentity {
	id := ExtractIdentity(l.RawName)
	id.Site = l.Site
	id.SourceID = l.SourceID
	if l.Brand != "" {
		if canonical := NormalizeBrand(l.Brand); canonical != "" {
			id.Brand = &domain.Brand{Name: canonical, Verified: true}
		} else {
			id.Brand = &domain.Brand{Name: l.Brand, Verified: false}
		}
	}
	return id
}

// IdentityForProduct derives the identity of a known catalog product.
func IdentityForProduct(p domain.Product) domain.ProductIdentity {
	id := ExtractIdentity(p.NormalizedName)
	if p.Brand != "" {
		id.Brand = &domain.Brand{Name: p.Brand, Verified: true}
	}
	return id
}

// Stock status keyword sets; membership is tested by substring, statuses
// arrive as free-form site text.
var (
	inStockKeywords  = []string{"stokta var", "stokta", "hazır", "in stock", "available", "mevcut", "var"}
	outStockKeywords = []string{"stokta yok", "tükendi", "tukendi", "stok dışı", "yok", "out of stock", "unavailable", "not available"}
	preOrderKeywords = []string{"ön sipariş", "on siparis", "yakında", "coming soon", "pre-order"}
)

// NormalizeStockStatus folds a raw stock string onto one of in_stock,
// out_of_stock, pre_order, or unknown.
func NormalizeStockStatus(status string) string {
	if status == "" {
		return "unknown"
	}
	lower := strings.ToLower(strings.TrimSpace(status))
	for _, k := range outStockKeywords {
		if strings.Contains(lower, k) {
			return "out_of_stock"
		}
	}
	for _, k := range preOrderKeywords {
		if strings.Contains(lower, k) {
			return "pre_order"
		}
	}
	for _, k := range inStockKeywords {
		if strings.Contains(lower, k) {
			return "in_stock"
		}
	}
	return "unknown"
}

var priceCleanRegex = regexp.MustCompile(`[^\d.,\-]`)

// ParsePrice extracts a numeric price from a raw string, handling currency
// symbols and Turkish separators ("1.234,56" -> 1234.56). The bool is false
// when no price can be parsed.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	cleaned := priceCleanRegex.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return decimal.Zero, false
	}

	switch {
	case strings.Contains(cleaned, ",") && strings.Contains(cleaned, "."):
		// Turkish format: dot thousands, comma decimal.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case strings.Contains(cleaned, ","):
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Contains(cleaned, "."):
		parts := strings.Split(cleaned, ".")
		if len(parts) > 2 {
			cleaned = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// categoryKeywords maps name fragments to catalog categories.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"bulaşık makinesi", "dishwasher"},
	{"bulasik makinesi", "dishwasher"},
	{"dishwasher", "dishwasher"},
	{"fırın", "oven"},
	{"firin", "oven"},
	{"oven", "oven"},
	{"buzdolabı", "refrigerator"},
	{"buzdolabi", "refrigerator"},
	{"dolap", "refrigerator"},
	{"refrigerator", "refrigerator"},
	{"kombi", "combi"},
	{"combi", "combi"},
	{"mikrodalga", "microwave"},
	{"microwave", "microwave"},
	{"su ısıtıcı", "kettle"},
	{"kettle", "kettle"},
	{"blender", "blender"},
	{"mutfak robotu", "food_processor"},
	{"food processor", "food_processor"},
	{"çay makinesi", "tea_maker"},
	{"cay makinesi", "tea_maker"},
	{"kahve makinesi", "coffee_maker"},
	{"espresso", "coffee_maker"},
	{"ocak", "cooktop"},
	{"kuzine", "range"},
}

// ExtractCategory guesses a product category from name keywords; "" on miss.
func ExtractCategory(name string) string {
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.category
		}
	}
	return ""
}
