package domain

// Matching thresholds on the 0-100 confidence scale.
const (
	HighConfidence = 95.0
	MatchThreshold = 85.0
	LowConfidence  = 70.0
)

// MatchTier classifies a confidence value into the fixed review bands.
type MatchTier int

const (
	TierUnmatched MatchTier = iota
	TierLowConfidence
	TierMatch
	TierHighConfidence
)

func (t MatchTier) String() string {
	switch t {
	case TierHighConfidence:
		return "high_confidence"
	case TierMatch:
		return "match"
	case TierLowConfidence:
		return "low_confidence"
	}
	return "unmatched"
}

// TierFor maps a 0-100 confidence score onto its tier.
func TierFor(confidence float64) MatchTier {
	switch {
	case confidence >= HighConfidence:
		return TierHighConfidence
	case confidence >= MatchThreshold:
		return TierMatch
	case confidence >= LowConfidence:
		return TierLowConfidence
	}
	return TierUnmatched
}

// ComponentScores breaks a total match confidence into its four factors.
type ComponentScores struct {
	Fuzzy    float64 `json:"fuzzy"`
	Brand    float64 `json:"brand"`
	SKU      float64 `json:"sku"`
	Capacity float64 `json:"capacity"`
}

// MatchResult is the outcome of resolving one candidate listing.
// ProductID is nil when no candidate in the pool scored above zero.
type MatchResult struct {
	ProductID  *int64          `json:"productId,omitempty"`
	Confidence float64         `json:"confidence"`
	Tier       MatchTier       `json:"-"`
	Reason     string          `json:"reason"`
	Scores     ComponentScores `json:"scores"`
	Manual     bool            `json:"manual,omitempty"`
}

// Matched reports whether the result identifies a product with confidence at
// or above the match threshold.
func (m MatchResult) Matched() bool {
	return m.ProductID != nil && m.Confidence >= MatchThreshold
}

// ManualMapping is an operator-asserted identity link. It takes absolute
// precedence over computed scores; Confidence is human-asserted and never
// recomputed.
type ManualMapping struct {
	SourceKey       string `json:"sourceKey"`
	TargetProductID int64  `json:"targetProductId"`
	Confidence      int    `json:"confidence"`
	Notes           string `json:"notes,omitempty"`
}

// ResolvedListing pairs an input listing with its match result.
type ResolvedListing struct {
	Listing Listing     `json:"listing"`
	Result  MatchResult `json:"result"`
}

// BatchResult partitions resolved listings into reconciliation buckets.
// Low-confidence entries are flagged for manual review, never auto-accepted.
type BatchResult struct {
	Matched       []ResolvedListing `json:"matched"`
	LowConfidence []ResolvedListing `json:"lowConfidence"`
	Unmatched     []Listing         `json:"unmatched"`
}

// DuplicatePair is a potential duplicate found within a single batch.
type DuplicatePair struct {
	First  Listing `json:"first"`
	Second Listing `json:"second"`
	Score  float64 `json:"score"`
}

// ScoredProduct is one ranked candidate from a best-matches query.
type ScoredProduct struct {
	Product Product         `json:"product"`
	Score   float64         `json:"score"`
	Scores  ComponentScores `json:"scores"`
}
