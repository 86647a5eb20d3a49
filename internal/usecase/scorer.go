package usecase

import (
	"sort"
	"strings"

	"github.com/horecawatch/engine/internal/domain"
)

// Component weights for the total match score.
const (
	weightFuzzy    = 0.60
	weightBrand    = 0.25
	weightSKU      = 0.10
	weightCapacity = 0.05
)

// neutralScore is used when a component is unknown on either side, so that
// missing data neither rewards nor punishes a candidate.
const neutralScore = 50.0

// ratio is a sequence-similarity measure on runes: twice the length of the
// longest common subsequence over the combined length, scaled to 0..100.
// Identical strings score exactly 100.
func ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0
	}

	// LCS length by dynamic programming, single rolling row.
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return 200 * float64(prev[lb]) / float64(la+lb)
}

// partialRatio slides the shorter string across the longer one and returns
// the best window ratio, so a name embedded in a longer listing still scores
// high.
func partialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		if len(rb) == 0 {
			return 100
		}
		return 0
	}
	if len(ra) == len(rb) {
		return ratio(string(ra), string(rb))
	}

	short := string(ra)
	best := 0.0
	for i := 0; i+len(ra) <= len(rb); i++ {
		r := ratio(short, string(rb[i:i+len(ra)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// tokenSortRatio compares the two strings with their tokens sorted, making
// the measure insensitive to word order.
func tokenSortRatio(a, b string) float64 {
	return ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// tokenSetRatio compares via the shared-token core: the sorted intersection
// alone, and the intersection extended with each side's remainder. The best
// of the three pairings wins, so extra descriptive words on one side cost
// little.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	var inter, diffA, diffB []string
	for t := range setA {
		if setB[t] {
			inter = append(inter, t)
		} else {
			diffA = append(diffA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			diffB = append(diffB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(diffA)
	sort.Strings(diffB)

	t0 := strings.Join(inter, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(diffA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(diffB, " "))

	best := ratio(t0, t1)
	if r := ratio(t0, t2); r > best {
		best = r
	}
	if r := ratio(t1, t2); r > best {
		best = r
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

// FuzzyScore blends the four string measures. The token-set component gets
// double weight because product listings pad names with filler words.
func FuzzyScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return 0.2*ratio(a, b) +
		0.2*partialRatio(a, b) +
		0.2*tokenSortRatio(a, b) +
		0.4*tokenSetRatio(a, b)
}

// BrandScore compares two extracted brands. Unknown on either side is
// neutral; agreement is decisive, disagreement strongly negative.
func BrandScore(a, b *domain.Brand) float64 {
	if a == nil || b == nil || a.Name == "" || b.Name == "" {
		return neutralScore
	}
	if strings.EqualFold(a.Name, b.Name) {
		return 100
	}
	return 0
}

// SKUScore compares two extracted SKUs. A one-sided substring counts as a
// partial hit since sites truncate or pad model codes.
func SKUScore(a, b string) float64 {
	if a == "" || b == "" {
		return neutralScore
	}
	if strings.EqualFold(a, b) {
		return 100
	}
	ua, ub := strings.ToUpper(a), strings.ToUpper(b)
	if strings.Contains(ua, ub) || strings.Contains(ub, ua) {
		return 75
	}
	return 0
}

// CapacityScore compares two extracted capacities; same kind and value
// within tolerance is a full hit, any disagreement a miss.
func CapacityScore(a, b *domain.Capacity) float64 {
	if a == nil || b == nil {
		return neutralScore
	}
	if a.Equal(*b) {
		return 100
	}
	return 0
}

// TotalScore combines the weighted component scores for two identities into
// a 0..100 confidence value.
func TotalScore(a, b domain.ProductIdentity) (float64, domain.ComponentScores) {
	scores := domain.ComponentScores{
		Fuzzy:    FuzzyScore(a.NormalizedName, b.NormalizedName),
		Brand:    BrandScore(a.Brand, b.Brand),
		SKU:      SKUScore(a.SKU, b.SKU),
		Capacity: CapacityScore(a.Capacity, b.Capacity),
	}
	total := weightFuzzy*scores.Fuzzy +
		weightBrand*scores.Brand +
		weightSKU*scores.SKU +
		weightCapacity*scores.Capacity
	if total > 100 {
		total = 100
	} else if total < 0 {
		total = 0
	}
	return total, scores
}
