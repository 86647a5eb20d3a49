package usecase

import (
	"sort"
	"strings"
)

// Curated brand dictionary for the Turkish hospitality-equipment market.
// Loaded once at init; treated as static configuration.

var internationalBrands = []string{
	"Bosch", "Siemens", "Electrolux", "Whirlpool", "Samsung", "LG",
	"Beko", "Arçelik", "Arcelik", "Miele", "Fagor", "Dito", "Sanyo",
	"Brema", "Perry", "Hicold", "Giox", "Makt", "Vestel", "Altus",
	"Regal", "Simfer", "Karcher", "Kärcher", "Rational", "Comenda",
	"Winterhalter", "Meiko", "Indesit", "Hotpoint", "Candy", "Hoover",
	"Smeg", "Gorenje", "Bertazzoni", "Neff", "AEG", "Zanussi",
	"Bauknecht", "Lacanche", "Falcon", "Moffat", "Convotherm", "Eloma",
	"Abat", "Retigo", "Unox", "Schaerer", "Franke", "Scotsman",
	"Hoshizaki", "Manitowoc", "Ice-O-Matic", "Cornelius", "Lainox",
	"Admiral", "Gram", "Foster", "Fosters", "Williams", "True",
	"Frigor", "Irinox", "Carpigiani", "Nemox", "Taylor", "Bunn",
	"Grindmaster", "Hario", "Chemex", "Aeropress", "Jura", "Saeco",
	"DeLonghi", "Gaggia", "Rancilio", "Hobart",
}

var turkishBrands = []string{
	"Öztiryakiler", "Oztiryakiler", "Özdilek", "Ozdilek", "Kutlutaş",
	"Kutlutas", "Gören", "Goren", "Fakir", "Arnika", "Rowenta", "Tefal",
	"Arzum", "Braun", "Remington", "Sinbo", "Felix", "Kumtel", "Servis",
	"Beykent", "Elica", "Artema", "Grohe", "Hansgrohe", "Vitra",
	"Eczacıbaşı", "Serel", "Kutahya", "Vaillant", "Demirdöküm", "Eca",
	"Protherm", "Viessmann", "Buderus", "Wolf", "Airfel", "Termoteknik",
	"Auer", "Immergas", "Baymak", "Ferroli",
}

var kitchenEquipmentBrands = []string{
	"Robot Coupe", "Foinox", "Mareno", "Olis", "Inoks",
}

var coffeeBrands = []string{
	"La Marzocco", "Nuova Simonelli", "Expobar", "Bezzera", "Astoria",
	"Victoria Arduino", "Rocket", "Profitec", "ECM", "Ascaso", "Solis",
	"Mazzer", "Compak", "Mahlkönig", "Ditting", "Anfim", "Fiorenzato",
	"Macap", "Santos", "Cunill", "Wega", "Elektra", "Faema", "Cimbali",
}

// brandAliases maps shorthand names some sites use to the canonical brand.
var brandAliases = map[string]string{
	"ozer":   "Öztiryakiler",
	"ozti":   "Öztiryakiler",
	"oztiri": "Öztiryakiler",
	"arc":    "Arçelik",
	"agv":    "Arçelik",
	"reg":    "Regal",
	"vest":   "Vestel",
	"alt":    "Altus",
	"bek":    "Beko",
	"fak":    "Fakir",
	"arn":    "Arnika",
	"row":    "Rowenta",
	"tef":    "Tefal",
	"arz":    "Arzum",
	"sin":    "Sinbo",
	"kum":    "Kumtel",
}

// brandNormalization folds spelling variants onto one canonical form.
var brandNormalization = map[string]string{
	"oztiryakiler": "Öztiryakiler",
	"ozti":         "Öztiryakiler",
	"ozer":         "Öztiryakiler",
	"arc":          "Arçelik",
	"arcelik":      "Arçelik",
	"agv":          "Arçelik",
	"vest":         "Vestel",
	"goren":        "Gören",
	"gorenje":      "Gorenje",
	"kutlutas":     "Kutlutaş",
	"ozdilek":      "Özdilek",
	"karcher":      "Kärcher",
}

// descriptivePrefixes are product-title qualifiers that precede the brand and
// must be skipped during brand token scanning.
var descriptivePrefixes = map[string]bool{
	"endüstriyel":  true,
	"endustriyel":  true,
	"endustri":     true,
	"industrial":   true,
	"profesyonel":  true,
	"professional": true,
	"ticari":       true,
	"commercial":   true,
}

// allBrands is the lowercase lookup set over every curated brand list.
var allBrands = buildBrandSet()

// brandVariants is the normalization table's keys in stable order, longest
// first so "arcelik" wins over "arc" when both occur.
var brandVariants = buildBrandVariants()

// brandLookupOrder fixes the scan order of the close-match fallback.
var brandLookupOrder = buildBrandLookupOrder()

func buildBrandLookupOrder() []string {
	order := make([]string, 0, len(allBrands))
	for lower := range allBrands {
		order = append(order, lower)
	}
	sort.Strings(order)
	return order
}

func buildBrandVariants() []string {
	variants := make([]string, 0, len(brandNormalization))
	for v := range brandNormalization {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i]) != len(variants[j]) {
			return len(variants[i]) > len(variants[j])
		}
		return variants[i] < variants[j]
	})
	return variants
}

func buildBrandSet() map[string]string {
	set := make(map[string]string)
	for _, group := range [][]string{
		internationalBrands, turkishBrands, kitchenEquipmentBrands, coffeeBrands,
	} {
		for _, b := range group {
			set[strings.ToLower(b)] = b
		}
	}
	return set
}

// NormalizeBrand maps a raw brand token to its canonical dictionary form.
// Returns "" when the token is not a recognized brand.
func NormalizeBrand(brand string) string {
	if brand == "" {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(brand))

	if canonical, ok := brandNormalization[normalized]; ok {
		return canonical
	}
	if canonical, ok := allBrands[normalized]; ok {
		return canonical
	}

	// Close-match fallback for minor misspellings ("Fagr" -> "Fagor").
	for _, lower := range brandLookupOrder {
		if ratio(normalized, lower) >= 90 {
			return allBrands[lower]
		}
	}
	return ""
}

// IsBrand reports whether a word matches the curated dictionary or alias table.
func IsBrand(word string) bool {
	if word == "" {
		return false
	}
	lower := strings.ToLower(word)
	if _, ok := allBrands[lower]; ok {
		return true
	}
	if _, ok := brandNormalization[lower]; ok {
		return true
	}
	_, ok := brandAliases[lower]
	return ok
}

// resolveAlias returns the canonical brand for a known alias, or "".
func resolveAlias(word string) string {
	return brandAliases[strings.ToLower(word)]
}
