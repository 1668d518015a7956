package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const productPathPrefix = "/tr/product/"

// colorTokens maps the ASCII slug form of Turkish color and variant words
// to their display form.
var colorTokens = map[string]string{
	"titanyum": "Titan",
	"gumus":    "Gümüş",
	"grafit":   "Grafit",
	"mor":      "Mor",
	"mavi":     "Mavi",
	"mavisi":   "Mavi",
	"siyah":    "Siyah",
	"siyahi":   "Siyah",
	"beyaz":    "Beyaz",
	"pembe":    "Pembe",
	"yesil":    "Yeşil",
	"yesili":   "Yeşil",
	"sari":     "Sarı",
	"kirmizi":  "Kırmızı",
	"mint":     "Mint",
	"lacivert": "Lacivert",
	"lila":     "Lila",
	"bej":      "Bej",
	"krem":     "Krem",
	"turuncu":  "Turuncu",
	"altin":    "Altın",
	"acik":     "Açık",
	"5g":       "5G",
}

// removalTokens are slug words that carry no product identity.
var removalTokens = map[string]struct{}{
	"akilli":        {},
	"telefon":       {},
	"akillitelefon": {},
	"gece":          {},
	"dalga":         {},
	"parlak":        {},
	"koyu":          {},
	"yildiz":        {},
	"kasif":         {},
	"firtina":       {},
	"gb":            {},
}

// ramTokens are RAM-size suffix tokens the listing slug appends after the
// storage capacity; the comparison site keys products on storage only.
var ramTokens = map[string]struct{}{
	"4gb": {}, "6gb": {}, "8gb": {}, "16gb": {},
}

var (
	capacitySimple    = regexp.MustCompile(`^(\d+)(gb|tb)$`)
	capacityComposite = regexp.MustCompile(`^(\d{1,2})(\d{3})gb$`)
	capacityTerabyte  = regexp.MustCompile(`^(\d{1,2})(\d{1,2})tb$`)
)

// ProductNameFromURL derives a human-readable product name from a catalog
// URL slug, e.g. "/tr/product/_samsung-galaxy-s25-ultra-256gb-titanyum-
// siyah-1245636.html" -> "Samsung Galaxy S25 Ultra 256 GB Titan Siyah".
// Used only for products not yet in the store; known products keep their
// stored name.
func ProductNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	slug := strings.TrimPrefix(parsed.Path, productPathPrefix)
	slug = strings.TrimLeft(slug, "_")
	slug = strings.TrimSuffix(slug, ".html")

	tokens := strings.Split(slug, "-")
	// Trailing catalog ID is not part of the name.
	if n := len(tokens); n > 0 && isDigits(tokens[n-1]) && len(tokens[n-1]) > 3 {
		tokens = tokens[:n-1]
	}

	var parts []string
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if lower == "" {
			continue
		}
		if _, skip := removalTokens[lower]; skip {
			continue
		}
		if _, skip := ramTokens[lower]; skip {
			continue
		}
		if m := capacityTerabyte.FindStringSubmatch(lower); m != nil {
			parts = append(parts, trimZeros(m[2])+" TB")
			continue
		}
		if m := capacityComposite.FindStringSubmatch(lower); m != nil {
			parts = append(parts, trimZeros(m[2])+" GB")
			continue
		}
		if m := capacitySimple.FindStringSubmatch(lower); m != nil {
			parts = append(parts, trimZeros(m[1])+" "+strings.ToUpper(m[2]))
			continue
		}
		if mapped, ok := colorTokens[lower]; ok {
			parts = append(parts, mapped)
			continue
		}
		parts = append(parts, titleToken(token))
	}

	return strings.Join(parts, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func trimZeros(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(n)
}

// titleToken capitalizes plain words and upper-cases mixed alphanumeric
// model tokens ("s25" -> "S25", "iphone" -> "Iphone").
func titleToken(token string) string {
	lower := strings.ToLower(token)
	hasDigit := strings.ContainsFunc(lower, unicode.IsDigit)
	startsAlpha := len(lower) > 0 && unicode.IsLetter(rune(lower[0]))
	if startsAlpha && hasDigit {
		return strings.ToUpper(lower)
	}
	if !startsAlpha {
		return lower
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}
