package tallylib

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pariz/gountries"
	"github.com/xrash/smetrics"
)

const (
	// DefaultNormalizerCacheSize is a number of memoized name
	// conversions.
	DefaultNormalizerCacheSize = 1024

	fuzzyPhoneticThreshold = 0.9
	fuzzyScanThreshold     = 0.95
	fuzzyBoostThreshold    = 0.7
	fuzzyPrefixSize        = 4

	// best fuzzy candidate has to beat a candidate of another country
	// at least by this score.
	fuzzyAmbiguityMargin = 0.02
)

var (
	countryCodeQuery = gountries.New()

	// normalized name or code -> alpha3
	countryNameIndex = map[string]string{}

	// primary double metaphone key -> normalized names
	countryPhoneticIndex = map[string][]string{}

	// normalized names which could mean more than one country. They are
	// never converted: a dataset has to be more specific.
	countryAmbiguousNames = map[string]bool{
		"virgin islands": true,
		"korea":          true,
	}

	// names which are used by popular geolocation databases and are
	// absent in gountries. Names are normalized.
	countryNameAliases = [][2]string{
		{"bolivia plurinational state of", "BOL"},
		{"brunei darussalam", "BRN"},
		{"burma", "MMR"},
		{"cabo verde", "CPV"},
		{"cape verde", "CPV"},
		{"congo the democratic republic of the", "COD"},
		{"democratic republic of the congo", "COD"},
		{"dr congo", "COD"},
		{"congo", "COG"},
		{"republic of the congo", "COG"},
		{"cote divoire", "CIV"},
		{"côte divoire", "CIV"},
		{"ivory coast", "CIV"},
		{"czech republic", "CZE"},
		{"czechia", "CZE"},
		{"east timor", "TLS"},
		{"timor leste", "TLS"},
		{"eswatini", "SWZ"},
		{"swaziland", "SWZ"},
		{"great britain", "GBR"},
		{"holy see", "VAT"},
		{"holy see vatican city state", "VAT"},
		{"vatican city", "VAT"},
		{"hong kong", "HKG"},
		{"iran", "IRN"},
		{"iran islamic republic of", "IRN"},
		{"korea democratic peoples republic of", "PRK"},
		{"north korea", "PRK"},
		{"korea republic of", "KOR"},
		{"republic of korea", "KOR"},
		{"south korea", "KOR"},
		{"lao peoples democratic republic", "LAO"},
		{"laos", "LAO"},
		{"macao", "MAC"},
		{"macau", "MAC"},
		{"macedonia", "MKD"},
		{"macedonia the former yugoslav republic of", "MKD"},
		{"north macedonia", "MKD"},
		{"micronesia federated states of", "FSM"},
		{"moldova republic of", "MDA"},
		{"palestine", "PSE"},
		{"palestine state of", "PSE"},
		{"palestinian territory", "PSE"},
		{"russian federation", "RUS"},
		{"syrian arab republic", "SYR"},
		{"taiwan province of china", "TWN"},
		{"tanzania united republic of", "TZA"},
		{"turkiye", "TUR"},
		{"türkiye", "TUR"},
		{"united states of america", "USA"},
		{"venezuela bolivarian republic of", "VEN"},
		{"viet nam", "VNM"},
		{"vietnam", "VNM"},
		{"united kingdom of great britain and northern ireland", "GBR"},
		{"virgin islands british", "VGB"},
		{"british virgin islands", "VGB"},
		{"virgin islands u s", "VIR"},
		{"us virgin islands", "VIR"},
		{"u s virgin islands", "VIR"},
	}
)

// Country is a short description of the country.
type Country struct {
	Alpha2       string `json:"alpha2_code"`
	Alpha3       string `json:"alpha3_code"`
	CommonName   string `json:"common_name"`
	OfficialName string `json:"official_name"`
}

type normalizerMemo struct {
	alpha3 string
	ok     bool
}

// Normalizer converts country names (as they come from geolocation
// datasets) into ISO 3166-1 alpha-3 codes.
//
// Conversion goes through 3 steps:
//
//     1. Exact (case-insensitive) match of common or official name,
//        alpha-2 or alpha-3 code.
//     2. A table of aliases: datasets like to use names such as
//        'Korea, Republic of' or 'Viet Nam'.
//     3. Fuzzy match: candidates with the same double metaphone code
//        are ranked with Jaro-Winkler similarity.
//
// Names which could mean several countries ('Virgin Islands') are not
// converted at all. The same goes for fuzzy matches if the runner-up is
// another country with almost the same score.
//
// Results are memoized. Normalizer is safe for concurrent use.
type Normalizer struct {
	memo *lru.Cache
}

// Alpha3 converts a country name into alpha-3 code.
func (n *Normalizer) Alpha3(name string) (string, bool) {
	key := normalizeCountryName(name)
	if key == "" {
		return "", false
	}

	if value, ok := n.memo.Get(key); ok {
		memo := value.(normalizerMemo)

		return memo.alpha3, memo.ok
	}

	alpha3, ok := n.lookup(key)

	n.memo.Add(key, normalizerMemo{alpha3: alpha3, ok: ok})

	return alpha3, ok
}

// Alpha2ToAlpha3 maps 2-letter ISO3166 code to 3-letter one. Given
// code is normalized with NormalizeAlpha2Code.
func (n *Normalizer) Alpha2ToAlpha3(alpha2 string) (string, bool) {
	alpha2 = NormalizeAlpha2Code(alpha2)
	if alpha2 == "" {
		return "", false
	}

	country, ok := countryCodeQuery.Countries[alpha2]
	if !ok || country.Alpha3 == "" {
		return "", false
	}

	return strings.ToUpper(country.Alpha3), true
}

// Country returns details of the country by its alpha-3 code.
func (n *Normalizer) Country(alpha3 string) (Country, bool) {
	alpha2, ok := countryCodeQuery.Alpha3ToAlpha2[strings.ToUpper(alpha3)]
	if !ok {
		return Country{}, false
	}

	details, ok := countryCodeQuery.Countries[alpha2]
	if !ok {
		return Country{}, false
	}

	return Country{
		Alpha2:       strings.ToUpper(details.Alpha2),
		Alpha3:       strings.ToUpper(details.Alpha3),
		CommonName:   details.Name.Common,
		OfficialName: details.Name.Official,
	}, true
}

func (n *Normalizer) lookup(key string) (string, bool) {
	if countryAmbiguousNames[key] {
		return "", false
	}

	if alpha3, ok := countryNameIndex[key]; ok {
		return alpha3, true
	}

	primary, _ := matchr.DoubleMetaphone(key)

	if alpha3, ok := bestCountryMatch(key, countryPhoneticIndex[primary], fuzzyPhoneticThreshold); ok {
		return alpha3, true
	}

	return bestCountryMatch(key, allCountryNames(), fuzzyScanThreshold)
}

// NewNormalizer creates a new normalizer with a memoization cache of
// the given size.
func NewNormalizer(cacheSize int) (*Normalizer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultNormalizerCacheSize
	}

	memo, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("cannot create a cache: %w", err)
	}

	return &Normalizer{
		memo: memo,
	}, nil
}

// NormalizeAlpha2Code returns a normalized 2-letter ISO3166 code.
// Normalized code is uppercased with some additional mapping. For
// example, some databases return ZZ as 'unknown' country. This function
// returns "" instead. Some databases still map Serbia to YU. This
// correctly maps YU to CS.
func NormalizeAlpha2Code(alpha2 string) string {
	alpha2 = strings.ToUpper(strings.TrimSpace(alpha2))

	if len(alpha2) != 2 {
		return ""
	}

	switch alpha2 {
	case "ZZ", "AP", "EU":
		return ""
	case "YU":
		return "CS"
	case "FX":
		return "FR"
	case "UK":
		return "GB"
	default:
		return alpha2
	}
}

// AllCountries returns all countries known to normalizer sorted by
// alpha-3 code.
func AllCountries() []Country {
	rv := make([]Country, 0, len(countryCodeQuery.Countries))

	for _, v := range countryCodeQuery.Countries {
		if v.Alpha3 == "" {
			continue
		}

		rv = append(rv, Country{
			Alpha2:       strings.ToUpper(v.Alpha2),
			Alpha3:       strings.ToUpper(v.Alpha3),
			CommonName:   v.Name.Common,
			OfficialName: v.Name.Official,
		})
	}

	sort.Slice(rv, func(i, j int) bool {
		return rv[i].Alpha3 < rv[j].Alpha3
	})

	return rv
}

// bestCountryMatch returns a country of the most similar candidate.
// There is no match if another country is almost as similar or if a
// key and a candidate differ only by trailing words: 'Netherlands
// Antilles' is not a misspelled 'Netherlands'.
func bestCountryMatch(key string, candidates []string, threshold float64) (string, bool) {
	bestScore, runnerUpScore := 0.0, 0.0
	bestName := ""

	for _, v := range candidates {
		if strings.HasPrefix(key, v+" ") || strings.HasPrefix(v, key+" ") {
			continue
		}

		score := smetrics.JaroWinkler(key, v, fuzzyBoostThreshold, fuzzyPrefixSize)

		switch {
		case bestName == "" || score > bestScore || (score == bestScore && v < bestName):
			if bestName != "" && countryNameIndex[bestName] != countryNameIndex[v] {
				runnerUpScore = bestScore
			}

			bestScore = score
			bestName = v
		case countryNameIndex[v] != countryNameIndex[bestName] && score > runnerUpScore:
			runnerUpScore = score
		}
	}

	if bestName == "" || bestScore < threshold || bestScore-runnerUpScore < fuzzyAmbiguityMargin {
		return "", false
	}

	return countryNameIndex[bestName], true
}

func allCountryNames() []string {
	rv := []string{}

	for _, names := range countryPhoneticIndex {
		rv = append(rv, names...)
	}

	return rv
}

func normalizeCountryName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("'", "", "’", "", "&", " and ").Replace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', '(', ')', '-', '_', '/':
			return ' '
		}

		return r
	}, name)

	return strings.Join(strings.Fields(name), " ")
}

func init() {
	alpha2Codes := make([]string, 0, len(countryCodeQuery.Countries))

	for k := range countryCodeQuery.Countries {
		alpha2Codes = append(alpha2Codes, k)
	}

	sort.Strings(alpha2Codes)

	for _, alpha2 := range alpha2Codes {
		country := countryCodeQuery.Countries[alpha2]

		alpha3 := strings.ToUpper(country.Alpha3)
		if alpha3 == "" {
			continue
		}

		for _, code := range []string{country.Alpha2, country.Alpha3} {
			if code = normalizeCountryName(code); code != "" {
				countryNameIndex[code] = alpha3
			}
		}

		for _, name := range []string{country.Name.Common, country.Name.Official} {
			name = normalizeCountryName(name)
			if name == "" {
				continue
			}

			if known, ok := countryNameIndex[name]; ok {
				if known != alpha3 {
					countryAmbiguousNames[name] = true
				}

				continue
			}

			countryNameIndex[name] = alpha3
		}
	}

	for name := range countryAmbiguousNames {
		delete(countryNameIndex, name)
	}

	for _, v := range countryNameAliases {
		countryNameIndex[v[0]] = v[1]
		delete(countryAmbiguousNames, v[0])
	}

	for name := range countryNameIndex {
		if len(name) <= 3 {
			continue
		}

		primary, _ := matchr.DoubleMetaphone(name)
		countryPhoneticIndex[primary] = append(countryPhoneticIndex[primary], name)
	}

	for _, names := range countryPhoneticIndex {
		sort.Strings(names)
	}
}
