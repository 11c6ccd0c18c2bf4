package tallylib

import "sort"

// FrequencyTable maps alpha-3 code to a number of addresses resolved
// to this country. It contains only codes which were seen at least
// once.
type FrequencyTable map[string]int

// CountryCount is a single row of the table.
type CountryCount struct {
	Alpha3 string `json:"alpha3_code"`
	Count  int    `json:"count"`
}

// Total returns a sum of all counters.
func (f FrequencyTable) Total() int {
	total := 0

	for _, v := range f {
		total += v
	}

	return total
}

// Sorted returns rows ordered by count (descending) and then by code.
func (f FrequencyTable) Sorted() []CountryCount {
	rv := make([]CountryCount, 0, len(f))

	for k, v := range f {
		rv = append(rv, CountryCount{Alpha3: k, Count: v})
	}

	sort.Slice(rv, func(i, j int) bool {
		if rv[i].Count != rv[j].Count {
			return rv[i].Count > rv[j].Count
		}

		return rv[i].Alpha3 < rv[j].Alpha3
	})

	return rv
}

// Aggregate counts occurrences of each code.
func Aggregate(codes []string) FrequencyTable {
	rv := FrequencyTable{}

	for _, v := range codes {
		rv[v]++
	}

	return rv
}
