package tallylib_test

import (
	"testing"

	"github.com/9seconds/geotally/tallylib"
	"github.com/stretchr/testify/assert"
)

func TestAggregateEmpty(t *testing.T) {
	table := tallylib.Aggregate(nil)

	assert.NotNil(t, table)
	assert.Empty(t, table)
	assert.Equal(t, 0, table.Total())
	assert.Empty(t, table.Sorted())
}

func TestAggregateSameCountry(t *testing.T) {
	table := tallylib.Aggregate([]string{"USA", "USA", "USA", "USA", "USA"})

	assert.Equal(t, tallylib.FrequencyTable{"USA": 5}, table)
	assert.Equal(t, 5, table.Total())
}

func TestAggregateSumEqualsLength(t *testing.T) {
	codes := []string{"USA", "AUS", "DEU", "USA", "AUS", "USA", "JPN"}
	table := tallylib.Aggregate(codes)

	assert.Equal(t, len(codes), table.Total())
	assert.Len(t, table, 4)
}

func TestAggregateSorted(t *testing.T) {
	table := tallylib.Aggregate([]string{"DEU", "USA", "AUS", "USA", "AUS", "USA"})

	assert.Equal(t, []tallylib.CountryCount{
		{Alpha3: "USA", Count: 3},
		{Alpha3: "AUS", Count: 2},
		{Alpha3: "DEU", Count: 1},
	}, table.Sorted())
}
