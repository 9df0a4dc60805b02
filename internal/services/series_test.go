package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeakFirstOccurrence(t *testing.T) {
	s := RateSeries{Well: "W1", Records: []Record{
		{Date: seriesStart, Rate: 10},
		{Date: seriesStart.AddDate(0, 1, 0), Rate: 50},
		{Date: seriesStart.AddDate(0, 2, 0), Rate: 50},
		{Date: seriesStart.AddDate(0, 3, 0), Rate: 20},
	}}
	idx, peak, err := s.Peak()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, seriesStart.AddDate(0, 1, 0), peak.Date)

	pre, post, _, err := s.SplitAtPeak()
	require.NoError(t, err)
	assert.Len(t, pre, 1)
	assert.Len(t, post, 3)
	assert.Equal(t, peak, post[0])
}

func TestValidateSeries(t *testing.T) {
	assert.ErrorIs(t, RateSeries{}.Validate(), ErrEmptySeries)

	bad := RateSeries{Records: []Record{{Date: seriesStart, Rate: 10}, {Date: seriesStart, Rate: 5}}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSeries)

	neg := RateSeries{Records: []Record{{Date: seriesStart, Rate: -1}}}
	assert.ErrorIs(t, neg.Validate(), ErrInvalidSeries)

	assert.NoError(t, syntheticSeries("W1", 1000, 0.1, 0.5, 6).Validate())
}

func TestElapsedMonths(t *testing.T) {
	origin := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []Record{
		{Date: origin},
		{Date: origin.AddDate(0, 1, 0)},
		{Date: origin.AddDate(1, 0, 0)},
		{Date: origin.Add(36 * time.Hour)}, // 1.5 hari -> 1 hari
	}
	got := ElapsedMonths(recs, origin)
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, 31/DaysPerMonth, got[1], 1e-12)
	assert.InDelta(t, 365/DaysPerMonth, got[2], 1e-12)
	assert.InDelta(t, 1/DaysPerMonth, got[3], 1e-12)
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2022-03-01", "2022/03/01", "03/01/2022", "2022-03-01T00:00:00Z", "2022-03"} {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), d, in)
	}
	_, err := ParseDate("next tuesday")
	assert.Error(t, err)
	_, err = ParseDate("  ")
	assert.Error(t, err)
}

func TestBuildRateSeriesCleansRows(t *testing.T) {
	rows := []ProductionRecord{
		{WellID: "A", Date: "2022-03-01", Oil: 300, Days: 30},
		{WellID: "A", Date: "2022-01-01", Oil: 310, Days: 31},
		{WellID: "A", Date: "2022-02-01", Oil: 0, Days: 28},  // rate nol dibuang
		{WellID: "A", Date: "2022-04-01", Oil: 100, Days: 0}, // days nol -> NaN dibuang
		{WellID: "A", Date: "2022-03-01", Oil: 330, Days: 30}, // duplikat, baris terakhir menang
	}
	s, err := BuildRateSeries("A", rows)
	require.NoError(t, err)
	require.Len(t, s.Records, 2)
	assert.Equal(t, 10.0, s.Records[0].Rate)
	assert.Equal(t, 11.0, s.Records[1].Rate)
	assert.NoError(t, s.Validate())

	_, err = BuildRateSeries("A", []ProductionRecord{{WellID: "A", Date: "garbage", Oil: 1, Days: 1}})
	assert.ErrorContains(t, err, "row 1")
}

func TestBuildRateSeriesInvalidDuplicateKeepsValidRow(t *testing.T) {
	rows := []ProductionRecord{
		{WellID: "A", Date: "2022-01-01", Oil: 300, Days: 30},
		{WellID: "A", Date: "2022-01-01", Oil: 0, Days: 30},   // duplikat nol: dibuang sebelum dedup
		{WellID: "A", Date: "2022-02-01", Oil: 280, Days: 28},
		{WellID: "A", Date: "2022-02-01", Oil: 100, Days: 0},  // duplikat NaN
		{WellID: "A", Date: "2022-02-01", Oil: 560, Days: 28}, // valid terakhir menang
	}
	s, err := BuildRateSeries("A", rows)
	require.NoError(t, err)
	require.Len(t, s.Records, 2)
	assert.Equal(t, 10.0, s.Records[0].Rate)
	assert.Equal(t, 20.0, s.Records[1].Rate)
}

func TestGroupByWellSorted(t *testing.T) {
	rows := []ProductionRecord{
		{WellID: "W-2", Date: "2022-01-01", Oil: 1, Days: 1},
		{WellID: "", Date: "2022-01-01", Oil: 1, Days: 1},
		{WellID: "W-1", Date: "2022-01-01", Oil: 1, Days: 1},
		{WellID: " W-2 ", Date: "2022-02-01", Oil: 1, Days: 1},
	}
	wells := GroupByWell(rows)
	require.Len(t, wells, 2)
	assert.Equal(t, "W-1", wells[0].WellID())
	assert.Equal(t, "W-2", wells[1].WellID())

	s, err := wells[1].Series()
	require.NoError(t, err)
	assert.Len(t, s.Records, 2)
}
