package services

import "time"

var seriesStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// syntheticSeries: tiga bulan ramp-up lalu decline Arps tanpa noise sepanjang months bulan.
func syntheticSeries(well string, qi, di, b float64, months int) RateSeries {
	s := RateSeries{Well: well}
	for i, f := range []float64{0.4, 0.7, 0.9} {
		s.Records = append(s.Records, Record{Date: seriesStart.AddDate(0, i, 0), Rate: qi * f})
	}
	peak := seriesStart.AddDate(0, 3, 0)
	for k := 0; k < months; k++ {
		d := peak.AddDate(0, k, 0)
		t := ElapsedMonths([]Record{{Date: d}}, peak)[0]
		s.Records = append(s.Records, Record{Date: d, Rate: ArpsRate(qi, di, b, t)})
	}
	return s
}

func shortSeries(well string) RateSeries {
	return RateSeries{Well: well, Records: []Record{
		{Date: seriesStart, Rate: 100},
		{Date: seriesStart.AddDate(0, 1, 0), Rate: 200},
		{Date: seriesStart.AddDate(0, 2, 0), Rate: 300},
		{Date: seriesStart.AddDate(0, 3, 0), Rate: 250},
	}}
}
