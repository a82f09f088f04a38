package analysis

import "bikeshare-analytics/internal/record"

// Pseudo-epoch constants. The result orders timestamps within a dataset but
// is not calendar time: months are a fixed 31 days and years a fixed
// 977616000 seconds.
const (
	epochBaseYear    = 2016
	secondsPerYear   = 977616000
	secondsPerMonth  = 2678400
	secondsPerDay    = 86400
	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// PseudoEpoch converts a decomposed timestamp into the approximate seconds
// value used to compare trip times and go-live dates.
func PseudoEpoch(ts record.Timestamp) int64 {
	return int64(ts.Year-epochBaseYear)*secondsPerYear +
		int64(ts.Month)*secondsPerMonth +
		int64(ts.Day)*secondsPerDay +
		int64(ts.Hour)*secondsPerHour +
		int64(ts.Minute)*secondsPerMinute +
		int64(ts.Second)
}

func dateEpoch(d record.Date) int64 {
	return PseudoEpoch(record.Timestamp{Year: d.Year, Month: d.Month, Day: d.Day})
}

// BuildTimeIndices maps each trip id to its start and end pseudo-epoch.
func BuildTimeIndices(trips []record.Trip) (start, end map[int]int64) {
	start = make(map[int]int64, len(trips))
	end = make(map[int]int64, len(trips))
	for _, t := range trips {
		start[t.ID] = PseudoEpoch(t.Start)
		end[t.ID] = PseudoEpoch(t.End)
	}
	return start, end
}

// BuildPositionIndex gives every station the start position of the first trip
// (in slice order) that departs from it. Stations nobody departs from get an
// invalid position, so every station id has an entry.
func BuildPositionIndex(stations []record.Station, trips []record.Trip) map[int]record.Position {
	first := make(map[int]record.Position)
	for _, t := range trips {
		if _, seen := first[t.StartStationID]; !seen {
			first[t.StartStationID] = t.StartPos
		}
	}
	idx := make(map[int]record.Position, len(stations))
	for _, s := range stations {
		idx[s.ID] = first[s.ID]
	}
	return idx
}
