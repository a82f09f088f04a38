package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bikeshare-analytics/internal/analysis"
	"bikeshare-analytics/internal/record"
)

// NoData replaces a column that has no qualifying trips to average or rank.
const NoData = "No location data available"

const oneWayCategory = `"One Way"`

// Header is the first line of the report file.
var Header = []string{
	"station id",
	"station name",
	"total number of trips",
	"average trip duration (time)",
	"average distance",
	"max trip duration (time)",
	"max distance",
	"percent one-way trips",
	"difference between departing trips and destinations",
}

// Row is the summary of one station. Nil statistics had no qualifying trips.
type Row struct {
	StationID     int      `json:"station_id"`
	StationName   string   `json:"station_name"`
	TotalTrips    int      `json:"total_trips"`
	AvgDuration   *float64 `json:"avg_duration_seconds"`
	AvgDistance   *float64 `json:"avg_distance"`
	MaxDuration   *int     `json:"max_duration_seconds"`
	MaxDistance   *float64 `json:"max_distance"`
	PercentOneWay *float64 `json:"percent_one_way"`
	Imbalance     int      `json:"imbalance"`
}

// Record renders the row in report column order.
func (r Row) Record() []string {
	return []string{
		strconv.Itoa(r.StationID),
		r.StationName,
		strconv.Itoa(r.TotalTrips),
		formatFloat(r.AvgDuration, "%.3f"),
		formatFloat(r.AvgDistance, "%.3f"),
		formatInt(r.MaxDuration),
		formatFloat(r.MaxDistance, "%.3f"),
		formatFloat(r.PercentOneWay, "%.3f%%"),
		strconv.Itoa(r.Imbalance),
	}
}

func formatFloat(v *float64, layout string) string {
	if v == nil {
		return NoData
	}
	return fmt.Sprintf(layout, *v)
}

func formatInt(v *int) string {
	if v == nil {
		return NoData
	}
	return strconv.Itoa(*v)
}

type stationStats struct {
	total      int
	startsOnly int
	endsOnly   int

	departures  int
	oneWay      int
	duration    welford
	maxDuration int
	distance    welford
	maxDistance float64
}

// Build summarises every station in station order with a single pass over trips.
func Build(stations []record.Station, trips []record.Trip) []Row {
	stats := make(map[int]*stationStats, len(stations))
	get := func(id int) *stationStats {
		s, ok := stats[id]
		if !ok {
			s = &stationStats{}
			stats[id] = s
		}
		return s
	}

	for _, t := range trips {
		from := get(t.StartStationID)
		from.departures++
		from.duration.add(float64(t.DurationSeconds))
		if from.departures == 1 || t.DurationSeconds > from.maxDuration {
			from.maxDuration = t.DurationSeconds
		}
		if strings.EqualFold(t.RouteCategory, oneWayCategory) {
			from.oneWay++
		}
		if d, ok := analysis.TripDistance(t); ok {
			from.distance.add(d)
			if d > from.maxDistance {
				from.maxDistance = d
			}
		}

		if t.StartStationID == t.EndStationID {
			from.total++
			continue
		}
		to := get(t.EndStationID)
		from.total++
		to.total++
		from.startsOnly++
		to.endsOnly++
	}

	rows := make([]Row, 0, len(stations))
	for _, st := range stations {
		row := Row{StationID: st.ID, StationName: st.Name}
		if s, ok := stats[st.ID]; ok {
			row.TotalTrips = s.total
			row.Imbalance = s.startsOnly - s.endsOnly
			if s.departures > 0 {
				avg := s.duration.mean
				maxDur := s.maxDuration
				pct := 100 * float64(s.oneWay) / float64(s.departures)
				row.AvgDuration, row.MaxDuration, row.PercentOneWay = &avg, &maxDur, &pct
			}
			if s.distance.n > 0 {
				avg := s.distance.mean
				maxDist := s.maxDistance
				row.AvgDistance, row.MaxDistance = &avg, &maxDist
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the header and one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write station %d: %w", r.StationID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// WriteFile creates or truncates path and writes the report to it.
func WriteFile(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	return nil
}
