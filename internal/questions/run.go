package questions

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"bikeshare-analytics/internal/analysis"
	"bikeshare-analytics/internal/record"
)

// Engine is the query surface the question list needs.
type Engine interface {
	TripsByType(routeType string, year int) int
	StationsByStatus(status string, year int) int
	TripsByDestination(name string) (analysis.Ratio, error)
	BusiestMonthForPassholder(substr string) (int, bool)
	MostTraveledBike() (int, float64, bool)
	TripsWithinInterval(start, end string) (analysis.Ratio, error)
	BikesInUseAt(date, clock string) (int, error)
	LongestTripByDistance() (record.Trip, float64, bool)
	TripsByStations(stations []record.Station) int
	StationsWithUniqueGoLiveDate() []record.Station
	CloseStationPairCount(maxDist float64) int
	TopOrBottomStation(rank, axis string) (string, error)
	BusiestDayInMonth(month int) (int, bool)
	MaintenanceCandidates(threshold int) []int
}

// Observer is told how long each question took.
type Observer interface {
	ObserveQuery(name string, d time.Duration)
}

// Answer is one rendered line of the question list.
type Answer struct {
	Label string `json:"label"`
	Query string `json:"query"`
	Value string `json:"value"`
}

func (a Answer) String() string { return a.Label + ": " + a.Value }

type question struct {
	label string
	query string
	eval  func(Engine, Params) string
}

var list = []question{
	{"Question 1", "trips_by_type", func(e Engine, p Params) string {
		return strconv.Itoa(e.TripsByType(p.TripType, p.TripYear))
	}},
	{"Question 2", "stations_by_status", func(e Engine, p Params) string {
		return strconv.Itoa(e.StationsByStatus(p.StationStatus, p.StationYear))
	}},
	{"Question 3", "trips_by_destination", func(e Engine, p Params) string {
		r, err := e.TripsByDestination(p.Destination)
		if err != nil {
			return message(err)
		}
		return r.String()
	}},
	{"Question 4", "busiest_month_for_passholder", func(e Engine, p Params) string {
		return optionalInt(e.BusiestMonthForPassholder(p.Passholder))
	}},
	{"Question 5", "most_traveled_bike", func(e Engine, p Params) string {
		id, _, ok := e.MostTraveledBike()
		return optionalInt(id, ok)
	}},
	{"Question 6", "trips_within_interval", func(e Engine, p Params) string {
		r, err := e.TripsWithinInterval(p.IntervalStart, p.IntervalEnd)
		if err != nil {
			return message(err)
		}
		return r.String()
	}},
	{"Question 7", "bikes_in_use", func(e Engine, p Params) string {
		n, err := e.BikesInUseAt(p.InUseDate, p.InUseClock)
		if err != nil {
			return message(err)
		}
		return strconv.Itoa(n)
	}},
	{"Question 8", "longest_trip_by_distance", func(e Engine, p Params) string {
		t, _, ok := e.LongestTripByDistance()
		if !ok {
			return analysis.NoData
		}
		return t.Dump()
	}},
	{"Question 9", "trips_by_unique_go_live_stations", func(e Engine, p Params) string {
		return strconv.Itoa(e.TripsByStations(e.StationsWithUniqueGoLiveDate()))
	}},
	{"Question 10", "busiest_day_in_month", func(e Engine, p Params) string {
		return optionalInt(e.BusiestDayInMonth(p.BusiestDayMonth))
	}},
	{"EC Question 1", "close_station_pairs", func(e Engine, p Params) string {
		return strconv.Itoa(e.CloseStationPairCount(p.CloseDistance))
	}},
	{"EC Question 2", "top_or_bottom_station", func(e Engine, p Params) string {
		name, err := e.TopOrBottomStation(p.Rank, p.Axis)
		if err != nil {
			return message(err)
		}
		return name
	}},
	{"EC Question 3", "maintenance_candidates", func(e Engine, p Params) string {
		return analysis.FormatMaintenance(e.MaintenanceCandidates(p.MaintenanceThreshold))
	}},
}

// Run answers every question in order. obs may be nil.
func Run(e Engine, p Params, obs Observer) []Answer {
	out := make([]Answer, 0, len(list))
	for _, q := range list {
		start := time.Now()
		v := q.eval(e, p)
		if obs != nil {
			obs.ObserveQuery(q.query, time.Since(start))
		}
		out = append(out, Answer{Label: q.label, Query: q.query, Value: v})
	}
	return out
}

func optionalInt(v int, ok bool) string {
	if !ok {
		return analysis.NoData
	}
	return strconv.Itoa(v)
}

// message maps query errors to the texts shown in place of an answer.
func message(err error) string {
	switch {
	case errors.Is(err, analysis.ErrStationNotFound):
		return analysis.StationNotFoundMessage
	case errors.Is(err, analysis.ErrInvalidSelector), errors.Is(err, analysis.ErrInvalidTime):
		return analysis.InvalidInputMessage
	case errors.Is(err, analysis.ErrNoStations):
		return analysis.NoData
	default:
		return fmt.Sprintf("error: %v", err)
	}
}
