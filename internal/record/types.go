package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedRecord is returned when a row does not parse into the expected shape.
var ErrMalformedRecord = errors.New("malformed record")

// Date is a calendar date as written in the station file.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Timestamp is a decomposed trip start or end time.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int // first digit of the seconds field only
}

// Position is a latitude/longitude pair. Valid is false when either
// coordinate was blank or unparsable in the source row.
type Position struct {
	Lat   float64
	Long  float64
	Valid bool
}

// Station is one row of the station file.
type Station struct {
	ID     int
	Name   string
	GoLive Date
	Status string
}

// TripFields carries the raw column values of one trip row.
type TripFields struct {
	ID              int
	DurationSeconds int
	StartTime       string // raw, e.g. "2017-07-01 00:04:00"
	EndTime         string
	StartStationID  int
	StartPos        Position
	EndStationID    int
	EndPos          Position
	BikeID          int
	PlannedDuration int
	RouteCategory   string // stored with its quotes, e.g. "One Way"
	PassholderType  string
}

// Trip is one row of the trip file with its decomposed timestamps.
type Trip struct {
	TripFields
	Start Timestamp
	End   Timestamp
}

// NewStation builds a station, decoding goLiveDate in DD/MM/YYYY order.
func NewStation(id int, name, goLiveDate, status string) (Station, error) {
	d, err := ParseGoLiveDate(goLiveDate)
	if err != nil {
		return Station{}, fmt.Errorf("station %d: %w", id, err)
	}
	return Station{ID: id, Name: name, GoLive: d, Status: status}, nil
}

// NewTrip builds a trip and decomposes its start and end timestamps.
func NewTrip(f TripFields) (Trip, error) {
	start, err := ParseTimestamp(f.StartTime)
	if err != nil {
		return Trip{}, fmt.Errorf("trip %d start: %w", f.ID, err)
	}
	end, err := ParseTimestamp(f.EndTime)
	if err != nil {
		return Trip{}, fmt.Errorf("trip %d end: %w", f.ID, err)
	}
	return Trip{TripFields: f, Start: start, End: end}, nil
}

// ParseGoLiveDate parses a day-first date such as "25/12/2016".
func ParseGoLiveDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: go-live date %q", ErrMalformedRecord, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("%w: go-live date %q", ErrMalformedRecord, s)
		}
		nums[i] = n
	}
	return Date{Day: nums[0], Month: nums[1], Year: nums[2]}, nil
}

// ParseTimestamp parses "<date> <time>" where date is "Q####-MM-DD" (one
// leading non-numeric character before the year) and time is "HH:MM:SSx".
// Only the first digit of the seconds field is kept, matching the source data.
func ParseTimestamp(s string) (Timestamp, error) {
	bad := func(what string) (Timestamp, error) {
		return Timestamp{}, fmt.Errorf("%w: timestamp %q (%s)", ErrMalformedRecord, s, what)
	}
	halves := strings.Split(s, " ")
	if len(halves) < 2 {
		return bad("missing time")
	}

	date := strings.Split(halves[0], "-")
	if len(date) != 3 || len(date[0]) < 5 {
		return bad("date")
	}
	year, err := strconv.Atoi(date[0][1:5])
	if err != nil {
		return bad("year")
	}
	month, err := strconv.Atoi(date[1])
	if err != nil {
		return bad("month")
	}
	day, err := strconv.Atoi(date[2])
	if err != nil {
		return bad("day")
	}

	clock := strings.Split(halves[1], ":")
	if len(clock) != 3 || len(clock[2]) < 1 {
		return bad("time")
	}
	hour, err := strconv.Atoi(clock[0])
	if err != nil {
		return bad("hour")
	}
	minute, err := strconv.Atoi(clock[1])
	if err != nil {
		return bad("minute")
	}
	second, err := strconv.Atoi(clock[2][:1])
	if err != nil {
		return bad("second")
	}

	return Timestamp{Year: year, Month: month, Day: day, Hour: hour, Minute: minute, Second: second}, nil
}

// Dump renders the trip in trip-file column order. Invalid positions are
// written as -1.0, the marker the source files use for missing coordinates.
func (t Trip) Dump() string {
	cols := []string{
		strconv.Itoa(t.ID),
		strconv.Itoa(t.DurationSeconds),
		t.StartTime,
		t.EndTime,
		strconv.Itoa(t.StartStationID),
		coord(t.StartPos.Lat, t.StartPos.Valid),
		coord(t.StartPos.Long, t.StartPos.Valid),
		strconv.Itoa(t.EndStationID),
		coord(t.EndPos.Lat, t.EndPos.Valid),
		coord(t.EndPos.Long, t.EndPos.Valid),
		strconv.Itoa(t.BikeID),
		strconv.Itoa(t.PlannedDuration),
		t.RouteCategory,
		t.PassholderType,
	}
	return strings.Join(cols, ",")
}

func coord(v float64, valid bool) string {
	if !valid {
		return "-1.0"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
