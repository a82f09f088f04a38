package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bikeshare-analytics/internal/record"
)

var (
	ErrStationNotFound = errors.New("station not found")
	ErrInvalidSelector = errors.New("invalid rank or axis")
	ErrNoStations      = errors.New("no stations loaded")
	ErrInvalidTime     = errors.New("invalid date or time")
)

// User-facing texts for results that carry no value.
const (
	StationNotFoundMessage = "Not a valid station name."
	InvalidInputMessage    = "Not a valid input"
	NoMaintenanceMessage   = "No checks necessary this month"
)

// DefaultCloseStationDistance is the averaged lat/long difference under which
// two stations count as close.
const DefaultCloseStationDistance = 0.02

// Rank and axis selectors for TopOrBottomStation.
const (
	RankMost        = "most"
	RankLeast       = "least"
	AxisStart       = "start"
	AxisDestination = "destination"
)

// TripsByType counts trips of a route category that started in year. The
// category is compared case-insensitively against its quoted stored form.
func (e *Engine) TripsByType(routeType string, year int) int {
	want := `"` + routeType + `"`
	n := 0
	for _, t := range e.trips {
		if strings.EqualFold(t.RouteCategory, want) && t.Start.Year == year {
			n++
		}
	}
	return n
}

// StationsByStatus counts stations with an exact status that went live in year.
func (e *Engine) StationsByStatus(status string, year int) int {
	n := 0
	for _, s := range e.stations {
		if s.Status == status && s.GoLive.Year == year {
			n++
		}
	}
	return n
}

// TripsByDestination is the share of all trips ending at the named station.
func (e *Engine) TripsByDestination(name string) (Ratio, error) {
	id, ok := e.stationID(name)
	if !ok {
		return Ratio{}, fmt.Errorf("%w: %q", ErrStationNotFound, name)
	}
	r := Ratio{Total: len(e.trips)}
	for _, t := range e.trips {
		if t.EndStationID == id {
			r.Count++
		}
	}
	return r, nil
}

func (e *Engine) stationID(name string) (int, bool) {
	for _, s := range e.stations {
		if s.Name == name {
			return s.ID, true
		}
	}
	return 0, false
}

// BusiestMonthForPassholder returns the month (1-12) with the most trips whose
// passholder type contains substr. The earliest month wins a tie.
func (e *Engine) BusiestMonthForPassholder(substr string) (int, bool) {
	var months [13]int
	for _, t := range e.trips {
		if t.Start.Month < 1 || t.Start.Month > 12 {
			continue
		}
		if strings.Contains(t.PassholderType, substr) {
			months[t.Start.Month]++
		}
	}
	best := 1
	for m := 2; m <= 12; m++ {
		if months[best] < months[m] {
			best = m
		}
	}
	if months[best] == 0 {
		return 0, false
	}
	return best, true
}

// MostTraveledBike sums trip hours per bike and returns the bike with the
// largest total. A trip ending on a different day than it started is taken
// to end exactly one day later.
func (e *Engine) MostTraveledBike() (bikeID int, hours float64, ok bool) {
	totals := make(map[int]float64)
	var order []int
	for _, t := range e.trips {
		startSec := clockSeconds(t.Start)
		endSec := clockSeconds(t.End)
		if t.Start.Day != t.End.Day {
			endSec += secondsPerDay
		}
		if _, seen := totals[t.BikeID]; !seen {
			order = append(order, t.BikeID)
		}
		totals[t.BikeID] += float64(endSec-startSec) / secondsPerHour
	}
	for _, id := range order {
		if totals[id] > hours {
			bikeID, hours, ok = id, totals[id], true
		}
	}
	return bikeID, hours, ok
}

func clockSeconds(ts record.Timestamp) int {
	return ts.Hour*secondsPerHour + ts.Minute*secondsPerMinute + ts.Second
}

// TripsWithinInterval is the share of all trips that start and end on the
// same day between the H:MM clock times start and end.
func (e *Engine) TripsWithinInterval(start, end string) (Ratio, error) {
	sh, sm, err := parseClock(start)
	if err != nil {
		return Ratio{}, err
	}
	eh, em, err := parseClock(end)
	if err != nil {
		return Ratio{}, err
	}
	r := Ratio{Total: len(e.trips)}
	for _, t := range e.trips {
		if t.Start.Day != t.End.Day || t.Start.Month != t.End.Month {
			continue
		}
		h1, m1, h2, m2 := t.Start.Hour, t.Start.Minute, t.End.Hour, t.End.Minute
		switch {
		case h1 > sh && h2 < eh,
			h1 == sh && m1 >= sm && h2 < eh,
			h1 == sh && m1 >= sm && h2 == eh && m2 <= em,
			h1 > sh && h2 == eh && m2 <= em:
			r.Count++
		}
	}
	return r, nil
}

// BikesInUseAt counts trips in progress at an M/D/YYYY date and H:MM clock,
// inclusive at both ends.
func (e *Engine) BikesInUseAt(date, clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(date), "/")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: date %q", ErrInvalidTime, date)
	}
	var mdy [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: date %q", ErrInvalidTime, date)
		}
		mdy[i] = n
	}
	hour, minute, err := parseClock(clock)
	if err != nil {
		return 0, err
	}
	at := PseudoEpoch(record.Timestamp{Year: mdy[2], Month: mdy[0], Day: mdy[1], Hour: hour, Minute: minute})

	n := 0
	for id, s := range e.startEpoch {
		if s <= at && e.endEpoch[id] >= at {
			n++
		}
	}
	return n, nil
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, s)
	}
	return hour, minute, nil
}

// TripDistance is the straight-line distance in degrees between the start and
// end positions, or false when either is unknown.
func TripDistance(t record.Trip) (float64, bool) {
	if !t.StartPos.Valid || !t.EndPos.Valid {
		return 0, false
	}
	return math.Hypot(t.StartPos.Lat-t.EndPos.Lat, t.StartPos.Long-t.EndPos.Long), true
}

// LongestTripByDistance returns the first trip with the greatest distance
// among trips with known positions. A zero-length trip still qualifies.
func (e *Engine) LongestTripByDistance() (record.Trip, float64, bool) {
	best := -1
	var longest float64
	for i, t := range e.trips {
		d, ok := TripDistance(t)
		if ok && (best < 0 || d > longest) {
			best, longest = i, d
		}
	}
	if best < 0 {
		return record.Trip{}, 0, false
	}
	return e.trips[best], longest, true
}

// TripsByStations counts trip endpoints touching the given stations. A trip
// that starts and ends at the same member station counts once.
func (e *Engine) TripsByStations(stations []record.Station) int {
	set := make(map[int]struct{}, len(stations))
	for _, s := range stations {
		set[s.ID] = struct{}{}
	}
	n := 0
	for _, t := range e.trips {
		_, starts := set[t.StartStationID]
		_, ends := set[t.EndStationID]
		if starts {
			n++
		}
		if ends {
			n++
		}
		if starts && t.StartStationID == t.EndStationID {
			n--
		}
	}
	return n
}

// StationsWithUniqueGoLiveDate returns, in station order, the stations whose
// go-live date no other station shares.
func (e *Engine) StationsWithUniqueGoLiveDate() []record.Station {
	counts := make(map[int64]int, len(e.stations))
	for _, s := range e.stations {
		counts[dateEpoch(s.GoLive)]++
	}
	var out []record.Station
	for _, s := range e.stations {
		if counts[dateEpoch(s.GoLive)] == 1 {
			out = append(out, s)
		}
	}
	return out
}

// CloseStationPairCount counts unordered pairs of distinct stations with
// known positions whose mean absolute lat/long difference is at most maxDist.
func (e *Engine) CloseStationPairCount(maxDist float64) int {
	type located struct {
		id  int
		pos record.Position
	}
	var pts []located
	for _, s := range e.stations {
		if p := e.positions[s.ID]; p.Valid {
			pts = append(pts, located{s.ID, p})
		}
	}
	n := 0
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if pts[i].id == pts[j].id {
				continue
			}
			d := (math.Abs(pts[i].pos.Lat-pts[j].pos.Lat) + math.Abs(pts[i].pos.Long-pts[j].pos.Long)) / 2
			if d <= maxDist {
				n++
			}
		}
	}
	return n
}

// TopOrBottomStation names the station with the most or least trips starting
// or ending there. rank and axis are matched case-insensitively; the first
// station in order wins a tie.
func (e *Engine) TopOrBottomStation(rank, axis string) (string, error) {
	most := strings.EqualFold(rank, RankMost)
	if !most && !strings.EqualFold(rank, RankLeast) {
		return "", fmt.Errorf("%w: rank %q", ErrInvalidSelector, rank)
	}
	byStart := strings.EqualFold(axis, AxisStart)
	if !byStart && !strings.EqualFold(axis, AxisDestination) {
		return "", fmt.Errorf("%w: axis %q", ErrInvalidSelector, axis)
	}
	if len(e.stations) == 0 {
		return "", ErrNoStations
	}

	counts := make(map[int]int, len(e.stations))
	for _, t := range e.trips {
		if byStart {
			counts[t.StartStationID]++
		} else {
			counts[t.EndStationID]++
		}
	}

	best := 0
	for i := 1; i < len(e.stations); i++ {
		c, b := counts[e.stations[i].ID], counts[e.stations[best].ID]
		if (most && c > b) || (!most && c < b) {
			best = i
		}
	}
	return e.stations[best].Name, nil
}

// BusiestDayInMonth returns the day (1-31) of month with the most trip
// starts. The earliest day wins a tie.
func (e *Engine) BusiestDayInMonth(month int) (int, bool) {
	var days [32]int
	found := false
	for _, t := range e.trips {
		if t.Start.Month != month || t.Start.Day < 1 || t.Start.Day > 31 {
			continue
		}
		days[t.Start.Day]++
		found = true
	}
	if !found {
		return 0, false
	}
	best := 1
	for d := 2; d <= 31; d++ {
		if days[best] < days[d] {
			best = d
		}
	}
	return best, true
}

// MaintenanceCandidates lists the stations with more than threshold trips
// ending there, in the order they first appear as a destination.
func (e *Engine) MaintenanceCandidates(threshold int) []int {
	counts := make(map[int]int)
	var order []int
	for _, t := range e.trips {
		if _, seen := counts[t.EndStationID]; !seen {
			order = append(order, t.EndStationID)
		}
		counts[t.EndStationID]++
	}
	var out []int
	for _, id := range order {
		if counts[id] > threshold {
			out = append(out, id)
		}
	}
	return out
}

// FormatMaintenance renders station ids space-separated, or
// NoMaintenanceMessage when there are none.
func FormatMaintenance(ids []int) string {
	if len(ids) == 0 {
		return NoMaintenanceMessage
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}
