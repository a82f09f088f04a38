package loader

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"bikeshare-analytics/internal/record"
)

const tripColumns = 14

// LoadStations reads the station file at path.
func LoadStations(path string) ([]record.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station file: %w", err)
	}
	defer f.Close()
	stations, err := ReadStations(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("loaded %d stations from %s", len(stations), path)
	return stations, nil
}

// LoadTrips reads the trip file at path.
func LoadTrips(path string) ([]record.Trip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trip file: %w", err)
	}
	defer f.Close()
	trips, err := ReadTrips(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("loaded %d trips from %s", len(trips), path)
	return trips, nil
}

// ReadStations parses "id,name,goLiveDate,status" rows after a header line.
// Rows containing a quote character carry a station name that was split on
// its comma; the two halves are joined back together.
func ReadStations(r io.Reader) ([]record.Station, error) {
	var stations []record.Station
	err := eachRow(r, func(lineNo int, line string) error {
		cols := strings.Split(line, ",")
		rest := 2
		if strings.Contains(line, `"`) {
			rest = 3
		}
		if len(cols) < rest+2 {
			return fmt.Errorf("line %d: %w: expected %d columns, got %d", lineNo, record.ErrMalformedRecord, rest+2, len(cols))
		}
		id, err := strconv.Atoi(strings.TrimSpace(cols[0]))
		if err != nil {
			return fmt.Errorf("line %d: %w: station id %q", lineNo, record.ErrMalformedRecord, cols[0])
		}
		name := strings.Join(cols[1:rest], "")
		s, err := record.NewStation(id, name, cols[rest], cols[rest+1])
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		stations = append(stations, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stations, nil
}

// ReadTrips parses trip rows after a header line. Latitude and longitude
// columns that do not parse produce an invalid position instead of an error.
func ReadTrips(r io.Reader) ([]record.Trip, error) {
	var trips []record.Trip
	err := eachRow(r, func(lineNo int, line string) error {
		cols := strings.Split(line, ",")
		if len(cols) < tripColumns {
			return fmt.Errorf("line %d: %w: expected %d columns, got %d", lineNo, record.ErrMalformedRecord, tripColumns, len(cols))
		}
		var ints [6]int
		for i, c := range []int{0, 1, 4, 7, 10, 11} {
			raw := strings.TrimSpace(strings.ReplaceAll(cols[c], `"`, ""))
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("line %d: %w: column %d %q", lineNo, record.ErrMalformedRecord, c+1, cols[c])
			}
			ints[i] = n
		}
		t, err := record.NewTrip(record.TripFields{
			ID:              ints[0],
			DurationSeconds: ints[1],
			StartTime:       cols[2],
			EndTime:         cols[3],
			StartStationID:  ints[2],
			StartPos:        parsePosition(cols[5], cols[6]),
			EndStationID:    ints[3],
			EndPos:          parsePosition(cols[8], cols[9]),
			BikeID:          ints[4],
			PlannedDuration: ints[5],
			RouteCategory:   cols[12],
			PassholderType:  cols[13],
		})
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		trips = append(trips, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trips, nil
}

// missingCoordinate is the value the trip files use for an unknown coordinate.
const missingCoordinate = -1.0

func parsePosition(lat, long string) record.Position {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || la == missingCoordinate {
		return record.Position{}
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(long), 64)
	if err != nil || lo == missingCoordinate {
		return record.Position{}
	}
	return record.Position{Lat: la, Long: lo, Valid: true}
}

// eachRow calls fn for every non-blank line after the header, in file order.
func eachRow(r io.Reader, fn func(lineNo int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}
