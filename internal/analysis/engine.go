package analysis

import (
	"log"

	"bikeshare-analytics/internal/record"
)

// Engine answers the fixed bike-share queries over one loaded dataset.
// The derived indices are built in NewEngine and never modified, so an Engine
// may be queried from several goroutines once NewEngine has returned.
type Engine struct {
	stations []record.Station
	trips    []record.Trip

	startEpoch map[int]int64
	endEpoch   map[int]int64
	positions  map[int]record.Position
}

// NewEngine indexes stations and trips. The slices are retained and must not
// be modified afterwards.
func NewEngine(stations []record.Station, trips []record.Trip) *Engine {
	e := &Engine{
		stations: stations,
		trips:    trips,
	}
	e.startEpoch, e.endEpoch = BuildTimeIndices(trips)
	e.positions = BuildPositionIndex(stations, trips)
	log.Printf("indexed %d trips across %d stations", len(trips), len(stations))
	return e
}

// Stations returns the stations in file order.
func (e *Engine) Stations() []record.Station { return e.stations }

// Trips returns the trips in file order.
func (e *Engine) Trips() []record.Trip { return e.trips }

// Position returns the indexed position of a station.
func (e *Engine) Position(stationID int) (record.Position, bool) {
	p, ok := e.positions[stationID]
	return p, ok
}
