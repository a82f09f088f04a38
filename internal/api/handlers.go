package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bikeshare-analytics/internal/analysis"
	"bikeshare-analytics/internal/questions"
	"bikeshare-analytics/internal/record"
	"bikeshare-analytics/internal/report"
)

// Engine is the query surface served over HTTP.
type Engine interface {
	questions.Engine
	Stations() []record.Station
	Trips() []record.Trip
}

// Handler serves read-only queries over one loaded dataset.
type Handler struct {
	engine  Engine
	params  questions.Params
	rows    []report.Row
	metrics RequestMetrics
}

// NewHandler builds a handler. rows is the station report served on
// /api/report; m may be nil.
func NewHandler(e Engine, p questions.Params, rows []report.Row, m RequestMetrics) *Handler {
	return &Handler{engine: e, params: p, rows: rows, metrics: m}
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type RatioResponse struct {
	Count   int      `json:"count"`
	Total   int      `json:"total"`
	Percent *float64 `json:"percent"`
	Display string   `json:"display"`
}

type StationJSON struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	GoLive string `json:"goLive"`
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeQueryError maps engine errors to a status code.
func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrStationNotFound), errors.Is(err, analysis.ErrNoStations):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, analysis.ErrInvalidSelector), errors.Is(err, analysis.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func ratioResponse(r analysis.Ratio) RatioResponse {
	resp := RatioResponse{Count: r.Count, Total: r.Total, Display: r.String()}
	if p, ok := r.Percent(); ok {
		resp.Percent = &p
	}
	return resp
}

func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", fmt.Errorf("%s parameter is required", name)
	}
	return v, nil
}

func intParam(r *http.Request, name string, def *int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		if def != nil {
			return *def, nil
		}
		return 0, fmt.Errorf("%s parameter is required", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"stations": len(h.engine.Stations()),
		"trips":    len(h.engine.Trips()),
	})
}

// Questions handles GET /api/questions
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	answers := questions.Run(h.engine, h.params, nil)
	writeJSON(w, http.StatusOK, map[string]any{"answers": answers})
}

// TripsByType handles GET /api/trips/by-type?type=&year=
func (h *Handler) TripsByType(w http.ResponseWriter, r *http.Request) {
	routeType, err := requiredParam(r, "type")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := intParam(r, "year", nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: h.engine.TripsByType(routeType, year)})
}

// StationsByStatus handles GET /api/stations/by-status?status=&year=
func (h *Handler) StationsByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := requiredParam(r, "status")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := intParam(r, "year", nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: h.engine.StationsByStatus(status, year)})
}

// TripsByDestination handles GET /api/trips/by-destination?name=
func (h *Handler) TripsByDestination(w http.ResponseWriter, r *http.Request) {
	name, err := requiredParam(r, "name")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ratio, err := h.engine.TripsByDestination(name)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ratioResponse(ratio))
}

// BusiestMonth handles GET /api/passholders/busiest-month?type=
func (h *Handler) BusiestMonth(w http.ResponseWriter, r *http.Request) {
	passholder, err := requiredParam(r, "type")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month, ok := h.engine.BusiestMonthForPassholder(passholder)
	if !ok {
		writeError(w, http.StatusNotFound, "no trips for passholder type")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"month": month})
}

// MostTraveledBike handles GET /api/bikes/most-traveled
func (h *Handler) MostTraveledBike(w http.ResponseWriter, r *http.Request) {
	id, hours, ok := h.engine.MostTraveledBike()
	if !ok {
		writeError(w, http.StatusNotFound, "no bike has recorded trip time")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bikeId": id, "hours": hours})
}

// TripsWithinInterval handles GET /api/trips/within-interval?start=&end=
func (h *Handler) TripsWithinInterval(w http.ResponseWriter, r *http.Request) {
	start, err := requiredParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := requiredParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ratio, err := h.engine.TripsWithinInterval(start, end)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ratioResponse(ratio))
}

// BikesInUse handles GET /api/bikes/in-use?date=&time=
func (h *Handler) BikesInUse(w http.ResponseWriter, r *http.Request) {
	date, err := requiredParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	clock, err := requiredParam(r, "time")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.engine.BikesInUseAt(date, clock)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// LongestTrip handles GET /api/trips/longest
func (h *Handler) LongestTrip(w http.ResponseWriter, r *http.Request) {
	t, dist, ok := h.engine.LongestTripByDistance()
	if !ok {
		writeError(w, http.StatusNotFound, "no trip has known start and end positions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tripId":   t.ID,
		"distance": dist,
		"trip":     t.Dump(),
	})
}

// UniqueGoLive handles GET /api/stations/unique-go-live
func (h *Handler) UniqueGoLive(w http.ResponseWriter, r *http.Request) {
	stations := h.engine.StationsWithUniqueGoLiveDate()
	out := make([]StationJSON, 0, len(stations))
	for _, s := range stations {
		out = append(out, StationJSON{
			ID:     s.ID,
			Name:   s.Name,
			GoLive: fmt.Sprintf("%d/%d/%d", s.GoLive.Day, s.GoLive.Month, s.GoLive.Year),
			Status: s.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stations":   out,
		"count":      len(out),
		"tripsTotal": h.engine.TripsByStations(stations),
	})
}

// ClosePairs handles GET /api/stations/close-pairs?max=
func (h *Handler) ClosePairs(w http.ResponseWriter, r *http.Request) {
	maxDist := analysis.DefaultCloseStationDistance
	if v := r.URL.Query().Get("max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(w, http.StatusBadRequest, "max must be a non-negative number")
			return
		}
		maxDist = f
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: h.engine.CloseStationPairCount(maxDist)})
}

// ExtremeStation handles GET /api/stations/extreme?rank=&axis=
func (h *Handler) ExtremeStation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, err := h.engine.TopOrBottomStation(q.Get("rank"), q.Get("axis"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

// BusiestDay handles GET /api/days/busiest?month=
func (h *Handler) BusiestDay(w http.ResponseWriter, r *http.Request) {
	month, err := intParam(r, "month", nil)
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be an integer between 1 and 12")
		return
	}
	day, ok := h.engine.BusiestDayInMonth(month)
	if !ok {
		writeError(w, http.StatusNotFound, "no trips started in month")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"day": day})
}

// Maintenance handles GET /api/stations/maintenance?threshold=
func (h *Handler) Maintenance(w http.ResponseWriter, r *http.Request) {
	threshold, err := intParam(r, "threshold", &h.params.MaintenanceThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ids := h.engine.MaintenanceCandidates(threshold)
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stationIds": ids,
		"summary":    analysis.FormatMaintenance(ids),
	})
}

// Report handles GET /api/report
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rows := h.rows
	if rows == nil {
		rows = []report.Row{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows, "count": len(rows)})
}
