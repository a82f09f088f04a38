package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-analytics/internal/analysis"
	"bikeshare-analytics/internal/questions"
	"bikeshare-analytics/internal/record"
	"bikeshare-analytics/internal/report"
)

type requestLog struct {
	seen []string
}

func (l *requestLog) ObserveRequest(route, code string) {
	l.seen = append(l.seen, route+" "+code)
}

func testData() ([]record.Station, []record.Trip) {
	stations := []record.Station{
		{ID: 3004, Name: "Philadelphia Zoo", GoLive: record.Date{Year: 2016, Month: 4, Day: 23}, Status: "Active"},
		{ID: 3005, Name: "City Hall", GoLive: record.Date{Year: 2015, Month: 4, Day: 23}, Status: "Active"},
	}
	trip := func(id, from, to, bike, day int, cat string, a, b record.Position) record.Trip {
		return record.Trip{
			TripFields: record.TripFields{
				ID: id, DurationSeconds: 600,
				StartTime: `"2017-08-01 01:00:00"`, EndTime: `"2017-08-01 01:10:00"`,
				StartStationID: from, EndStationID: to,
				StartPos: a, EndPos: b,
				BikeID: bike, PlannedDuration: 30,
				RouteCategory: cat, PassholderType: "Indego30",
			},
			Start: record.Timestamp{Year: 2017, Month: 8, Day: day, Hour: 1},
			End:   record.Timestamp{Year: 2017, Month: 8, Day: day, Hour: 1, Minute: 10},
		}
	}
	p1 := record.Position{Lat: 39.95, Long: -75.17, Valid: true}
	p2 := record.Position{Lat: 39.96, Long: -75.16, Valid: true}
	return stations, []record.Trip{
		trip(1, 3004, 3005, 11, 5, `"One Way"`, p1, p2),
		trip(2, 3005, 3004, 12, 5, `"One Way"`, p2, p1),
		trip(3, 3005, 3005, 12, 6, `"Round Trip"`, p2, p2),
	}
}

func newTestServer(t *testing.T, m RequestMetrics) *httptest.Server {
	t.Helper()
	stations, trips := testData()
	e := analysis.NewEngine(stations, trips)
	h := NewHandler(e, questions.Default(), report.Build(stations, trips), m)
	srv := httptest.NewServer(h.Router([]string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	var body map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/health", &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["stations"])
	assert.EqualValues(t, 3, body["trips"])
}

func TestCountEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	cases := []struct {
		path string
		want int
	}{
		{"/api/trips/by-type?type=One%20Way&year=2017", 2},
		{"/api/trips/by-type?type=One%20Way&year=2016", 0},
		{"/api/stations/by-status?status=Active&year=2016", 1},
		{"/api/bikes/in-use?date=8/5/2017&time=1:05", 2},
		{"/api/bikes/in-use?date=8/6/2017&time=2:00", 0},
		{"/api/stations/close-pairs", 1},
		{"/api/stations/close-pairs?max=0.001", 0},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			var body CountResponse
			require.Equal(t, http.StatusOK, getJSON(t, srv, tc.path, &body))
			assert.Equal(t, tc.want, body.Count)
		})
	}
}

func TestTripsByDestination(t *testing.T) {
	srv := newTestServer(t, nil)

	var body RatioResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/trips/by-destination?name=Philadelphia%20Zoo", &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, "33.3333%", body.Display)
	require.NotNil(t, body.Percent)
	assert.InDelta(t, 33.3333, *body.Percent, 0.001)

	var errBody ErrorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv, "/api/trips/by-destination?name=Nowhere", &errBody))
	assert.NotEmpty(t, errBody.Error)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv, "/api/trips/by-destination", &errBody))
}

func TestTripsWithinInterval(t *testing.T) {
	srv := newTestServer(t, nil)
	var body RatioResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/trips/within-interval?start=1:00&end=1:10", &body))
	assert.Equal(t, "100.0000%", body.Display)

	var errBody ErrorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv, "/api/trips/within-interval?start=noon&end=1:10", &errBody))
}

func TestOptionalResults(t *testing.T) {
	srv := newTestServer(t, nil)

	var month map[string]int
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/passholders/busiest-month?type=Indego", &month))
	assert.Equal(t, 8, month["month"])
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv, "/api/passholders/busiest-month?type=Walk-up", nil))

	var bike map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/bikes/most-traveled", &bike))
	assert.EqualValues(t, 12, bike["bikeId"])

	var day map[string]int
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/days/busiest?month=8", &day))
	assert.Equal(t, 5, day["day"])
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv, "/api/days/busiest?month=9", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv, "/api/days/busiest?month=13", nil))

	var longest map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/trips/longest", &longest))
	assert.EqualValues(t, 1, longest["tripId"])
}

func TestExtremeStation(t *testing.T) {
	srv := newTestServer(t, nil)
	var body map[string]string
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/stations/extreme?rank=most&axis=start", &body))
	assert.Equal(t, "City Hall", body["name"])
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/stations/extreme?rank=least&axis=start", &body))
	assert.Equal(t, "Philadelphia Zoo", body["name"])

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv, "/api/stations/extreme?rank=middle&axis=start", nil))
}

func TestMaintenance(t *testing.T) {
	srv := newTestServer(t, nil)
	var body struct {
		StationIDs []int  `json:"stationIds"`
		Summary    string `json:"summary"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/stations/maintenance?threshold=1", &body))
	assert.Equal(t, []int{3005}, body.StationIDs)
	assert.Equal(t, "3005", body.Summary)

	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/stations/maintenance?threshold=5", &body))
	assert.Empty(t, body.StationIDs)
	assert.Equal(t, analysis.NoMaintenanceMessage, body.Summary)
}

func TestUniqueGoLive(t *testing.T) {
	srv := newTestServer(t, nil)
	var body struct {
		Stations   []StationJSON `json:"stations"`
		Count      int           `json:"count"`
		TripsTotal int           `json:"tripsTotal"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/stations/unique-go-live", &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 5, body.TripsTotal)
	assert.Equal(t, "23/4/2016", body.Stations[0].GoLive)
}

func TestQuestionsAndReport(t *testing.T) {
	srv := newTestServer(t, nil)

	var qs struct {
		Answers []questions.Answer `json:"answers"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/questions", &qs))
	require.Len(t, qs.Answers, 13)
	assert.Equal(t, "Question 1", qs.Answers[0].Label)
	assert.Equal(t, "2", qs.Answers[0].Value)

	var rep struct {
		Rows  []report.Row `json:"rows"`
		Count int          `json:"count"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/report", &rep))
	assert.Equal(t, 2, rep.Count)
	assert.Equal(t, 3004, rep.Rows[0].StationID)
}

func TestRequestMetrics(t *testing.T) {
	m := &requestLog{}
	srv := newTestServer(t, m)
	getJSON(t, srv, "/health", nil)
	getJSON(t, srv, "/api/days/busiest?month=0", nil)
	assert.Equal(t, []string{"/health 200", "/api/days/busiest 400"}, m.seen)
}
