package questions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-analytics/internal/analysis"
	"bikeshare-analytics/internal/record"
)

type recordingObserver struct {
	names []string
}

func (o *recordingObserver) ObserveQuery(name string, d time.Duration) {
	o.names = append(o.names, name)
}

func fixtureEngine() *analysis.Engine {
	stations := []record.Station{
		{ID: 3004, Name: "Philadelphia Zoo", GoLive: record.Date{Year: 2016, Month: 4, Day: 23}, Status: "Active"},
		{ID: 3005, Name: "City Hall", GoLive: record.Date{Year: 2015, Month: 4, Day: 23}, Status: "Active"},
	}
	trip := func(id, from, to, bike int, day int, cat string, a, b record.Position) record.Trip {
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
	return analysis.NewEngine(stations, []record.Trip{
		trip(1, 3004, 3005, 11, 5, `"One Way"`, p1, p2),
		trip(2, 3005, 3004, 12, 5, `"One Way"`, p2, p1),
		trip(3, 3005, 3005, 12, 6, `"Round Trip"`, p2, p2),
	})
}

func TestRunDefaults(t *testing.T) {
	obs := &recordingObserver{}
	answers := Run(fixtureEngine(), Default(), obs)
	require.Len(t, answers, 13)
	require.Len(t, obs.names, 13)

	got := make(map[string]string)
	for _, a := range answers {
		got[a.Label] = a.Value
	}
	assert.Equal(t, "2", got["Question 1"])
	assert.Equal(t, "1", got["Question 2"])
	assert.Equal(t, "33.3333%", got["Question 3"])
	assert.Equal(t, "8", got["Question 4"])
	assert.Equal(t, "12", got["Question 5"])
	assert.Equal(t, "100.0000%", got["Question 6"])
	assert.Equal(t, "0", got["Question 7"])
	assert.True(t, strings.HasPrefix(got["Question 8"], "1,600,"), got["Question 8"])
	assert.Equal(t, "5", got["Question 9"], "both go-live dates are unique; the round trip counts once")
	assert.Equal(t, "5", got["Question 10"])
	assert.Equal(t, "1", got["EC Question 1"])
	assert.Equal(t, "Philadelphia Zoo", got["EC Question 2"])
	assert.Equal(t, analysis.NoMaintenanceMessage, got["EC Question 3"])

	assert.Equal(t, "Question 1", answers[0].Label)
	assert.Equal(t, "EC Question 3", answers[12].Label)
	assert.Equal(t, "Question 1: 2", answers[0].String())
	assert.Equal(t, "trips_by_type", obs.names[0])
}

func TestRunMessages(t *testing.T) {
	p := Default()
	p.Destination = "Nowhere"
	p.Rank = "best"
	p.IntervalStart = "noon"
	p.MaintenanceThreshold = 0

	answers := Run(fixtureEngine(), p, nil)
	got := make(map[string]string)
	for _, a := range answers {
		got[a.Label] = a.Value
	}
	assert.Equal(t, analysis.StationNotFoundMessage, got["Question 3"])
	assert.Equal(t, analysis.InvalidInputMessage, got["Question 6"])
	assert.Equal(t, analysis.InvalidInputMessage, got["EC Question 2"])
	assert.Equal(t, "3005 3004", got["EC Question 3"])

	empty := Run(analysis.NewEngine(nil, nil), Default(), nil)
	got = make(map[string]string)
	for _, a := range empty {
		got[a.Label] = a.Value
	}
	assert.Equal(t, analysis.NoData, got["Question 4"])
	assert.Equal(t, analysis.NoData, got["Question 5"])
	assert.Equal(t, analysis.NoData, got["Question 8"])
	assert.Equal(t, analysis.NoData, got["Question 10"])
	assert.Equal(t, analysis.NoData, got["EC Question 2"])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("destination: City Hall\nbusiest_day_month: 7\n"), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "City Hall", p.Destination)
	assert.Equal(t, 7, p.BusiestDayMonth)
	assert.Equal(t, "One Way", p.TripType, "unset keys keep defaults")
	assert.Equal(t, 5000, p.MaintenanceThreshold)
}

func TestCustomRules(t *testing.T) {
	assert.NoError(t, validate.Var("7:05", "clock"))
	assert.NoError(t, validate.Var("17:05", "clock"))
	assert.Error(t, validate.Var("7h05", "clock"))
	assert.NoError(t, validate.Var("9/15/2017", "mdy"))
	assert.Error(t, validate.Var("2017-09-15", "mdy"))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"month":    "busiest_day_month: 13\n",
		"clock":    "interval_start: \"5\"\n",
		"date":     "in_use_date: \"2017-09-15\"\n",
		"distance": "close_distance: 0\n",
		"rank":     "rank: \"\"\n",
		"yaml":     "rank: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "q.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
