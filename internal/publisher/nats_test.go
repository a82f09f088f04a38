package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-analytics/internal/report"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	failOn   string
	flushed  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if subject == f.failOn {
		return errors.New("boom")
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) FlushWithContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("flush needs a deadline")
	}
	f.flushed = true
	return nil
}

type countingMetrics struct {
	published, errs int
}

func (m *countingMetrics) IncPublished()     { m.published++ }
func (m *countingMetrics) IncPublishError()  { m.errs++ }
func (m *countingMetrics) SetConnected(bool) {}

func TestSubjectToken(t *testing.T) {
	tests := map[string]string{
		"3004":         "3004",
		" a.b ":        "a_b",
		"x > y":        "x___y",
		"*":            "_",
		"":             "_",
		"route/1\tnew": "route_1_new",
	}
	for in, want := range tests {
		assert.Equal(t, want, subjectToken(in), "input %q", in)
	}
}

func TestPublishReport(t *testing.T) {
	fc := &fakeConn{}
	m := &countingMetrics{}
	p := newPublisher(fc, "bikeshare.", false, m)
	rows := []report.Row{{StationID: 3004, StationName: "A"}, {StationID: 3005, StationName: "B"}}
	at := time.Date(2017, 10, 20, 0, 0, 0, 0, time.UTC)

	n, err := p.PublishReport(context.Background(), "run-1", at, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"bikeshare.report.3004", "bikeshare.report.3005"}, fc.subjects)
	assert.True(t, fc.flushed)
	assert.Equal(t, 2, m.published)

	var msg ReportMessage
	require.NoError(t, json.Unmarshal(fc.payloads[1], &msg))
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, 3005, msg.Row.StationID)
	assert.True(t, at.Equal(msg.GeneratedAt))
}

func TestPublishReportStopsOnError(t *testing.T) {
	fc := &fakeConn{failOn: "bikeshare.report.3005"}
	m := &countingMetrics{}
	p := newPublisher(fc, "bikeshare", false, m)
	rows := []report.Row{{StationID: 3004}, {StationID: 3005}, {StationID: 3006}}

	n, err := p.PublishReport(context.Background(), "run-1", time.Now(), rows)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.published)
	assert.Equal(t, 1, m.errs)
	assert.False(t, fc.flushed)
}

func TestPublishReportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := newPublisher(&fakeConn{}, "", false, nil).PublishReport(ctx, "run", time.Now(), []report.Row{{StationID: 1}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
}
