package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"bikeshare-analytics/internal/report"
)

const flushTimeout = 5 * time.Second

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

type NATSPublisher struct {
	nc          *nats.Conn
	conn        conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	IncPublished()
	IncPublishError()
	SetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("bikeshare-analyzer"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	if m != nil {
		m.SetConnected(true)
	}
	p := newPublisher(nc, prefix, logSubjects, m)
	p.nc = nc
	return p, nil
}

func newPublisher(c conn, prefix string, logSubjects bool, m PublisherMetrics) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "_"
	}
	return &NATSPublisher{conn: c, prefix: prefix, logSubjects: logSubjects, metrics: m}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// ReportMessage is the payload of one station report row.
type ReportMessage struct {
	RunID       string     `json:"runId"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Row         report.Row `json:"row"`
}

// Subject returns the subject a station's report row is published on.
func (p *NATSPublisher) Subject(stationID int) string {
	return fmt.Sprintf("%s.report.%s", p.prefix, subjectToken(strconv.Itoa(stationID)))
}

// PublishReport publishes every row and flushes. It stops at the first
// publish error or when ctx is done.
func (p *NATSPublisher) PublishReport(ctx context.Context, runID string, generatedAt time.Time, rows []report.Row) (int, error) {
	sent := 0
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		b, err := json.Marshal(ReportMessage{RunID: runID, GeneratedAt: generatedAt, Row: r})
		if err != nil {
			return sent, fmt.Errorf("marshal station %d: %w", r.StationID, err)
		}
		subject := p.Subject(r.StationID)
		if p.logSubjects {
			log.Printf("nats publish subject=%s", subject)
		}
		err = p.conn.Publish(subject, b)
		if p.metrics != nil {
			if err != nil {
				p.metrics.IncPublishError()
			} else {
				p.metrics.IncPublished()
			}
		}
		if err != nil {
			return sent, fmt.Errorf("publish %s: %w", subject, err)
		}
		sent++
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return sent, fmt.Errorf("nats flush: %w", err)
	}
	return sent, nil
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
