package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"bikeshare-analytics/internal/analysis"
	"bikeshare-analytics/internal/api"
	"bikeshare-analytics/internal/config"
	"bikeshare-analytics/internal/db"
	"bikeshare-analytics/internal/loader"
	"bikeshare-analytics/internal/metrics"
	"bikeshare-analytics/internal/publisher"
	"bikeshare-analytics/internal/questions"
	"bikeshare-analytics/internal/report"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	params := questions.Default()
	if cfg.QuestionsFile != "" {
		params, err = questions.Load(cfg.QuestionsFile)
		if err != nil {
			log.Fatalf("questions file: %v", err)
		}
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup; config drops METRICS_ADDR unless SERVE is set
	var mcol *metrics.Collector
	var servers []*http.Server
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector()
		servers = append(servers, mcol.Serve(cfg.MetricsAddr))
	}

	stations, err := loader.LoadStations(cfg.StationsFile)
	if err != nil {
		log.Fatalf("load stations: %v", err)
	}
	trips, err := loader.LoadTrips(cfg.TripsFile)
	if err != nil {
		log.Fatalf("load trips: %v", err)
	}
	log.Printf("loaded %d stations and %d trips", len(stations), len(trips))
	if mcol != nil {
		mcol.StationsLoaded.Set(float64(len(stations)))
		mcol.TripsLoaded.Set(float64(len(trips)))
	}

	engine := analysis.NewEngine(stations, trips)
	for _, a := range questions.Run(engine, params, queryObserver(mcol)) {
		fmt.Fprintln(os.Stdout, a.String())
	}

	rows := report.Build(stations, trips)
	if err := report.WriteFile(cfg.ReportFile, rows); err != nil {
		log.Fatalf("write report: %v", err)
	}
	log.Printf("wrote %d station rows to %s", len(rows), cfg.ReportFile)
	if mcol != nil {
		mcol.ReportRows.Add(float64(len(rows)))
	}

	// Optional sinks: failures are logged, the CSV report already exists
	run := db.Run{ID: uuid.NewString(), CreatedAt: time.Now().UTC(), Stations: len(stations), Trips: len(trips)}
	if cfg.DatabaseURL != "" {
		dsn := cfg.DatabaseURL
		if cfg.ReportDatabase != "" {
			if dsn, err = db.WithDBName(dsn, cfg.ReportDatabase); err != nil {
				log.Printf("compose DSN: %v", err)
				dsn = ""
			}
		}
		if dsn != "" {
			saveReport(ctx, db.Postgres, dsn, run, rows, mcol)
		}
	}
	if cfg.SQLiteDatabase != "" {
		saveReport(ctx, db.SQLite, cfg.SQLiteDatabase, run, rows, mcol)
	}
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, publisherMetrics(mcol))
		if err != nil {
			log.Printf("nats error: %v", err)
		} else {
			n, err := pub.PublishReport(ctx, run.ID, run.CreatedAt, rows)
			if err != nil {
				log.Printf("publish report: %v", err)
			}
			log.Printf("published %d station reports for run %s", n, run.ID)
			pub.Close()
		}
	}

	if !cfg.Serve {
		return
	}

	if cfg.APIAddr != "" {
		var m api.RequestMetrics
		if mcol != nil {
			m = mcol
		}
		h := api.NewHandler(engine, params, rows, m)
		servers = append(servers, api.Serve(cfg.APIAddr, h.Router(cfg.APIAllowedOrigins)))
	}

	// Block until context cancelled
	<-ctx.Done()
	shutdown(servers)
	log.Println("shutdown complete")
}

// saveReport opens the backend, ensures the schema and stores one run.
func saveReport(ctx context.Context, backend, target string, run db.Run, rows []report.Row, mcol *metrics.Collector) {
	open := db.OpenPostgres
	if backend == db.SQLite {
		open = db.OpenSQLite
	}
	sqlDB, err := open(target)
	if err != nil {
		log.Printf("%s open error: %v", backend, err)
		return
	}
	store, err := db.NewStore(sqlDB, backend)
	if err != nil {
		sqlDB.Close()
		log.Printf("%s store error: %v", backend, err)
		return
	}
	defer store.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		log.Printf("%s ping error: %v", backend, err)
		return
	}
	if err := store.EnsureSchema(ctx); err != nil {
		log.Printf("%s: %v", backend, err)
		return
	}

	prev, err := store.LatestRun(ctx)
	switch {
	case errors.Is(err, db.ErrNoRuns):
	case err != nil:
		log.Printf("%s latest run: %v", backend, err)
	default:
		log.Printf("%s previous run %s at %s (%d stations, %d trips)",
			backend, prev.ID, prev.CreatedAt.Format(time.RFC3339), prev.Stations, prev.Trips)
	}

	if err := store.SaveRun(ctx, run, rows); err != nil {
		log.Printf("%s save run: %v", backend, err)
		return
	}
	if mcol != nil {
		mcol.AddStoreWrites(backend, len(rows))
	}
	log.Printf("%s stored run %s", backend, run.ID)
}

func shutdown(servers []*http.Server) {
	for _, srv := range servers {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}
}

// queryObserver and publisherMetrics keep a nil collector from becoming
// a non-nil interface.
func queryObserver(c *metrics.Collector) questions.Observer {
	if c == nil {
		return nil
	}
	return c
}

func publisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return c
}
