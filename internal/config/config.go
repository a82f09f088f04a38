package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	StationsFile  string `validate:"required"`
	TripsFile     string `validate:"required"`
	ReportFile    string `validate:"required"`
	QuestionsFile string

	DatabaseURL    string
	ReportDatabase string
	SQLiteDatabase string

	NATSURL           string `validate:"omitempty,url"`
	NATSSubjectPrefix string `validate:"required"`
	LogNATSSubjects   bool

	MetricsAddr       string `validate:"omitempty,hostname_port"`
	APIAddr           string `validate:"omitempty,hostname_port"`
	APIAllowedOrigins []string
	Serve             bool
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		StationsFile:  getenvDefault("STATIONS_FILE", "indego-stations-2017-10-20.csv"),
		TripsFile:     getenvDefault("TRIPS_FILE", "indego-trips-2017-q3.csv"),
		ReportFile:    getenvDefault("REPORT_FILE", "station_report.csv"),
		QuestionsFile: os.Getenv("QUESTIONS_FILE"),
	}

	// Postgres sink: prefer DATABASE_URL / PG_DSN, else build from PG* vars when PGDATABASE is set
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn
	// Optional database name swapped into the DSN (e.g. a per-quarter reports DB)
	cfg.ReportDatabase = os.Getenv("PG_REPORT_DATABASE")
	cfg.SQLiteDatabase = os.Getenv("SQLITE_DATABASE")

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "bikeshare")
	cfg.LogNATSSubjects = getenvBool("LOG_NATS_SUBJECTS")

	// Listen addresses (e.g., ":9102"). Empty disables the server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.APIAddr = os.Getenv("API_ADDR")
	cfg.APIAllowedOrigins = splitList(getenvDefault("API_ALLOWED_ORIGINS", "*"))
	cfg.Serve = getenvBool("SERVE")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Listeners only run after the batch, so they need SERVE
	if !cfg.Serve && (cfg.MetricsAddr != "" || cfg.APIAddr != "") {
		log.Printf("METRICS_ADDR and API_ADDR are ignored without SERVE")
		cfg.MetricsAddr, cfg.APIAddr = "", ""
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvBool(k string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
