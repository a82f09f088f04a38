package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RequestMetrics counts responses by route pattern and status code.
type RequestMetrics interface {
	ObserveRequest(route, code string)
}

// Router wires every endpoint behind CORS and request accounting.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	if h.metrics != nil {
		r.Use(h.countRequests)
	}

	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/questions", h.Questions)
		r.Get("/report", h.Report)

		r.Get("/trips/by-type", h.TripsByType)
		r.Get("/trips/by-destination", h.TripsByDestination)
		r.Get("/trips/within-interval", h.TripsWithinInterval)
		r.Get("/trips/longest", h.LongestTrip)

		r.Get("/stations/by-status", h.StationsByStatus)
		r.Get("/stations/unique-go-live", h.UniqueGoLive)
		r.Get("/stations/close-pairs", h.ClosePairs)
		r.Get("/stations/extreme", h.ExtremeStation)
		r.Get("/stations/maintenance", h.Maintenance)

		r.Get("/passholders/busiest-month", h.BusiestMonth)
		r.Get("/bikes/most-traveled", h.MostTraveledBike)
		r.Get("/bikes/in-use", h.BikesInUse)
		r.Get("/days/busiest", h.BusiestDay)
	})
	return r
}

func (h *Handler) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, strconv.Itoa(status))
	})
}

// Serve starts the query API on addr.
func Serve(addr string, handler http.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
		}
	}()
	log.Printf("api listening on %s", addr)
	return srv
}
