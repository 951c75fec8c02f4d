package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Reservations *ReservationHandler
	Equipment    *EquipmentHandler
	Locations    *LocationHandler
	Stats        *StatsHandler
	Health       *HealthHandler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Reservations != nil {
		mux.HandleFunc("/api/reservations", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Reservations.List(w, r)
			case http.MethodPost:
				cfg.Reservations.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/api/reservations/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withResourceID(w, r, "/api/reservations/")
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Reservations.Get(w, r)
			case http.MethodPut:
				cfg.Reservations.Update(w, r)
			case http.MethodDelete:
				cfg.Reservations.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Equipment != nil {
		mux.HandleFunc("/api/equipment", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Equipment.List(w, r)
			case http.MethodPost:
				cfg.Equipment.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/api/equipment/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withResourceID(w, r, "/api/equipment/")
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Equipment.Get(w, r)
			case http.MethodPut:
				cfg.Equipment.Update(w, r)
			case http.MethodDelete:
				cfg.Equipment.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Locations != nil {
		mux.HandleFunc("/api/locations", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Locations.List(w, r)
			case http.MethodPost:
				cfg.Locations.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/api/locations/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withResourceID(w, r, "/api/locations/")
			if !ok {
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Locations.Delete(w, r)
		})
	}

	if cfg.Stats != nil {
		mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Stats.Get(w, r)
		})
	}

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Check(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// withResourceID parses the trailing path segment as a positive id. It writes
// the error response itself when the segment is missing or malformed.
func withResourceID(w http.ResponseWriter, r *http.Request, prefix string) (*http.Request, bool) {
	segment := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if segment == "" || strings.Contains(segment, "/") {
		http.NotFound(w, r)
		return r, false
	}
	id, err := parsePathID(segment)
	if err != nil {
		newResponder(LoggerFromContext(r.Context())).writeError(r.Context(), w, http.StatusBadRequest, err)
		return r, false
	}
	return r.WithContext(ContextWithResourceID(r.Context(), id)), true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = w.Write([]byte(`{"error":"Method not allowed"}` + "\n"))
}
