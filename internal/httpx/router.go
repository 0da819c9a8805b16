package httpx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcamposv/metrica/internal/models"
	"github.com/mcamposv/metrica/internal/service"
	"github.com/mcamposv/metrica/internal/utils"
)

func NewRouter(log *slog.Logger, svc *service.Service) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(utils.Metrics)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			from, to, ok := dateRange(w, req)
			if !ok {
				return
			}
			report, err := svc.GetMetrics(req.Context(), from, to, csvList(req.URL.Query().Get("source")))
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			writeJSON(w, report)
		})

		r.Post("/refresh", func(w http.ResponseWriter, req *http.Request) {
			from, to, ok := dateRange(w, req)
			if !ok {
				return
			}
			report, err := svc.ForceRefresh(req.Context(), from, to)
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			writeJSON(w, report)
		})
	})

	return mux
}

func dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	from, err := time.Parse(models.DateFormat, q.Get("from"))
	if err != nil {
		http.Error(w, "from required (YYYY-MM-DD)", 400)
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(models.DateFormat, q.Get("to"))
	if err != nil {
		http.Error(w, "to required (YYYY-MM-DD)", 400)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func csvList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
