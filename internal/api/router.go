package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/httpserver"
	"github.com/dmitrymomot/creditkit/pkg/logger"
	"github.com/dmitrymomot/creditkit/pkg/requestid"
	"github.com/dmitrymomot/creditkit/pkg/runlog"
)

// ReportReader returns the last stored report of a period.
type ReportReader interface {
	Last(ctx context.Context, period string) (runlog.Report, error)
}

// Options configures the router. Trigger and Reports are required.
type Options struct {
	Logger *slog.Logger
	// Secret authorizes the cron endpoints via "Authorization: Bearer <secret>".
	// An empty secret rejects every request.
	Secret       string
	Trigger      func(ctx context.Context) credits.Result
	Reports      ReportReader
	ReadyChecks  []httpserver.Check
	CheckTimeout time.Duration
	Metrics      http.Handler
	Now          func() time.Time
}

type handlers struct {
	log     *slog.Logger
	trigger func(ctx context.Context) credits.Result
	reports ReportReader
	now     func() time.Time
}

// NewRouter builds the HTTP surface of the service.
func NewRouter(opts Options) http.Handler {
	if opts.Trigger == nil || opts.Reports == nil {
		panic("api: trigger and reports are required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 2 * time.Second
	}

	h := &handlers{
		log:     opts.Logger.With(logger.Component("api")),
		trigger: opts.Trigger,
		reports: opts.Reports,
		now:     opts.Now,
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(h.log, opts.CheckTimeout))
	r.Get("/readyz", httpserver.HealthCheckHandler(h.log, opts.CheckTimeout, opts.ReadyChecks...))
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/cron/monthly-credits", func(r chi.Router) {
		r.Use(bearerAuth(opts.Secret))
		r.Post("/", h.triggerMonthlyCredits)
		r.Get("/last", h.lastReport)
	})

	return r
}

func (h *handlers) triggerMonthlyCredits(w http.ResponseWriter, r *http.Request) {
	res := h.trigger(r.Context())
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func (h *handlers) lastReport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = credits.Period(h.now())
	} else {
		p, err := credits.ParsePeriod(period)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		period = p
	}

	report, err := h.reports.Last(r.Context(), period)
	switch {
	case errors.Is(err, runlog.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		h.log.ErrorContext(r.Context(), "failed to load run report", logger.Period(period), logger.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to load run report"))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func bearerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
