package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appinteractions "github.com/bryanwahyu/interaction-log/internal/application/interactions"
	aidomain "github.com/bryanwahyu/interaction-log/internal/domain/ai"
	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/infra/report"
	"github.com/bryanwahyu/interaction-log/internal/middleware"
)

// maxBodyBytes bounds a submission request body.
const maxBodyBytes = 64 << 10

// Options configures the HTTP surface.
type Options struct {
	Checkers       map[string]middleware.HealthChecker
	APIKeys        map[string]string
	RateCapacity   int
	RateRefill     int
	AllowedOrigins []string
	Log            *slog.Logger
}

type Router struct {
	svc *appinteractions.Service
	log *slog.Logger
}

func NewRouter(svc *appinteractions.Service, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	r := &Router{svc: svc, log: log}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.RequestLogger(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler(svc.Busy))
	mux.Get("/live", middleware.LivenessHandler)

	mux.Group(func(g chi.Router) {
		g.Use(middleware.APIKeyAuth(opts.APIKeys, log))
		g.Use(middleware.RateLimitMiddleware(opts.RateCapacity, opts.RateRefill))

		g.Get("/metrics", middleware.MetricsHandler)
		g.Route("/v1", func(rt chi.Router) {
			rt.Post("/interactions", r.wrap(r.handleSubmit))
			rt.Get("/interactions", r.wrap(r.handleList))
			rt.Delete("/interactions", r.wrap(r.handleClear))
			rt.Get("/interactions/{id}", r.wrap(r.handleGet))
			rt.Get("/interactions/{id}/export", r.wrap(r.handleRecordDownload))
			rt.Get("/stats", r.wrap(r.handleStats))
			rt.Get("/reports/{period}", r.wrap(r.handleReportDownload))
			rt.Post("/reports/{period}", r.wrap(r.handleReportExport))
			rt.Get("/pending", r.wrap(r.handlePendingList))
			rt.Post("/pending/{ticket}/confirm", r.wrap(r.handlePendingConfirm))
			rt.Delete("/pending/{ticket}", r.wrap(r.handlePendingDiscard))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error string `json:"error"`
}

// wrap maps service errors to status codes.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var abandoned *domain.AbandonedError
		switch {
		case errors.As(err, &abandoned):
			writeJSON(w, http.StatusAccepted, map[string]any{
				"status":  "pending",
				"ticket":  abandoned.Ticket,
				"message": "result will be held until confirmed",
			})
			return
		case errors.Is(err, domain.ErrEmptySelection):
			writeJSON(w, http.StatusOK, map[string]string{"status": "empty", "message": "nothing to export"})
			return
		}

		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			r.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "status", status, "err", err)
		}
		writeJSON(w, status, errorBody{Error: messageFor(err)})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, aidomain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrServiceFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSchemaViolation), errors.Is(err, aidomain.ErrEmptyResponse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrSchemaViolation):
		return "cannot process response: " + err.Error()
	case errors.Is(err, aidomain.ErrEmptyResponse):
		return "classification service returned an empty response"
	case errors.Is(err, domain.ErrServiceFailure):
		return "classification service unavailable, please retry: " + err.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/interactions?wait=30s
// Body: {"text": "...", "channel": "WhatsApp"}
// When wait elapses first, the submission is abandoned and 202 carries the ticket.
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text    string `json:"text"`
		Channel string `json:"channel"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := middleware.ValidateText(body.Text); err != nil {
		return err
	}
	channel, err := middleware.ValidateChannel(body.Channel)
	if err != nil {
		return err
	}

	ctx := req.Context()
	if v := req.URL.Query().Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: invalid wait %q", domain.ErrInvalidInput, v)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	middleware.IncrementSubmissions()
	rec, err := r.svc.Submit(ctx, appinteractions.SubmitCommand{Text: body.Text, Channel: string(channel)})
	if err != nil {
		if errors.Is(err, domain.ErrAbandoned) {
			middleware.IncrementSubmissionsAbandoned()
		} else {
			middleware.IncrementSubmissionsFailed()
		}
		return err
	}
	return writeJSON(w, http.StatusCreated, rec)
}

// GET /v1/interactions?period=daily&limit=20
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	period, err := middleware.ValidatePeriod(q.Get("period"))
	if err != nil {
		return err
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: invalid limit %q", domain.ErrInvalidInput, v)
		}
		limit = middleware.ValidateLimit(n)
	}

	list := r.svc.List(period)
	total := len(list)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"period": period,
		"total":  total,
		"items":  list,
	})
}

// GET /v1/interactions/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return err
	}
	rec, err := r.svc.Get(domain.RecordID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// DELETE /v1/interactions?confirm=true
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) error {
	confirmed, _ := strconv.ParseBool(req.URL.Query().Get("confirm"))
	if err := r.svc.Clear(req.Context(), confirmed); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GET /v1/stats?period=weekly
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	period, err := middleware.ValidatePeriod(req.URL.Query().Get("period"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, r.svc.Stats(period))
}

// GET /v1/interactions/{id}/export?format=pdf
func (r *Router) handleRecordDownload(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return err
	}
	f, err := middleware.ValidateFormat(req.URL.Query().Get("format"))
	if err != nil {
		return err
	}
	file, err := r.svc.RenderRecord(domain.RecordID(id), f)
	if err != nil {
		countExport(err)
		return err
	}
	middleware.IncrementExports()
	return writeFile(w, file)
}

// GET /v1/reports/{period}?format=csv
func (r *Router) handleReportDownload(w http.ResponseWriter, req *http.Request) error {
	p, f, err := reportParams(req)
	if err != nil {
		return err
	}
	file, err := r.svc.RenderPeriod(p, f)
	if err != nil {
		countExport(err)
		return err
	}
	middleware.IncrementExports()
	return writeFile(w, file)
}

// POST /v1/reports/{period}?format=pdf writes the report to the export target.
func (r *Router) handleReportExport(w http.ResponseWriter, req *http.Request) error {
	p, f, err := reportParams(req)
	if err != nil {
		return err
	}
	exp, err := r.svc.ExportPeriod(req.Context(), p, f)
	if err != nil {
		countExport(err)
		return err
	}
	middleware.IncrementExports()
	return writeJSON(w, http.StatusCreated, exp)
}

func reportParams(req *http.Request) (domain.Period, report.Format, error) {
	p, err := domain.ParsePeriod(chi.URLParam(req, "period"))
	if err != nil {
		return "", "", err
	}
	f, err := middleware.ValidateFormat(req.URL.Query().Get("format"))
	if err != nil {
		return "", "", err
	}
	return p, f, nil
}

func countExport(err error) {
	switch {
	case errors.Is(err, domain.ErrEmptySelection):
		middleware.IncrementExportsEmpty()
	case errors.Is(err, domain.ErrExportFailure):
		middleware.IncrementExportsFailed()
	}
}

func writeFile(w http.ResponseWriter, file report.File) error {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("X-Record-Count", strconv.Itoa(file.Records))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(file.Data)
	return err
}

// GET /v1/pending
func (r *Router) handlePendingList(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.svc.ListPending())
}

// POST /v1/pending/{ticket}/confirm
func (r *Router) handlePendingConfirm(w http.ResponseWriter, req *http.Request) error {
	ticket := chi.URLParam(req, "ticket")
	if err := middleware.ValidateTicket(ticket); err != nil {
		return err
	}
	rec, err := r.svc.ConfirmPending(req.Context(), ticket)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, rec)
}

// DELETE /v1/pending/{ticket}
func (r *Router) handlePendingDiscard(w http.ResponseWriter, req *http.Request) error {
	ticket := chi.URLParam(req, "ticket")
	if err := middleware.ValidateTicket(ticket); err != nil {
		return err
	}
	if err := r.svc.DiscardPending(ticket); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
