// Package httpadapter exposes the intake API: uploads, review, snapshots,
// stats and training.
package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
	"github.com/kirillkom/invoice-intake/internal/core/ports"
	"github.com/kirillkom/invoice-intake/internal/infrastructure/export"
	"github.com/kirillkom/invoice-intake/internal/observability/metrics"
)

type Options struct {
	Service        string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	Metrics        *metrics.HTTPServerMetrics
}

type Router struct {
	ingest    ports.InvoiceIngestor
	review    ports.CorrectionService
	snapshots ports.SnapshotService
	training  ports.TrainingService
	repo      ports.InvoiceRepository

	opts Options
}

func NewRouter(
	ingest ports.InvoiceIngestor,
	review ports.CorrectionService,
	snapshots ports.SnapshotService,
	training ports.TrainingService,
	repo ports.InvoiceRepository,
	opts Options,
) *Router {
	if opts.Service == "" {
		opts.Service = "api"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Router{
		ingest:    ingest,
		review:    review,
		snapshots: snapshots,
		training:  training,
		repo:      repo,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/invoices", rt.uploadInvoice)
	mux.HandleFunc("GET /v1/invoices", rt.listInvoices)
	mux.HandleFunc("GET /v1/invoices/{id}", rt.getInvoiceByID)
	mux.HandleFunc("GET /v1/invoices/{id}/snapshot", rt.exportSnapshot)
	mux.HandleFunc("POST /v1/invoices/{id}/corrections", rt.applyCorrection)
	mux.HandleFunc("GET /v1/stats", rt.getStats)
	mux.HandleFunc("POST /v1/train", rt.train)

	var handler http.Handler = mux
	if rt.opts.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxConcurrent, defaultBackpressureWait)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.Service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	inv, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		outcome := "failed"
		if domain.IsKind(err, domain.ErrDuplicate) {
			outcome = "duplicate"
		}
		rt.recordUpload(outcome, 0)
		writeError(w, err)
		return
	}

	rt.recordUpload("accepted", inv.SizeBytes)
	writeJSON(w, http.StatusAccepted, inv)
}

func (rt *Router) listInvoices(w http.ResponseWriter, r *http.Request) {
	filter := domain.InvoiceFilter{
		Status: domain.InvoiceStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must be a non-negative integer"})
			return
		}
		filter.Offset = n
	}

	invoices, err := rt.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (rt *Router) getInvoiceByID(w http.ResponseWriter, r *http.Request) {
	inv, err := rt.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (rt *Router) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	snapshot, err := rt.snapshots.SnapshotByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordExport(rt.opts.Service, string(format))
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format != export.FormatJSON {
		w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(snapshot.InvoiceID)+`"`)
	}
	if err := export.Write(w, format, snapshot); err != nil {
		// Headers are gone; log through the access log's status instead.
		writeError(w, err)
	}
}

func (rt *Router) applyCorrection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     string `json:"kind"`
		Value    string `json:"value"`
		Accepted bool   `json:"accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	kind, err := domain.ParseFieldKind(strings.TrimSpace(req.Kind))
	if err != nil || kind == domain.KindLineItem {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must name a scalar field kind"})
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value is required"})
		return
	}

	record, err := rt.review.ApplyCorrection(r.Context(), r.PathValue("id"), kind, req.Value, req.Accepted)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordCorrection(rt.opts.Service, string(kind), record.Accepted)
	}
	writeJSON(w, http.StatusCreated, record)
}

func (rt *Router) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.repo.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) train(w http.ResponseWriter, r *http.Request) {
	report, err := rt.training.Train(r.Context())
	if err != nil {
		// Not enough corrections is an expected answer, not a failure.
		if domain.IsKind(err, domain.ErrInsufficientData) {
			rt.recordTraining("insufficient_data")
			writeJSON(w, http.StatusOK, map[string]any{
				"trained": false,
				"reason":  err.Error(),
			})
			return
		}
		rt.recordTraining("failed")
		writeError(w, err)
		return
	}

	rt.recordTraining("trained")
	writeJSON(w, http.StatusOK, map[string]any{
		"trained": true,
		"report":  report,
	})
}

func (rt *Router) recordUpload(outcome string, size int64) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordUpload(rt.opts.Service, outcome, size)
	}
}

func (rt *Router) recordTraining(outcome string) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordTrainingRun(rt.opts.Service, outcome)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
		return
	}
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
