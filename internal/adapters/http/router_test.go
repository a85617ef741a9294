package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

type testDeps struct {
	ingest ingestFake
	review *reviewFake
	snaps  snapshotFake
	train  trainFake
	repo   *repoStub
}

func defaultDeps() *testDeps {
	inv := storedInvoice()
	return &testDeps{
		ingest: ingestFake{inv: &domain.Invoice{
			ID:         "inv-1",
			Status:     domain.StatusReceived,
			UploadedAt: time.Now().UTC(),
		}},
		review: &reviewFake{record: &domain.CorrectionRecord{
			ID:        "corr-1",
			InvoiceID: "inv-1",
			Original:  "4070.00",
			CreatedAt: time.Now().UTC(),
		}},
		snaps: snapshotFake{snapshot: &domain.Snapshot{
			InvoiceID: "inv-1",
			Fields: []domain.SnapshotField{
				{Kind: "total", Value: "4070.00", Confidence: 0.9, SourceRule: "total.labeled"},
			},
			Validation: domain.NewValidationReport([]domain.FieldIssue{
				{Kind: domain.KindTotal, Status: domain.ValidationValid, Reason: "ok"},
			}),
		}},
		train: trainFake{report: &domain.TrainingReport{
			Version:     "20260829-090000",
			SampleCount: 15,
			Accuracy:    0.8,
			Weights:     domain.RuleWeights{"total.labeled": 0.12},
		}},
		repo: &repoStub{
			invoice:  inv,
			invoices: []domain.Invoice{*inv},
			stats:    &domain.Stats{TotalInvoices: 1, TotalCorrections: 2, FieldAccuracy: 0.8},
		},
	}
}

func (d *testDeps) handler(opts Options) http.Handler {
	return NewRouter(d.ingest, d.review, d.snaps, d.train, d.repo, opts).Handler()
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUploadInvoiceAccepted(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	body, contentType := multipartBody(t, "file", "march.pdf", "%PDF-1.7 sample")
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != "inv-1" || resp["filename"] != "march.pdf" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUploadInvoiceMissingMultipartField(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", strings.NewReader("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDuplicateReturns409(t *testing.T) {
	deps := defaultDeps()
	deps.ingest = ingestFake{err: domain.WrapError(domain.ErrDuplicate, "create invoice", errors.New("content already ingested"))}
	handler := deps.handler(Options{})

	body, contentType := multipartBody(t, "file", "march.pdf", "same bytes")
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestListInvoicesPassesFilter(t *testing.T) {
	deps := defaultDeps()
	handler := deps.handler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices?status=stored&limit=5&offset=10", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deps.repo.gotFilter.Status != domain.StatusStored || deps.repo.gotFilter.Limit != 5 || deps.repo.gotFilter.Offset != 10 {
		t.Fatalf("filter not forwarded: %+v", deps.repo.gotFilter)
	}

	var resp struct {
		Invoices []domain.Invoice `json:"invoices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Invoices) != 1 || resp.Invoices[0].ID != "inv-1" {
		t.Fatalf("unexpected listing: %+v", resp.Invoices)
	}
}

func TestListInvoicesRejectsBadLimit(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices?limit=many", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetInvoiceByIDReturns404ForNotFound(t *testing.T) {
	deps := defaultDeps()
	deps.repo.getErr = domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", errors.New("id=missing"))
	handler := deps.handler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestApplyCorrectionCreated(t *testing.T) {
	deps := defaultDeps()
	handler := deps.handler(Options{})

	payload, _ := json.Marshal(map[string]any{"kind": "total", "value": "4170.00", "accepted": false})
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/inv-1/corrections", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if deps.review.gotInvoiceID != "inv-1" || deps.review.gotKind != domain.KindTotal || deps.review.gotValue != "4170.00" {
		t.Fatalf("correction not forwarded: %q %q %q", deps.review.gotInvoiceID, deps.review.gotKind, deps.review.gotValue)
	}

	var rec domain.CorrectionRecord
	if err := json.NewDecoder(res.Body).Decode(&rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Corrected != "4170.00" || rec.Accepted {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestApplyCorrectionRejectsUnknownField(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	payload, _ := json.Marshal(map[string]any{"kind": "grand_total", "value": "1.00"})
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/inv-1/corrections", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestApplyCorrectionMapsValidationErrorTo400(t *testing.T) {
	deps := defaultDeps()
	deps.review.err = domain.WrapError(domain.ErrValidation, "apply correction", errors.New("amount must be numeric"))
	handler := deps.handler(Options{})

	payload, _ := json.Marshal(map[string]any{"kind": "total", "value": "abc"})
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/inv-1/corrections", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestExportSnapshotCSVSetsDownloadHeaders(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/inv-1/snapshot?format=csv", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, "invoice_inv-1.csv") {
		t.Fatalf("unexpected disposition %q", got)
	}
	if !strings.Contains(res.Body.String(), "total,4070.00") {
		t.Fatalf("csv body missing field row:\n%s", res.Body.String())
	}
}

func TestExportSnapshotRejectsUnsupportedFormat(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/inv-1/snapshot?format=pdf", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestTrainInsufficientDataAnswers200(t *testing.T) {
	deps := defaultDeps()
	deps.train = trainFake{err: domain.WrapError(domain.ErrInsufficientData, "train", errors.New("3 corrections logged, 10 required"))}
	handler := deps.handler(Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/train", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp struct {
		Trained bool   `json:"trained"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Trained || resp.Reason == "" {
		t.Fatalf("expected trained=false with a reason, got %+v", resp)
	}
}

func TestTrainSuccessReturnsReport(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/train", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp struct {
		Trained bool                  `json:"trained"`
		Report  domain.TrainingReport `json:"report"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Trained || resp.Report.Version != "20260829-090000" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStatsEndpoint(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var stats domain.Stats
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalInvoices != 1 || stats.TotalCorrections != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	handler := defaultDeps().handler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
