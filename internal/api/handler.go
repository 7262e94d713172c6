package api

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Yasin-shaik/QValley/internal/analyzer"
	"github.com/Yasin-shaik/QValley/internal/domain"
	"github.com/Yasin-shaik/QValley/internal/ingest"
	"github.com/Yasin-shaik/QValley/internal/rules"
)

// signalTTL is how long memoized analyzer output stays cached. Identical
// uploads within this window return the stored verdict instead of
// re-rolling jitter.
const signalTTL = time.Hour

// defaultMaxUploadBytes caps uploads when no limit is configured.
const defaultMaxUploadBytes = 10 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	repo           domain.Repository
	cache          domain.Cache
	bus            domain.EventBus
	scorer         *analyzer.Analyzer
	engine         *rules.Engine
	version        string
	maxUploadBytes int64
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer *analyzer.Analyzer, engine *rules.Engine, version string, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		repo:           repo,
		cache:          cache,
		bus:            bus,
		scorer:         scorer,
		engine:         engine,
		version:        version,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadBankCSV handles POST /bank/upload: a multipart CSV of bank rows.
// Pre-analyzed rows pass through normalized; raw rows are scored.
func (h *Handler) UploadBankCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "multipart field 'file' is required",
		})
		return
	}
	defer file.Close()

	if err := ingest.CheckFilename(header.Filename); err != nil {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{
			"error": err.Error(),
		})
		return
	}

	txs, err := ingest.Ingest(file, h.scorer)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("csv ingestion failed", "file", header.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to process CSV",
		})
		return
	}

	saved := 0
	if h.repo != nil {
		for _, tx := range txs {
			if err := h.repo.SaveTransaction(ctx, tx); err != nil {
				slog.Error("failed to save transaction", "id", tx.ID, "error", err)
				continue
			}
			saved++
		}
	}

	for _, tx := range txs {
		h.publishAnalysis(ctx, domain.FeatureBank, tx.Payee, tx.Signal())
	}

	slog.Info("bank csv ingested",
		"file", header.Filename,
		"rows", len(txs),
		"saved", saved)

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ListBankTransactions handles GET /bank/transactions.
func (h *Handler) ListBankTransactions(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := h.repo.ListTransactions(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list transactions",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ExportBankCSV handles GET /bank/export: stored rows as a CSV download.
// The output round-trips through /bank/upload unchanged.
func (h *Handler) ExportBankCSV(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := h.repo.ListTransactions(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list transactions for export", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to export transactions",
		})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := ingest.WriteCSV(w, txs); err != nil {
		slog.Error("failed to write csv export", "error", err)
	}
}

// AnalyzeResponse wraps a risk signal with cache provenance.
type AnalyzeResponse struct {
	domain.RiskSignal
	Cached bool `json:"cached,omitempty"`
}

// AnalyzeChat handles POST /chat: scores a payment-request message.
func (h *Handler) AnalyzeChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "message is required",
		})
		return
	}

	digest := contentDigest(
		[]byte(req.Message),
		[]byte(req.UPI),
		[]byte(strconv.FormatFloat(req.Amount, 'f', -1, 64)),
		[]byte(req.Relationship),
		[]byte(strconv.Itoa(req.History)),
	)

	if sig := h.cachedSignal(ctx, digest); sig != nil {
		writeJSON(w, http.StatusOK, AnalyzeResponse{RiskSignal: *sig, Cached: true})
		return
	}

	sig := h.scorer.AnalyzeChat(req)
	h.storeSignal(ctx, digest, &sig)
	h.persistAnalysis(ctx, domain.FeatureChat, truncate(req.Message, 120), sig)

	writeJSON(w, http.StatusOK, AnalyzeResponse{RiskSignal: sig})
}

// MicrofraudRequest is the request body for POST /microfraud: one
// transaction per line, "date,payee,amount".
type MicrofraudRequest struct {
	Transactions string `json:"transactions"`
}

// AnalyzeMicrofraud handles POST /microfraud: groups a transaction batch
// by payee and scores each group.
func (h *Handler) AnalyzeMicrofraud(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MicrofraudRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	batch := parseBatch(req.Transactions)
	if len(batch) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "no parseable transactions; expected lines of date,payee,amount",
		})
		return
	}

	results := h.scorer.AnalyzeMicrofraud(batch)
	for _, res := range results {
		h.persistAnalysis(ctx, domain.FeatureMicrofraud, res.Group.Payee, res.Signal)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"groups": results,
		"count":  len(results),
	})
}

// parseBatch reads one transaction per line in "date,payee,amount" order.
// Lines with fewer than three fields or an unparseable amount are skipped.
func parseBatch(raw string) []domain.BatchTransaction {
	batch := []domain.BatchTransaction{}
	for _, line := range strings.Split(raw, "\n") {
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			continue
		}
		batch = append(batch, domain.BatchTransaction{
			Date:   strings.TrimSpace(parts[0]),
			Payee:  strings.TrimSpace(parts[1]),
			Amount: amount,
		})
	}
	return batch
}

// AnalyzeImage handles POST /image: a multipart screenshot upload with an
// optional decoded QR payload in the "qrText" form field.
func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "multipart field 'file' is required",
		})
		return
	}
	defer file.Close()

	img, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to read upload",
		})
		return
	}

	qrText := r.FormValue("qrText")
	digest := contentDigest(img, []byte(qrText))

	if sig := h.cachedSignal(ctx, digest); sig != nil {
		writeJSON(w, http.StatusOK, AnalyzeResponse{RiskSignal: *sig, Cached: true})
		return
	}

	sig := h.scorer.AnalyzeImage(img, qrText)
	h.storeSignal(ctx, digest, &sig)
	h.persistAnalysis(ctx, domain.FeatureScreenshot, header.Filename, sig)

	writeJSON(w, http.StatusOK, AnalyzeResponse{RiskSignal: sig})
}

// ListResults handles GET /results: stored analyses filtered by feature and
// time range, with ordering and pagination.
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	q := r.URL.Query()
	filter := domain.ResultFilter{
		Feature: q.Get("feature"),
		Order:   q.Get("order"),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.From = parseTimeParam(q.Get("from"))
	filter.To = parseTimeParam(q.Get("to"))

	analyses, err := h.repo.ListAnalyses(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list analyses", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list results",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": analyses,
		"count":   len(analyses),
	})
}

// parseTimeParam accepts the canonical timestamp layout or a bare date.
func parseTimeParam(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(domain.TimestampLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all loaded custom risk rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via
// POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// CreateRuleRequest is the request body for creating a custom risk rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Points      int    `json:"points"`
	Reason      string `json:"reason"`
	Enabled     bool   `json:"enabled"`
}

// CreateRule creates a custom risk rule and saves it to the database.
// The CEL expression is validated by loading it into the engine first.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and expression are required",
		})
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	rule := &domain.RiskRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Points:      req.Points,
		Reason:      req.Reason,
		Enabled:     req.Enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.engine.LoadRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveRiskRule(ctx, rule); err != nil {
			slog.Error("failed to save risk rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("risk rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all enabled rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListRiskRules(ctx)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// cachedSignal looks up a memoized signal; cache errors degrade to a miss.
func (h *Handler) cachedSignal(ctx context.Context, digest string) *domain.RiskSignal {
	if h.cache == nil {
		return nil
	}
	sig, err := h.cache.GetSignal(ctx, digest)
	if err != nil {
		slog.Warn("signal cache lookup failed", "error", err)
		return nil
	}
	return sig
}

func (h *Handler) storeSignal(ctx context.Context, digest string, sig *domain.RiskSignal) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetSignal(ctx, digest, sig, signalTTL); err != nil {
		slog.Warn("signal cache store failed", "error", err)
	}
}

// persistAnalysis saves an analyzer result and publishes the completion
// event. Persistence failures are logged, never surfaced to the caller.
func (h *Handler) persistAnalysis(ctx context.Context, feature, inputValue string, sig domain.RiskSignal) {
	if h.repo != nil {
		a := &domain.Analysis{
			ID:         uuid.New().String(),
			Feature:    feature,
			InputValue: inputValue,
			Score:      sig.Trust,
			Verdict:    sig.Verdict,
			Reasons:    sig.Reasons,
			Action:     sig.Action,
			CreatedAt:  time.Now().UTC(),
		}
		if err := h.repo.SaveAnalysis(ctx, a); err != nil {
			slog.Error("failed to save analysis", "feature", feature, "error", err)
		}
	}

	h.publishAnalysis(ctx, feature, inputValue, sig)
}

func (h *Handler) publishAnalysis(ctx context.Context, feature, inputValue string, sig domain.RiskSignal) {
	if h.bus == nil {
		return
	}

	event := domain.AnalysisEvent{
		Feature:    feature,
		InputValue: inputValue,
		Trust:      sig.Trust,
		Verdict:    sig.Verdict,
		Reasons:    sig.Reasons,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, domain.TopicAnalysisCompleted, payload); err != nil {
		slog.Warn("failed to publish analysis event", "feature", feature, "error", err)
	}
}

// contentDigest hashes the given parts into a stable cache key.
func contentDigest(parts ...[]byte) string {
	sum := md5.New()
	for _, p := range parts {
		sum.Write(p)
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
