package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/subscription-assistant/internal/api/middleware"
	"github.com/dvloznov/subscription-assistant/internal/engine"
	"github.com/dvloznov/subscription-assistant/internal/jobs"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(eng *engine.Engine, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{engine: eng, log: log}
}

// Register handles POST /api/transactions.
// The response carries the affected subscription snapshot, or null when the
// transaction produced no subscription effect.
func (h *TransactionsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req engine.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.Timestamp.IsZero() {
		middleware.WriteError(w, http.StatusBadRequest, "timestamp is required")
		return
	}

	sub := h.engine.RegisterTransaction(req)
	if sub != nil {
		h.log.Info().
			Int64("subscription_id", sub.ID).
			Str("provider", sub.Provider).
			Msg("Transaction linked to subscription")
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subscription": sub,
	})
}

// List handles GET /api/transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	transactions := h.engine.Transactions()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// EmailsHandler handles email-related endpoints.
type EmailsHandler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewEmailsHandler creates a new emails handler.
func NewEmailsHandler(eng *engine.Engine, log zerolog.Logger) *EmailsHandler {
	return &EmailsHandler{engine: eng, log: log}
}

// Ingest handles POST /api/emails.
func (h *EmailsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req engine.EmailInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Subject == "" && req.Body == "" {
		middleware.WriteError(w, http.StatusBadRequest, "subject or body is required")
		return
	}
	if req.Timestamp.IsZero() {
		middleware.WriteError(w, http.StatusBadRequest, "timestamp is required")
		return
	}

	record := h.engine.IngestEmail(req)
	h.log.Info().
		Str("email_id", record.EmailID).
		Strs("tags", record.Tags).
		Msg("Email ingested")

	middleware.WriteJSON(w, http.StatusOK, record)
}

// List handles GET /api/emails.
func (h *EmailsHandler) List(w http.ResponseWriter, r *http.Request) {
	emails := h.engine.Emails()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"emails": emails,
		"count":  len(emails),
	})
}

// SubscriptionsHandler handles subscription-related endpoints.
type SubscriptionsHandler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewSubscriptionsHandler creates a new subscriptions handler.
func NewSubscriptionsHandler(eng *engine.Engine, log zerolog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{engine: eng, log: log}
}

// List handles GET /api/subscriptions.
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	subscriptions := h.engine.Subscriptions()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subscriptions": subscriptions,
		"count":         len(subscriptions),
	})
}

// Decide handles POST /api/subscriptions/{id}/decision.
func (h *SubscriptionsHandler) Decide(w http.ResponseWriter, r *http.Request, id string) {
	subscriptionID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid subscription ID")
		return
	}

	var req struct {
		Decision engine.Decision `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Decision != engine.DecisionCancel && req.Decision != engine.DecisionRenew {
		middleware.WriteError(w, http.StatusBadRequest, "decision must be cancel or renew")
		return
	}

	sub, err := h.engine.ApplyDecision(subscriptionID, req.Decision)
	if err != nil {
		if errors.Is(err, engine.ErrSubscriptionNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		h.log.Error().Err(err).Int64("subscription_id", subscriptionID).Msg("Failed to apply decision")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to apply decision")
		return
	}

	h.log.Info().
		Int64("subscription_id", sub.ID).
		Str("decision", string(req.Decision)).
		Str("status", string(sub.Status)).
		Msg("Decision applied")

	middleware.WriteJSON(w, http.StatusOK, sub)
}

// DashboardHandler handles the dashboard endpoint.
type DashboardHandler struct {
	engine         *engine.Engine
	defaultHorizon int
	log            zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(eng *engine.Engine, defaultHorizon int, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{engine: eng, defaultHorizon: defaultHorizon, log: log}
}

// Get handles GET /api/dashboard?horizon_days=N.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	horizon := h.defaultHorizon
	if v := r.URL.Query().Get("horizon_days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "horizon_days must be a positive integer")
			return
		}
		horizon = parsed
	}

	middleware.WriteJSON(w, http.StatusOK, h.engine.Dashboard(horizon))
}

// StatementsHandler handles batch statement imports.
type StatementsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(publisher jobs.Publisher, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{publisher: publisher, log: log}
}

// EnqueueImport handles POST /api/statements/import.
func (h *StatementsHandler) EnqueueImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source       string                    `json:"source"`
		Transactions []engine.TransactionInput `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Transactions) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transactions are required")
		return
	}
	for _, tx := range req.Transactions {
		if tx.Description == "" || tx.Timestamp.IsZero() {
			middleware.WriteError(w, http.StatusBadRequest, "every transaction needs a description and timestamp")
			return
		}
	}

	job := &jobs.ImportStatementJob{
		Source:       req.Source,
		Transactions: req.Transactions,
	}
	if err := h.publisher.PublishImportStatement(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue statement import")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue statement import")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("source", job.Source).
		Int("transactions", len(job.Transactions)).
		Msg("Statement import enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Source: query.Get("source"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
