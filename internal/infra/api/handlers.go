package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
	rds "essaygenius/internal/infra/redis"
	"essaygenius/internal/usecase"
)

// maxWebhookBody caps webhook payload reads.
const maxWebhookBody = 1 << 20

// Handlers holds the HTTP handlers for the generation API.
type Handlers struct {
	generation usecase.GenerationUseCase
	papers     usecase.PaperUseCase
	credits    usecase.CreditUseCase
	payments   usecase.PaymentUseCase
	gateway    adapter.PaymentGateway
	cache      *rds.StatusCache
	log        *zerolog.Logger
}

func NewHandlers(
	generation usecase.GenerationUseCase,
	papers usecase.PaperUseCase,
	credits usecase.CreditUseCase,
	payments usecase.PaymentUseCase,
	gateway adapter.PaymentGateway,
	cache *rds.StatusCache,
	log *zerolog.Logger,
) *Handlers {
	return &Handlers{
		generation: generation,
		papers:     papers,
		credits:    credits,
		payments:   payments,
		gateway:    gateway,
		cache:      cache,
		log:        log,
	}
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// jobStatusResponse is the polling contract: three externally visible
// statuses, exactly one of result/error once terminal.
type jobStatusResponse struct {
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Stage    string          `json:"stage"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (h *Handlers) OutlineAndSources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wordCount, _ := strconv.Atoi(q.Get("word_count"))
	numSources, _ := strconv.Atoi(q.Get("num_sources"))

	req := model.OutlineRequest{
		Topic:                 q.Get("topic"),
		AssignmentDescription: q.Get("assignment_description"),
		WritingStyle:          q.Get("writing_style"),
		WordCount:             wordCount,
		PreviousEssay:         q.Get("previous_essay"),
		CitationFormat:        q.Get("citation_format"),
		NumSources:            numSources,
	}

	job, err := h.generation.SubmitOutline(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{JobID: job.ID, Status: "processing"})
}

func (h *Handlers) GenerateEssay(w http.ResponseWriter, r *http.Request) {
	var req model.EssayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.generation.SubmitEssay(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{JobID: job.ID, Status: "processing"})
}

func (h *Handlers) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	if doc, ok := h.cache.Get(r.Context(), jobID); ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, doc)
		return
	}

	job, err := h.generation.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Job not found")
			return
		}
		writeError(w, err)
		return
	}

	resp := statusDoc(job)
	if job.Terminal() {
		if doc, err := json.Marshal(resp); err == nil {
			_ = h.cache.Put(r.Context(), jobID, string(doc))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusDoc maps the internal queue state to the polling contract: a queued
// job is reported as processing, clients never see the pending state.
func statusDoc(job *model.Job) jobStatusResponse {
	resp := jobStatusResponse{
		Status:   string(job.Status),
		Progress: job.Progress,
		Stage:    job.Stage,
	}
	switch job.Status {
	case model.JobStatusPending:
		resp.Status = string(model.JobStatusProcessing)
	case model.JobStatusCompleted:
		resp.Result = job.Result
	case model.JobStatusFailed:
		resp.Error = job.LastError
	}
	return resp
}

func (h *Handlers) MyPapers(w http.ResponseWriter, r *http.Request) {
	papers, err := h.papers.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if papers == nil {
		papers = []*model.Paper{}
	}
	writeJSON(w, http.StatusOK, papers)
}

func (h *Handlers) DownloadPaper(w http.ResponseWriter, r *http.Request) {
	url, err := h.papers.DownloadURL(r.Context(), userID(r), chi.URLParam(r, "paper_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handlers) DeletePaper(w http.ResponseWriter, r *http.Request) {
	if err := h.papers.Delete(r.Context(), userID(r), chi.URLParam(r, "paper_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetCredits(w http.ResponseWriter, r *http.Request) {
	balance, err := h.credits.Balance(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *Handlers) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url, err := h.payments.CreateCheckout(r.Context(), userID(r), body.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Unreadable payload")
		return
	}

	event, err := h.gateway.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook rejected")
		writeDetail(w, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	if err := h.payments.Fulfill(r.Context(), event); err != nil {
		h.log.Error().Err(err).Str("session_id", event.SessionID).Msg("webhook fulfillment failed")
		writeDetail(w, http.StatusInternalServerError, "Fulfillment failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
