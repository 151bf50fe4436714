package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jkleiven/rollcall/internal/apperr"
	"github.com/jkleiven/rollcall/internal/index"
	"github.com/jkleiven/rollcall/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// IngestEvent handles POST /api/events.
//
//	@Summary		Submit an identity event for reconciliation
//	@Tags			events
//	@Accept			json
//	@Param			body	body	IngestEventRequest	true	"Identity event"
//	@Success		202		"Event accepted for processing"
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [post]
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Identity == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("identity is required"))
		return
	}

	var at time.Time
	if req.ObservedAt != nil {
		at = *req.ObservedAt
	}
	if err := h.svc.SubmitEvent(req.Identity, at); err != nil {
		if errors.Is(err, apperr.ErrUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("event queue full"))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ListRecords handles GET /api/records.
//
//	@Summary		List attendance records, newest first
//	@Tags			records
//	@Produce		json
//	@Param			identity	query		string	false	"Filter by identity"
//	@Param			date		query		string	false	"Filter by date (YYYY-MM-DD)"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	RecordListResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	date := q.Get("date")
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
			return
		}
	}

	items, total, err := h.svc.ListRecords(index.Filter{
		Identity: q.Get("identity"),
		Date:     date,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		slog.Error("list records failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []RecordItem{}
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: items, Total: total})
}

// Summary handles GET /api/summary.
//
//	@Summary		Daily attendance summary, one row per identity
//	@Tags			records
//	@Produce		json
//	@Param			date	query		string	false	"Date (YYYY-MM-DD), defaults to today"
//	@Success		200		{object}	SummaryResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}

	items, err := h.svc.DailySummary(date)
	if err != nil {
		slog.Error("summary failed", slog.String("date", date), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []RecordItem{}
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Date: date, Records: items})
}
