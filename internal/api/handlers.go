package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tickler/internal/noteservice"
	"github.com/starford/tickler/internal/review"
)

// Handler holds API route handlers.
type Handler struct {
	svc   *noteservice.Service
	sched *review.Scheduler
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, sched *review.Scheduler) *Handler {
	return &Handler{svc: svc, sched: sched}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List indexed notes
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ScheduleReview handles POST /api/reviews.
//
//	@Summary		Schedule a note or block for review on a date
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScheduleReviewRequest	true	"Review request"
//	@Success		201		{object}	ReviewResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reviews [post]
func (h *Handler) ScheduleReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ScheduleReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if req.Line < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("line must be positive"))
		return
	}

	res, err := h.sched.Schedule(r.Context(), review.Request{
		SourcePath: req.Path,
		DateText:   req.Date,
		Line:       req.Line,
		LineText:   req.LineText,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetDailyNote handles GET /api/reviews/{date}.
//
//	@Summary		Get the daily note for a date
//	@Tags			reviews
//	@Produce		json
//	@Param			date	path		string	true	"Date text, e.g. 2024-05-02 or tomorrow"
//	@Success		200		{object}	DailyNoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reviews/{date} [get]
func (h *Handler) GetDailyNote(w http.ResponseWriter, r *http.Request) {
	date, err := url.PathUnescape(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
		return
	}
	target, doc, err := h.sched.DailyNote(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyNoteResponse{Target: target, Path: doc.Path, Content: doc.RawText})
}

// ResolveDate handles GET /api/dates/resolve.
//
//	@Summary		Resolve date text to a daily note key
//	@Tags			reviews
//	@Produce		json
//	@Param			q	query		string	false	"Date text; empty uses the default date"
//	@Success		200	{object}	models.ReviewTarget
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dates/resolve [get]
func (h *Handler) ResolveDate(w http.ResponseWriter, r *http.Request) {
	target, err := h.sched.Resolve(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, target)
}
