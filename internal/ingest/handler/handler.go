package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest/publisher"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest/validator"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/postings"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Lookup is the read side of the index used by GET /api/v1/postings/{term}.
type Lookup interface {
	Lookup(term string) *postings.List
}

type Handler struct {
	sink   publisher.Sink
	index  Lookup
	logger *slog.Logger
}

func New(sink publisher.Sink, idx Lookup) *Handler {
	return &Handler{
		sink:   sink,
		index:  idx,
		logger: slog.Default().With("component", "postings-handler"),
	}
}

// PostingsResponse lists one term's postings. Rendered is the list's
// diagnostic form.
type PostingsResponse struct {
	Term     string `json:"term"`
	DocFreq  int    `json:"doc_freq"`
	DocIDs   []int  `json:"doc_ids"`
	Rendered string `json:"rendered"`
}

// Submit accepts one posting event. Terms are normalised the same way query
// terms are, so what is written can be searched.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var event ingest.PostingEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	event.Term = parser.NormalizeTerm(event.Term)
	event.FromTerm = parser.NormalizeTerm(event.FromTerm)
	if err := validator.Validate(&event); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	event.Stamp(time.Now())

	if err := h.sink.Publish(ctx, &event); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("posting event rejected",
			"event_id", event.EventID,
			"op", event.Op,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "posting event rejected")
		return
	}
	log.Info("posting event accepted",
		"event_id", event.EventID,
		"op", event.Op,
		"term", event.Term,
		"doc_id", event.DocID,
	)
	h.writeJSON(w, http.StatusAccepted, ingest.AcceptResponse{
		EventID: event.EventID,
		Status:  "accepted",
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	term := parser.NormalizeTerm(r.PathValue("term"))
	list := h.index.Lookup(term)
	if list.IsEmpty() {
		h.writeError(w, http.StatusNotFound, "term not found")
		return
	}
	h.writeJSON(w, http.StatusOK, PostingsResponse{
		Term:     term,
		DocFreq:  list.Len(),
		DocIDs:   list.Slice(),
		Rendered: list.String(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
