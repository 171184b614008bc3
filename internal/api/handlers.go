package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/catdog/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	p *Presenter
}

// NewHandler creates a new Handler.
func NewHandler(p *Presenter) *Handler {
	return &Handler{p: p}
}

// Current handles GET /api/current.
func (h *Handler) Current(w http.ResponseWriter, _ *http.Request) {
	v, s := h.p.Current()
	switch {
	case v != nil:
		item := newViewResponse(*v)
		writeJSON(w, http.StatusOK, CurrentResponse{State: "awaiting", Item: &item})
	case s != nil:
		writeJSON(w, http.StatusOK, CurrentResponse{State: "finished", Summary: s})
	default:
		writeJSON(w, http.StatusOK, CurrentResponse{State: "idle"})
	}
}

// CurrentImage handles GET /api/current/image.
func (h *Handler) CurrentImage(w http.ResponseWriter, r *http.Request) {
	v, _ := h.p.Current()
	if v == nil {
		writeError(w, http.StatusNotFound, "no current item")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, v.Item.Path)
}

// Decide handles POST /api/decision.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	d, err := models.ParseDecision(req.Decision)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.p.Submit(d, req.Position)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoItem), errors.Is(err, ErrStale), errors.Is(err, ErrUndoDisabled):
			writeError(w, http.StatusConflict, err.Error())
		default:
			slog.Error("submit decision failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, DecisionResponse{Decision: string(d), Filename: v.Item.Name})
}
