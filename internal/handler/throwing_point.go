package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/utility-lineups/internal/service"
)

type ThrowingPointHandler struct {
	points *service.ThrowingPointService
	logger *slog.Logger
}

func NewThrowingPointHandler(points *service.ThrowingPointService, logger *slog.Logger) *ThrowingPointHandler {
	return &ThrowingPointHandler{points: points, logger: logger}
}

// HandleCreate adds a throwing point under the utility in the path.
//
// HTTP: POST /api/utilities/{id}/throwing-points
func (h *ThrowingPointHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ThrowingPointInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	tp, err := h.points.Create(r.Context(), currentUser(r), chi.URLParam(r, "id"), in)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, tp)
}

// HTTP: GET /api/utilities/{id}/throwing-points
func (h *ThrowingPointHandler) HandleListByUtility(w http.ResponseWriter, r *http.Request) {
	points, err := h.points.ListByUtility(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, points)
}

// HTTP: GET /api/throwing-points/{id}
func (h *ThrowingPointHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tp, err := h.points.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, tp)
}

// HTTP: PUT /api/throwing-points/{id}
func (h *ThrowingPointHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.ThrowingPointUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	tp, err := h.points.Update(r.Context(), currentUser(r), chi.URLParam(r, "id"), in)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, tp)
}

// HTTP: DELETE /api/throwing-points/{id}
func (h *ThrowingPointHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.points.Delete(r.Context(), currentUser(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}
