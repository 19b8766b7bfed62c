package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/utility-lineups/internal/service"
)

type MediaHandler struct {
	media  *service.MediaService
	logger *slog.Logger
}

func NewMediaHandler(media *service.MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{media: media, logger: logger}
}

// HandleCreate records a media row, optionally attached to a utility or a
// throwing point.
//
// HTTP: POST /api/media
// REQUEST BODY: {"url": "https://...", "type": "image", "utilityId": "..."}
func (h *MediaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.MediaInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	m, err := h.media.Create(r.Context(), currentUser(r), in)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, m)
}

// HTTP: GET /api/media/{id}
func (h *MediaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	m, err := h.media.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// HandleListByUtility and HandleListByThrowingPoint list attached media.
//
// HTTP: GET /api/utilities/{id}/media
func (h *MediaHandler) HandleListByUtility(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, service.MediaTarget{UtilityID: chi.URLParam(r, "id")})
}

// HTTP: GET /api/throwing-points/{id}/media
func (h *MediaHandler) HandleListByThrowingPoint(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, service.MediaTarget{ThrowingPointID: chi.URLParam(r, "id")})
}

func (h *MediaHandler) list(w http.ResponseWriter, r *http.Request, target service.MediaTarget) {
	media, err := h.media.ListByTarget(r.Context(), currentUser(r), target)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, media)
}

// HTTP: PUT /api/media/{id}
func (h *MediaHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.MediaUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	m, err := h.media.Update(r.Context(), currentUser(r), chi.URLParam(r, "id"), in)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// HandleAttach moves media onto a utility or throwing point.
//
// HTTP: POST /api/media/{id}/attach
// REQUEST BODY: {"utilityId": "..."} or {"throwingPointId": "..."}
func (h *MediaHandler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	var target service.MediaTarget
	if err := decodeJSON(w, r, &target); err != nil {
		writeError(w, err)
		return
	}

	m, err := h.media.Attach(r.Context(), currentUser(r), chi.URLParam(r, "id"), target)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// HTTP: POST /api/media/{id}/detach
func (h *MediaHandler) HandleDetach(w http.ResponseWriter, r *http.Request) {
	m, err := h.media.Detach(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// HTTP: DELETE /api/media/{id}
func (h *MediaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.media.Delete(r.Context(), currentUser(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// HandleUploadURL presigns a direct upload to the media bucket.
//
// HTTP: POST /api/media/upload-url
// REQUEST BODY: {"contentType": "image/png"}
func (h *MediaHandler) HandleUploadURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ContentType string `json:"contentType"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	up, err := h.media.UploadURL(r.Context(), currentUser(r), body.ContentType)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, up)
}
