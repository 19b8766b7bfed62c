package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/utility-lineups/internal/auth"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
	"github.com/sakif/utility-lineups/internal/service"
)

// currentUser is the user RequireSession put in the context. It is nil only
// on routes mounted outside the middleware, and the services reject nil.
func currentUser(r *http.Request) *model.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

// MapHandler serves the read-only map catalogue.
type MapHandler struct {
	maps   repository.MapRepository
	logger *slog.Logger
}

func NewMapHandler(maps repository.MapRepository, logger *slog.Logger) *MapHandler {
	return &MapHandler{maps: maps, logger: logger}
}

// HandleList returns every map.
//
// HTTP: GET /api/maps
func (h *MapHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	maps, err := h.maps.List(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, maps)
}

// UtilityHandler exposes UtilityService over HTTP. Every route sits behind
// RequireSession.
type UtilityHandler struct {
	utilities *service.UtilityService
	logger    *slog.Logger
}

func NewUtilityHandler(utilities *service.UtilityService, logger *slog.Logger) *UtilityHandler {
	return &UtilityHandler{utilities: utilities, logger: logger}
}

// HandleListByMap returns the caller's utilities on one map.
//
// HTTP: GET /api/maps/{mapID}/utilities?team=T&type=smoke
func (h *UtilityHandler) HandleListByMap(w http.ResponseWriter, r *http.Request) {
	filter := repository.UtilityFilter{
		Team:        model.Team(r.URL.Query().Get("team")),
		UtilityType: model.UtilityType(r.URL.Query().Get("type")),
	}
	utilities, err := h.utilities.ListByMap(r.Context(), currentUser(r), chi.URLParam(r, "mapID"), filter)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, utilities)
}

// HandleCreate places a new utility.
//
// HTTP: POST /api/utilities
// REQUEST BODY: {"mapId": "de_mirage", "utilityType": "smoke", "team": "T",
// "position": {"x": 52.5, "y": 31}, "title": "...", "description": "..."}
//
// An unverified user who already has a utility gets 403 with
// requiresVerification=true.
func (h *UtilityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.UtilityInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.utilities.Create(r.Context(), currentUser(r), in)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, u)
}

// HandleGet returns one utility with its throwing points and media.
//
// HTTP: GET /api/utilities/{id}
func (h *UtilityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.utilities.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/utilities/{id}
func (h *UtilityHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.UtilityUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.utilities.Update(r.Context(), currentUser(r), chi.URLParam(r, "id"), in)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// HandleDelete removes a utility with everything under it.
//
// HTTP: DELETE /api/utilities/{id}
func (h *UtilityHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.utilities.Delete(r.Context(), currentUser(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}
