package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/utility-lineups/internal/service"
)

type ShareHandler struct {
	share  *service.ShareService
	logger *slog.Logger
}

func NewShareHandler(share *service.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{share: share, logger: logger}
}

// HandleExport encodes owned utilities into a share code.
//
// HTTP: POST /api/share/export
// REQUEST BODY: {"utilityIds": ["...", "..."]}
// RESPONSE:     {"success": true, "data": {"code": "..."}}
func (h *ShareHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UtilityIDs []string `json:"utilityIds"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	code, err := h.share.Export(r.Context(), currentUser(r), body.UtilityIDs)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"code": code})
}

// HandleImport copies the lineups in a share code into the caller's account.
//
// HTTP: POST /api/share/import
// REQUEST BODY: {"code": "..."}
func (h *ShareHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	utilities, err := h.share.Import(r.Context(), currentUser(r), body.Code)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, utilities)
}
