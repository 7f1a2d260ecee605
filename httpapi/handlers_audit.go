package httpapi

import (
	"net/http"
	"strconv"

	"github.com/MrEthical07/panelcore"
)

func (s *server) auditLogs(w http.ResponseWriter, r *http.Request) {
	user, ok := panelcore.UserFromContext(r.Context())
	if !ok {
		writeError(w, s.logger, panelcore.ErrUnauthenticated)
		return
	}
	params, err := parseQueryParams(r.URL.Query())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	page, err := s.engine.QueryAudit(r.Context(), user, params)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, page)
}

func (s *server) auditExport(w http.ResponseWriter, r *http.Request) {
	user, ok := panelcore.UserFromContext(r.Context())
	if !ok {
		writeError(w, s.logger, panelcore.ErrUnauthenticated)
		return
	}
	params, err := parseQueryParams(r.URL.Query())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	doc, err := s.engine.ExportAudit(r.Context(), user, params, r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+doc.Name)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		s.logger.Debug().Err(err).Msg("write export")
	}
}
