package httpapi

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/pulsedesk/pulsedesk/internal/errors"
)

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("encode response failed")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		switch {
		case stderrors.Is(err, sql.ErrNoRows):
			se = &errors.ServiceError{Code: errors.CodeNotFound, Message: "not found", HTTPStatus: http.StatusNotFound}
		case strings.Contains(err.Error(), "not found"):
			se = &errors.ServiceError{Code: errors.CodeNotFound, Message: err.Error(), HTTPStatus: http.StatusNotFound}
		case strings.Contains(err.Error(), "required") ||
			strings.Contains(err.Error(), "invalid"):
			se = errors.Validation(err.Error())
		case strings.Contains(err.Error(), "already"):
			se = errors.Conflict(err.Error())
		default:
			h.log.WithError(err).Error("request failed")
			se = errors.Internal("", err)
		}
	}
	body := map[string]interface{}{
		"error": se.Message,
		"code":  se.Code,
	}
	if len(se.Details) > 0 {
		body["details"] = se.Details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(se.HTTPStatus)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, errors.Validation("invalid request body: "+err.Error()))
		return false
	}
	return true
}
