package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-lingua/internal/errs"
	"github.com/mind-engage/mindengage-lingua/internal/logger"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  []errs.FieldError `json:"fields,omitempty"`
}

func statusOf(k errs.Kind) int {
	switch k {
	case errs.KindValidation, errs.KindInvalidState:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {code, message}. Server-side failures are logged
// and their cause is not sent to the client.
func writeError(w http.ResponseWriter, log logger.Logger, r *http.Request, err error) {
	body := errorBody{Code: errs.CodeStorage, Message: "internal error"}
	status := http.StatusInternalServerError
	var e *errs.Error
	if errors.As(err, &e) {
		status = statusOf(e.Kind)
		body = errorBody{Code: e.Code, Message: e.Message, Fields: e.Fields}
	}
	if status >= 500 {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", body.Code, "err", err)
	}
	writeJSON(w, status, body)
}

func badJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_json", Message: "request body is not valid JSON"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
