package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-lingua/internal/errs"
	"github.com/mind-engage/mindengage-lingua/internal/logger"
	syncx "github.com/mind-engage/mindengage-lingua/internal/sync"
)

// Events is the read side of the change log.
type Events interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// GET /events?after=<seq>&limit=<n>
func EventsHandler(events Events, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var after int64
		if s := q.Get("after"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_cursor", Message: "after must be a non-negative sequence number"})
				return
			}
			after = v
		}
		list, err := events.Since(r.Context(), after, parseIntDefault(q.Get("limit"), 100))
		if err != nil {
			writeError(w, log, r, errs.Storage("read events", err))
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
