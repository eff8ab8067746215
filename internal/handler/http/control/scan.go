package control

import (
	"errors"
	"log/slog"
	"net/http"

	"groupwatch/internal/handler/http/requestid"
	"groupwatch/internal/handler/http/respond"
	"groupwatch/internal/usecase/scan"
)

// ScanHandler runs a cycle now and returns its stats.
// 409 when a cycle is already running; 500 when the cycle failed as a whole.
type ScanHandler struct{ Svc Scanner }

func (h ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Trigger(r.Context())
	switch {
	case errors.Is(err, scan.ErrCycleInProgress):
		respond.SafeError(w, http.StatusConflict, err)
		return
	case err != nil:
		slog.Error("on-demand scan failed",
			slog.String("request_id", requestid.FromContext(r.Context())),
			slog.Any("error", err))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}

// LastScanHandler returns the stats of the most recent cycle, or 404.
type LastScanHandler struct{ Svc Scanner }

func (h LastScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	last := h.Svc.LastCycle()
	if last == nil {
		respond.SafeError(w, http.StatusNotFound, errors.New("last cycle not found"))
		return
	}
	respond.JSON(w, http.StatusOK, last)
}
