package control

import (
	"net/http"
	"time"

	"groupwatch/internal/handler/http/respond"
)

// HealthHandler reports process liveness. It never touches the stores.
type HealthHandler struct{ Svc Scanner }

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Time: time.Now().UTC()}
	if h.Svc != nil {
		resp.Scanning = h.Svc.Running()
		resp.LastCycle = h.Svc.LastCycle()
	}
	respond.JSON(w, http.StatusOK, resp)
}
