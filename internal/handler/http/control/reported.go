package control

import (
	"net/http"

	"groupwatch/internal/handler/http/respond"
	"groupwatch/internal/repository"
)

// ListReportedHandler returns every group already alerted on.
type ListReportedHandler struct{ Repo repository.ReportedRepository }

func (h ListReportedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Repo.Load(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, newGroupList(ids))
}
