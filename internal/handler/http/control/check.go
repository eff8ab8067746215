package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/handler/http/respond"
	"groupwatch/internal/infra/groupapi"
	"groupwatch/internal/usecase/scan"
)

// CheckHandler checks a single group immediately and alerts if it is
// unclaimed and not yet reported.
type CheckHandler struct{ Svc Scanner }

func (h CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeInput(w, r)
	if !ok {
		return
	}

	res, err := h.Svc.CheckNow(r.Context(), input)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, res)
	case errors.Is(err, entity.ErrGroupIDNotFound), errors.Is(err, entity.ErrInvalidGroupID):
		respond.SafeError(w, http.StatusBadRequest, err)
	case errors.Is(err, scan.ErrCycleInProgress):
		respond.SafeError(w, http.StatusConflict, err)
	case errors.Is(err, groupapi.ErrGroupNotFound):
		respond.SafeError(w, http.StatusNotFound, groupapi.ErrGroupNotFound)
	default:
		respond.SafeError(w, http.StatusBadGateway, err)
	}
}

// decodeInput reads {"input": "..."} and writes a 400 when it is missing.
func decodeInput(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return "", false
	}
	if req.Input == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("input is required"))
		return "", false
	}
	return req.Input, true
}
