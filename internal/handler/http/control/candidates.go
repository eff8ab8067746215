package control

import (
	"errors"
	"log/slog"
	"net/http"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/handler/http/requestid"
	"groupwatch/internal/handler/http/respond"
	"groupwatch/internal/repository"
)

// ListCandidatesHandler returns the stored candidate ids in numeric order.
type ListCandidatesHandler struct {
	Repo repository.CandidateRepository
}

func (h ListCandidatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Repo.Load(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, newGroupList(ids))
}

// AddCandidateHandler extracts a group id from the input and appends it
// to the candidate list. 201 when added, 200 when it was already present.
type AddCandidateHandler struct {
	Repo repository.CandidateRepository
}

func (h AddCandidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeInput(w, r)
	if !ok {
		return
	}
	id, err := entity.ExtractGroupID(input)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	added, err := h.Repo.Append(r.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidGroupID) {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	code := http.StatusOK
	if added {
		code = http.StatusCreated
		slog.Info("candidate added",
			slog.String("request_id", requestid.FromContext(r.Context())),
			slog.String("group_id", id.String()))
	}
	respond.JSON(w, code, addCandidateResponse{GroupID: id, Added: added})
}
