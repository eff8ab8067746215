package control

import (
	"time"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/usecase/scan"
)

// inputRequest is the body of POST /check and POST /candidates. Input is a
// numeric group id or any text containing a group page URL.
type inputRequest struct {
	Input string `json:"input"`
}

type healthResponse struct {
	Status    string           `json:"status"`
	Scanning  bool             `json:"scanning"`
	LastCycle *scan.CycleStats `json:"last_cycle,omitempty"`
	Time      time.Time        `json:"time"`
}

type groupListResponse struct {
	Count    int              `json:"count"`
	GroupIDs []entity.GroupID `json:"group_ids"`
}

type addCandidateResponse struct {
	GroupID entity.GroupID `json:"group_id"`
	Added   bool           `json:"added"`
}

func newGroupList(ids []entity.GroupID) groupListResponse {
	if ids == nil {
		ids = []entity.GroupID{}
	}
	sorted := append([]entity.GroupID(nil), ids...)
	entity.SortGroupIDs(sorted)
	return groupListResponse{Count: len(sorted), GroupIDs: sorted}
}
