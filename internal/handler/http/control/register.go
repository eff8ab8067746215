// Package control serves the operator API of the worker: trigger a scan,
// check one group, and manage the candidate list.
package control

import (
	"context"
	"net/http"

	"groupwatch/internal/handler/http/auth"
	"groupwatch/internal/repository"
	"groupwatch/internal/usecase/scan"
)

// Scanner is the part of scan.Scheduler the control API drives.
type Scanner interface {
	Trigger(ctx context.Context) (*scan.CycleStats, error)
	CheckNow(ctx context.Context, input string) (*scan.CheckResult, error)
	LastCycle() *scan.CycleStats
	Running() bool
}

// Deps are the collaborators of the control API.
type Deps struct {
	Scanner    Scanner
	Candidates repository.CandidateRepository
	Reported   repository.ReportedRepository
}

// Register mounts the control routes on mux. Mutating routes go through
// authn, which may be nil to disable authentication.
func Register(mux *http.ServeMux, deps Deps, authn *auth.Authenticator) {
	mux.Handle("GET /health", HealthHandler{deps.Scanner})
	mux.Handle("GET /scan/last", LastScanHandler{deps.Scanner})
	mux.Handle("GET /candidates", ListCandidatesHandler{deps.Candidates})
	mux.Handle("GET /reported", ListReportedHandler{deps.Reported})

	mux.Handle("POST /scan", authn.Middleware(ScanHandler{deps.Scanner}))
	mux.Handle("POST /check", authn.Middleware(CheckHandler{deps.Scanner}))
	mux.Handle("POST /candidates", authn.Middleware(AddCandidateHandler{deps.Candidates}))
}
