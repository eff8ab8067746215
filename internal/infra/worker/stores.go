package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"groupwatch/internal/infra/adapter/persistence/file"
	pgRepo "groupwatch/internal/infra/adapter/persistence/postgres"
	"groupwatch/internal/infra/db"
	"groupwatch/internal/observability/metrics"
	"groupwatch/internal/repository"
)

// Stores are the candidate and reported repositories of the configured
// backend, instrumented with store metrics.
type Stores struct {
	Candidates repository.CandidateRepository
	Reported   repository.ReportedRepository
	database   *sql.DB
}

// OpenStores opens the backend selected by cfg.StoreBackend. The Postgres
// backend is migrated before use.
func OpenStores(ctx context.Context, logger *slog.Logger, cfg *WorkerConfig) (*Stores, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StoreBackend != StorePostgres {
		logger.Info("using file store",
			slog.String("candidates", cfg.CandidatesFile),
			slog.String("reported", cfg.ReportedFile))
		return &Stores{
			Candidates: metrics.InstrumentCandidates(file.NewCandidateRepo(cfg.CandidatesFile), StoreFile),
			Reported:   metrics.InstrumentReported(file.NewReportedRepo(cfg.ReportedFile), StoreFile),
		}, nil
	}

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("OpenStores: %w", err)
	}
	if err := db.MigrateUp(database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("OpenStores: migrate: %w", err)
	}
	logger.Info("using postgres store")
	return &Stores{
		Candidates: metrics.InstrumentCandidates(pgRepo.NewCandidateRepo(database), StorePostgres),
		Reported:   metrics.InstrumentReported(pgRepo.NewReportedRepo(database), StorePostgres),
		database:   database,
	}, nil
}

// DB returns the Postgres handle, or nil for the file backend.
func (s *Stores) DB() *sql.DB {
	return s.database
}

// Close releases the database handle, if any.
func (s *Stores) Close() error {
	if s.database == nil {
		return nil
	}
	return s.database.Close()
}
