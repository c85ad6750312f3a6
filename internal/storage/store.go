package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

const (
	runsTable    = "intel_runs"
	bundlesTable = "intel_bundles"

	// bundles per INSERT statement
	insertBatchSize = 500
)

// RunSummary is one archived run without its bundles.
type RunSummary struct {
	RunID          string    `db:"run_id" json:"run_id"`
	AsOf           time.Time `db:"as_of" json:"as_of"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	Establishments int       `db:"establishments" json:"establishments"`
	Opportunities  int       `db:"opportunities" json:"opportunities"`
}

type runRow struct {
	RunSummary
	Market  []byte `db:"market"`
	Cohorts []byte `db:"cohorts"`
}

// ResultStore reads and writes archived runs.
type ResultStore struct {
	db     *sqlx.DB
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*ResultStore, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to open database connection", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apierrors.NewStorageError("failed to connect to PostgreSQL", err)
	}

	return NewResultStore(db, logger), nil
}

// NewResultStore wraps an open connection.
func NewResultStore(db *sqlx.DB, logger *slog.Logger) *ResultStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultStore{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger.With(slog.String("component", "result_store")),
	}
}

// Close closes the database connection
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// Migrate creates the archive tables when they do not exist.
func (s *ResultStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apierrors.NewStorageError("failed to apply schema", err)
		}
	}
	s.logger.InfoContext(ctx, "archive schema ready")
	return nil
}

// SaveRun stores a run and all of its bundles in one transaction.
func (s *ResultStore) SaveRun(ctx context.Context, runID string, result *intel.BatchResult, createdAt time.Time) (err error) {
	market, err := json.Marshal(result.Market)
	if err != nil {
		return apierrors.NewStorageError("failed to encode market summary", err)
	}
	cohorts, err := json.Marshal(result.Cohorts)
	if err != nil {
		return apierrors.NewStorageError("failed to encode cohorts", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apierrors.NewStorageError("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query, args, err := s.sb.Insert(runsTable).
		Columns("run_id", "as_of", "created_at", "establishments", "opportunities", "market", "cohorts").
		Values(runID, result.AsOf, createdAt.UTC(), len(result.Bundles), len(result.Opportunities()), string(market), string(cohorts)).
		ToSql()
	if err != nil {
		return apierrors.NewStorageError("failed to build run insert", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return apierrors.NewStorageError("failed to insert run", err).WithContext("run_id", runID)
	}

	for start := 0; start < len(result.Bundles); start += insertBatchSize {
		end := min(start+insertBatchSize, len(result.Bundles))
		if err = s.insertBundles(ctx, tx, runID, result.Bundles[start:end]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return apierrors.NewStorageError("failed to commit run", err).WithContext("run_id", runID)
	}

	s.logger.InfoContext(ctx, "run archived",
		slog.String("run_id", runID),
		slog.Int("bundles", len(result.Bundles)))
	return nil
}

func (s *ResultStore) insertBundles(ctx context.Context, tx *sqlx.Tx, runID string, bundles []intel.ResultBundle) error {
	insert := s.sb.Insert(bundlesTable).
		Columns("run_id", "establishment_id", "cohort", "health", "status", "trend", "bundle")
	for _, b := range bundles {
		doc, err := json.Marshal(b)
		if err != nil {
			return apierrors.NewStorageError("failed to encode bundle", err).WithContext("establishment_id", b.Record.ID)
		}
		insert = insert.Values(runID, b.Record.ID, b.Benchmark.Cohort, b.Health.Value,
			string(b.Opportunity.Status), string(b.Momentum.Trend), string(doc))
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return apierrors.NewStorageError("failed to build bundle insert", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apierrors.NewStorageError("failed to insert bundles", err).WithContext("run_id", runID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query, args, err := s.sb.
		Select("run_id", "as_of", "created_at", "establishments", "opportunities").
		From(runsTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, apierrors.NewStorageError("failed to build run query", err)
	}

	var runs []RunSummary
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, apierrors.NewStorageError("failed to list runs", err)
	}
	return runs, nil
}

// LatestRunID returns the ID of the newest run.
func (s *ResultStore) LatestRunID(ctx context.Context) (string, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", apierrors.NewNotFoundError("archived run")
	}
	return runs[0].RunID, nil
}

// LoadResult rebuilds the batch result of an archived run.
func (s *ResultStore) LoadResult(ctx context.Context, runID string) (*intel.BatchResult, error) {
	query, args, err := s.sb.
		Select("run_id", "as_of", "created_at", "establishments", "opportunities", "market", "cohorts").
		From(runsTable).
		Where(sq.Eq{"run_id": runID}).
		ToSql()
	if err != nil {
		return nil, apierrors.NewStorageError("failed to build run query", err)
	}

	var run runRow
	if err := s.db.GetContext(ctx, &run, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierrors.NewNotFoundError(fmt.Sprintf("run %s", runID)).WithContext("run_id", runID)
		}
		return nil, apierrors.NewStorageError("failed to load run", err).WithContext("run_id", runID)
	}

	result := &intel.BatchResult{AsOf: run.AsOf.UTC()}
	if err := json.Unmarshal(run.Market, &result.Market); err != nil {
		return nil, apierrors.NewStorageError("failed to decode market summary", err).WithContext("run_id", runID)
	}
	if err := json.Unmarshal(run.Cohorts, &result.Cohorts); err != nil {
		return nil, apierrors.NewStorageError("failed to decode cohorts", err).WithContext("run_id", runID)
	}

	query, args, err = s.sb.
		Select("bundle").
		From(bundlesTable).
		Where(sq.Eq{"run_id": runID}).
		OrderBy(`establishment_id COLLATE "C"`).
		ToSql()
	if err != nil {
		return nil, apierrors.NewStorageError("failed to build bundle query", err)
	}

	var docs [][]byte
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, apierrors.NewStorageError("failed to load bundles", err).WithContext("run_id", runID)
	}
	result.Bundles = make([]intel.ResultBundle, len(docs))
	for i, doc := range docs {
		if err := json.Unmarshal(doc, &result.Bundles[i]); err != nil {
			return nil, apierrors.NewStorageError("failed to decode bundle", err).WithContext("run_id", runID)
		}
	}
	// Live runs order bundles by byte-wise id; match that whatever the column collation.
	sort.SliceStable(result.Bundles, func(i, j int) bool {
		return result.Bundles[i].Record.ID < result.Bundles[j].Record.ID
	})
	return result, nil
}

// LatestResult loads the newest archived run.
func (s *ResultStore) LatestResult(ctx context.Context) (string, *intel.BatchResult, error) {
	runID, err := s.LatestRunID(ctx)
	if err != nil {
		return "", nil, err
	}
	result, err := s.LoadResult(ctx, runID)
	if err != nil {
		return "", nil, err
	}
	return runID, result, nil
}
