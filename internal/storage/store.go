package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mohaoran/AlphaCouncil/internal/models"
)

const (
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

// Store persists run history in sqlite. Each completed or failed run is one
// row keyed by session id, with the full artifact kept as JSON.
type Store struct {
	db *sql.DB
}

// RunSummary is the list view of a stored run.
type RunSummary struct {
	SessionID     string `json:"session_id"`
	Symbol        string `json:"symbol"`
	MarketType    string `json:"market_type"`
	AnalysisDate  string `json:"analysis_date"`
	ResearchDepth int    `json:"research_depth"`
	Status        string `json:"status"`
	FinalDecision string `json:"final_decision,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    session_id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    market_type TEXT NOT NULL,
    analysis_date TEXT NOT NULL,
    research_depth INTEGER NOT NULL,
    status TEXT NOT NULL,
    final_decision TEXT,
    failure_reason TEXT,
    artifact_json TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_symbol_date ON runs(symbol, analysis_date);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveDecision records a completed run.
func (s *Store) SaveDecision(ctx context.Context, decision *models.DecisionArtifact) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	status := StatusCompleted
	if decision.IsDemo {
		status = StatusDegraded
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (session_id, symbol, market_type, analysis_date, research_depth, status, final_decision, artifact_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    status=excluded.status,
    final_decision=excluded.final_decision,
    artifact_json=excluded.artifact_json
`, decision.SessionID, decision.StockSymbol, string(decision.MarketType), decision.AnalysisDate,
		decision.ResearchDepth, status, decision.FinalDecision, string(payload))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SaveFailure records a run that aborted at a mandatory stage.
func (s *Store) SaveFailure(ctx context.Context, failure *models.FailureArtifact) error {
	payload, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("marshal failure: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (session_id, symbol, market_type, analysis_date, research_depth, status, failure_reason, artifact_json)
VALUES (?, ?, ?, ?, 0, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    status=excluded.status,
    failure_reason=excluded.failure_reason,
    artifact_json=excluded.artifact_json
`, failure.SessionID, failure.StockSymbol, string(failure.MarketType), failure.AnalysisDate,
		StatusFailed, failure.Reason, string(payload))
	if err != nil {
		return fmt.Errorf("insert failed run: %w", err)
	}
	return nil
}

// GetDecision loads the full artifact of a completed run.
func (s *Store) GetDecision(ctx context.Context, sessionID string) (*models.DecisionArtifact, error) {
	var artifact string
	err := s.db.QueryRowContext(ctx,
		`SELECT artifact_json FROM runs WHERE session_id = ? AND status != ?`,
		sessionID, StatusFailed).Scan(&artifact)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", sessionID, err)
	}

	var decision models.DecisionArtifact
	if err := json.Unmarshal([]byte(artifact), &decision); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", sessionID, err)
	}
	return &decision, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, symbol, market_type, analysis_date, research_depth, status,
       COALESCE(final_decision, ''), created_at
FROM runs
ORDER BY created_at DESC, session_id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.SessionID, &r.Symbol, &r.MarketType, &r.AnalysisDate,
			&r.ResearchDepth, &r.Status, &r.FinalDecision, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
