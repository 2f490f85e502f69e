package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/studyhelper/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "studyhelper.db"

// HistoryDB stores solve history and cached OCR results.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. The HTTP server reads history
	// while solves are being written.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s (run solve with --save first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	// The CLI and the HTTP server may share the file, so writers wait for
	// the lock instead of failing with SQLITE_BUSY.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per solve request
	CREATE TABLE IF NOT EXISTS solves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		input TEXT NOT NULL,
		normalized TEXT NOT NULL DEFAULT '',
		variable TEXT NOT NULL DEFAULT 'x',
		class TEXT NOT NULL DEFAULT 'unknown',
		view TEXT NOT NULL DEFAULT 'steps',
		hint TEXT NOT NULL DEFAULT '',
		steps TEXT NOT NULL DEFAULT '[]',
		answer TEXT NOT NULL DEFAULT '',
		error_kind TEXT NOT NULL DEFAULT '',
		solved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_solves_solved_at ON solves(solved_at);
	CREATE INDEX IF NOT EXISTS idx_solves_error_kind ON solves(error_kind);

	-- Recognized text by image digest
	CREATE TABLE IF NOT EXISTS ocr_cache (
		digest TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SolveRecord is a stored solve.
type SolveRecord struct {
	ID         int64           `json:"id"`
	Input      string          `json:"input"`
	Normalized string          `json:"normalized"`
	Variable   string          `json:"variable"`
	Class      model.Class     `json:"class"`
	View       model.ViewMode  `json:"view"`
	Hint       string          `json:"hint"`
	Steps      []string        `json:"steps"`
	Answer     string          `json:"answer"`
	ErrorKind  model.ErrorKind `json:"error_kind,omitempty"`
	SolvedAt   time.Time       `json:"solved_at"`
}

// State rebuilds the State the record was saved from, so that it can be
// rendered by the report writers.
func (r SolveRecord) State() model.State {
	s := model.NewState(r.Input, r.View, r.Variable).
		WithNormalized(r.Normalized).
		WithClass(r.Class)
	if r.ErrorKind != "" {
		s = s.WithError(model.NewError(r.ErrorKind, ""))
		s.Result.Hint = r.Hint
	} else {
		s = s.WithResult(model.SolutionResult{Hint: r.Hint, Steps: r.Steps, Answer: r.Answer})
	}
	s.SolvedAt = r.SolvedAt
	return s
}

// SaveSolve stores the outcome of a solve and returns its ID.
func (hdb *HistoryDB) SaveSolve(ctx context.Context, state model.State) (int64, error) {
	steps := state.Result.Steps
	if steps == nil {
		steps = []string{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize steps: %w", err)
	}

	solvedAt := state.SolvedAt
	if solvedAt.IsZero() {
		solvedAt = time.Now()
	}

	query := `
	INSERT INTO solves (input, normalized, variable, class, view, hint, steps, answer, error_kind, solved_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		state.Input,
		state.Normalized,
		state.Variable,
		state.Class.String(),
		string(state.View),
		state.Result.Hint,
		string(stepsJSON),
		state.Result.Answer,
		string(state.ErrorKind()),
		solvedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert solve: %w", err)
	}

	return result.LastInsertId()
}

const solveColumns = `id, input, normalized, variable, class, view, hint, steps, answer, error_kind, solved_at`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSolve(row rowScanner) (SolveRecord, error) {
	var (
		record    SolveRecord
		class     string
		view      string
		stepsJSON string
		errorKind string
		solvedAt  string
	)

	if err := row.Scan(
		&record.ID,
		&record.Input,
		&record.Normalized,
		&record.Variable,
		&class,
		&view,
		&record.Hint,
		&stepsJSON,
		&record.Answer,
		&errorKind,
		&solvedAt,
	); err != nil {
		return SolveRecord{}, err
	}

	record.Class = model.ParseClass(class)
	record.View = model.ViewMode(view)
	record.ErrorKind = model.ErrorKind(errorKind)
	record.SolvedAt = parseTimestamp(solvedAt)

	if stepsJSON != "" {
		if err := json.Unmarshal([]byte(stepsJSON), &record.Steps); err != nil {
			return SolveRecord{}, fmt.Errorf("failed to parse steps: %w", err)
		}
	}

	return record, nil
}

// GetSolve retrieves a solve by ID. It returns nil when no such solve exists.
func (hdb *HistoryDB) GetSolve(ctx context.Context, id int64) (*SolveRecord, error) {
	query := `SELECT ` + solveColumns + ` FROM solves WHERE id = ?`

	record, err := scanSolve(hdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get solve: %w", err)
	}

	return &record, nil
}

// ListSolves returns the most recent solves, newest first.
// A non-positive limit returns every solve.
func (hdb *HistoryDB) ListSolves(ctx context.Context, limit int) ([]SolveRecord, error) {
	query := `SELECT ` + solveColumns + ` FROM solves ORDER BY id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list solves: %w", err)
	}
	defer rows.Close()

	records := make([]SolveRecord, 0)
	for rows.Next() {
		record, err := scanSolve(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solve: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Summary counts stored solves by outcome.
type Summary struct {
	// Total is the number of stored solves.
	Total int `json:"total"`

	// ByClass counts successful solves per class.
	ByClass map[string]int `json:"by_class"`

	// ByErrorKind counts failed solves per error kind.
	ByErrorKind map[string]int `json:"by_error_kind"`
}

// Summarize counts stored solves by class and error kind.
func (hdb *HistoryDB) Summarize(ctx context.Context) (Summary, error) {
	query := `
	SELECT class, error_kind, COUNT(*)
	FROM solves
	GROUP BY class, error_kind
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarize solves: %w", err)
	}
	defer rows.Close()

	summary := Summary{
		ByClass:     make(map[string]int),
		ByErrorKind: make(map[string]int),
	}
	for rows.Next() {
		var class, errorKind string
		var count int
		if err := rows.Scan(&class, &errorKind, &count); err != nil {
			return Summary{}, fmt.Errorf("failed to scan summary: %w", err)
		}
		summary.Total += count
		if errorKind != "" {
			summary.ByErrorKind[errorKind] += count
		} else {
			summary.ByClass[class] += count
		}
	}

	return summary, rows.Err()
}

// LookupOCR returns cached recognized text for an image digest.
func (hdb *HistoryDB) LookupOCR(ctx context.Context, digest string) (string, bool, error) {
	var text string
	err := hdb.db.QueryRowContext(ctx, `SELECT text FROM ocr_cache WHERE digest = ?`, digest).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up ocr cache: %w", err)
	}
	return text, true, nil
}

// StoreOCR caches recognized text for an image digest, replacing any
// previous entry.
func (hdb *HistoryDB) StoreOCR(ctx context.Context, digest, text string) error {
	query := `
	INSERT INTO ocr_cache (digest, text)
	VALUES (?, ?)
	ON CONFLICT(digest) DO UPDATE SET
		text = excluded.text,
		created_at = CURRENT_TIMESTAMP
	`

	if _, err := hdb.db.ExecContext(ctx, query, digest, text); err != nil {
		return fmt.Errorf("failed to store ocr cache: %w", err)
	}
	return nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses a timestamp in any of timestampFormats.
// It returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
