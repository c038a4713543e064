package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for run tracking.
const (
	runsTable      = "pairwise_runs"
	contrastsTable = "pairwise_contrasts"
	baselinesTable = "pairwise_baselines"
)

// allTables lists every run table, parents first.
var allTables = []string{runsTable, contrastsTable, baselinesTable}

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// driverFor returns the database/sql driver name of a backend.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// openDB opens and pings the database of a backend. An empty SQLite
// connection string selects the default file in the home directory.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetRunDBFilePath()
	}
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct: user:password@tcp(host:port)/dbname?parseTime=true"
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct: host=... user=... dbname=..."
		default:
			connDetail = "Check that the directory is writable."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// NewRunStore creates a RunStore with the specified backend.
// NoneBackend returns a store where every operation is a no-op.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		return &RunStoreImpl{backend: backend}, nil
	}
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := createRunTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run tables: %w", err)
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

// createRunTables creates the run tracking tables when they do not exist yet.
func createRunTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, stmt := range strings.Split(createTablesSQL(backend), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// createTablesSQL returns the CREATE TABLE statements of a backend.
// The migration files under migrations/ create the same tables.
func createTablesSQL(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return `
			CREATE TABLE IF NOT EXISTS pairwise_runs (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_contrasts INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
			CREATE TABLE IF NOT EXISTS pairwise_contrasts (
				run_id BIGINT NOT NULL,
				response VARCHAR(255) NOT NULL,
				base_level VARCHAR(255) NOT NULL,
				other_level VARCHAR(255) NOT NULL,
				estimate DOUBLE NOT NULL,
				std_err DOUBLE NOT NULL,
				p_value DOUBLE NOT NULL,
				adj_p_value DOUBLE NOT NULL,
				fold_change DOUBLE NOT NULL,
				lower_bound DOUBLE NOT NULL,
				upper_bound DOUBLE NOT NULL,
				log2_scale BOOLEAN NOT NULL,
				significant BOOLEAN NOT NULL,
				PRIMARY KEY (run_id, response, base_level, other_level)
			);
			CREATE TABLE IF NOT EXISTS pairwise_baselines (
				run_id BIGINT NOT NULL,
				response VARCHAR(255) NOT NULL,
				base_level VARCHAR(255) NOT NULL,
				estimate DOUBLE NOT NULL,
				std_err DOUBLE NOT NULL,
				value DOUBLE NOT NULL,
				lower_bound DOUBLE NOT NULL,
				upper_bound DOUBLE NOT NULL,
				PRIMARY KEY (run_id, response, base_level)
			);`

	case schema.PostgreSQLBackend:
		return `
			CREATE TABLE IF NOT EXISTS pairwise_runs (
				run_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_contrasts INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
			CREATE TABLE IF NOT EXISTS pairwise_contrasts (
				run_id BIGINT NOT NULL,
				response TEXT NOT NULL,
				base_level TEXT NOT NULL,
				other_level TEXT NOT NULL,
				estimate DOUBLE PRECISION NOT NULL,
				std_err DOUBLE PRECISION NOT NULL,
				p_value DOUBLE PRECISION NOT NULL,
				adj_p_value DOUBLE PRECISION NOT NULL,
				fold_change DOUBLE PRECISION NOT NULL,
				lower_bound DOUBLE PRECISION NOT NULL,
				upper_bound DOUBLE PRECISION NOT NULL,
				log2_scale BOOLEAN NOT NULL,
				significant BOOLEAN NOT NULL,
				PRIMARY KEY (run_id, response, base_level, other_level)
			);
			CREATE TABLE IF NOT EXISTS pairwise_baselines (
				run_id BIGINT NOT NULL,
				response TEXT NOT NULL,
				base_level TEXT NOT NULL,
				estimate DOUBLE PRECISION NOT NULL,
				std_err DOUBLE PRECISION NOT NULL,
				value DOUBLE PRECISION NOT NULL,
				lower_bound DOUBLE PRECISION NOT NULL,
				upper_bound DOUBLE PRECISION NOT NULL,
				PRIMARY KEY (run_id, response, base_level)
			);`

	default: // SQLite
		return `
			CREATE TABLE IF NOT EXISTS pairwise_runs (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_contrasts INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
			CREATE TABLE IF NOT EXISTS pairwise_contrasts (
				run_id INTEGER NOT NULL,
				response TEXT NOT NULL,
				base_level TEXT NOT NULL,
				other_level TEXT NOT NULL,
				estimate REAL NOT NULL,
				std_err REAL NOT NULL,
				p_value REAL NOT NULL,
				adj_p_value REAL NOT NULL,
				fold_change REAL NOT NULL,
				lower_bound REAL NOT NULL,
				upper_bound REAL NOT NULL,
				log2_scale INTEGER NOT NULL,
				significant INTEGER NOT NULL,
				PRIMARY KEY (run_id, response, base_level, other_level)
			);
			CREATE TABLE IF NOT EXISTS pairwise_baselines (
				run_id INTEGER NOT NULL,
				response TEXT NOT NULL,
				base_level TEXT NOT NULL,
				estimate REAL NOT NULL,
				std_err REAL NOT NULL,
				value REAL NOT NULL,
				lower_bound REAL NOT NULL,
				upper_bound REAL NOT NULL,
				PRIMARY KEY (run_id, response, base_level)
			);`
	}
}

// disabled reports whether the store is the no-op store.
func (rs *RunStoreImpl) disabled() bool {
	return rs.backend == schema.NoneBackend || rs.db == nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (rs *RunStoreImpl) rebind(query string) string {
	if rs.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BeginRun creates a new run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if rs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, quoteTableName(runsTable, rs.backend))
		err = rs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quoteTableName(runsTable, rs.backend))
		var result sql.Result
		result, err = rs.db.Exec(query, formatTime(startTime, rs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, totalContrasts int) error {
	if rs.disabled() {
		return nil
	}

	table := quoteTableName(runsTable, rs.backend)
	row := rs.db.QueryRow(rs.rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, table)), runID)
	startTime, err := rs.scanTime(row)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	durationMs := endTime.Sub(startTime).Milliseconds()
	query := rs.rebind(fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_contrasts = ? WHERE run_id = ?`, table))
	if _, err := rs.db.Exec(query, formatTime(endTime, rs.backend), durationMs, totalContrasts, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordContrasts stores the reporting rows of a run in one transaction.
func (rs *RunStoreImpl) RecordContrasts(runID int64, rows []schema.ContrastRow) error {
	if rs.disabled() || len(rows) == 0 {
		return nil
	}
	query := rs.rebind(fmt.Sprintf(`
		INSERT INTO %s (run_id, response, base_level, other_level, estimate, std_err,
		                p_value, adj_p_value, fold_change, lower_bound, upper_bound, log2_scale, significant)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, quoteTableName(contrastsTable, rs.backend)))
	return rs.insertAll(query, len(rows), func(i int) []any {
		r := rows[i]
		return []any{
			runID, r.Response, string(r.Base), string(r.Other), r.Estimate, r.StdErr,
			r.PValue, r.AdjPValue, r.FoldChange, r.Lower, r.Upper, r.Log2, r.Significant,
		}
	})
}

// RecordBaselines stores the baseline estimates of a run in one transaction.
func (rs *RunStoreImpl) RecordBaselines(runID int64, baselines []schema.BaselineEstimate) error {
	if rs.disabled() || len(baselines) == 0 {
		return nil
	}
	query := rs.rebind(fmt.Sprintf(`
		INSERT INTO %s (run_id, response, base_level, estimate, std_err, value, lower_bound, upper_bound)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, quoteTableName(baselinesTable, rs.backend)))
	return rs.insertAll(query, len(baselines), func(i int) []any {
		b := baselines[i]
		return []any{
			runID, b.Response, string(b.Base), b.Estimate, b.StdErr,
			b.Derived.Value, b.Derived.Lower, b.Derived.Upper,
		}
	})
}

// insertAll runs query once per row inside a transaction.
func (rs *RunStoreImpl) insertAll(query string, n int, args func(i int) []any) error {
	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i := range n {
		if _, err := stmt.Exec(args(i)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.disabled() {
		return status, nil
	}

	runs := quoteTableName(runsTable, rs.backend)
	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row := rs.db.QueryRow(fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}
		var err error
		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if status.LastRunTime, err = rs.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs))
		if status.OldestRunTime, err = rs.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		row = rs.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(total_contrasts), 0) FROM %s", runs))
		if err := row.Scan(&status.TotalContrasts); err != nil {
			return status, fmt.Errorf("failed to get total contrasts: %w", err)
		}
	}

	for _, table := range allTables {
		var count int64
		if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if rs.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, total_contrasts, config_params FROM %s ORDER BY run_id",
		quoteTableName(runsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		switch rs.backend {
		case schema.SQLiteBackend:
			var startTimeStr string
			var endTimeStr *string
			if err := rows.Scan(&record.RunID, &startTimeStr, &endTimeStr, &record.RunDurationMs, &record.TotalContrasts, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			if record.StartTime, err = time.Parse(time.RFC3339Nano, startTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endTimeStr != nil {
				endTime, err := time.Parse(time.RFC3339Nano, *endTimeStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &endTime
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.StartTime, &record.EndTime, &record.RunDurationMs, &record.TotalContrasts, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllContrasts retrieves all contrast rows from the store.
func (rs *RunStoreImpl) GetAllContrasts() ([]schema.ContrastRunRecord, error) {
	if rs.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT run_id, response, base_level, other_level, estimate, std_err,
		p_value, adj_p_value, fold_change, lower_bound, upper_bound, log2_scale, significant
		FROM %s ORDER BY run_id, response, base_level, other_level`, quoteTableName(contrastsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query contrasts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ContrastRunRecord
	for rows.Next() {
		var record schema.ContrastRunRecord
		var base, other string
		if err := rows.Scan(&record.RunID, &record.Response, &base, &other, &record.Estimate, &record.StdErr,
			&record.PValue, &record.AdjPValue, &record.FoldChange, &record.Lower, &record.Upper,
			&record.Log2, &record.Significant); err != nil {
			return nil, fmt.Errorf("failed to scan contrast: %w", err)
		}
		record.Base, record.Other = schema.Level(base), schema.Level(other)
		record.PairLabel = schema.PairLabel(record.Base, record.Other)
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contrasts: %w", err)
	}
	return results, nil
}

// GetAllBaselines retrieves all baseline estimates from the store.
func (rs *RunStoreImpl) GetAllBaselines() ([]schema.BaselineRunRecord, error) {
	if rs.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT run_id, response, base_level, estimate, std_err, value, lower_bound, upper_bound
		FROM %s ORDER BY run_id, response, base_level`, quoteTableName(baselinesTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query baselines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.BaselineRunRecord
	for rows.Next() {
		var record schema.BaselineRunRecord
		var base string
		if err := rows.Scan(&record.RunID, &record.Response, &base, &record.Estimate, &record.StdErr,
			&record.Derived.Value, &record.Derived.Lower, &record.Derived.Upper); err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		record.Base = schema.Level(base)
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating baselines: %w", err)
	}
	return results, nil
}

// scanTime reads a single time column, stored as text in SQLite.
func (rs *RunStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	if rs.backend == schema.SQLiteBackend {
		var s string
		if err := row.Scan(&s); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var t time.Time
	err := row.Scan(&t)
	return t, err
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}
