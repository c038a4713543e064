package runstore

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/pairwise/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &RunStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStores initializes the global run store. An empty backend disables run tracking.
func InitStores(backend schema.DatabaseBackend, connStr string) error {
	var initErr error
	initOnce.Do(func() {
		if backend == "" {
			return
		}
		store, err := NewRunStore(backend, connStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize run store: %w", err)
			return
		}
		Manager.Lock()
		Manager.runs = store
		Manager.Unlock()
	})
	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.runs != nil {
			_ = Manager.runs.Close()
		}
	})
}

// ClearRuns clears the run data for the specified backend.
// For SQLite, it deletes the database file.
// For MySQL and PostgreSQL, it drops the run tables.
// For NoneBackend, it does nothing.
func ClearRuns(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		driverName, _ := driverFor(backend)
		// Children first so no row is left pointing at a dropped run.
		for i := len(allTables) - 1; i >= 0; i-- {
			if err := clearSQLTable(driverName, connStr, quoteTableName(allTables[i], backend)); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported run backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(driverName, connStr, tableName string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}
	if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	return nil
}
