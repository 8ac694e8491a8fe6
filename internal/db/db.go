package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	dataDirName = ".till"
	dbFileName  = "pos.db"
)

// DB wraps the local point-of-sale database connection.
type DB struct {
	conn    *sql.DB
	baseDir string
	locker  *writeLocker
}

// Path returns the database file path under the given base directory.
func Path(baseDir string) string {
	return filepath.Join(baseDir, dataDirName, dbFileName)
}

// Open opens an existing database and runs any pending migrations.
func Open(baseDir string) (*DB, error) {
	dbPath := Path(baseDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'till init' first")
	}
	return open(baseDir, dbPath)
}

// Init creates the data directory and database, then runs migrations.
func Init(baseDir string) (*DB, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, dataDirName), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return open(baseDir, Path(baseDir))
}

func open(baseDir, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent status reads while the engine writes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	db := &DB{
		conn:    conn,
		baseDir: baseDir,
		locker:  newWriteLocker(baseDir),
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// OpenConn wraps an already-open connection (used by tests with an
// in-memory database). Migrations run against the given connection.
func OpenConn(conn *sql.DB) (*DB, error) {
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}
	return db, nil
}

// Conn exposes the underlying connection for transaction use.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// withWriteLock runs fn while holding the exclusive OS write lock. Skipped
// when no locker is configured (in-memory test databases).
func (db *DB) withWriteLock(fn func() error) error {
	if db.locker == nil {
		return fn()
	}
	if err := db.locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer db.locker.release()
	return fn()
}
