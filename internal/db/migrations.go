package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

// migrate applies the base schema and any version upgrades.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than this build supports (%d)", version, SchemaVersion)
	}

	// Future upgrades slot in here, bumping one version at a time.

	return db.setSchemaVersion(SchemaVersion)
}

func (db *DB) getSchemaVersion() (int, error) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	version, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", value, err)
	}
	return version, nil
}

func (db *DB) setSchemaVersion(version int) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)",
		strconv.Itoa(version),
	)
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}
