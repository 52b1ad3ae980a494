package database

import (
	"database/sql"
)

// GetPreference returns the stored value for key, or the provided default
// when the key has never been set.
func (db *Database) GetPreference(key, defaultValue string) string {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			db.logger.WithError(err).WithField("key", key).Error("Failed to read preference")
		}
		return defaultValue
	}
	return value
}

// SetPreference stores a value for key, replacing any previous value.
func (db *Database) SetPreference(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		db.logger.WithError(err).WithField("key", key).Error("Failed to write preference")
	}
	return err
}
