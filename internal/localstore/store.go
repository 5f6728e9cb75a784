// Package localstore provides the encrypted, namespaced key-value store that
// every other part of the engine persists through.
//
// Values are encrypted with AES-256-GCM before they reach SQLite, so the
// on-disk database never holds cart contents, favorites, or queued mutations
// in the clear. The database is opened in WAL mode the same way as any other
// shopcore database handle, single writer.
package localstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ovida/shopcore/internal/crypto"
	apperrors "github.com/ovida/shopcore/internal/errors"
	"github.com/ovida/shopcore/internal/logging"
)

// NamespaceOffline holds the sync engine's persisted state: the action queue,
// domain snapshots, browsing history, cache metadata and setting_<key> entries,
// segregated only by key.
const NamespaceOffline = "offline"

// Store is an encrypted key-value store surviving process restarts.
type Store struct {
	db  *sql.DB
	key []byte
}

// Open opens (or creates) the store database under dataDir. The encryption
// key should come from crypto.DeriveKey.
func Open(dataDir string, key []byte) (*Store, error) {
	if len(key) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalid, "empty encryption key")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "shopcore.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			namespace  TEXT    NOT NULL,
			key        TEXT    NOT NULL,
			value      TEXT    NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			PRIMARY KEY (namespace, key)
		);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &Store{db: db, key: key}, nil
}

// Get returns the decrypted value for (namespace, key). It never returns an
// error: a miss, a read failure, or a decrypt failure all yield ("", false).
// Failures other than a plain miss are logged.
func (s *Store) Get(namespace, key string) (string, bool) {
	var encrypted string
	err := s.db.QueryRow(
		"SELECT value FROM kv WHERE namespace = ? AND key = ?",
		namespace, key,
	).Scan(&encrypted)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		logging.Warn("local store read failed", map[string]interface{}{
			"component": "localstore",
			"namespace": namespace,
			"key":       key,
			"error":     err.Error(),
		})
		return "", false
	}

	plaintext, err := crypto.Decrypt(encrypted, s.key)
	if err != nil {
		logging.Warn("local store value failed to decrypt", map[string]interface{}{
			"component": "localstore",
			"namespace": namespace,
			"key":       key,
		})
		return "", false
	}
	return string(plaintext), true
}

// Set overwrites the value for (namespace, key). The write is durable when
// Set returns nil; callers treat a non-nil error as "state not guaranteed
// persisted" and fall back to their in-memory copy.
func (s *Store) Set(namespace, key, value string) error {
	encrypted, err := crypto.Encrypt([]byte(value), s.key)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "encrypt value", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO kv (namespace, key, value, updated_at)
		VALUES (?, ?, ?, strftime('%s','now'))
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		namespace, key, encrypted)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "persist value", err)
	}
	return nil
}

// Delete removes (namespace, key). Deleting a missing key is not an error.
func (s *Store) Delete(namespace, key string) error {
	if _, err := s.db.Exec(
		"DELETE FROM kv WHERE namespace = ? AND key = ?", namespace, key,
	); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "delete value", err)
	}
	return nil
}

// ClearAll wipes every namespace. Used only on account/session teardown.
func (s *Store) ClearAll() error {
	if _, err := s.db.Exec("DELETE FROM kv"); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "clear store", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
