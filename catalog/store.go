// Package catalog persists component descriptors in SQLite so tools can
// answer "does" and "can" questions without assembling anything.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/manwar/Mic/component"
	"github.com/manwar/Mic/wire"
)

var log = commonlog.GetLogger("mic.catalog")

var ErrNotFound = errors.New("component not in catalog")

// Store is a descriptor catalog backed by one SQLite database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the catalog at path. ":memory:" gives a private
// in-memory catalog.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// An in-memory database exists per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS components (
		name TEXT PRIMARY KEY,
		interface TEXT NOT NULL DEFAULT '',
		hash BLOB NOT NULL,
		descriptor BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS interfaces (
		component TEXT NOT NULL,
		interface TEXT NOT NULL,
		PRIMARY KEY (component, interface)
	);

	CREATE TABLE IF NOT EXISTS operations (
		component TEXT NOT NULL,
		operation TEXT NOT NULL,
		PRIMARY KEY (component, operation)
	);

	CREATE INDEX IF NOT EXISTS idx_interfaces_interface ON interfaces(interface);
	CREATE INDEX IF NOT EXISTS idx_operations_operation ON operations(operation);
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a descriptor, replacing any previous one with the same name.
func (s *Store) Put(d *component.Descriptor) error {
	return s.PutAll([]*component.Descriptor{d})
}

// PutAll stores several descriptors in one transaction.
func (s *Store) PutAll(descs []*component.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, d := range descs {
		if err := put(tx, d); err != nil {
			tx.Rollback()
			return fmt.Errorf("catalog: put %s: %w", d.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Infof("stored %d descriptors", len(descs))
	return nil
}

func put(tx *sql.Tx, d *component.Descriptor) error {
	data, err := wire.MarshalDescriptor(d)
	if err != nil {
		return err
	}
	hash, err := wire.Hash(d)
	if err != nil {
		return err
	}

	if err := deleteRows(tx, d.Name); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO components (name, interface, hash, descriptor, updated_at) VALUES (?, ?, ?, ?, ?)",
		d.Name, d.Interface, hash[:], data, time.Now().UTC(),
	); err != nil {
		return err
	}
	for _, iface := range d.Does {
		if _, err := tx.Exec("INSERT INTO interfaces (component, interface) VALUES (?, ?)", d.Name, iface); err != nil {
			return err
		}
	}
	for _, op := range d.Can {
		if _, err := tx.Exec("INSERT INTO operations (component, operation) VALUES (?, ?)", d.Name, op); err != nil {
			return err
		}
	}
	return nil
}

// PutBundle stores every descriptor of a bundle.
func (s *Store) PutBundle(b *wire.Bundle) error {
	return s.PutAll(b.Descriptors())
}

// Get returns the stored descriptor for a component.
func (s *Store) Get(name string) (*component.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.QueryRow("SELECT descriptor FROM components WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalDescriptor(data)
}

// Hash returns the stored content hash of a component's descriptor.
func (s *Store) Hash(name string) ([32]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var h [32]byte
	var data []byte
	err := s.db.QueryRow("SELECT hash FROM components WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return h, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return h, err
	}
	copy(h[:], data)
	return h, nil
}

// Delete removes a component. Deleting an absent name is not an error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := deleteRows(tx, name); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// deleteRows removes a component and its index rows. The index tables
// carry no foreign keys, so every table is cleared here.
func deleteRows(tx *sql.Tx, name string) error {
	for _, stmt := range []string{
		"DELETE FROM interfaces WHERE component = ?",
		"DELETE FROM operations WHERE component = ?",
		"DELETE FROM components WHERE name = ?",
	} {
		if _, err := tx.Exec(stmt, name); err != nil {
			return err
		}
	}
	return nil
}

// Names returns every stored component name, sorted.
func (s *Store) Names() ([]string, error) {
	return s.queryNames("SELECT name FROM components ORDER BY name")
}

// Implementers returns the components that do iface, sorted.
func (s *Store) Implementers(iface string) ([]string, error) {
	return s.queryNames("SELECT component FROM interfaces WHERE interface = ? ORDER BY component", iface)
}

// Supporting returns the components that can do op, sorted.
func (s *Store) Supporting(op string) ([]string, error) {
	return s.queryNames("SELECT component FROM operations WHERE operation = ? ORDER BY component", op)
}

// Does reports whether a stored component satisfies iface.
func (s *Store) Does(name, iface string) (bool, error) {
	return s.exists("interfaces", "interface", name, iface)
}

// Can reports whether a stored component exposes op.
func (s *Store) Can(name, op string) (bool, error) {
	return s.exists("operations", "operation", name, op)
}

func (s *Store) exists(table, column, name, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var known bool
	if err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM components WHERE name = ?)", name).Scan(&known); err != nil {
		return false, err
	}
	if !known {
		return false, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	var found bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE component = ? AND %s = ?)", table, column)
	if err := s.db.QueryRow(query, name, value).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (s *Store) queryNames(query string, args ...any) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
