package metadata

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/querylink/fetchsql/pkg/schema"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotCached is returned by Store lookups with no stored snapshot.
var ErrNotCached = errors.New("metadata: not cached")

// Store persists metadata snapshots in a local SQLite database so
// repeated CLI invocations do not re-fetch unchanged metadata.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (and initializes) the cache database at path.
// Use ":memory:" for an in-memory database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging cache database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the stored snapshot for (environmentURL, entity) and when
// it was fetched. ErrNotCached is returned on a miss.
func (s *Store) Get(environmentURL, entity string) ([]schema.AttributeDescriptor, time.Time, error) {
	var payload string
	var fetchedAt time.Time
	err := s.db.QueryRow(
		`SELECT payload, fetched_at FROM attribute_cache WHERE environment_url = ? AND entity = ?`,
		environmentURL, entity,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotCached
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading metadata cache: %w", err)
	}

	var descriptors []schema.AttributeDescriptor
	if err := json.Unmarshal([]byte(payload), &descriptors); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding cached metadata: %w", err)
	}
	return descriptors, fetchedAt, nil
}

// Put stores (or replaces) the snapshot for (environmentURL, entity).
func (s *Store) Put(environmentURL, entity string, descriptors []schema.AttributeDescriptor, fetchedAt time.Time) error {
	payload, err := json.Marshal(descriptors)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO attribute_cache (environment_url, entity, fetched_at, payload) VALUES (?, ?, ?, ?)`,
		environmentURL, entity, fetchedAt.UTC(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("writing metadata cache: %w", err)
	}
	return nil
}

// GetEntitySet returns the cached entity-set name for an entity.
func (s *Store) GetEntitySet(environmentURL, entity string) (string, error) {
	var entitySet string
	err := s.db.QueryRow(
		`SELECT entity_set FROM entity_set_cache WHERE environment_url = ? AND entity = ?`,
		environmentURL, entity,
	).Scan(&entitySet)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotCached
	}
	if err != nil {
		return "", fmt.Errorf("reading entity-set cache: %w", err)
	}
	return entitySet, nil
}

// PutEntitySet stores the entity-set name for an entity.
func (s *Store) PutEntitySet(environmentURL, entity, entitySet string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO entity_set_cache (environment_url, entity, entity_set) VALUES (?, ?, ?)`,
		environmentURL, entity, entitySet,
	)
	if err != nil {
		return fmt.Errorf("writing entity-set cache: %w", err)
	}
	return nil
}
