// Package sqliteaudit provides a SQLite-backed implementation of the
// mutationkit Auditor: a durable journal of every mutation dispatched by a
// controller, queryable per entity for forensics.
package sqliteaudit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mutErrors "github.com/c0deZ3R0/go-mutation-kit/errors"
	"github.com/c0deZ3R0/go-mutation-kit/logging"
	"github.com/c0deZ3R0/go-mutation-kit/mutationkit"

	// Go SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const component = "sqlite-audit"

// ErrJournalClosed is returned after Close.
var ErrJournalClosed = errors.New("audit journal is closed")

// Config holds journal configuration.
type Config struct {
	// DataSourceName is the connection string for the SQLite database.
	// Example: "file:audit.db?_journal_mode=WAL"
	DataSourceName string

	// EnableWAL enables Write-Ahead Logging mode for better concurrency.
	// When true, automatically appends "?_journal_mode=WAL" to DataSourceName.
	EnableWAL bool

	// TableName is the name of the journal table.
	// Defaults to "mutation_audit" if empty.
	TableName string

	// Connection pool settings.
	// Defaults: MaxOpen=10, MaxIdle=2
	MaxOpenConns int
	MaxIdleConns int
}

func (c *Config) setDefaults() {
	if c.TableName == "" {
		c.TableName = "mutation_audit"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.EnableWAL {
		if !strings.Contains(c.DataSourceName, "?_journal_mode=") {
			c.DataSourceName += "?_journal_mode=WAL"
		}
	}
}

// DefaultConfig returns a Config with WAL mode enabled.
func DefaultConfig(dataSourceName string) *Config {
	config := &Config{
		DataSourceName: dataSourceName,
		EnableWAL:      true,
	}
	config.setDefaults()
	return config
}

// Journal implements mutationkit.Auditor on SQLite.
type Journal struct {
	db        *sql.DB
	mu        sync.RWMutex
	closed    bool
	tableName string
	logger    *logging.Logger
}

// Compile-time check to ensure Journal satisfies the Auditor interface
var _ mutationkit.Auditor = (*Journal)(nil)

// New creates a Journal from a Config and creates the journal table if it
// does not exist.
func New(config *Config) (*Journal, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	config.setDefaults()

	if config.DataSourceName == "" {
		return nil, fmt.Errorf("DataSourceName is required")
	}

	logger := logging.Default().WithComponent(logging.Component(component))
	logger.InfoContext(context.Background(), "Opening audit journal",
		slog.String("data_source", config.DataSourceName),
		slog.Bool("wal_enabled", config.EnableWAL),
	)

	db, err := sql.Open("sqlite3", config.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	j := &Journal{
		db:        db,
		tableName: config.TableName,
		logger:    logger,
	}

	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

// NewWithDataSource is a convenience constructor
func NewWithDataSource(dataSourceName string) (*Journal, error) {
	return New(DefaultConfig(dataSourceName))
}

func (j *Journal) createSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id         TEXT PRIMARY KEY,
		entity_id  TEXT NOT NULL,
		kind       TEXT NOT NULL,
		actor      TEXT,
		payload    TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%s_entity ON %s(entity_id, created_at);
	`, j.tableName, j.tableName, j.tableName)

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// Emit appends one audit entry to the journal.
func (j *Journal) Emit(ctx context.Context, entry mutationkit.AuditEntry) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return ErrJournalClosed
	}
	if entry.ID == "" {
		return fmt.Errorf("audit entry ID cannot be empty")
	}

	var payload []byte
	if entry.Payload != nil {
		var err error
		payload, err = json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload: %w", err)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (id, entity_id, kind, actor, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		j.tableName,
	)
	_, err := j.db.ExecContext(ctx, query,
		entry.ID,
		entry.EntityID,
		string(entry.Kind),
		entry.Actor,
		string(payload),
		entry.Timestamp.UTC(),
	)
	if err != nil {
		return mutErrors.WrapOpComponentKind(
			fmt.Errorf("failed to insert audit entry: %w", err),
			string(mutErrors.OpAudit), component, mutErrors.KindStorage,
		)
	}
	return nil
}

// ByEntity returns the journal entries for one entity in emission order.
func (j *Journal) ByEntity(ctx context.Context, entityID string) ([]mutationkit.AuditEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrJournalClosed
	}

	query := fmt.Sprintf(
		"SELECT id, entity_id, kind, actor, payload, created_at FROM %s WHERE entity_id = ? ORDER BY created_at, id",
		j.tableName,
	)
	rows, err := j.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, mutErrors.WrapOpComponentKind(
			fmt.Errorf("failed to query audit entries: %w", err),
			string(mutErrors.OpLoad), component, mutErrors.KindStorage,
		)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	return entries, mutErrors.WrapOpComponentKind(err, string(mutErrors.OpLoad), component, mutErrors.KindStorage)
}

// Recent returns the most recent entries across all entities, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]mutationkit.AuditEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrJournalClosed
	}
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(
		"SELECT id, entity_id, kind, actor, payload, created_at FROM %s ORDER BY created_at DESC, id DESC LIMIT ?",
		j.tableName,
	)
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, mutErrors.WrapOpComponentKind(
			fmt.Errorf("failed to query audit entries: %w", err),
			string(mutErrors.OpLoad), component, mutErrors.KindStorage,
		)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	return entries, mutErrors.WrapOpComponentKind(err, string(mutErrors.OpLoad), component, mutErrors.KindStorage)
}

func scanEntries(rows *sql.Rows) ([]mutationkit.AuditEntry, error) {
	var entries []mutationkit.AuditEntry
	for rows.Next() {
		var (
			entry   mutationkit.AuditEntry
			kind    string
			payload sql.NullString
			actor   sql.NullString
			created time.Time
		)
		if err := rows.Scan(&entry.ID, &entry.EntityID, &kind, &actor, &payload, &created); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Kind = mutationkit.MutationKind(kind)
		entry.Actor = actor.String
		entry.Timestamp = created
		if payload.Valid && payload.String != "" {
			var decoded any
			if err := json.Unmarshal([]byte(payload.String), &decoded); err == nil {
				entry.Payload = decoded
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

// Close closes the journal and the underlying database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
