package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/franckalain/foodmonster/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteBackend keeps one row per image, replaced wholesale on every save.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens or creates the SQLite database at dbPath
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection keeps the delete-and-reinsert transaction and readers on the same view.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}

	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

// Load reads every row into a store.
func (s *SQLiteBackend) Load(ctx context.Context) (models.Store, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, record FROM image_records`)
	if err != nil {
		return nil, fmt.Errorf("error querying records: %w", err)
	}
	defer rows.Close()

	store := models.Store{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("error scanning record: %w", err)
		}
		var rec models.ImageRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("error decoding record %s: %w", id, err)
		}
		store[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return store, nil
}

// Save replaces all rows with the contents of store in one transaction.
func (s *SQLiteBackend) Save(ctx context.Context, store models.Store) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM image_records`); err != nil {
		return fmt.Errorf("error clearing records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO image_records (id, upload_date, record) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for id, rec := range store {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("error encoding record %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, rec.UploadDate, string(raw)); err != nil {
			return fmt.Errorf("error inserting record %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
