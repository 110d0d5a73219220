package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"weft/internal/block"
)

const schemaVersion = 1

// DefaultPath places the index database under the XDG state home, one
// database per workspace root, shared by every frontend indexing that root.
func DefaultPath(root string) (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(base, "weft", url.PathEscape(root))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return filepath.Join(dir, "index.db"), nil
}

// SQLiteStore is the sqlite backed Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the index database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = WAL;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            path TEXT PRIMARY KEY,
            last_modified INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS blocks (
            id TEXT NOT NULL,
            doc TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            language TEXT NOT NULL DEFAULT '',
            target TEXT NOT NULL DEFAULT '',
            line INTEGER NOT NULL,
            body_start INTEGER NOT NULL,
            body_end INTEGER NOT NULL,
            ordinal INTEGER NOT NULL,
            text TEXT NOT NULL,
            header_args TEXT NOT NULL DEFAULT '{}',
            PRIMARY KEY (doc, line),
            FOREIGN KEY (doc) REFERENCES documents(path) ON DELETE CASCADE
        )`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_target
            ON blocks(target)`,
	}
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PutDocument replaces the document record and all its blocks in one
// transaction.
func (s *SQLiteStore) PutDocument(doc string, lastModified int64, blocks []block.Block) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
            INSERT INTO documents (path, last_modified)
            VALUES (?, ?)
            ON CONFLICT(path) DO UPDATE SET
                last_modified = excluded.last_modified
        `, doc, lastModified); err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM blocks WHERE doc = ?", doc); err != nil {
			return fmt.Errorf("failed to clear document blocks: %w", err)
		}

		stmt, err := tx.Prepare(`
            INSERT INTO blocks
                (id, doc, name, language, target, line, body_start, body_end, ordinal, text, header_args)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `)
		if err != nil {
			return fmt.Errorf("failed to prepare block insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range blocks {
			args, err := marshalHeaderArgs(b.HeaderArgs)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(
				b.ID, b.Doc, b.Name, b.Language, b.Target,
				b.Line, b.BodyStart, b.BodyEnd, b.Ordinal, b.Text, args,
			); err != nil {
				return fmt.Errorf("failed to insert block %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// DeleteDocument removes a document; its blocks cascade.
func (s *SQLiteStore) DeleteDocument(doc string) error {
	if _, err := s.db.Exec("DELETE FROM documents WHERE path = ?", doc); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Document looks up one document record.
func (s *SQLiteStore) Document(doc string) (DocumentRecord, error) {
	var rec DocumentRecord
	err := s.db.QueryRow(
		"SELECT path, last_modified FROM documents WHERE path = ?",
		doc,
	).Scan(&rec.Path, &rec.LastModified)
	if err == sql.ErrNoRows {
		return DocumentRecord{}, ErrNotFound
	}
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("failed to query document: %w", err)
	}
	return rec, nil
}

// Documents lists all indexed documents.
func (s *SQLiteStore) Documents() ([]DocumentRecord, error) {
	rows, err := s.db.Query("SELECT path, last_modified FROM documents ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var records []DocumentRecord
	for rows.Next() {
		var rec DocumentRecord
		if err := rows.Scan(&rec.Path, &rec.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan document record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document records: %w", err)
	}
	return records, nil
}

const blockColumns = "id, doc, name, language, target, line, body_start, body_end, ordinal, text, header_args"

// Blocks returns a document's blocks in document order.
func (s *SQLiteStore) Blocks(doc string) ([]block.Block, error) {
	rows, err := s.db.Query(
		"SELECT "+blockColumns+" FROM blocks WHERE doc = ? ORDER BY line", doc)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	return scanBlocks(rows)
}

// BlocksForTarget returns every block tangled to target, ordered by
// document then position.
func (s *SQLiteStore) BlocksForTarget(target string) ([]block.Block, error) {
	rows, err := s.db.Query(
		"SELECT "+blockColumns+" FROM blocks WHERE target = ? ORDER BY doc, line", target)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks by target: %w", err)
	}
	return scanBlocks(rows)
}

// Targets lists the distinct tangle targets.
func (s *SQLiteStore) Targets() ([]string, error) {
	rows, err := s.db.Query(`
        SELECT DISTINCT target FROM blocks
        WHERE target != '' AND lower(target) != 'no'
        ORDER BY target
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating targets: %w", err)
	}
	return targets, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanBlocks(rows *sql.Rows) ([]block.Block, error) {
	defer rows.Close()

	var blocks []block.Block
	for rows.Next() {
		var b block.Block
		var args string
		if err := rows.Scan(
			&b.ID, &b.Doc, &b.Name, &b.Language, &b.Target,
			&b.Line, &b.BodyStart, &b.BodyEnd, &b.Ordinal, &b.Text, &args,
		); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		headerArgs, err := unmarshalHeaderArgs(args)
		if err != nil {
			return nil, err
		}
		b.HeaderArgs = headerArgs
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocks: %w", err)
	}
	return blocks, nil
}

func marshalHeaderArgs(args map[string]string) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode header args: %w", err)
	}
	return string(data), nil
}

func unmarshalHeaderArgs(data string) (map[string]string, error) {
	var args map[string]string
	if err := json.Unmarshal([]byte(data), &args); err != nil {
		return nil, fmt.Errorf("failed to decode header args: %w", err)
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}
