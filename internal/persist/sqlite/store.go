// Package sqlite persists the materialization planner's durable state —
// replay paths, the redundant-partial map, the tag generator, and policy —
// across restarts, and archives Graphviz diagnostics captured on internal
// invariant failures. Everything else State tracks (have/had/added/
// partial) is transient and is rebuilt by replaying Extend over the
// current graph during recovery, the same way the original implementation
// skips those fields from its own serialized form.
package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a sqlite3 connection holding the planner's durable state.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("sqlite: init schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SaveConfig persists the planner's current policy as JSON.
func (s *Store) SaveConfig(cfgJSON []byte, tagGenerator uint32) error {
	_, err := s.conn.Exec(`
		INSERT INTO materialization_state (id, tag_generator, config_json, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET tag_generator = excluded.tag_generator, config_json = excluded.config_json, updated_at = CURRENT_TIMESTAMP
	`, tagGenerator, string(cfgJSON))
	if err != nil {
		return fmt.Errorf("sqlite: save config: %w", err)
	}
	return nil
}

// LoadConfig returns the persisted config JSON and tag generator value, or
// ok=false if nothing has been saved yet.
func (s *Store) LoadConfig() (cfgJSON []byte, tagGenerator uint32, ok bool, err error) {
	row := s.conn.QueryRow(`SELECT config_json, tag_generator FROM materialization_state WHERE id = 1`)
	var raw string
	if scanErr := row.Scan(&raw, &tagGenerator); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("sqlite: load config: %w", scanErr)
	}
	return []byte(raw), tagGenerator, true, nil
}

// SaveRedundantPartial overwrites the persisted redundant-partial map.
func (s *Store) SaveRedundantPartial(pairs map[int]int) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM redundant_partial`); err != nil {
		return fmt.Errorf("sqlite: clear redundant_partial: %w", err)
	}
	for partial, full := range pairs {
		if _, err := tx.Exec(`INSERT INTO redundant_partial (partial_node, full_node) VALUES (?, ?)`, partial, full); err != nil {
			return fmt.Errorf("sqlite: insert redundant_partial: %w", err)
		}
	}
	return tx.Commit()
}

// LoadRedundantPartial returns the persisted redundant-partial map.
func (s *Store) LoadRedundantPartial() (map[int]int, error) {
	rows, err := s.conn.Query(`SELECT partial_node, full_node FROM redundant_partial`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query redundant_partial: %w", err)
	}
	defer rows.Close()

	out := map[int]int{}
	for rows.Next() {
		var partial, full int
		if err := rows.Scan(&partial, &full); err != nil {
			return nil, fmt.Errorf("sqlite: scan redundant_partial: %w", err)
		}
		out[partial] = full
	}
	return out, rows.Err()
}

// SavePaths persists the replay-path records for a node as lz4-compressed
// JSON. Replay-path chains can run long in deeply nested queries, and this
// blob is read far more often as a whole (on recovery) than it's queried
// into, so block compression pays for itself more than a column-level
// scheme would.
func (s *Store) SavePaths(nodeIndex int, records any) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("sqlite: marshal paths: %w", err)
	}

	var compressed bytes.Buffer
	w := lz4.NewWriter(&compressed)
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("sqlite: compress paths: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sqlite: compress paths: %w", err)
	}

	_, err = s.conn.Exec(`
		INSERT INTO replay_paths (node_index, blob) VALUES (?, ?)
		ON CONFLICT(node_index) DO UPDATE SET blob = excluded.blob
	`, nodeIndex, compressed.Bytes())
	if err != nil {
		return fmt.Errorf("sqlite: save paths: %w", err)
	}
	return nil
}

// LoadPaths returns the decompressed JSON blob of replay-path records for
// a node, or ok=false if nothing is stored for it.
func (s *Store) LoadPaths(nodeIndex int) (raw []byte, ok bool, err error) {
	row := s.conn.QueryRow(`SELECT blob FROM replay_paths WHERE node_index = ?`, nodeIndex)
	var blob []byte
	if scanErr := row.Scan(&blob); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite: load paths: %w", scanErr)
	}

	r := lz4.NewReader(bytes.NewReader(blob))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: decompress paths: %w", err)
	}
	return decompressed, true, nil
}

// CommitHistoryPoint is one recorded sample of planner growth over time,
// for the `history` sparkline.
type CommitHistoryPoint struct {
	PartialNodeCount int
	TagGenerator     uint32
}

// RecordCommitHistory appends a sample after a successful commit.
func (s *Store) RecordCommitHistory(point CommitHistoryPoint) error {
	_, err := s.conn.Exec(`INSERT INTO commit_history (partial_node_count, tag_generator) VALUES (?, ?)`,
		point.PartialNodeCount, point.TagGenerator)
	if err != nil {
		return fmt.Errorf("sqlite: record commit history: %w", err)
	}
	return nil
}

// LoadCommitHistory returns every recorded sample, oldest first.
func (s *Store) LoadCommitHistory() ([]CommitHistoryPoint, error) {
	rows, err := s.conn.Query(`SELECT partial_node_count, tag_generator FROM commit_history ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load commit history: %w", err)
	}
	defer rows.Close()

	var out []CommitHistoryPoint
	for rows.Next() {
		var p CommitHistoryPoint
		if err := rows.Scan(&p.PartialNodeCount, &p.TagGenerator); err != nil {
			return nil, fmt.Errorf("sqlite: scan commit history: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveDiagnostic archives a zstd-compressed Graphviz dump captured when an
// internal invariant violation was raised, tagged with the reason string
// from the error that triggered it.
func (s *Store) SaveDiagnostic(reason, graphvizDOT string) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("sqlite: new zstd encoder: %w", err)
	}
	defer enc.Close()

	compressed := enc.EncodeAll([]byte(graphvizDOT), nil)

	_, err = s.conn.Exec(`INSERT INTO diagnostics (reason, graphviz) VALUES (?, ?)`, reason, compressed)
	if err != nil {
		return fmt.Errorf("sqlite: save diagnostic: %w", err)
	}
	return nil
}

// LoadDiagnostic returns the decompressed Graphviz dump for a diagnostic
// row by id.
func (s *Store) LoadDiagnostic(id int64) (reason, graphvizDOT string, err error) {
	row := s.conn.QueryRow(`SELECT reason, graphviz FROM diagnostics WHERE id = ?`, id)
	var compressed []byte
	if err := row.Scan(&reason, &compressed); err != nil {
		return "", "", fmt.Errorf("sqlite: load diagnostic: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: new zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: decompress diagnostic: %w", err)
	}
	return reason, string(raw), nil
}
