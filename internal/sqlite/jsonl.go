// This file provides JSONL backup of the history table. Export writes every
// persisted record with the atomic temp-file/fsync/rename pattern; import
// inserts records whose ids are not yet present.

package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/scraps/pkg/types"
)

// ImportResult reports the outcome of Import.
type ImportResult struct {
	Imported int `json:"imported"` // Rows inserted.
	Existing int `json:"existing"` // Records whose id was already stored.
	Skipped  int `json:"skipped"`  // Malformed or invalid records.
}

// readJSONL reads a JSONL file and returns each non-empty line as a
// json.RawMessage. Lines that are not valid JSON are counted in skipped.
func readJSONL(path string) (records []json.RawMessage, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			skipped++
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, skipped, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Export writes every history record to path as JSONL, oldest first.
// Returns the number of records written.
func (b *Backend) Export(ctx context.Context, path string) (int, error) {
	db, err := b.conn()
	if err != nil {
		return 0, err
	}
	rows, err := db.QueryContext(ctx, "SELECT "+historyColumns+" FROM history ORDER BY createTime ASC")
	if err != nil {
		return 0, fmt.Errorf("querying history for export: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return 0, err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("marshaling %s: %w", rec.ID, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating history for export: %w", err)
	}

	if err := writeJSONL(path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Import reads a JSONL export and inserts every valid record whose id is not
// already stored. Malformed lines and records that do not hydrate are skipped.
func (b *Backend) Import(ctx context.Context, path string) (ImportResult, error) {
	raw, skipped, err := readJSONL(path)
	if err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Skipped: skipped}

	var valid []types.Record
	for _, line := range raw {
		var rec types.Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.ID == "" {
			result.Skipped++
			continue
		}
		if _, err := rec.Entry(); err != nil {
			result.Skipped++
			continue
		}
		valid = append(valid, rec)
	}

	db, err := b.conn()
	if err != nil {
		return result, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range valid {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			insertArgs(rec)...,
		)
		if err != nil {
			return result, fmt.Errorf("importing %s: %w", rec.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("importing %s: %w", rec.ID, err)
		}
		if n == 0 {
			result.Existing++
		} else {
			result.Imported++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("committing import: %w", err)
	}
	return result, nil
}
