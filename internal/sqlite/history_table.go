package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/scraps/pkg/types"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Insert appends a record to the history table.
// Returns ErrInvalidID if the id is empty.
func (b *Backend) Insert(ctx context.Context, rec types.Record) error {
	if rec.ID == "" {
		return types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrStorage, err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insertArgs(rec)...,
	)
	if err != nil {
		return fmt.Errorf("%w: inserting %s: %w", types.ErrStorage, rec.ID, err)
	}
	return nil
}

// insertArgs dehydrates a record into column values. Dimensions are only
// stored for images; empty note and subtype are stored as NULL.
func insertArgs(rec types.Record) []any {
	var width, height any
	if rec.Group == types.GroupImage {
		width, height = rec.Width, rec.Height
	}
	return []any{
		rec.ID, rec.Type, rec.Group, rec.Value, rec.Search, rec.Count,
		width, height, rec.Favorite, rec.CreateTime,
		nullString(rec.Note), nullString(rec.Subtype),
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UpdateByID applies patch to the row matching id. An unknown id is a no-op.
func (b *Backend) UpdateByID(ctx context.Context, id string, patch types.EntryPatch) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if patch.Empty() {
		return nil
	}
	db, err := b.conn()
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrStorage, err)
	}

	var sets []string
	var args []any
	if patch.CreateTime != nil {
		sets = append(sets, "createTime = ?")
		args = append(args, types.FormatTime(*patch.CreateTime))
	}
	if patch.Favorite != nil {
		sets = append(sets, "favorite = ?")
		args = append(args, types.BoolToInt(*patch.Favorite))
	}
	if patch.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, nullString(*patch.Note))
	}
	args = append(args, id)

	_, err = db.ExecContext(ctx, "UPDATE history SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("%w: updating %s: %w", types.ErrStorage, id, err)
	}
	return nil
}

// SelectWhere returns records matching every column/value pair in filter,
// in SQLite's natural row order. Returns ErrInvalidFilter for unknown keys
// or unsupported value types.
func (b *Backend) SelectWhere(ctx context.Context, filter types.Filter) ([]types.Record, error) {
	query := "SELECT " + historyColumns + " FROM history"
	var conditions []string
	var args []any
	limit := 0

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := filter[k]
		if k == "limit" {
			n, ok := v.(int)
			if !ok {
				return nil, fmt.Errorf("%w: limit must be int, got %T", types.ErrInvalidFilter, v)
			}
			limit = n
			continue
		}
		col, ok := filterColumns[k]
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", types.ErrInvalidFilter, k)
		}
		arg, err := filterArg(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", types.ErrInvalidFilter, k, err)
		}
		conditions = append(conditions, col+" = ?")
		args = append(args, arg)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	db, err := b.conn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: selecting history: %w", types.ErrStorage, err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating history: %w", types.ErrStorage, err)
	}
	return records, nil
}

// filterArg converts a Filter value to its persisted column form.
func filterArg(v any) (any, error) {
	switch x := v.(type) {
	case string, int, int64:
		return x, nil
	case bool:
		return types.BoolToInt(x), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Fetch returns entries matching q ordered by createTime, most recent first.
func (b *Backend) Fetch(ctx context.Context, q types.Query) ([]types.HistoryEntry, error) {
	query := "SELECT " + historyColumns + " FROM history"
	var conditions []string
	var args []any

	if q.Group != "" && q.Group != types.GroupAll {
		if !types.ValidGroup(q.Group) {
			return nil, fmt.Errorf("%w: %q", types.ErrInvalidGroup, q.Group)
		}
		conditions = append(conditions, `"group" = ?`)
		args = append(args, q.Group)
	}
	if q.Favorite {
		conditions = append(conditions, "favorite != 0")
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		conditions = append(conditions, `(search LIKE ? ESCAPE '\' OR note LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY createTime DESC"

	switch {
	case q.Limit > 0:
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	case q.Offset > 0:
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", q.Offset)
	}

	db, err := b.conn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching history: %w", types.ErrStorage, err)
	}
	defer rows.Close()

	entries := []types.HistoryEntry{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
		}
		e, err := rec.Entry()
		if err != nil {
			return nil, fmt.Errorf("%w: hydrating %s: %w", types.ErrStorage, rec.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating history: %w", types.ErrStorage, err)
	}
	return entries, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Get retrieves an entry by ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (b *Backend) Get(ctx context.Context, id string) (types.HistoryEntry, error) {
	if id == "" {
		return types.HistoryEntry{}, types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}

	row := db.QueryRowContext(ctx, "SELECT "+historyColumns+" FROM history WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return types.HistoryEntry{}, types.ErrNotFound
	}
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("%w: getting %s: %w", types.ErrStorage, id, err)
	}
	e, err := rec.Entry()
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("%w: hydrating %s: %w", types.ErrStorage, id, err)
	}
	return e, nil
}

// Delete removes an entry by ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (b *Backend) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrStorage, err)
	}

	res, err := db.ExecContext(ctx, "DELETE FROM history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: deleting %s: %w", types.ErrStorage, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: deleting %s: %w", types.ErrStorage, id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Count returns the number of stored rows.
func (b *Backend) Count(ctx context.Context) (int, error) {
	db, err := b.conn()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting history: %w", types.ErrStorage, err)
	}
	return n, nil
}

// scanRecord hydrates one history row, mapping NULL columns to zero values.
func scanRecord(s scanner) (types.Record, error) {
	var rec types.Record
	var typ, group, value, search, createTime, note, subtype sql.NullString
	var count, width, height, favorite sql.NullInt64
	err := s.Scan(&rec.ID, &typ, &group, &value, &search, &count, &width, &height,
		&favorite, &createTime, &note, &subtype)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.Record{}, err
		}
		return types.Record{}, fmt.Errorf("scanning history row: %w", err)
	}
	rec.Type = typ.String
	rec.Group = group.String
	rec.Value = value.String
	rec.Search = search.String
	rec.Count = int(count.Int64)
	rec.Width = int(width.Int64)
	rec.Height = int(height.Int64)
	rec.Favorite = int(favorite.Int64)
	rec.CreateTime = createTime.String
	rec.Note = note.String
	rec.Subtype = subtype.String
	return rec, nil
}
