package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// QueryParams selects and orders the rows of a table.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, such as
	// "NodeID = ? AND IfIndex = ?".
	Where string

	// Args fill the placeholders of Where.
	Args []any

	// Limit caps the number of rows. Zero means no limit.
	Limit int

	// Offset skips rows. It only applies together with Limit.
	Offset int

	// OrderBy is the ordering without the ORDER BY keywords.
	OrderBy string
}

// DataReader reads rows back into the structs they were recorded from.
type DataReader interface {
	// MapTable binds a table to the struct type of sampleEntry. A table
	// must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables in name order.
	ListTables() []string

	// Query returns pointers to structs of the mapped type, and the number
	// of rows that match params when Limit and Offset are ignored.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

// tableMapping tells where the columns of a table go in its struct.
type tableMapping struct {
	structType reflect.Type
	fieldIndex map[string]int
}

func newTableMapping(t reflect.Type) tableMapping {
	m := tableMapping{
		structType: t,
		fieldIndex: make(map[string]int, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		m.fieldIndex[t.Field(i).Name] = i
	}

	return m
}

type sqliteReader struct {
	db       *sql.DB
	mappings map[string]tableMapping
}

// NewReader opens a file written by a DataRecorder.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, err
	}

	return &sqliteReader{
		db:       db,
		mappings: make(map[string]tableMapping),
	}, nil
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	t := reflect.TypeOf(sampleEntry)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("table %s: %s is not a struct", tableName, t))
	}

	r.mappings[tableName] = newTableMapping(t)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.mappings))
	for table := range r.mappings {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

// statements builds the row query and the count query of a table.
func statements(tableName string, params QueryParams) (rows, count string) {
	var where, tail strings.Builder

	if params.Where != "" {
		fmt.Fprintf(&where, " WHERE %s", params.Where)
	}

	if params.OrderBy != "" {
		fmt.Fprintf(&tail, " ORDER BY %s", params.OrderBy)
	}

	if params.Limit > 0 {
		fmt.Fprintf(&tail, " LIMIT %d", params.Limit)

		if params.Offset > 0 {
			fmt.Fprintf(&tail, " OFFSET %d", params.Offset)
		}
	}

	rows = "SELECT * FROM " + tableName + where.String() + tail.String()
	count = "SELECT COUNT(*) FROM " + tableName + where.String()

	return rows, count
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	mapping, ok := r.mappings[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	rowQuery, countQuery := statements(tableName, params)

	var total int

	err := r.db.QueryRowContext(ctx, countQuery, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", tableName, err)
	}

	rows, err := r.db.QueryContext(ctx, rowQuery, params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := mapping.scan(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", tableName, err)
	}

	return results, total, nil
}

// scan reads every row into a new struct. Columns without a field are
// skipped.
func (m tableMapping) scan(rows *sql.Rows) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(m.structType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			idx, ok := m.fieldIndex[col]
			if !ok {
				targets[i] = new(any)
				continue
			}

			targets[i] = entry.Elem().Field(idx).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

// QueryAll maps a table to T and returns all matching rows as values.
func QueryAll[T any](
	ctx context.Context,
	r DataReader,
	tableName string,
	params QueryParams,
) ([]T, error) {
	var sample T

	r.MapTable(tableName, sample)

	results, _, err := r.Query(ctx, tableName, params)
	if err != nil {
		return nil, err
	}

	entries := make([]T, len(results))
	for i, res := range results {
		entries[i] = *res.(*T)
	}

	return entries, nil
}
