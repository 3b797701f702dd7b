package table

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapclean/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// stagingTable holds rows between WriteDelimited's insert and COPY.
const stagingTable = "leapclean_output"

// Engine reads and writes delimited files through DuckDB.
type Engine struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open establishes a DuckDB connection.
// Use ":memory:" (or an empty path) for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Engine, error) {
	if path == "" {
		path = ":memory:"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := path
	if dsn == ":memory:" {
		dsn = ""
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	logger.Debug("opened duckdb", slog.String("path", path))
	return &Engine{db: db, path: path, logger: logger}, nil
}

// Close closes the database connection.
func (e *Engine) Close() error {
	if e.db != nil {
		e.logger.Debug("closing duckdb", slog.String("path", e.path))
		return e.db.Close()
	}
	return nil
}

// ReadDelimited parses a delimited file with a header row into a Table.
// Every cell is read as text so that values pass through unchanged; empty
// fields become the missing marker. Column names and row order follow the
// file. Any failure is reported as core.ErrDataFormat.
func (e *Engine) ReadDelimited(ctx context.Context, path string) (*Table, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrDataFormat, path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDataFormat, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s: no header row", core.ErrDataFormat, path)
	}

	query := fmt.Sprintf(
		"SELECT * FROM read_csv(%s, header = true, all_varchar = true, auto_detect = true)",
		quoteLiteral(absPath),
	)

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrDataFormat, path, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrDataFormat, path, err)
	}

	t, err := New(columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrDataFormat, path, err)
	}

	values := make([]sql.NullString, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrDataFormat, path, err)
		}
		row := make([]Cell, len(columns))
		for i, v := range values {
			if v.Valid {
				row[i] = Text(v.String)
			}
		}
		if err := t.Append(row); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrDataFormat, path, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrDataFormat, path, err)
	}

	e.logger.Debug("read delimited file",
		slog.String("path", path),
		slog.Int("columns", len(columns)),
		slog.Int("rows", t.Len()))

	return t, nil
}

// WriteDelimited writes t to path as comma-separated values with a header
// row and no index column, replacing any existing file. Missing cells are
// written as empty fields. Any failure is reported as core.ErrFilesystem.
func (e *Engine) WriteDelimited(ctx context.Context, t *Table, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrFilesystem, path, err)
	}

	// Temp tables are per connection, so the whole write uses one.
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrFilesystem, path, err)
	}
	defer func() { _ = conn.Close() }()

	if err := stage(ctx, conn, t); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrFilesystem, path, err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+stagingTable)
	}()

	// The row-order column sorts the output and is excluded from the file.
	copyStmt := fmt.Sprintf(
		"COPY (SELECT * EXCLUDE (%[1]s) FROM %[2]s ORDER BY %[1]s) TO %[3]s (FORMAT csv, HEADER true, DELIMITER ',')",
		quoteIdent(rowOrderColumn), stagingTable, quoteLiteral(absPath),
	)

	if _, err := conn.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrFilesystem, path, err)
	}

	e.logger.Debug("wrote delimited file",
		slog.String("path", path),
		slog.Int("rows", t.Len()))

	return nil
}

// rowOrderColumn records insertion order in the staging table so that COPY
// emits rows exactly in table order.
const rowOrderColumn = "__leapclean_row"

func stage(ctx context.Context, conn *sql.Conn, t *Table) error {
	columns := t.Columns()

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, quoteIdent(rowOrderColumn)+" BIGINT")
	for _, name := range columns {
		defs = append(defs, quoteIdent(name)+" VARCHAR")
	}

	create := fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s (%s)", stagingTable, strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	if t.Len() == 0 {
		return nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)+1), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", stagingTable, placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(columns)+1)
	for i := 0; i < t.Len(); i++ {
		args[0] = int64(i)
		for j, cell := range t.Row(i) {
			if cell.Valid {
				args[j+1] = cell.Value
			} else {
				args[j+1] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}
	return nil
}

// quoteLiteral renders s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent renders s as a SQL identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
