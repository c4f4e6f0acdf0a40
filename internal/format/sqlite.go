package format

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mkarres/tablecast/internal/dataset"
	"github.com/mkarres/tablecast/internal/value"
)

// sqliteFormatter writes the dataset into a SQLite database file: one
// table named after the export, one column per field, the primary-key
// column as table primary key. Composite values (arrays, objects) are
// stored as JSON text.
type sqliteFormatter struct{}

func (sqliteFormatter) Extension() string { return "db" }

func (sqliteFormatter) Write(ds *dataset.Dataset, path string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// The output file is regenerated from scratch on every run.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open output database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // single writer

	columns := datasetColumns(ds)
	if err := createTable(db, ds, columns); err != nil {
		return err
	}
	return insertRows(db, ds, columns)
}

// datasetColumns derives the column list from the first row's field
// order, falling back to just the primary key for empty datasets.
func datasetColumns(ds *dataset.Dataset) []string {
	if len(ds.Rows) > 0 {
		return ds.Rows[0].Values.Keys()
	}
	return []string{ds.PrimaryKey}
}

func createTable(db *sql.DB, ds *dataset.Dataset, columns []string) error {
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		def := quoteIdent(col) + " " + columnType(ds, col)
		if col == ds.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tableName(ds.Export)), strings.Join(defs, ", "))
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create table for export %q: %w", ds.Export, err)
	}
	return nil
}

func insertRows(db *sql.DB, ds *dataset.Dataset, columns []string) error {
	if len(ds.Rows) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(tableName(ds.Export)), strings.Join(quoted, ", "), placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range ds.Rows {
		args := make([]any, len(columns))
		for i, col := range columns {
			v, _ := row.Get(col)
			arg, err := sqlArg(v)
			if err != nil {
				return fmt.Errorf("row %s column %q: %w", row.Ref, col, err)
			}
			args[i] = arg
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert row %s: %w", row.Ref, err)
		}
	}
	return tx.Commit()
}

// columnType picks a SQLite type from the first row holding the column.
func columnType(ds *dataset.Dataset, col string) string {
	for _, row := range ds.Rows {
		v, ok := row.Get(col)
		if !ok || v == nil {
			continue
		}
		switch v.(type) {
		case value.Int, value.Bool:
			return "INTEGER"
		case value.Float:
			return "REAL"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

// sqlArg converts a typed value to a driver argument. Composite values
// become JSON text.
func sqlArg(v value.Value) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case value.Int:
		return int64(val), nil
	case value.Float:
		return float64(val), nil
	case value.String:
		return string(val), nil
	case value.Bool:
		return bool(val), nil
	default:
		b, err := value.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

var identSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func tableName(export string) string {
	name := identSanitizer.ReplaceAllString(export, "_")
	if name == "" {
		name = "export"
	}
	return name
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
