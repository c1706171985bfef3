package artifacts

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-gota/gota/dataframe"
)

// duckdbReader scans files through an in-memory DuckDB instance so only the
// requested columns are materialized and the scan stays under max_memory.
type duckdbReader struct {
	db *sql.DB
}

func newDuckDBReader(maxMemory string, threads int) (*duckdbReader, error) {
	if threads <= 0 {
		threads = 1
	}
	connStr := fmt.Sprintf(":memory:?max_memory=%s&threads=%d", maxMemory, threads)
	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return &duckdbReader{db: db}, nil
}

func (r *duckdbReader) Close() error {
	return r.db.Close()
}

func (r *duckdbReader) Read(ctx context.Context, path string, columns []string) (dataframe.DataFrame, error) {
	source, err := scanSource(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	available, err := r.columns(ctx, source)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(columns) == 0 {
		columns = available
	} else if err := checkColumns(available, columns); err != nil {
		return dataframe.DataFrame{}, err
	}

	projection := make([]string, len(columns))
	for i, c := range columns {
		projection[i] = fmt.Sprintf("CAST(%s AS VARCHAR) AS %s", quoteIdent(c), quoteIdent(c))
	}
	query := "SELECT " + strings.Join(projection, ", ") + " FROM " + source

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("scan %s: %w", path, err)
	}
	defer rows.Close()

	records := [][]string{append([]string(nil), columns...)}
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("scan %s: %w", path, err)
		}
		record := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				record[i] = v.String
			} else {
				record[i] = "NaN"
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("scan %s: %w", path, err)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithTypes(stringColumns),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", path, df.Err)
	}
	return df, nil
}

func (r *duckdbReader) columns(ctx context.Context, source string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+source+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", source, err)
	}
	defer rows.Close()
	return rows.Columns()
}

func scanSource(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto(%s, header = true, all_varchar = true)", quoteLiteral(path)), nil
	case ".parquet":
		return fmt.Sprintf("read_parquet(%s)", quoteLiteral(path)), nil
	default:
		return "", fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
