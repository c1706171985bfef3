package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// csvReader loads a whole CSV into memory with gota.
type csvReader struct{}

func (csvReader) Read(ctx context.Context, path string, columns []string) (dataframe.DataFrame, error) {
	if err := ctx.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return dataframe.DataFrame{}, fmt.Errorf("gota engine reads csv only, got %s (use the duckdb engine)", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s: %v", ErrArtifactMissing, path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithTypes(stringColumns),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", path, df.Err)
	}

	if len(columns) == 0 {
		return df, nil
	}
	if err := checkColumns(df.Names(), columns); err != nil {
		return dataframe.DataFrame{}, err
	}
	df = df.Select(columns)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, df.Err)
	}
	return df, nil
}

func (csvReader) Close() error { return nil }
