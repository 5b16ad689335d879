// Package schemasource implements concrete, swappable collaborators
// for FETCH TYPES (spec §6): each Source reads a JSON-encoded
// declaration batch and returns the []loader.Declaration the Schema
// Loader consumes. The Loader itself never imports this package — a
// host wires a Source in, selects one by URL scheme, and hands the
// Loader only the parsed result, keeping L free of any retrieval
// concern (spec §4.1's "the core receives an in-memory
// representation, not raw text").
package schemasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/arkemis/dbufdb/internal/loader"
)

// Source fetches and decodes one schema batch.
type Source interface {
	Fetch(ctx context.Context, path string) ([]loader.Declaration, error)
}

// Open selects a Source by path's URL scheme: "s3://" routes to an
// S3Source, anything else (a bare path or "file://") to a FileSource.
// fileSrc/s3Src may be nil if the corresponding scheme is never used
// by the caller.
func Open(path string, fileSrc *FileSource, s3Src *S3Source) (Source, string, error) {
	switch {
	case strings.HasPrefix(path, "s3://"):
		if s3Src == nil {
			return nil, "", fmt.Errorf("schemasource: no S3 source configured for %q", path)
		}
		return s3Src, strings.TrimPrefix(path, "s3://"), nil
	default:
		if fileSrc == nil {
			return nil, "", fmt.Errorf("schemasource: no file source configured for %q", path)
		}
		return fileSrc, strings.TrimPrefix(path, "file://"), nil
	}
}

// decodeBatch is shared by every Source implementation: the wire
// format is a JSON array of loader.Declaration regardless of where
// the bytes came from.
func decodeBatch(data []byte) ([]loader.Declaration, error) {
	var batch []loader.Declaration
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("schemasource: decode batch: %w", err)
	}
	return batch, nil
}

// FileSource reads a declaration batch from local disk.
type FileSource struct{}

func NewFileSource() *FileSource { return &FileSource{} }

func (f *FileSource) Fetch(_ context.Context, path string) ([]loader.Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemasource: read %s: %w", path, err)
	}
	return decodeBatch(data)
}
