package schemasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const userBatchJSON = `[
  {"enum": {"name": "Status", "variants": [{"name": "Admin"}, {"name": "User"}]}},
  {"message": {"name": "User", "fields": [
    {"name": "name", "type": {"primitive": 2}},
    {"name": "status", "type": {"name": "Status"}}
  ]}}
]`

func TestFileSourceFetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(userBatchJSON), 0o644))

	src := NewFileSource()
	batch, err := src.Fetch(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, "Status", batch[0].Enum.Name)
	require.Equal(t, "User", batch[1].Message.Name)
}

func TestFileSourceFetchMissingFile(t *testing.T) {
	src := NewFileSource()
	_, err := src.Fetch(context.Background(), "/does/not/exist.json")
	require.Error(t, err)
}

func TestOpenDispatchesByScheme(t *testing.T) {
	fileSrc := NewFileSource()

	src, resolved, err := Open("/tmp/schema.json", fileSrc, nil)
	require.NoError(t, err)
	require.Equal(t, fileSrc, src)
	require.Equal(t, "/tmp/schema.json", resolved)

	_, _, err = Open("s3://bucket/key", fileSrc, nil)
	require.Error(t, err, "no S3Source configured means s3:// paths cannot be opened")

	_, resolved, err = Open("file:///tmp/schema.json", fileSrc, nil)
	require.NoError(t, err)
	require.Equal(t, "/tmp/schema.json", resolved)
}

func TestDecodeBatchRejectsMalformedJSON(t *testing.T) {
	_, err := decodeBatch([]byte("not json"))
	require.Error(t, err)
}
