package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(dir, "tables.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return zipPath
}

func TestOpenZIPMember(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{
		"export/orders.csv": "Order_ID\nORD1\n",
		"readme.txt":        "hello",
	})

	t.Run("full name", func(t *testing.T) {
		rc, err := OpenZIPMember(zipPath, "export/orders.csv")
		require.NoError(t, err)
		defer rc.Close() //nolint:errcheck
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "Order_ID\nORD1\n", string(data))
	})

	t.Run("base name", func(t *testing.T) {
		rc, err := OpenZIPMember(zipPath, "orders.csv")
		require.NoError(t, err)
		assert.NoError(t, rc.Close())
	})

	t.Run("missing member", func(t *testing.T) {
		_, err := OpenZIPMember(zipPath, "routes.csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"routes.csv" not found`)
	})
}

func TestOpenZIPMember_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))
	_, err := OpenZIPMember(path, "orders.csv")
	require.Error(t, err)
}

func TestExtractZIPMember(t *testing.T) {
	dir := t.TempDir()
	zipPath := createTestZIP(t, dir, map[string]string{
		"nested/costs.csv": "Order_ID,Fuel_Cost\nORD1,12\n",
	})
	dest := t.TempDir()

	out, err := ExtractZIPMember(zipPath, "nested/costs.csv", dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "costs.csv"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Order_ID,Fuel_Cost\nORD1,12\n", string(data))
}
