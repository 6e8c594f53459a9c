package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/delay-risk-cli/internal/artifact"
	"github.com/sells-group/delay-risk-cli/internal/artifact/artifacttest"
	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/risk"
)

func TestServe_MissingArtifactsFails(t *testing.T) {
	t.Setenv("DELAYRISK_STORE_DRIVER", "none")
	t.Setenv("DELAYRISK_LOG_LEVEL", "error")

	rootCmd.SetArgs([]string{"serve", "--artifacts", filepath.Join(t.TempDir(), "none"), "--port", "18089"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve: load artifacts")

	var loadErr *artifact.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Path, artifact.ModelFile)
}

func TestRunID(t *testing.T) {
	dir := t.TempDir()
	artifacttest.Save(t, dir)
	sc, err := risk.Load(dir, codec.PolicyStrict)
	require.NoError(t, err)
	assert.Equal(t, "run-test", runID(sc))
}
