package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, warnings, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestLoadClampsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	body := []byte("max_parent_traversal_depth: 5\nmax_file_read_retries: 50\nmax_snapshot_file_size_bytes: 100\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gearline.yml"), body, 0o644))

	cfg, warnings, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, warnings, 3)
	require.Equal(t, 10, cfg.MaxParentTraversalDepth)
	require.Equal(t, 20, cfg.MaxFileReadRetries)
	require.Equal(t, int64(1<<10), cfg.MaxSnapshotFileSizeBytes)
}

func TestPartialFileKeepsOtherDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("verbose_logging: true\n"))
	require.NoError(t, err)
	require.True(t, cfg.VerboseLogging)
	require.Equal(t, 5, cfg.MaxFileReadRetries)
	require.Equal(t, 150, cfg.FileReadRetryDelayMs)
}
