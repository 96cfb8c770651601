package ledgerconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/ledgerconfig"
)

func TestParseDefaultsWhenNoFilePresent(t *testing.T) {
	dir := t.TempDir()
	cfg, err := ledgerconfig.Parse([]string{"--config", filepath.Join(dir, "missing.yaml")})
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.NotZero(t, cfg.Params.NightDustRatio)
}

func TestParseMergesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledgercore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loglevel: debug\nparams:\n  night_dust_ratio: 42\n"), 0o600))

	cfg, err := ledgerconfig.Parse([]string{"--config", path})
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.EqualValues(t, 42, cfg.Params.NightDustRatio)
}
