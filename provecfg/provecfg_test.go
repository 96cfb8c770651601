package provecfg_test

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/provecfg"
)

func TestFileProviderVerifiesDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.bin")
	content := []byte("proving-key-bytes")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	digest := provecfg.Sha256Digest(sha256.Sum256(content))
	data, err := provecfg.FileProvider{}.GetFile(path, digest)
	require.NoError(t, err)
	require.Equal(t, content, data)
}

func TestFileProviderRejectsMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.bin")
	require.NoError(t, os.WriteFile(path, []byte("actual"), 0o600))

	var wrong provecfg.Sha256Digest
	_, err := provecfg.FileProvider{}.GetFile(path, wrong)
	require.ErrorIs(t, err, provecfg.ErrDigestMismatch)
}

func TestCachingProviderFetchesOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.bin")
	content := []byte("cached-key-bytes")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	digest := provecfg.Sha256Digest(sha256.Sum256(content))

	counting := &countingProvider{inner: provecfg.FileProvider{}}
	cache := provecfg.NewCachingProvider(counting)

	_, err := cache.GetFile(path, digest)
	require.NoError(t, err)
	_, err = cache.GetFile(path, digest)
	require.NoError(t, err)
	require.Equal(t, 1, counting.calls)
}

type countingProvider struct {
	inner provecfg.Provider
	calls int
}

func (c *countingProvider) GetFile(path string, expected provecfg.Sha256Digest) ([]byte, error) {
	c.calls++
	return c.inner.GetFile(path, expected)
}
