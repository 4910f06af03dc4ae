package sender

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkSizeThresholds(t *testing.T) {
	require.EqualValues(t, minChunkSize, ChunkSize(0))
	require.EqualValues(t, minChunkSize, ChunkSize(1024*1024-1))
	require.EqualValues(t, defaultChunkSize, ChunkSize(1024*1024))
	require.EqualValues(t, defaultChunkSize, ChunkSize(100*1024*1024-1))
	require.EqualValues(t, maxChunkSize, ChunkSize(100*1024*1024))
	require.EqualValues(t, maxChunkSize, ChunkSize(10*1024*1024*1024))
}

func TestHashFileIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/payload.bin"
	require.NoError(t, os.WriteFile(path, []byte("the quick brown fox jumps over the lazy dog"), 0o644))

	h1, err := hashFile(path)
	require.NoError(t, err)
	h2, err := hashFile(path)
	require.NoError(t, err)

	require.Equal(t, h1, h2)
	require.Len(t, h1, 64) // hex-encoded 32-byte BLAKE3 digest
}
