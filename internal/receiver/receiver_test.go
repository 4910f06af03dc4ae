package receiver

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/Ominous-Josef/proxishare/internal/protocol"
)

func TestWriteChunkRejectsHashMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	r := &Receiver{}
	active := &openFile{f: f, path: path, transferID: "t1"}

	msg := protocol.NewChunkData("t1", 0, []byte("hello"), "not-the-real-hash")
	err = r.writeChunk(active, msg)
	require.Error(t, err)

	kind, ok := protocol.KindOf(err)
	require.True(t, ok)
	require.Equal(t, protocol.ErrKindChunkHash, kind)
}

func TestWriteChunkAcceptsCorrectHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	r := &Receiver{}
	active := &openFile{f: f, path: path, transferID: "t1"}

	data := []byte("hello world")
	hash := fmt.Sprintf("%x", blake3.Sum256(data))
	msg := protocol.NewChunkData("t1", 0, data, hash)

	err = r.writeChunk(active, msg)
	require.NoError(t, err)
	require.EqualValues(t, len(data), active.received)
}

func TestCheckDiskSpaceRejectsOversizedRequest(t *testing.T) {
	dir := t.TempDir()
	err := checkDiskSpace(dir, 1<<62)
	require.Error(t, err)
}

func TestCheckDiskSpaceAllowsSmallRequest(t *testing.T) {
	dir := t.TempDir()
	err := checkDiskSpace(dir, 1)
	require.NoError(t, err)
}
