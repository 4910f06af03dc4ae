package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	meta := FileMetadata{Name: "report.pdf", Size: 2048, Hash: "abc123", ChunkSize: 65536}
	msg := NewFileOffer("transfer-1", meta, "device-a", "Alice's Laptop")

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, msg))

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, KindFileOffer, got.Kind)
	require.Equal(t, "transfer-1", got.TransferID)
	require.NotNil(t, got.Metadata)
	require.Equal(t, meta, *got.Metadata)
	require.Equal(t, "device-a", got.SenderID)
}

func TestWriteReadChunkDataRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 1024)
	msg := NewChunkData("transfer-2", 7, data, "deadbeef")

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, msg))

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(7), got.ChunkIndex)
	require.Equal(t, data, got.Data)
	require.Equal(t, "deadbeef", got.ChunkHash)
}

func TestReadMessageTruncatedLengthPrefix(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x01})
	_, err := ReadMessage(buf)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, ErrKindFraming, kind)
}

func TestReadMessageTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, NewTransferCancel("transfer-3")))
	truncated := bytes.NewBuffer(buf.Bytes()[:buf.Len()-2])

	_, err := ReadMessage(truncated)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, ErrKindIO, kind)
}

func TestReadMessageMalformedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, NewTransferComplete("transfer-4")))
	raw := buf.Bytes()
	// Corrupt a payload byte so the JSON no longer parses.
	raw[len(raw)-1] = '{'

	_, err := ReadMessage(bytes.NewBuffer(raw))
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, ErrKindDeserialize, kind)
}

func TestReadMessageRejectsOversizedLength(t *testing.T) {
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	_, err := ReadMessage(bytes.NewBuffer(header))
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, ErrKindFraming, kind)
}
