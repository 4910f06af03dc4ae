package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordTransferThenGet(t *testing.T) {
	sink := NewInProcessSink()
	sink.RecordTransfer("t1", "dev-1", "photo.jpg", "/tmp/photo.jpg", 1024, DirectionSend, "abc123")

	rec, ok := sink.Get("t1")
	require.True(t, ok)
	require.Equal(t, StatusInProgress, rec.Status)
	require.Equal(t, "photo.jpg", rec.FileName)
}

func TestUpdateTransferStatus(t *testing.T) {
	sink := NewInProcessSink()
	sink.RecordTransfer("t1", "dev-1", "photo.jpg", "/tmp/photo.jpg", 1024, DirectionSend, "abc123")
	sink.UpdateTransferStatus("t1", StatusCompleted, 1024)

	rec, ok := sink.Get("t1")
	require.True(t, ok)
	require.Equal(t, StatusCompleted, rec.Status)
	require.EqualValues(t, 1024, rec.BytesTransferred)
}

func TestUpdateTransferStatusUnknownIDIsANoop(t *testing.T) {
	sink := NewInProcessSink()
	sink.UpdateTransferStatus("ghost", StatusFailed, 0)

	_, ok := sink.Get("ghost")
	require.False(t, ok)
}

func TestListReturnsAllRecords(t *testing.T) {
	sink := NewInProcessSink()
	sink.RecordTransfer("t1", "dev-1", "a.bin", "/tmp/a.bin", 10, DirectionSend, "h1")
	sink.RecordTransfer("t2", "dev-2", "b.bin", "/tmp/b.bin", 20, DirectionReceive, "h2")

	require.Len(t, sink.List(), 2)
}
