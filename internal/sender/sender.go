// Package sender implements the outbound transfer state machine: hash the
// file, offer it, stream chunks while mirroring pause/resume/cancel from
// the shared registry, then wait out the completion handshake. Grounded on
// original_source's src-tauri/src/transfer/sender.rs (the richest of the
// two transfer-module revisions), adapted from quinn streams and bincode
// framing to this module's quic-go transport and protocol codec.
package sender

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/Ominous-Josef/proxishare/internal/bufpool"
	"github.com/Ominous-Josef/proxishare/internal/events"
	"github.com/Ominous-Josef/proxishare/internal/history"
	"github.com/Ominous-Josef/proxishare/internal/protocol"
	"github.com/Ominous-Josef/proxishare/internal/registry"
	"github.com/Ominous-Josef/proxishare/internal/tlsidentity"
	"github.com/Ominous-Josef/proxishare/internal/transport"
)

const (
	minChunkSize     = 64 * 1024
	defaultChunkSize = 1024 * 1024
	maxChunkSize     = 4 * 1024 * 1024

	smallFileThreshold = 1024 * 1024
	largeFileThreshold = 100 * 1024 * 1024

	pausePollInterval    = 500 * time.Millisecond
	completionAckTimeout = 30 * time.Second
	drainDelay           = 200 * time.Millisecond
)

// ChunkSize returns the adaptive chunk size for a file of the given total
// size: 64 KiB under 1 MiB, 1 MiB under 100 MiB, 4 MiB otherwise.
func ChunkSize(fileSize uint64) uint32 {
	switch {
	case fileSize < smallFileThreshold:
		return minChunkSize
	case fileSize < largeFileThreshold:
		return defaultChunkSize
	default:
		return maxChunkSize
	}
}

// hashFile computes the BLAKE3 digest of the file's full contents, reading
// in 64 KiB increments so the hashing pass never holds the whole file in
// memory.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := blake3.New()
	buf := bufpool.HashScratchPool.Get()
	defer bufpool.HashScratchPool.Put(buf)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// Sender sends files to a single remote peer's transport address,
// announcing itself with the owning device's identity.
type Sender struct {
	identity *tlsidentity.Identity
	registry *registry.Registry
	history  history.Recorder
	sink     events.Sink
}

// New builds a Sender sharing the given registry, history recorder and UI
// sink with the rest of the transfer core.
func New(identity *tlsidentity.Identity, reg *registry.Registry, hist history.Recorder, sink events.Sink) *Sender {
	return &Sender{identity: identity, registry: reg, history: hist, sink: sink}
}

// SendFile transfers path to peerAddr (host:port) under transferID,
// driving the full offer/chunk/complete/ack handshake. It blocks until the
// transfer finishes, fails, or is cancelled.
func (s *Sender) SendFile(ctx context.Context, transferID, peerAddr, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return protocol.NewTransferError(protocol.ErrKindIO, transferID, -1, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return protocol.NewTransferError(protocol.ErrKindIO, transferID, -1, err)
	}
	fileSize := uint64(info.Size())
	fileName := filepath.Base(path)

	fileHash, err := hashFile(path)
	if err != nil {
		return protocol.NewTransferError(protocol.ErrKindIO, transferID, -1, err)
	}

	chunkSize := ChunkSize(fileSize)

	conn, stream, err := transport.Dial(ctx, peerAddr, s.identity)
	if err != nil {
		return protocol.NewTransferError(protocol.ErrKindConnectTimeout, transferID, -1, err)
	}
	defer conn.CloseWithError(0, "")

	s.history.RecordTransfer(transferID, s.identity.DeviceInfo().DeviceID, fileName, path, info.Size(), history.DirectionSend, fileHash)
	s.registry.Insert(transferID, registry.StatusInProgress)

	offer := protocol.NewFileOffer(transferID, protocol.FileMetadata{
		Name:      fileName,
		Size:      fileSize,
		Hash:      fileHash,
		ChunkSize: chunkSize,
	}, s.identity.DeviceInfo().DeviceID, s.identity.DeviceInfo().Hostname)

	if err := protocol.WriteMessage(stream, offer); err != nil {
		return err
	}

	if err := s.streamChunks(ctx, stream, transferID, fileName, file, fileSize, chunkSize); err != nil {
		if kind, ok := protocol.KindOf(err); ok && kind == protocol.ErrKindCancelled {
			s.history.UpdateTransferStatus(transferID, history.StatusCancelled, 0)
		}
		return err
	}

	if err := protocol.WriteMessage(stream, protocol.NewTransferComplete(transferID)); err != nil {
		return err
	}
	if err := stream.Close(); err != nil {
		return protocol.NewTransferError(protocol.ErrKindIO, transferID, -1, err)
	}

	if err := s.awaitCompletionAck(stream, transferID); err != nil {
		return err
	}

	s.history.UpdateTransferStatus(transferID, history.StatusCompleted, int64(fileSize))
	s.registry.Set(transferID, registry.StatusCompleted)
	s.sink.TransferProgress(events.TransferProgress{
		TransferID: transferID,
		FileName:   fileName,
		BytesSent:  fileSize,
		TotalBytes: fileSize,
		Direction:  "send",
		Status:     "completed",
	})
	s.sink.HistoryUpdated()

	time.Sleep(drainDelay)
	return nil
}

// streamChunks reads the file in chunkSize increments, hashing and sending
// each one, mirroring the registry's pause/cancel state to the peer at
// every iteration so both sides observe the same lifecycle transition.
func (s *Sender) streamChunks(ctx context.Context, stream transport.Stream, transferID, fileName string, file *os.File, fileSize uint64, chunkSize uint32) error {
	buf := make([]byte, chunkSize)
	var chunkIndex uint32
	var totalSent uint64
	lastStatus := registry.StatusInProgress

	for {
		select {
		case <-ctx.Done():
			return protocol.NewTransferError(protocol.ErrKindCancelled, transferID, int32(chunkIndex), ctx.Err())
		default:
		}

		status := s.registry.Get(transferID)
		if status != lastStatus {
			if err := s.mirrorStatusChange(stream, transferID, status, lastStatus); err != nil {
				return err
			}
			lastStatus = status
		}
		if status == registry.StatusCancelled {
			return protocol.NewTransferError(protocol.ErrKindCancelled, transferID, int32(chunkIndex), fmt.Errorf("cancelled by user"))
		}

		for status == registry.StatusPaused {
			time.Sleep(pausePollInterval)
			status = s.registry.Get(transferID)
			if status == registry.StatusCancelled {
				_ = protocol.WriteMessage(stream, protocol.NewTransferCancel(transferID))
				return protocol.NewTransferError(protocol.ErrKindCancelled, transferID, int32(chunkIndex), fmt.Errorf("cancelled while paused"))
			}
			if status == registry.StatusInProgress && lastStatus == registry.StatusPaused {
				if err := protocol.WriteMessage(stream, protocol.NewTransferResume(transferID)); err != nil {
					return err
				}
				lastStatus = status
			}
		}

		n, err := file.Read(buf)
		if err != nil && err != io.EOF {
			return protocol.NewTransferError(protocol.ErrKindIO, transferID, int32(chunkIndex), err)
		}
		if n == 0 {
			s.registry.Set(transferID, registry.StatusCompleted)
			return nil
		}

		chunkData := buf[:n]
		chunkHash := fmt.Sprintf("%x", blake3.Sum256(chunkData))

		if err := protocol.WriteMessage(stream, protocol.NewChunkData(transferID, chunkIndex, chunkData, chunkHash)); err != nil {
			return err
		}

		totalSent += uint64(n)
		chunkIndex++

		s.sink.TransferProgress(events.TransferProgress{
			TransferID: transferID,
			FileName:   fileName,
			BytesSent:  totalSent,
			TotalBytes: fileSize,
			Direction:  "send",
			Status:     "in_progress",
		})
	}
}

func (s *Sender) mirrorStatusChange(stream transport.Stream, transferID string, status, lastStatus registry.Status) error {
	switch {
	case status == registry.StatusCancelled:
		_ = protocol.WriteMessage(stream, protocol.NewTransferCancel(transferID))
	case status == registry.StatusPaused:
		return protocol.WriteMessage(stream, protocol.NewTransferPause(transferID))
	case status == registry.StatusInProgress && lastStatus == registry.StatusPaused:
		return protocol.WriteMessage(stream, protocol.NewTransferResume(transferID))
	}
	return nil
}

// awaitCompletionAck waits up to completionAckTimeout for the receiver's
// TransferCompleteAck, forwarding any HistorySync messages that arrive
// first to the history recorder — the receiver may flush pending history
// before acking, per the richest original revision's behavior.
func (s *Sender) awaitCompletionAck(stream transport.Stream, transferID string) error {
	deadline := time.Now().Add(completionAckTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return protocol.NewTransferError(protocol.ErrKindAckTimeout, transferID, -1, fmt.Errorf("timed out waiting for completion ack"))
		}

		msgCh := make(chan protocol.Message, 1)
		errCh := make(chan error, 1)
		go func() {
			msg, err := protocol.ReadMessage(stream)
			if err != nil {
				errCh <- err
				return
			}
			msgCh <- msg
		}()

		select {
		case msg := <-msgCh:
			switch msg.Kind {
			case protocol.KindTransferCompleteAck:
				if msg.TransferID == transferID {
					return nil
				}
			case protocol.KindHistorySync:
				s.applyHistorySync(msg.Records)
				s.sink.HistoryUpdated()
			default:
				return protocol.NewTransferError(protocol.ErrKindProtocol, transferID, -1, fmt.Errorf("unexpected message %q while awaiting completion ack", msg.Kind))
			}
		case err := <-errCh:
			return err
		case <-time.After(remaining):
			return protocol.NewTransferError(protocol.ErrKindAckTimeout, transferID, -1, fmt.Errorf("timed out waiting for completion ack"))
		}
	}
}

func (s *Sender) applyHistorySync(records []protocol.HistoryRecord) {
	for _, rec := range records {
		s.history.RecordTransfer(rec.ID, rec.DeviceID, rec.FileName, rec.FilePath, rec.TotalSize, history.Direction(rec.Direction), rec.FileHash)
		s.history.UpdateTransferStatus(rec.ID, history.Status(rec.Status), rec.BytesTransferred)
	}
}
