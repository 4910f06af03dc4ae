// Package receiver implements the inbound transfer state machine: accept
// an offer, preflight disk space, write chunks as they arrive while
// verifying their BLAKE3 hash, and ack completion. Grounded on
// original_source's src-tauri/src/transfer/receiver.rs, which is the
// simpler of the two transfer-module revisions — it lacks registry-aware
// pause/resume/cancel handling and pairing surfacing, both of which this
// implementation adds back so the receiver mirrors the sender's full
// lifecycle instead of only reacting to chunks and completion. The registry
// is polled every 500 ms between messages: a local cancel is sent to the
// sender as TransferCancel, while a local pause or resume only changes the
// registry entry and is not sent to the sender.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/zeebo/blake3"

	"github.com/Ominous-Josef/proxishare/internal/events"
	"github.com/Ominous-Josef/proxishare/internal/history"
	"github.com/Ominous-Josef/proxishare/internal/protocol"
	"github.com/Ominous-Josef/proxishare/internal/registry"
	"github.com/Ominous-Josef/proxishare/internal/tlsidentity"
	"github.com/Ominous-Josef/proxishare/internal/transport"
)

const registryPollInterval = 500 * time.Millisecond

// Receiver accepts inbound connections and drives each one's transfer
// state machine to completion.
type Receiver struct {
	saveDir  string
	identity *tlsidentity.Identity
	registry *registry.Registry
	history  history.Recorder
	sink     events.Sink
}

// New builds a Receiver that writes accepted files under saveDir.
func New(saveDir string, identity *tlsidentity.Identity, reg *registry.Registry, hist history.Recorder, sink events.Sink) *Receiver {
	return &Receiver{saveDir: saveDir, identity: identity, registry: reg, history: hist, sink: sink}
}

// Listen binds addr and accepts connections until ctx is cancelled,
// handling each one in its own goroutine — one goroutine per live
// transfer, matching the core's concurrency model.
func (r *Receiver) Listen(ctx context.Context, addr string) error {
	listener, err := transport.Listen(addr, r.identity)
	if err != nil {
		return err
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		stream, remote, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go r.handleConnection(ctx, stream, remote)
	}
}

func (r *Receiver) handleConnection(ctx context.Context, stream transport.Stream, remote net.Addr) {
	if err := r.handleStream(ctx, stream, remote); err != nil {
		var te *protocol.TransferError
		if protocol.AsTransferError(err, &te) {
			if te.Kind == protocol.ErrKindCancelled || te.Kind == protocol.ErrKindCancelledByPeer {
				r.registry.Set(te.TransferID, registry.StatusCancelled)
				r.history.UpdateTransferStatus(te.TransferID, history.StatusCancelled, 0)
				return
			}
			r.registry.Set(te.TransferID, registry.StatusFailed)
			r.history.UpdateTransferStatus(te.TransferID, history.StatusFailed, 0)
		}
	}
}

type openFile struct {
	f          *os.File
	path       string
	transferID string
	metadata   protocol.FileMetadata
	received   uint64
}

// handleStream runs the receive loop for a single accepted connection. A
// connection carries exactly one logical exchange: a FileOffer followed by
// its chunks and completion, or a standalone control message such as
// PairRequest.
func (r *Receiver) handleStream(ctx context.Context, stream transport.Stream, remote net.Addr) error {
	var active *openFile
	pollDeadline := time.Now().Add(registryPollInterval)
	lastStatus := registry.StatusInProgress

	for {
		if active != nil && time.Now().After(pollDeadline) {
			pollDeadline = time.Now().Add(registryPollInterval)
			status := r.registry.Get(active.transferID)
			if status != lastStatus {
				lastStatus = status
			}
			if status == registry.StatusCancelled {
				_ = protocol.WriteMessage(stream, protocol.NewTransferCancel(active.transferID))
				active.f.Close()
				os.Remove(active.path)
				return protocol.NewTransferError(protocol.ErrKindCancelled, active.transferID, -1, fmt.Errorf("cancelled locally"))
			}
		}

		msg, err := protocol.ReadMessage(stream)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch msg.Kind {
		case protocol.KindFileOffer:
			of, err := r.openOffer(msg, remote)
			if err != nil {
				return err
			}
			active = of

		case protocol.KindChunkData:
			if active == nil {
				return protocol.NewTransferError(protocol.ErrKindProtocol, msg.TransferID, int32(msg.ChunkIndex), fmt.Errorf("chunk data before offer"))
			}
			if err := r.writeChunk(active, msg); err != nil {
				return err
			}
			r.sink.TransferProgress(events.TransferProgress{
				TransferID: active.transferID,
				FileName:   active.metadata.Name,
				BytesSent:  active.received,
				TotalBytes: active.metadata.Size,
				Direction:  "receive",
				Status:     "in_progress",
			})

		case protocol.KindTransferPause:
			if active != nil {
				r.registry.Set(active.transferID, registry.StatusPaused)
			}

		case protocol.KindTransferResume:
			if active != nil {
				r.registry.Set(active.transferID, registry.StatusInProgress)
			}

		case protocol.KindTransferCancel:
			if active != nil {
				r.registry.Set(active.transferID, registry.StatusCancelled)
				active.f.Close()
				os.Remove(active.path)
				return protocol.NewTransferError(protocol.ErrKindCancelledByPeer, active.transferID, -1, fmt.Errorf("cancelled by sender"))
			}

		case protocol.KindTransferComplete:
			if active == nil {
				return protocol.NewTransferError(protocol.ErrKindProtocol, msg.TransferID, -1, fmt.Errorf("completion before offer"))
			}
			if err := active.f.Sync(); err != nil {
				return protocol.NewTransferError(protocol.ErrKindIO, active.transferID, -1, err)
			}
			active.f.Close()

			r.registry.Set(active.transferID, registry.StatusCompleted)
			r.history.UpdateTransferStatus(active.transferID, history.StatusCompleted, int64(active.received))
			r.sink.TransferProgress(events.TransferProgress{
				TransferID: active.transferID,
				FileName:   active.metadata.Name,
				BytesSent:  active.received,
				TotalBytes: active.metadata.Size,
				Direction:  "receive",
				Status:     "completed",
			})
			r.sink.HistoryUpdated()

			if err := protocol.WriteMessage(stream, protocol.NewTransferCompleteAck(active.transferID)); err != nil {
				return err
			}
			if err := stream.Close(); err != nil {
				return protocol.NewTransferError(protocol.ErrKindIO, active.transferID, -1, err)
			}
			time.Sleep(500 * time.Millisecond)
			return nil

		case protocol.KindPairRequest:
			r.sink.PairingRequest(events.PairingRequest{
				DeviceID:   msg.DeviceID,
				DeviceName: msg.DeviceName,
				Code:       msg.PairingCode,
				IP:         hostOf(remote),
			})

		default:
			// Unrecognized kinds are ignored; they carry no obligation on
			// this side of the exchange.
		}
	}
}

func (r *Receiver) openOffer(msg protocol.Message, remote net.Addr) (*openFile, error) {
	if msg.Metadata == nil {
		return nil, protocol.NewTransferError(protocol.ErrKindProtocol, msg.TransferID, -1, fmt.Errorf("file offer missing metadata"))
	}
	metadata := *msg.Metadata

	if err := checkDiskSpace(r.saveDir, metadata.Size); err != nil {
		return nil, protocol.NewTransferError(protocol.ErrKindDiskSpace, msg.TransferID, -1, err)
	}

	path := filepath.Join(r.saveDir, filepath.Base(metadata.Name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, protocol.NewTransferError(protocol.ErrKindIO, msg.TransferID, -1, err)
	}
	if err := f.Truncate(int64(metadata.Size)); err != nil {
		log.Warn().Err(err).Str("transfer_id", msg.TransferID).Msg("pre-allocation failed, continuing without it")
	}

	r.history.RecordTransfer(msg.TransferID, msg.SenderID, metadata.Name, path, int64(metadata.Size), history.DirectionReceive, metadata.Hash)
	r.registry.Insert(msg.TransferID, registry.StatusInProgress)

	return &openFile{f: f, path: path, transferID: msg.TransferID, metadata: metadata}, nil
}

func (r *Receiver) writeChunk(active *openFile, msg protocol.Message) error {
	actualHash := fmt.Sprintf("%x", blake3.Sum256(msg.Data))
	if actualHash != msg.ChunkHash {
		return protocol.NewTransferError(protocol.ErrKindChunkHash, active.transferID, int32(msg.ChunkIndex), fmt.Errorf("chunk hash mismatch"))
	}

	if _, err := active.f.Write(msg.Data); err != nil {
		return protocol.NewTransferError(protocol.ErrKindIO, active.transferID, int32(msg.ChunkIndex), err)
	}
	active.received += uint64(len(msg.Data))
	return nil
}

func checkDiskSpace(dir string, required uint64) error {
	usage, err := disk.Usage(dir)
	if err != nil {
		return fmt.Errorf("check disk space: %w", err)
	}
	if usage.Free < required {
		return fmt.Errorf("insufficient disk space: need %d bytes, have %d free", required, usage.Free)
	}
	return nil
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
