// Package history defines the transfer-history collaborator interface the
// core writes to on offer, completion, and cancel, plus an in-process sink
// implementing it. A persisted (e.g. SQLite-backed) implementation is an
// outer-layer concern — the core only ever depends on the Recorder
// interface below, mirroring original_source's db.Database but without its
// storage layer.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Direction is "send" or "receive".
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// Status mirrors the status strings recorded alongside a transfer.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Record is one row of transfer history.
type Record struct {
	ID               string
	DeviceID         string
	FileName         string
	FilePath         string
	TotalSize        int64
	Direction        Direction
	FileHash         string
	Status           Status
	BytesTransferred int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Recorder is the interface the core depends on. Writes are fire-and-
// forget from the core's perspective: a Recorder that fails should log
// the failure itself rather than propagate it, since history is opaque
// to the transfer core (spec: "failures are logged, not propagated").
type Recorder interface {
	RecordTransfer(id, deviceID, fileName, filePath string, totalSize int64, direction Direction, fileHash string)
	UpdateTransferStatus(id string, status Status, bytesTransferred int64)
}

// InProcessSink is a goroutine-safe, process-local Recorder. It never
// fails outwardly; any internal problem (there is none here, since it's
// just a guarded map) would be logged rather than returned.
type InProcessSink struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInProcessSink creates an empty in-process history sink.
func NewInProcessSink() *InProcessSink {
	return &InProcessSink{records: make(map[string]*Record)}
}

func (s *InProcessSink) RecordTransfer(id, deviceID, fileName, filePath string, totalSize int64, direction Direction, fileHash string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = &Record{
		ID:        id,
		DeviceID:  deviceID,
		FileName:  fileName,
		FilePath:  filePath,
		TotalSize: totalSize,
		Direction: direction,
		FileHash:  fileHash,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log.Debug().Str("transfer_id", id).Str("file_name", fileName).Str("direction", string(direction)).Msg("history: transfer recorded")
}

func (s *InProcessSink) UpdateTransferStatus(id string, status Status, bytesTransferred int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		log.Warn().Str("transfer_id", id).Msg("history: status update for unknown transfer")
		return
	}
	rec.Status = status
	rec.BytesTransferred = bytesTransferred
	rec.UpdatedAt = time.Now()
}

// Get returns a copy of a record for inspection (e.g. by tests or a UI).
func (s *InProcessSink) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns every recorded transfer, newest first.
func (s *InProcessSink) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
