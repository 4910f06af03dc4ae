// Package events defines the UI event sink the core emits named events to:
// transfer-progress, history-updated, and pairing-request.
package events

// TransferProgress mirrors the named "transfer-progress" event payload.
type TransferProgress struct {
	TransferID string `json:"transfer_id"`
	FileName   string `json:"file_name"`
	BytesSent  uint64 `json:"bytes_sent"`
	TotalBytes uint64 `json:"total_bytes"`
	Direction  string `json:"direction"` // "send" or "receive"
	Status     string `json:"status"`    // "in_progress" | "completed" | "failed" | "cancelled"
}

// PairingRequest mirrors the named "pairing-request" event payload.
type PairingRequest struct {
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name"`
	Code        string `json:"code"`
	IP          string `json:"ip"`
	Port        int    `json:"port"`
}

// Sink is the interface the sender/receiver state machines emit UI events
// to. Implementations must not block the caller for long — emitting is a
// best-effort notification, not a synchronization point.
type Sink interface {
	TransferProgress(TransferProgress)
	HistoryUpdated()
	PairingRequest(PairingRequest)
}

// ChannelSink is a default Sink backed by buffered channels, letting a UI
// layer drain events at its own pace without the core ever blocking on a
// slow consumer (drops the oldest-pending progress event instead of
// stalling a transfer, since progress events are inherently superseded by
// the next one).
type ChannelSink struct {
	Progress chan TransferProgress
	History  chan struct{}
	Pairing  chan PairingRequest
}

// NewChannelSink creates a ChannelSink with reasonably sized buffers.
func NewChannelSink() *ChannelSink {
	return &ChannelSink{
		Progress: make(chan TransferProgress, 64),
		History:  make(chan struct{}, 16),
		Pairing:  make(chan PairingRequest, 4),
	}
}

func (s *ChannelSink) TransferProgress(p TransferProgress) {
	select {
	case s.Progress <- p:
	default:
		// Drain one stale entry and retry once; progress events are
		// superseded by the next one, so losing an old one is fine.
		select {
		case <-s.Progress:
		default:
		}
		select {
		case s.Progress <- p:
		default:
		}
	}
}

func (s *ChannelSink) HistoryUpdated() {
	select {
	case s.History <- struct{}{}:
	default:
	}
}

func (s *ChannelSink) PairingRequest(p PairingRequest) {
	select {
	case s.Pairing <- p:
	default:
	}
}

// NoopSink discards every event; useful for tests and headless callers that
// don't need UI feedback.
type NoopSink struct{}

func (NoopSink) TransferProgress(TransferProgress) {}
func (NoopSink) HistoryUpdated()                   {}
func (NoopSink) PairingRequest(PairingRequest)      {}
