// Package protocol implements the wire framing and tagged-union message
// schema shared by the sender and receiver state machines (components A
// and B of the transfer core).
package protocol

// Kind tags a Message with which variant's fields are populated.
type Kind string

const (
	KindHello               Kind = "Hello"
	KindHelloAck            Kind = "HelloAck"
	KindFileOffer           Kind = "FileOffer"
	KindFileAccept          Kind = "FileAccept"
	KindFileReject          Kind = "FileReject"
	KindChunkData           Kind = "ChunkData"
	KindChunkAck            Kind = "ChunkAck"
	KindResumeRequest       Kind = "ResumeRequest"
	KindTransferPause       Kind = "TransferPause"
	KindTransferResume      Kind = "TransferResume"
	KindTransferCancel      Kind = "TransferCancel"
	KindTransferComplete    Kind = "TransferComplete"
	KindTransferCompleteAck Kind = "TransferCompleteAck"
	KindTransferError       Kind = "TransferError"
	KindPairRequest         Kind = "PairRequest"
	KindPairResponse        Kind = "PairResponse"
	KindHistorySync         Kind = "HistorySync"
)

// FileMetadata describes the file an offer is for. Immutable once produced.
type FileMetadata struct {
	Name      string `json:"name"`
	Size      uint64 `json:"size"`
	Hash      string `json:"hash"`       // lowercase-hex BLAKE3 of the full file
	ChunkSize uint32 `json:"chunk_size"`
}

// HistoryRecord is the shape HistorySync carries; it mirrors the fields the
// history collaborator records, not a full schema of its own.
type HistoryRecord struct {
	ID               string `json:"id"`
	DeviceID         string `json:"device_id"`
	FileName         string `json:"file_name"`
	FilePath         string `json:"file_path"`
	TotalSize        int64  `json:"total_size"`
	Direction        string `json:"direction"`
	Status           string `json:"status"`
	BytesTransferred int64  `json:"bytes_transferred"`
	FileHash         string `json:"file_hash"`
}

// Message is the tagged union exchanged between peers. Every field besides
// Kind and TransferID is optional and only meaningful for certain Kinds, the
// same way the teacher's ProtocolMessage groups TransferRequest/
// TransferResponse pointers behind one envelope. Field ordering here follows
// the declaration order in the schema table.
type Message struct {
	Kind       Kind   `json:"kind"`
	TransferID string `json:"transfer_id,omitempty"`

	// Hello / HelloAck
	DeviceID   string `json:"device_id,omitempty"`
	DeviceName string `json:"device_name,omitempty"`

	// FileOffer
	Metadata   *FileMetadata `json:"metadata,omitempty"`
	SenderID   string        `json:"sender_id,omitempty"`
	SenderName string        `json:"sender_name,omitempty"`

	// FileReject / TransferError
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`

	// ChunkData
	ChunkIndex uint32 `json:"chunk_index,omitempty"`
	Data       []byte `json:"data,omitempty"`
	ChunkHash  string `json:"chunk_hash,omitempty"`

	// ResumeRequest
	LastChunkIndex uint32 `json:"last_chunk_index,omitempty"`

	// PairRequest / PairResponse
	PairingCode string `json:"pairing_code,omitempty"`
	Accepted    bool   `json:"accepted,omitempty"`

	// HistorySync
	Records []HistoryRecord `json:"records,omitempty"`
}

// NewFileOffer builds a FileOffer message.
func NewFileOffer(transferID string, metadata FileMetadata, senderID, senderName string) Message {
	return Message{
		Kind:       KindFileOffer,
		TransferID: transferID,
		Metadata:   &metadata,
		SenderID:   senderID,
		SenderName: senderName,
	}
}

// NewChunkData builds a ChunkData message; chunkHash must already be the
// BLAKE3 hex digest of data; this constructor neither computes nor checks
// it.
func NewChunkData(transferID string, chunkIndex uint32, data []byte, chunkHash string) Message {
	return Message{
		Kind:       KindChunkData,
		TransferID: transferID,
		ChunkIndex: chunkIndex,
		Data:       data,
		ChunkHash:  chunkHash,
	}
}

func NewTransferPause(transferID string) Message {
	return Message{Kind: KindTransferPause, TransferID: transferID}
}

func NewTransferResume(transferID string) Message {
	return Message{Kind: KindTransferResume, TransferID: transferID}
}

func NewTransferCancel(transferID string) Message {
	return Message{Kind: KindTransferCancel, TransferID: transferID}
}

func NewTransferComplete(transferID string) Message {
	return Message{Kind: KindTransferComplete, TransferID: transferID}
}

func NewTransferCompleteAck(transferID string) Message {
	return Message{Kind: KindTransferCompleteAck, TransferID: transferID}
}

func NewTransferErrorMsg(transferID, message string) Message {
	return Message{Kind: KindTransferError, TransferID: transferID, Message: message}
}

func NewPairRequest(deviceID, deviceName, pairingCode string) Message {
	return Message{Kind: KindPairRequest, DeviceID: deviceID, DeviceName: deviceName, PairingCode: pairingCode}
}

func NewHistorySync(records []HistoryRecord) Message {
	return Message{Kind: KindHistorySync, Records: records}
}
