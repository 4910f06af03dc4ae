package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Ominous-Josef/proxishare/internal/bufpool"
)

// MaxPayloadBytes bounds a single framed payload: the largest chunk (4 MiB)
// plus envelope overhead. Implementations must accept at least 8 MiB;
// this codec accepts exactly that.
const MaxPayloadBytes = 8 * 1024 * 1024

// lengthPrefixSize is the size in bytes of the big-endian length header.
const lengthPrefixSize = 4

// WriteMessage writes msg to w as a u32-BE length prefix followed by its
// JSON encoding. A write failure surfaces as the underlying IO error; a
// msg that cannot be marshalled surfaces as ErrKindDeserialize (the codec
// has no separate "serialize" kind — spec.md only names FRAMING/
// DESERIALIZE/IO on this boundary).
func WriteMessage(w io.Writer, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return NewTransferError(ErrKindDeserialize, msg.TransferID, -1, fmt.Errorf("encode message: %w", err))
	}
	if len(payload) > MaxPayloadBytes {
		return NewTransferError(ErrKindFraming, msg.TransferID, -1, fmt.Errorf("payload %d bytes exceeds max %d", len(payload), MaxPayloadBytes))
	}

	header := make([]byte, lengthPrefixSize)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))

	if _, err := w.Write(header); err != nil {
		return NewTransferError(ErrKindIO, msg.TransferID, -1, fmt.Errorf("write length prefix: %w", err))
	}
	if _, err := w.Write(payload); err != nil {
		return NewTransferError(ErrKindIO, msg.TransferID, -1, fmt.Errorf("write payload: %w", err))
	}
	return nil
}

// ReadMessage reads one framed message from r: four big-endian length
// bytes, then exactly that many payload bytes.
func ReadMessage(r io.Reader) (Message, error) {
	header := bufpool.HeaderPool.Get()
	defer bufpool.HeaderPool.Put(header)
	if _, err := io.ReadFull(r, header); err != nil {
		return Message{}, NewTransferError(ErrKindFraming, "", -1, fmt.Errorf("read length prefix: %w", err))
	}

	length := binary.BigEndian.Uint32(header)
	if length > MaxPayloadBytes {
		return Message{}, NewTransferError(ErrKindFraming, "", -1, fmt.Errorf("declared length %d exceeds max %d", length, MaxPayloadBytes))
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, NewTransferError(ErrKindIO, "", -1, fmt.Errorf("read payload: %w", err))
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, NewTransferError(ErrKindDeserialize, "", -1, fmt.Errorf("decode message: %w", err))
	}
	return msg, nil
}
