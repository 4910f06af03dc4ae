// Package transport wires the QUIC-based encrypted transport the
// protocol layer rides on: one QUIC connection per transfer (or control
// message), carrying one bidirectional stream framed with the protocol
// package's length-prefixed codec. Grounded on the teacher's
// p2p/quic_transfer.go and p2p/chunked_transfer.go dial/listen pattern,
// generalized to return the stream to the caller instead of hard-coding one
// protocol.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/Ominous-Josef/proxishare/internal/protocol"
	"github.com/Ominous-Josef/proxishare/internal/tlsidentity"
)

// HandshakeTimeout bounds how long dialing and the initial stream open may
// take before a connection attempt is abandoned.
const HandshakeTimeout = 10 * time.Second

// Stream is the minimal surface sender/receiver state machines need; it's
// satisfied by quic.Stream.
type Stream interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
	CancelRead(quic.StreamErrorCode)
	CancelWrite(quic.StreamErrorCode)
}

// Listener accepts incoming proxishare connections and hands back one
// stream per connection, since this protocol is one transfer (or one
// control message) per QUIC connection.
type Listener struct {
	ql *quic.Listener
}

// Listen binds addr (host:port) and starts accepting QUIC connections
// secured with identity's server certificate and ALPN.
func Listen(addr string, identity *tlsidentity.Identity) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	ql, err := quic.Listen(udpConn, identity.ServerTLSConfig(), &quic.Config{
		MaxIdleTimeout: 2 * time.Minute,
	})
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("create quic listener: %w", err)
	}

	return &Listener{ql: ql}, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.ql.Addr()
}

// Close shuts the listener down.
func (l *Listener) Close() error {
	return l.ql.Close()
}

// Accept blocks for the next incoming connection, accepts its first
// stream, and returns it along with the peer's address. Each accepted
// connection is expected to carry exactly one logical exchange (an offer
// and its chunk stream, or a single control message), matching how the
// sender/receiver state machines use it.
func (l *Listener) Accept(ctx context.Context) (Stream, net.Addr, error) {
	conn, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("accept connection: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()

	stream, err := conn.AcceptStream(streamCtx)
	if err != nil {
		conn.CloseWithError(0, "stream accept failed")
		return nil, nil, fmt.Errorf("accept stream: %w", err)
	}

	return stream, conn.RemoteAddr(), nil
}

// Dial opens a QUIC connection to addr and returns its first stream. The
// dial-side TLS config never verifies the peer's certificate chain; trust
// is an application-layer decision made against tlsidentity.TrustStore
// before Dial is ever called.
func Dial(ctx context.Context, addr string, identity *tlsidentity.Identity) (quic.Connection, Stream, error) {
	dialCtx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()

	conn, err := quic.DialAddr(dialCtx, addr, identity.ClientTLSConfig(), &quic.Config{
		MaxIdleTimeout: 2 * time.Minute,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	stream, err := conn.OpenStreamSync(dialCtx)
	if err != nil {
		conn.CloseWithError(0, "stream open failed")
		return nil, nil, fmt.Errorf("open stream to %s: %w", addr, err)
	}

	return conn, stream, nil
}

// SendMessage dials addr, writes a single framed message, and closes the
// connection without waiting for any reply. Used by collaborators like
// pairing that only need to push one message and never block the caller
// on the peer's response.
func SendMessage(ctx context.Context, addr string, identity *tlsidentity.Identity, msg protocol.Message) error {
	conn, stream, err := Dial(ctx, addr, identity)
	if err != nil {
		return err
	}
	defer conn.CloseWithError(0, "")

	if err := protocol.WriteMessage(stream, msg); err != nil {
		return err
	}
	return stream.Close()
}
