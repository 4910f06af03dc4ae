package sender_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Ominous-Josef/proxishare/internal/events"
	"github.com/Ominous-Josef/proxishare/internal/history"
	"github.com/Ominous-Josef/proxishare/internal/receiver"
	"github.com/Ominous-Josef/proxishare/internal/registry"
	"github.com/Ominous-Josef/proxishare/internal/sender"
	"github.com/Ominous-Josef/proxishare/internal/tlsidentity"
)

func findFreeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func TestSendFileRoundTrip(t *testing.T) {
	senderIdentity, err := tlsidentity.Load(t.TempDir())
	require.NoError(t, err)
	receiverIdentity, err := tlsidentity.Load(t.TempDir())
	require.NoError(t, err)

	srcDir := t.TempDir()
	dstDir := t.TempDir()

	payload := make([]byte, 200*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	srcPath := filepath.Join(srcDir, "photo.bin")
	require.NoError(t, os.WriteFile(srcPath, payload, 0o644))

	port := findFreeUDPPort(t)
	recvRegistry := registry.New()
	recvHistory := history.NewInProcessSink()
	recv := receiver.New(dstDir, receiverIdentity, recvRegistry, recvHistory, events.NoopSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listenErrCh := make(chan error, 1)
	go func() {
		listenErrCh <- recv.Listen(ctx, fmt.Sprintf(":%d", port))
	}()
	time.Sleep(100 * time.Millisecond)

	sendRegistry := registry.New()
	sendHistory := history.NewInProcessSink()
	snd := sender.New(senderIdentity, sendRegistry, sendHistory, events.NoopSink{})

	transferID := uuid.NewString()
	sendCtx, sendCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sendCancel()

	err = snd.SendFile(sendCtx, transferID, fmt.Sprintf("127.0.0.1:%d", port), srcPath)
	require.NoError(t, err)

	dstPath := filepath.Join(dstDir, "photo.bin")
	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	rec, ok := recvHistory.Get(transferID)
	require.True(t, ok)
	require.Equal(t, history.StatusCompleted, rec.Status)
}
