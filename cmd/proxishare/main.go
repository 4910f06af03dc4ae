// Command proxishare is a LAN-local peer-to-peer file transfer tool: send,
// recv, discover, device-info and pair/trust, all on top of the encrypted
// transport in internal/. The pause, resume and cancel command names are
// recognised but only return an error in this build.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Ominous-Josef/proxishare/internal/config"
	"github.com/Ominous-Josef/proxishare/internal/discovery"
	"github.com/Ominous-Josef/proxishare/internal/events"
	"github.com/Ominous-Josef/proxishare/internal/history"
	"github.com/Ominous-Josef/proxishare/internal/progress"
	"github.com/Ominous-Josef/proxishare/internal/receiver"
	"github.com/Ominous-Josef/proxishare/internal/protocol"
	"github.com/Ominous-Josef/proxishare/internal/registry"
	"github.com/Ominous-Josef/proxishare/internal/sender"
	"github.com/Ominous-Josef/proxishare/internal/tlsidentity"
	"github.com/Ominous-Josef/proxishare/internal/transport"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	setupLogging()

	cfg := loadConfig()
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare app directories")
	}

	identity, err := tlsidentity.Load(cfg.Device.AppDataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize device identity")
	}

	command := os.Args[1]
	if err := handleCommand(command, cfg, identity); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func loadConfig() *config.Config {
	home, err := os.UserHomeDir()
	path := ""
	if err == nil {
		path = filepath.Join(home, ".proxishare", "config.yaml")
	}
	if path != "" {
		if cfg, err := config.Load(path); err == nil {
			return cfg
		}
	}
	return config.Default()
}

func handleCommand(command string, cfg *config.Config, identity *tlsidentity.Identity) error {
	switch command {
	case "discover":
		return handleDiscover(identity)
	case "send":
		return handleSend(cfg, identity)
	case "recv":
		return handleRecv(cfg, identity)
	case "device-info":
		return handleDeviceInfo(identity)
	case "pair":
		return handlePair(identity)
	case "trust":
		return handleTrust(identity)
	case "pause", "resume", "cancel":
		return fmt.Errorf("%s is issued against a running receiver process in this build; wire it through your own registry handle", command)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func handleDiscover(identity *tlsidentity.Identity) error {
	svc := discovery.New(identity.DeviceInfo().DeviceID, identity.DeviceInfo().Hostname, config.DefaultPort)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go svc.Browse(ctx)
	<-ctx.Done()

	peers := svc.Peers()
	if len(peers) == 0 {
		fmt.Println("No other devices found on the network.")
		return nil
	}

	fmt.Println("Discovered devices:")
	for _, peer := range peers {
		fmt.Printf("  - %s (%s) at %v:%d\n", peer.DeviceName, peer.DeviceID, peer.IPs, peer.Port)
	}
	return nil
}

func handleSend(cfg *config.Config, identity *tlsidentity.Identity) error {
	if len(os.Args) != 4 {
		return fmt.Errorf("usage: proxishare send <file> <host:port>")
	}
	path := os.Args[2]
	peerAddr := os.Args[3]

	reg := registry.New()
	hist := history.NewInProcessSink()
	sink := events.NewChannelSink()

	renderer := progress.NewRenderer()
	stop := make(chan struct{})
	go renderer.Run(sink, stop)
	defer close(stop)

	snd := sender.New(identity, reg, hist, sink)
	transferID := uuid.NewString()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Sending %s to %s (transfer %s)...\n", path, peerAddr, transferID)
	if err := snd.SendFile(ctx, transferID, peerAddr, path); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	fmt.Println("Transfer complete.")
	return nil
}

func handleRecv(cfg *config.Config, identity *tlsidentity.Identity) error {
	reg := registry.New()
	hist := history.NewInProcessSink()
	sink := events.NewChannelSink()

	renderer := progress.NewRenderer()
	stop := make(chan struct{})
	go renderer.Run(sink, stop)
	defer close(stop)

	recv := receiver.New(cfg.Transfer.SaveDir, identity, reg, hist, sink)

	ctx, cancel := signalContext()
	defer cancel()

	addr := fmt.Sprintf(":%d", cfg.Transfer.Port)
	fmt.Printf("Listening for incoming transfers on %s, saving to %s\n", addr, cfg.Transfer.SaveDir)

	svc := discovery.New(identity.DeviceInfo().DeviceID, identity.DeviceInfo().Hostname, cfg.Transfer.Port)
	if err := svc.Announce(); err != nil {
		log.Warn().Err(err).Msg("failed to announce on mdns; continuing without discovery")
	} else {
		defer svc.Shutdown()
	}

	return recv.Listen(ctx, addr)
}

// handlePair pushes a PairRequest at a peer so it can surface a pairing
// prompt to its operator. It's fire-and-forget: this side never learns
// whether the peer accepted, matching the minimal pairing counterpart
// (no confirmation round-trip, no UI).
func handlePair(identity *tlsidentity.Identity) error {
	if len(os.Args) != 4 {
		return fmt.Errorf("usage: proxishare pair <host:port> <pairing-code>")
	}
	peerAddr := os.Args[2]
	pairingCode := os.Args[3]

	info := identity.DeviceInfo()
	req := protocol.NewPairRequest(info.DeviceID, info.Hostname, pairingCode)

	ctx, cancel := context.WithTimeout(context.Background(), transport.HandshakeTimeout)
	defer cancel()

	if err := transport.SendMessage(ctx, peerAddr, identity, req); err != nil {
		return fmt.Errorf("pair request failed: %w", err)
	}
	fmt.Printf("Pair request sent to %s.\n", peerAddr)
	return nil
}

// handleTrust records acceptance of a pairing request the operator approved
// out of band, since this build surfaces pairing-request events but doesn't
// drive a full accept/reject UI.
func handleTrust(identity *tlsidentity.Identity) error {
	if len(os.Args) != 5 {
		return fmt.Errorf("usage: proxishare trust <device-id> <device-name> <fingerprint>")
	}
	peer := tlsidentity.TrustedPeer{
		DeviceID:    os.Args[2],
		Name:        os.Args[3],
		Fingerprint: os.Args[4],
		ApprovedAt:  time.Now().Unix(),
	}
	if err := identity.TrustStore().AddTrustedPeer(peer); err != nil {
		return fmt.Errorf("trust peer: %w", err)
	}
	fmt.Printf("Trusted %s (%s).\n", peer.Name, peer.DeviceID)
	return nil
}

func handleDeviceInfo(identity *tlsidentity.Identity) error {
	info := identity.DeviceInfo()
	fmt.Println("=== proxishare device information ===")
	fmt.Printf("Device ID:   %s\n", info.DeviceID)
	fmt.Printf("Hostname:    %s\n", info.Hostname)
	fmt.Printf("Fingerprint: %s\n", info.Fingerprint)
	fmt.Printf("Created:     %s\n", time.Unix(info.CreatedAt, 0).Format("2006-01-02 15:04:05"))
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printUsage() {
	fmt.Println("proxishare - LAN-local peer-to-peer file transfer")
	fmt.Println("\nUsage: proxishare <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  discover                   Find other devices on the LAN")
	fmt.Println("  send <file> <host:port>    Send a file to a specific peer")
	fmt.Println("  recv                       Listen for incoming transfers")
	fmt.Println("  device-info                Display this device's identity")
	fmt.Println("  pair <host:port> <code>    Send a pairing request to a peer")
	fmt.Println("  trust <id> <name> <fp>     Record a peer as trusted after out-of-band approval")
}
