// Package discovery announces this device on the LAN and browses for
// peers via mDNS, replacing the teacher's UDP broadcast discovery
// (p2p/discovery.go) with the zeroconf-based approach the wider example
// pack uses for the same domain. Grounded on original_source's
// src-tauri/src/discovery/mdns.rs for the service shape (service type,
// id/name properties, staleness eviction) and on github.com/grandcat/
// zeroconf (referenced alongside quic-go in the pack's manifests) for the
// Go mDNS implementation.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

// ServiceType is the mDNS service type every proxishare instance
// registers under.
const ServiceType = "_proxishare._tcp"

// Domain is the mDNS domain used for registration and browsing.
const Domain = "local."

// StaleAfter is how long a peer can go unseen before it's evicted from
// the discovered-peers table.
const StaleAfter = 300 * time.Second

// ReachabilityTimeout bounds the TCP probe used to confirm a discovered
// peer's address is actually connectable.
const ReachabilityTimeout = 500 * time.Millisecond

// Peer is a discovered proxishare instance.
type Peer struct {
	DeviceID   string
	DeviceName string
	IPs        []string
	Port       int
	LastSeen   time.Time
}

// Service announces this device and tracks peers discovered on the LAN.
type Service struct {
	deviceID   string
	deviceName string
	port       int

	server *zeroconf.Server

	mu    sync.RWMutex
	peers map[string]Peer
}

// New creates a discovery service for this device; call Announce and
// Browse to actually participate on the network.
func New(deviceID, deviceName string, port int) *Service {
	return &Service{
		deviceID:   deviceID,
		deviceName: deviceName,
		port:       port,
		peers:      make(map[string]Peer),
	}
}

// Announce registers this device's mDNS service so peers can find it.
func (s *Service) Announce() error {
	instance := fmt.Sprintf("%s_%s", s.deviceName, shortID(s.deviceID))

	ips := localIPs()
	ipList := ""
	for i, ip := range ips {
		if i > 0 {
			ipList += ","
		}
		ipList += ip
	}

	text := []string{
		"id=" + s.deviceID,
		"name=" + s.deviceName,
		"ips=" + ipList,
	}

	server, err := zeroconf.Register(instance, ServiceType, Domain, s.port, text, nil)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}
	s.server = server
	return nil
}

// Shutdown withdraws the mDNS registration.
func (s *Service) Shutdown() {
	if s.server != nil {
		s.server.Shutdown()
	}
}

// Browse discovers peers until ctx is cancelled, updating the internal
// peer table and evicting anything unseen for longer than StaleAfter.
func (s *Service) Browse(ctx context.Context) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("create mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	go s.consumeEntries(entries)

	go s.evictStalePeers(ctx)

	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return fmt.Errorf("browse for peers: %w", err)
	}
	<-ctx.Done()
	return nil
}

func (s *Service) consumeEntries(entries <-chan *zeroconf.ServiceEntry) {
	for entry := range entries {
		props := parseProperties(entry.Text)
		id := props["id"]
		if id == "" || id == s.deviceID {
			continue
		}

		ips := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
		for _, ip := range entry.AddrIPv4 {
			ips = append(ips, ip.String())
		}
		for _, ip := range entry.AddrIPv6 {
			ips = append(ips, ip.String())
		}

		peer := Peer{
			DeviceID:   id,
			DeviceName: props["name"],
			IPs:        ips,
			Port:       entry.Port,
			LastSeen:   time.Now(),
		}

		s.mu.Lock()
		s.peers[id] = peer
		s.mu.Unlock()

		log.Debug().Str("device_id", id).Str("name", peer.DeviceName).Msg("discovery: peer resolved")
	}
}

func (s *Service) evictStalePeers(ctx context.Context) {
	ticker := time.NewTicker(StaleAfter / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-StaleAfter)
			s.mu.Lock()
			for id, peer := range s.peers {
				if peer.LastSeen.Before(cutoff) {
					delete(s.peers, id)
					log.Debug().Str("device_id", id).Msg("discovery: peer evicted as stale")
				}
			}
			s.mu.Unlock()
		}
	}
}

// Peers returns a snapshot of currently known, non-stale peers.
func (s *Service) Peers() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().Add(-StaleAfter)
	out := make([]Peer, 0, len(s.peers))
	for _, p := range s.peers {
		if p.LastSeen.Before(cutoff) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// TestConnectivity reports whether ip:port accepts a TCP connection within
// ReachabilityTimeout, used to pick a reachable address out of a peer's
// multiple advertised IPs.
func TestConnectivity(ip string, port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", ip, port), ReachabilityTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// FindReachableIP tries each of a peer's advertised addresses in order and
// returns the first one that accepts a TCP connection.
func FindReachableIP(peer Peer) (string, error) {
	for _, ip := range peer.IPs {
		if TestConnectivity(ip, peer.Port) {
			return ip, nil
		}
	}
	return "", fmt.Errorf("no reachable address for peer %s", peer.DeviceID)
}

func parseProperties(text []string) map[string]string {
	props := make(map[string]string, len(text))
	for _, kv := range text {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				props[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return props
}

func localIPs() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var ips []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ipNet.IP.To4() != nil {
			ips = append(ips, ipNet.IP.String())
		}
	}
	return ips
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
