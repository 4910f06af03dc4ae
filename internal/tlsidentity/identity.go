// Package tlsidentity generates the self-signed certificate the transfer
// endpoint presents, tracks this device's identity, and persists a
// trust-on-first-use store of approved peers — the collaborator spec §9
// calls out as responsible for application-layer trust, since the
// transport itself verifies nothing on the dialing side.
package tlsidentity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ALPNProtocol is the ALPN identifier negotiated on every connection.
const ALPNProtocol = "proxishare"

// ServerName is the SNI/SAN name the self-signed certificate is issued
// for and that dialers present.
const ServerName = "proxishare.local"

// CertValidity is how long a generated certificate remains valid.
const CertValidity = 365 * 24 * time.Hour

// DeviceInfo identifies this installation to peers and to the user.
type DeviceInfo struct {
	DeviceID    string `json:"device_id"`
	Hostname    string `json:"hostname"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   int64  `json:"created_at"`
}

// Identity bundles this device's self-signed certificate, its identity,
// and the trust store used to evaluate peers.
type Identity struct {
	cert       tls.Certificate
	deviceInfo DeviceInfo
	trustStore *TrustStore
}

// Load generates (or regenerates, since certificates aren't persisted
// across restarts in this core — only the device id and trust store are)
// this device's identity under appDataDir.
func Load(appDataDir string) (*Identity, error) {
	if err := os.MkdirAll(appDataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create app data dir: %w", err)
	}

	deviceID, err := loadOrCreateDeviceID(appDataDir)
	if err != nil {
		return nil, fmt.Errorf("load device id: %w", err)
	}

	cert, fingerprint, err := generateSelfSignedCert()
	if err != nil {
		return nil, fmt.Errorf("generate self-signed certificate: %w", err)
	}

	hostname, _ := os.Hostname()
	info := DeviceInfo{
		DeviceID:    deviceID,
		Hostname:    hostname,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().Unix(),
	}

	store, err := loadTrustStore(filepath.Join(appDataDir, "trusted_peers.json"))
	if err != nil {
		return nil, fmt.Errorf("load trust store: %w", err)
	}

	return &Identity{cert: cert, deviceInfo: info, trustStore: store}, nil
}

// DeviceInfo returns this device's identity summary.
func (id *Identity) DeviceInfo() DeviceInfo {
	return id.deviceInfo
}

// TrustStore exposes the approved-peers store so a caller can gate a send
// on pairing, per spec §9's design note.
func (id *Identity) TrustStore() *TrustStore {
	return id.trustStore
}

// ServerTLSConfig returns the TLS config for the listening side: presents
// the self-signed certificate, requires no client certificate.
func (id *Identity) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{id.cert},
		ClientAuth:   tls.NoClientCert,
		NextProtos:   []string{ALPNProtocol},
		MinVersion:   tls.VersionTLS12,
	}
}

// ClientTLSConfig returns the TLS config for the dialing side. Server
// certificate verification is intentionally disabled per spec §4.C/§9 —
// trust is established out-of-band via TrustStore, not at the TLS layer.
func (id *Identity) ClientTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // trust bootstrapped via TrustStore, not TLS chain
		ServerName:         ServerName,
		NextProtos:         []string{ALPNProtocol},
		MinVersion:         tls.VersionTLS12,
	}
}

func generateSelfSignedCert() (tls.Certificate, string, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, "", err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, "", err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{Organization: []string{"proxishare"}},
		NotBefore:    now,
		NotAfter:     now.Add(CertValidity),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:     []string{ServerName},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, "", err
	}

	fingerprint := sha256.Sum256(der)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return tls.Certificate{}, "", err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, "", err
	}

	return cert, hex.EncodeToString(fingerprint[:]), nil
}

func loadOrCreateDeviceID(appDataDir string) (string, error) {
	path := filepath.Join(appDataDir, "device_id")
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data), nil
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", err
	}
	return id, nil
}

// TrustedPeer is one entry in the trust store: a device this installation
// has approved pairing with.
type TrustedPeer struct {
	DeviceID    string `json:"device_id"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	ApprovedAt  int64  `json:"approved_at"`
}

// TrustStore is a JSON-file-backed, mutex-guarded set of trusted peers.
// The transport never consults it directly (per spec, TLS verification is
// disabled on the dialer); a caller that wants pairing enforcement checks
// IsTrusted before invoking SendFile.
type TrustStore struct {
	mu    sync.RWMutex
	path  string
	peers map[string]TrustedPeer
}

func loadTrustStore(path string) (*TrustStore, error) {
	store := &TrustStore{path: path, peers: make(map[string]TrustedPeer)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(data, &store.peers); err != nil {
		return nil, err
	}
	return store, nil
}

func (ts *TrustStore) save() error {
	data, err := json.MarshalIndent(ts.peers, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ts.path, data, 0o600)
}

// AddTrustedPeer records approval of a peer and persists the store.
func (ts *TrustStore) AddTrustedPeer(peer TrustedPeer) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.peers[peer.DeviceID] = peer
	return ts.save()
}

// IsTrusted reports whether a device id has been approved.
func (ts *TrustStore) IsTrusted(deviceID string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	_, ok := ts.peers[deviceID]
	return ok
}

// Get returns a trusted peer's record.
func (ts *TrustStore) Get(deviceID string) (TrustedPeer, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	peer, ok := ts.peers[deviceID]
	return peer, ok
}
