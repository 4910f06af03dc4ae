package tlsidentity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadGeneratesDeviceIdentity(t *testing.T) {
	dir := t.TempDir()

	id, err := Load(dir)
	require.NoError(t, err)
	require.NotEmpty(t, id.DeviceInfo().DeviceID)
	require.NotEmpty(t, id.DeviceInfo().Fingerprint)
}

func TestLoadReusesDeviceIDAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	first, err := Load(dir)
	require.NoError(t, err)

	second, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, first.DeviceInfo().DeviceID, second.DeviceInfo().DeviceID)
}

func TestServerAndClientTLSConfigNegotiateSameALPN(t *testing.T) {
	dir := t.TempDir()
	id, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, []string{ALPNProtocol}, id.ServerTLSConfig().NextProtos)
	require.Equal(t, []string{ALPNProtocol}, id.ClientTLSConfig().NextProtos)
	require.True(t, id.ClientTLSConfig().InsecureSkipVerify)
}

func TestTrustStorePersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	id, err := Load(dir)
	require.NoError(t, err)

	require.False(t, id.TrustStore().IsTrusted("peer-1"))

	err = id.TrustStore().AddTrustedPeer(TrustedPeer{
		DeviceID:    "peer-1",
		Name:        "Other Device",
		Fingerprint: "deadbeef",
		ApprovedAt:  1,
	})
	require.NoError(t, err)
	require.True(t, id.TrustStore().IsTrusted("peer-1"))

	store, err := loadTrustStore(filepath.Join(dir, "trusted_peers.json"))
	require.NoError(t, err)
	require.True(t, store.IsTrusted("peer-1"))
}

func TestTrustStoreGetUnknownPeer(t *testing.T) {
	dir := t.TempDir()
	id, err := Load(dir)
	require.NoError(t, err)

	_, ok := id.TrustStore().Get("nobody")
	require.False(t, ok)
}
