package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseProperties(t *testing.T) {
	props := parseProperties([]string{"id=abc-123", "name=Living Room PC", "ips=192.168.1.5,192.168.1.6"})
	require.Equal(t, "abc-123", props["id"])
	require.Equal(t, "Living Room PC", props["name"])
	require.Equal(t, "192.168.1.5,192.168.1.6", props["ips"])
}

func TestParsePropertiesIgnoresMalformedEntries(t *testing.T) {
	props := parseProperties([]string{"no-equals-sign", "id=present"})
	require.Equal(t, "present", props["id"])
	require.NotContains(t, props, "no-equals-sign")
}

func TestShortID(t *testing.T) {
	require.Equal(t, "abcdefgh", shortID("abcdefghijklmnop"))
	require.Equal(t, "abc", shortID("abc"))
}

func TestTestConnectivityDetectsListeningPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	require.True(t, TestConnectivity("127.0.0.1", addr.Port))
}

func TestTestConnectivityFailsOnClosedPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	require.False(t, TestConnectivity("127.0.0.1", addr.Port))
}

func TestFindReachableIPSkipsUnreachableAddresses(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	peer := Peer{
		DeviceID: "peer-1",
		IPs:      []string{"203.0.113.1", "127.0.0.1"},
		Port:     addr.Port,
		LastSeen: time.Now(),
	}

	ip, err := FindReachableIP(peer)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", ip)
}
