// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func newUDPPair(t *testing.T) (*UDPRecordLayer, *UDPRecordLayer) {
	t.Helper()

	serverConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { serverConn.Close() })

	clientConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	server := NewUDPRecordLayer(serverConn, clientConn.LocalAddr())
	client := NewUDPRecordLayer(clientConn, serverConn.LocalAddr())
	return server, client
}

func TestUDPRecordLayerSendReceiveRoundTrip(t *testing.T) {
	server, client := newUDPPair(t)

	require.NoError(t, server.Send([]byte{1, 2, 3}))

	buf := make([]byte, client.GetReceiveLimit())
	n, err := client.Receive(buf, 1000)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])
}

// A resend at the handshake-core level is a fresh Send call carrying
// identical content; it must reach the peer every time, never be
// mistaken for a network-level duplicate of the earlier datagram.
func TestUDPRecordLayerResendIsNotTreatedAsDuplicate(t *testing.T) {
	server, client := newUDPPair(t)

	require.NoError(t, server.Send([]byte{9}))
	require.NoError(t, server.Send([]byte{9}))

	buf := make([]byte, client.GetReceiveLimit())

	n, err := client.Receive(buf, 1000)
	require.NoError(t, err)
	require.Equal(t, []byte{9}, buf[:n])

	n, err = client.Receive(buf, 1000)
	require.NoError(t, err)
	require.Equal(t, []byte{9}, buf[:n], "a resend carries a fresh sequence number and is delivered again")
}

// A genuine network-level duplicate -- the same datagram, same assigned
// sequence number, delivered twice -- is silently absorbed.
func TestUDPRecordLayerSuppressesNetworkDuplicate(t *testing.T) {
	serverConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer clientConn.Close()

	client := NewUDPRecordLayer(clientConn, serverConn.LocalAddr())

	raw := make([]byte, seqHeaderLength+1)
	putUint48(raw[:seqHeaderLength], 0)
	raw[seqHeaderLength] = 7

	_, err = serverConn.WriteTo(raw, clientConn.LocalAddr())
	require.NoError(t, err)
	_, err = serverConn.WriteTo(raw, clientConn.LocalAddr())
	require.NoError(t, err)

	buf := make([]byte, client.GetReceiveLimit())
	n, err := client.Receive(buf, 1000)
	require.NoError(t, err)
	require.Equal(t, []byte{7}, buf[:n])

	n, err = client.Receive(buf, 100)
	require.NoError(t, err)
	require.Equal(t, -1, n, "the duplicate is absorbed; Receive times out rather than redelivering it")
}

func TestUDPRecordLayerResetWriteEpochRevertsToLastSend(t *testing.T) {
	server, _ := newUDPPair(t)

	server.epoch = 2
	require.NoError(t, server.Send([]byte{1}))

	server.epoch = 9
	server.ResetWriteEpoch()
	require.EqualValues(t, 2, server.epoch)
}
