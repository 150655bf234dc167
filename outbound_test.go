// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"testing"

	"github.com/go-dtls/reliable/pkg/protocol/handshake"
	"github.com/stretchr/testify/require"
)

func TestWriteMessageFragmentsToSendLimit(t *testing.T) {
	rl := newFakeRecordLayer(12 + 13) // 13 payload bytes per record
	body := make([]byte, 30)
	for i := range body {
		body[i] = byte(i)
	}

	require.NoError(t, writeMessage(rl, Message{Seq: 0, Type: 1, Body: body}))

	records := rl.takeSent()
	require.Len(t, records, 3)

	reassembled := make([]byte, 30)
	for _, rec := range records {
		var h handshake.Header
		require.NoError(t, h.Unmarshal(rec))
		require.EqualValues(t, 30, h.Length)
		copy(reassembled[h.FragmentOffset:], rec[handshake.HeaderLength:])
	}
	require.Equal(t, body, reassembled)
}

func TestWriteMessageEmptyBodyIsOneRecord(t *testing.T) {
	rl := newFakeRecordLayer(200)
	require.NoError(t, writeMessage(rl, Message{Seq: 0, Type: 20, Body: nil}))

	records := rl.takeSent()
	require.Len(t, records, 1)

	var h handshake.Header
	require.NoError(t, h.Unmarshal(records[0]))
	require.EqualValues(t, 0, h.Length)
	require.EqualValues(t, 0, h.FragmentLength)
	require.EqualValues(t, 0, h.FragmentOffset)
	require.Len(t, records[0], handshake.HeaderLength)
}

func TestWriteMessageFailsFatallyWhenSendLimitTooSmall(t *testing.T) {
	rl := newFakeRecordLayer(handshake.HeaderLength)
	err := writeMessage(rl, Message{Seq: 0, Type: 1, Body: []byte{1}})
	require.Error(t, err)

	var fatal *fatalAlertError
	require.ErrorAs(t, err, &fatal)
}

func TestOutboundFlightResendUsesOriginalEpoch(t *testing.T) {
	rl := newFakeRecordLayer(200)
	rl.epoch = 2
	require.NoError(t, writeMessage(rl, Message{Seq: 0, Type: 1, Body: []byte{1}}))

	rl.epoch = 9 // something else (e.g. a ChangeCipherSpec) bumped the write epoch
	flight := outboundFlight{{Seq: 0, Type: 1, Body: []byte{1}}}
	require.NoError(t, flight.resend(rl))

	require.Equal(t, []uint16{2, 2}, rl.epochOfSent, "resend reverts to the flight's original epoch")
}

func TestOutboundFlightResendReFragmentsUnderNewLimit(t *testing.T) {
	rl := newFakeRecordLayer(12 + 30)
	flight := outboundFlight{{Seq: 0, Type: 1, Body: make([]byte, 30)}}
	require.NoError(t, flight.resend(rl))
	require.Len(t, rl.takeSent(), 1)

	rl.sendLimit = 12 + 10
	require.NoError(t, flight.resend(rl))
	require.Len(t, rl.takeSent(), 3)
}
