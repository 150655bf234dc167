// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"encoding/binary"
	"net"
	"time"

	"github.com/pion/transport/v3/replaydetector"
	"golang.org/x/net/ipv4"
)

// defaultMTU matches the teacher's Config.MTU default: the path MTU is
// rarely known in advance, so DTLS implementations conservatively start
// at 1200 bytes (spec's out-of-scope "MTU discovery", left to this
// record layer rather than the core).
const defaultMTU = 1200

// handshakeTOS is the DSCP codepoint (AF11, RFC 2597) this record layer
// requests for handshake datagrams, so middleboxes on constrained links
// can prioritize them over bulk application traffic sharing the same
// association once it's established.
const handshakeTOS = 0x28

// replayWindow is the duplicate-sequence-number detection window; this
// lives at the record layer, distinct from the core's own
// MAX_RECEIVE_AHEAD bound on buffered reassemblers (spec §5, §6).
const replayWindow = 64

// seqHeaderLength is the size of the sequence-number prefix this record
// layer adds ahead of every handshake record it sends: a 48-bit counter,
// the same width as a real DTLS record's sequence_number field (RFC 6347
// section 4.1), assigned fresh by this layer on every Send call. Unlike
// the wire handshake header (which a resend leaves untouched, per
// outbound.go), this prefix changes on every transmission -- it tags the
// datagram, not the handshake message -- so an application-level resend
// of identical content is never mistaken for a network-level duplicate
// of the earlier datagram.
const seqHeaderLength = 6

// UDPRecordLayer is a concrete, runnable RecordLayer (spec §6) over a
// net.PacketConn. It is domain-stack scaffolding, not part of the core:
// the core only ever depends on the RecordLayer interface.
type UDPRecordLayer struct {
	conn net.PacketConn
	peer net.Addr

	epoch        uint16
	lastSentEpoch uint16

	mtu int

	sendSeq uint64
	replay  replaydetector.ReplayDetector

	hook RetransmitHook
}

// NewUDPRecordLayer wraps conn, pinned to a single peer address, with
// datagrams of at most defaultMTU bytes (a send/receive limit of
// defaultMTU less the seqHeaderLength prefix). When conn is a
// four-byte-address (IPv4) socket, it is opportunistically marked to
// request DSCP AF11 treatment for the handshake traffic it carries; a
// failure to do so (the conn isn't IPv4, or the platform doesn't support
// the socket option) is not fatal, since it is purely a QoS hint.
func NewUDPRecordLayer(conn net.PacketConn, peer net.Addr) *UDPRecordLayer {
	_ = ipv4.NewPacketConn(conn).SetTOS(handshakeTOS)

	return &UDPRecordLayer{
		conn:   conn,
		peer:   peer,
		mtu:    defaultMTU,
		replay: replaydetector.New(replayWindow, 1<<48-1),
	}
}

// GetSendLimit returns the datagram payload budget this record layer will
// ask the outbound builder to fragment to. Path MTU discovery is left to
// the caller's transport (spec's declared out-of-scope concern); this
// layer only ever offers its static configured ceiling, less the room
// reserved for its own sequence-number prefix.
func (r *UDPRecordLayer) GetSendLimit() int {
	return r.mtu - seqHeaderLength
}

// GetReceiveLimit returns the maximum handshake-record payload bytes this
// record layer will deliver per call to Receive, mirroring GetSendLimit.
func (r *UDPRecordLayer) GetReceiveLimit() int {
	return r.mtu - seqHeaderLength
}

// Send writes buf as one UDP datagram under the current epoch, prefixed
// with a freshly assigned sequence number.
func (r *UDPRecordLayer) Send(buf []byte) error {
	r.lastSentEpoch = r.epoch

	datagram := make([]byte, seqHeaderLength+len(buf))
	putUint48(datagram[:seqHeaderLength], r.sendSeq)
	r.sendSeq++
	copy(datagram[seqHeaderLength:], buf)

	_, err := r.conn.WriteTo(datagram, r.peer)
	return err
}

// Receive blocks for at most timeoutMS milliseconds for one datagram,
// strips its sequence-number prefix, and silently discards genuine
// network-level duplicates of a previously accepted datagram via the
// replay window -- a duplicate delivered by the network carries the
// exact sequence number Send assigned it, whereas an application-level
// resend of the same handshake content is a new Send call and so
// carries a new one, and is never suppressed here.
func (r *UDPRecordLayer) Receive(buf []byte, timeoutMS int) (int, error) {
	deadlineAt := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	if err := r.conn.SetReadDeadline(deadlineAt); err != nil {
		return -1, err
	}

	raw := make([]byte, r.mtu)
	for {
		n, _, err := r.conn.ReadFrom(raw)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return -1, nil
			}
			return -1, err
		}
		if n < seqHeaderLength {
			continue
		}

		seq := getUint48(raw[:seqHeaderLength])
		accept, ok := r.replay.Check(seq)
		if !ok {
			continue
		}
		accept()

		return copy(buf, raw[seqHeaderLength:n]), nil
	}
}

// ResetWriteEpoch requests subsequent sends use the epoch the last
// transmitted flight was originally sent under.
func (r *UDPRecordLayer) ResetWriteEpoch() {
	r.epoch = r.lastSentEpoch
}

// HandshakeSuccessful records the post-finish hook, if any, for the
// caller-driven grace window (an integration harness calls
// DispatchPostFinish below for each record it reads during that window;
// this record layer does not run its own background goroutine).
func (r *UDPRecordLayer) HandshakeSuccessful(hook RetransmitHook) {
	r.hook = hook
}

// DispatchPostFinish feeds one record to the installed post-finish hook,
// if any, and reports whether a hook was installed to dispatch to.
func (r *UDPRecordLayer) DispatchPostFinish(record []byte) bool {
	if r.hook == nil {
		return false
	}
	r.hook.OnHandshakeRecord(r.epoch, record)
	return true
}

func putUint48(buf []byte, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	copy(buf, tmp[2:])
}

func getUint48(buf []byte) uint64 {
	var tmp [8]byte
	copy(tmp[2:], buf[:6])
	return binary.BigEndian.Uint64(tmp[:])
}
