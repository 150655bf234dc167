// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "github.com/go-dtls/reliable/pkg/protocol/handshake"

// writeMessage is the Outbound Builder of spec §4.B: it fragments msg to
// the record layer's current send limit and writes each fragment as one
// atomic record. It always emits at least one fragment, even for an empty
// body, and never changes the handshake-header seq/length on resend --
// only the fragment boundaries may differ between calls.
func writeMessage(rl RecordLayer, msg Message) error {
	limit := rl.GetSendLimit()
	payloadLimit := limit - handshake.HeaderLength
	if payloadLimit < 1 {
		return newSendLimitTooSmallErr()
	}

	length := uint32(len(msg.Body))
	offset := uint32(0)
	for {
		remaining := length - offset
		fragLen := remaining
		if fragLen > uint32(payloadLimit) {
			fragLen = uint32(payloadLimit)
		}

		header := handshake.Header{
			Type:            msg.Type,
			Length:          length,
			MessageSequence: msg.Seq,
			FragmentOffset:  offset,
			FragmentLength:  fragLen,
		}
		record := make([]byte, 0, handshake.HeaderLength+int(fragLen))
		record = append(record, header.Marshal()...)
		record = append(record, msg.Body[offset:offset+fragLen]...)
		if err := rl.Send(record); err != nil {
			return err
		}

		offset += fragLen
		if offset >= length {
			return nil
		}
	}
}

// outboundFlight is the most recent flight this side has sent, preserved
// verbatim for retransmission (spec §3).
type outboundFlight []Message

// resend re-fragments every message in the flight according to the
// record layer's *current* send limit and re-sends it under the epoch
// the flight was originally sent under. The handshake header's seq and
// length never change between resends (spec §4.B, P4).
func (f outboundFlight) resend(rl RecordLayer) error {
	rl.ResetWriteEpoch()
	for _, msg := range f {
		if err := writeMessage(rl, msg); err != nil {
			return err
		}
	}
	return nil
}
