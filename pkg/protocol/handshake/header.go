// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package handshake implements the DTLS handshake record header: the
// 12-byte framing that carries a message_seq and a fragment window over an
// unreliable record layer. See RFC 6347 section 4.2.2.
package handshake

import "encoding/binary"

// HeaderLength is the size in bytes of the on-wire handshake header.
const HeaderLength = 12

// Type identifies a handshake message. HelloRequest (0) is the single
// type the reliable handshake core treats specially: it is never fed to
// the transcript hash.
type Type uint8

// TypeHelloRequest is excluded from the transcript hash per RFC 6347
// section 4.2.6 and spec §4.A/§4.E.
const TypeHelloRequest Type = 0

// Header is the canonical, unfragmented framing of one handshake message:
// fragment_offset is always 0 and fragment_length always equals length.
// It is also reused, verbatim, as the on-wire fragment header, where
// FragmentOffset/FragmentLength describe the slice actually carried.
type Header struct {
	Type            Type
	Length          uint32 // 24 bits on the wire
	MessageSequence uint16
	FragmentOffset  uint32 // 24 bits on the wire
	FragmentLength  uint32 // 24 bits on the wire
}

// Marshal encodes h into the 12-byte wire representation.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderLength)
	buf[0] = byte(h.Type)
	putUint24(buf[1:4], h.Length)
	binary.BigEndian.PutUint16(buf[4:6], h.MessageSequence)
	putUint24(buf[6:9], h.FragmentOffset)
	putUint24(buf[9:12], h.FragmentLength)
	return buf
}

// Unmarshal decodes a 12-byte wire header from buf. It does not validate
// field relationships (e.g. fragment bounds); callers enforce those per
// spec §4.A.
func (h *Header) Unmarshal(buf []byte) error {
	if len(buf) < HeaderLength {
		return errHeaderTooShort
	}
	h.Type = Type(buf[0])
	h.Length = getUint24(buf[1:4])
	h.MessageSequence = binary.BigEndian.Uint16(buf[4:6])
	h.FragmentOffset = getUint24(buf[6:9])
	h.FragmentLength = getUint24(buf[9:12])
	return nil
}

// Canonical returns the unfragmented framing of this header: the form
// that is fed to the transcript hash regardless of how the message was
// actually split into fragments on the wire (spec §4.E).
func (h *Header) Canonical() Header {
	return Header{
		Type:            h.Type,
		Length:          h.Length,
		MessageSequence: h.MessageSequence,
		FragmentOffset:  0,
		FragmentLength:  h.Length,
	}
}

func putUint24(buf []byte, v uint32) {
	buf[0] = byte(v >> 16)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v)
}

func getUint24(buf []byte) uint32 {
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
}
