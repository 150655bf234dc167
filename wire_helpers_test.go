// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "github.com/go-dtls/reliable/pkg/protocol/handshake"

// buildRecord encodes one on-wire handshake record: the 12-byte header
// followed by the fragment slice body[offset:offset+fragLen].
func buildRecord(typ handshake.Type, length uint32, seq uint16, offset, fragLen uint32, body []byte) []byte {
	h := handshake.Header{
		Type:            typ,
		Length:          length,
		MessageSequence: seq,
		FragmentOffset:  offset,
		FragmentLength:  fragLen,
	}
	rec := h.Marshal()
	rec = append(rec, body[offset:offset+fragLen]...)
	return rec
}
