// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "github.com/go-dtls/reliable/pkg/protocol/handshake"

// Message is one complete, reassembled (or about-to-be-sent) handshake
// message: the immutable (seq, type, body) triple of spec §3. body
// excludes the 12-byte handshake header.
type Message struct {
	Seq  uint16
	Type handshake.Type
	Body []byte
}

func (m Message) canonicalHeader() handshake.Header {
	h := handshake.Header{
		Type:            m.Type,
		Length:          uint32(len(m.Body)),
		MessageSequence: m.Seq,
	}
	return h.Canonical()
}
