// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "github.com/go-dtls/reliable/pkg/protocol/handshake"

// postFinishHook is the Post-finish Retransmit Hook of spec §4.F,
// installed on the record layer by Finish when the local side sent the
// final flight. The record layer invokes OnHandshakeRecord for each
// incoming handshake record during its grace window and discards the
// hook once that window closes; the hook itself holds no timer.
type postFinishHook struct {
	h *Handshaker
}

func newPostFinishHook(h *Handshaker) *postFinishHook {
	return &postFinishHook{h: h}
}

// OnHandshakeRecord parses and validates the record as processRecord
// does, then contributes it only to the retained previous inbound
// flight. epoch is accepted but not cross-checked against the flight's
// original epoch: a previous flight spanning two record-layer epochs
// during this grace window is unhandled, per spec §9's acknowledged
// future work.
func (p *postFinishHook) OnHandshakeRecord(_ uint16, record []byte) {
	h := p.h

	if len(record) < handshake.HeaderLength {
		return
	}
	var hdr handshake.Header
	if err := hdr.Unmarshal(record); err != nil {
		return
	}
	if uint32(len(record)) != hdr.FragmentLength+handshake.HeaderLength {
		return
	}
	if hdr.FragmentOffset+hdr.FragmentLength > hdr.Length {
		return
	}
	if hdr.MessageSequence >= h.nextReceiveSeq {
		// We have moved past this seq already; nothing to do.
		return
	}

	r, ok := h.previous[hdr.MessageSequence]
	if !ok {
		return
	}
	r.contributeFragment(hdr.Type, hdr.Length, record[handshake.HeaderLength:], hdr.FragmentOffset, hdr.FragmentLength)

	if h.previous.allComplete() {
		if err := h.outbound.resend(h.rl); err != nil {
			h.log.Errorf("[handshake] post-finish resend failed: %s", err)
			return
		}
		h.previous.resetAll()
	}
}
