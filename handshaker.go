// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package dtls implements the reliable handshake layer of DTLS: flight
// bookkeeping, retransmission, fragment reassembly, and transcript-hash
// discipline over an unreliable, record-oriented transport. It is
// deliberately silent on the cryptographic handshake, cipher suites, and
// record-layer encryption sitting above and below it -- those are the
// caller's and the RecordLayer's concerns, respectively.
package dtls

import (
	"github.com/go-dtls/reliable/pkg/protocol/handshake"
	"github.com/pion/logging"
)

// Handshaker is the Flight Director of spec §4.A: the single-owner
// object bound to one DTLS association. No method is safe to call
// concurrently with itself or with any other method on the same
// instance (spec §5).
type Handshaker struct {
	rl  RecordLayer
	log logging.LeveledLogger

	maxReceiveAhead uint16

	sending        bool
	nextSendSeq    uint16
	nextReceiveSeq uint16

	outbound outboundFlight
	current  inboundFlight
	previous inboundFlight

	retransmit *retransmitController
	transcript *transcriptHash
}

// NewHandshaker constructs a Handshaker over rl. cfg may be nil, in which
// case the spec's defaults apply (1s initial retransmit interval, 10
// MAX_RECEIVE_AHEAD, backoff enabled, a logger from pion/logging's
// NewDefaultLoggerFactory).
func NewHandshaker(rl RecordLayer, cfg *Config) *Handshaker {
	return &Handshaker{
		rl:              rl,
		log:             cfg.logger(),
		maxReceiveAhead: cfg.maxReceiveAhead(),
		current:         inboundFlight{},
		previous:        inboundFlight{},
		retransmit:      newRetransmitController(cfg.initialRetransmitInterval(), cfg.disableBackoff()),
		transcript:      newTranscriptHash(),
	}
}

// SendMessage implements send_message (spec §4.A). The first call after a
// receive transitions the phase flag to sending, snapshots the flight we
// were receiving into previous (spec §3's "flight received immediately
// before the current outbound flight was sent"), and clears the outbound
// flight; every call appends to it and feeds the message, in order, to
// the Outbound Builder and then the Transcript Hash Adaptor.
func (h *Handshaker) SendMessage(typ handshake.Type, body []byte) error {
	if !h.sending {
		h.checkInboundFlight()
		h.current.resetAll()
		h.previous = h.current
		h.current = inboundFlight{}
		h.sending = true
		h.outbound = nil
	}

	msg := Message{Seq: h.nextSendSeq, Type: typ, Body: body}
	h.nextSendSeq++
	h.outbound = append(h.outbound, msg)

	if err := writeMessage(h.rl, msg); err != nil {
		return err
	}
	h.transcript.updateMessage(msg)
	return nil
}

// ReceiveMessage implements receive_message (spec §4.A). It blocks until
// the next message in ascending seq order is complete, or a fatal error
// occurs; transient read failures and timeouts are recovered locally by
// retransmitting the outbound flight and are never surfaced here (P1, P7).
//
// The current/previous snapshot happens on the way into sending (see
// SendMessage), not here: by the time sending flips back off, current is
// already the fresh table SendMessage installed, so there is nothing left
// to move.
func (h *Handshaker) ReceiveMessage() (Message, error) {
	if h.sending {
		h.sending = false
	}

	if r, ok := h.current[h.nextReceiveSeq]; ok {
		if body, complete := r.bodyIfComplete(); complete {
			return h.deliverCurrent(r.typ, body), nil
		}
	}

	for {
		limit := h.rl.GetReceiveLimit()
		buf := make([]byte, limit)
		n, err := h.rl.Receive(buf, h.retransmit.timeoutMS())
		if err != nil || n < 0 {
			if err := h.outbound.resend(h.rl); err != nil {
				return Message{}, err
			}
			h.retransmit.backoff()
			continue
		}

		msg, delivered, err := h.processRecord(buf[:n])
		if err != nil {
			return Message{}, err
		}
		if delivered {
			return msg, nil
		}
	}
}

// processRecord validates and routes one inbound record per spec §4.A's
// ordered-delivery algorithm. Malformed records are dropped (logged at
// trace level, returns delivered=false, err=nil); only a fatal write
// failure during a triggered resend is returned as an error.
func (h *Handshaker) processRecord(record []byte) (msg Message, delivered bool, err error) {
	if len(record) < handshake.HeaderLength {
		h.log.Tracef("[handshake] dropping record: %s", errRecordTooShort)
		return Message{}, false, nil
	}

	var hdr handshake.Header
	if unmarshalErr := hdr.Unmarshal(record); unmarshalErr != nil {
		h.log.Tracef("[handshake] dropping record: %s", unmarshalErr)
		return Message{}, false, nil
	}
	if uint32(len(record)) != hdr.FragmentLength+handshake.HeaderLength {
		h.log.Tracef("[handshake] dropping record: %s", errRecordSizeMismatch)
		return Message{}, false, nil
	}
	if uint32(hdr.MessageSequence) > uint32(h.nextReceiveSeq)+uint32(h.maxReceiveAhead) {
		h.log.Tracef("[handshake] dropping record: %s", errSeqTooFarAhead)
		return Message{}, false, nil
	}
	if hdr.FragmentOffset+hdr.FragmentLength > hdr.Length {
		h.log.Tracef("[handshake] dropping record: %s", errFragmentOutOfBounds)
		return Message{}, false, nil
	}

	fragment := record[handshake.HeaderLength:]

	if hdr.MessageSequence < h.nextReceiveSeq {
		r, ok := h.previous[hdr.MessageSequence]
		if !ok {
			return Message{}, false, nil
		}
		r.contributeFragment(hdr.Type, hdr.Length, fragment, hdr.FragmentOffset, hdr.FragmentLength)
		if h.previous.allComplete() {
			h.log.Tracef("[handshake] previous flight fully re-received, resending")
			if resendErr := h.outbound.resend(h.rl); resendErr != nil {
				return Message{}, false, resendErr
			}
			h.retransmit.backoff()
			h.previous.resetAll()
		}
		return Message{}, false, nil
	}

	r := h.current.getOrCreate(hdr.MessageSequence)
	r.contributeFragment(hdr.Type, hdr.Length, fragment, hdr.FragmentOffset, hdr.FragmentLength)

	if hdr.MessageSequence == h.nextReceiveSeq {
		if body, complete := r.bodyIfComplete(); complete {
			return h.deliverCurrent(r.typ, body), true, nil
		}
	}
	return Message{}, false, nil
}

// deliverCurrent discards the previous flight (the peer has clearly
// moved on), advances next_receive_seq, hashes the message, and returns
// it -- the common tail of the fast path and the in-order receive branch.
func (h *Handshaker) deliverCurrent(typ handshake.Type, body []byte) Message {
	h.previous = inboundFlight{}
	msg := Message{Seq: h.nextReceiveSeq, Type: typ, Body: body}
	h.nextReceiveSeq++
	h.transcript.updateMessage(msg)
	return msg
}

// checkInboundFlight is the "drain assertion" of spec §4.A: messages left
// undelivered in the current table, at or past next_receive_seq, are
// tolerated, not an error (spec §7, §9's open question on whether this
// should someday be stricter). It only logs, at trace level, for
// diagnostic visibility.
func (h *Handshaker) checkInboundFlight() {
	for seq := range h.current {
		if seq >= h.nextReceiveSeq {
			h.log.Tracef("[handshake] leftover reassembler for seq %d while at %d", seq, h.nextReceiveSeq)
		}
	}
}

// NotifyHelloComplete implements notify_hello_complete (spec §4.A):
// commits the deferred transcript hash to the now-known concrete
// algorithm by replaying its buffered log.
func (h *Handshaker) NotifyHelloComplete(factory HashFactory) {
	h.transcript.commit(factory)
}

// Finish implements finish (spec §4.A). If still receiving, it runs the
// drain assertion. Otherwise -- we just sent the final flight -- it
// installs the Post-finish Retransmit Hook when a previous inbound flight
// exists to resend against. Either way it notifies the record layer the
// handshake concluded.
func (h *Handshaker) Finish() {
	var hook RetransmitHook
	if !h.sending {
		h.checkInboundFlight()
	} else if len(h.previous) > 0 {
		hook = newPostFinishHook(h)
	}
	h.rl.HandshakeSuccessful(hook)
}

// GetCurrentHash returns a snapshot digest of the transcript as it
// stands, without perturbing the live hash. ok is false if called before
// NotifyHelloComplete has committed a concrete algorithm.
func (h *Handshaker) GetCurrentHash() (digest []byte, ok bool) {
	return h.transcript.fork()
}

// ResetHandshakeMessagesDigest implements reset_handshake_messages_digest
// (spec §3): re-initializes the live transcript hash, used for a
// HelloRequest/renegotiation-style restart.
func (h *Handshaker) ResetHandshakeMessagesDigest() {
	h.transcript.reset()
}
