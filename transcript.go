// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/sha256"
	"encoding"
	"hash"

	"github.com/go-dtls/reliable/pkg/protocol/handshake"
	"golang.org/x/crypto/sha3"
)

// HashFactory constructs a fresh, empty hash.Hash of the algorithm the
// cipher suite negotiated above the core settled on.
type HashFactory func() hash.Hash

// SHA3_256 is a HashFactory wired to golang.org/x/crypto/sha3, offered
// alongside the stdlib SHA-256/SHA-384 factories a caller can pass
// directly (crypto/sha256.New, crypto/sha512.New384) to
// Handshaker.NotifyHelloComplete.
func SHA3_256() hash.Hash { return sha3.New256() }

// transcriptHash is the Transcript Hash Adaptor of spec §4.E: a
// polymorphic hash that starts deferred (the concrete algorithm is not
// yet negotiated, so bytes are buffered in a growing log) and is
// committed to a concrete hash.Hash once notify_hello_complete replays
// that log into it. Forking never perturbs the live hash: it clones the
// hash.Hash state via encoding.BinaryMarshaler, the same technique the
// stdlib's own hash implementations (crypto/sha256, golang.org/x/crypto/sha3)
// expose for cheap snapshots.
type transcriptHash struct {
	factory HashFactory
	live    hash.Hash // nil until commit
	log     []byte    // growing buffer while deferred
}

func newTranscriptHash() *transcriptHash {
	return &transcriptHash{}
}

// update feeds raw bytes into the running hash, in the exact order the
// Transcript Hash Adaptor is invoked from send_message/receive_message.
func (t *transcriptHash) update(b []byte) {
	if t.live != nil {
		t.live.Write(b)
		return
	}
	t.log = append(t.log, b...)
}

// updateMessage feeds one handshake message's canonical, unfragmented
// framing and body, skipping HelloRequest per spec §4.A/§4.E/P8.
func (t *transcriptHash) updateMessage(m Message) {
	if m.Type == handshake.TypeHelloRequest {
		return
	}
	header := m.canonicalHeader()
	t.update(header.Marshal())
	t.update(m.Body)
}

// commit transitions deferred -> concrete: it replays the buffered log
// into a hash created by factory, then drops the log so subsequent
// updates flow straight into the live hash (spec §4.E, §9 "Deferred then
// committed transcript hash").
func (t *transcriptHash) commit(factory HashFactory) {
	t.factory = factory
	h := factory()
	h.Write(t.log)
	t.live = h
	t.log = nil
}

// fork produces an independent snapshot of the live hash state and
// finalizes it, leaving the live hash untouched -- get_current_hash of
// spec §3. It returns (nil, false) before commit, since there is no
// concrete algorithm yet to finalize into.
func (t *transcriptHash) fork() ([]byte, bool) {
	if t.live == nil {
		return nil, false
	}
	marshaler, ok := t.live.(encoding.BinaryMarshaler)
	if !ok {
		return nil, false
	}
	state, err := marshaler.MarshalBinary()
	if err != nil {
		return nil, false
	}
	clone := t.factory()
	if unmarshaler, ok := clone.(encoding.BinaryUnmarshaler); ok {
		if err := unmarshaler.UnmarshalBinary(state); err != nil {
			return nil, false
		}
	}
	return clone.Sum(nil), true
}

// reset re-initializes the live hash (or, if still deferred, clears the
// log), used for a HelloRequest/renegotiation-style restart.
func (t *transcriptHash) reset() {
	t.log = nil
	if t.factory != nil {
		t.live = t.factory()
	} else {
		t.live = nil
	}
}

// defaultHashFactory is a SHA-256 HashFactory used by the package's tests.
// Nothing in the package falls back to it: a transcript that is never
// committed stays deferred.
func defaultHashFactory() hash.Hash { return sha256.New() }
