// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"sort"

	"github.com/go-dtls/reliable/pkg/protocol/handshake"
)

// byteRange is a half-open [start, end) interval of bytes received so far
// for a reassembler, per spec §3's "union of byte ranges" model.
type byteRange struct {
	start, end uint32
}

// reassembler accumulates fragments for a single inbound message_seq. It
// implements the "faithful implementation" option named in spec §4.C: an
// eagerly-copied buffer plus a disjoint-interval covered set, rather than
// the "conservative" interval-only alternative, because the core needs
// body_if_complete to return a contiguous buffer cheaply and repeatedly.
type reassembler struct {
	typ     handshake.Type
	length  uint32
	seeded  bool
	buf     []byte
	covered []byteRange
}

// contributeFragment folds in one fragment. A mismatching type or length
// against an already-seeded reassembler is dropped silently (spec §3, §7.3).
func (r *reassembler) contributeFragment(typ handshake.Type, length uint32, src []byte, offset, fragLen uint32) {
	if !r.seeded {
		r.typ = typ
		r.length = length
		r.buf = make([]byte, length)
		r.seeded = true
	} else if r.typ != typ || r.length != length {
		return
	}

	if fragLen == 0 {
		// An empty-body message is still one fragment covering [0,0);
		// union it so completion (an empty range covers everything) is
		// detected without special-casing zero length below.
		r.addRange(0, 0)
		return
	}

	end := offset + fragLen
	if end > r.length || uint32(len(src)) < fragLen {
		return
	}
	copy(r.buf[offset:end], src[:fragLen])
	r.addRange(offset, end)
}

func (r *reassembler) addRange(start, end uint32) {
	r.covered = append(r.covered, byteRange{start, end})
	r.covered = mergeRanges(r.covered)
}

// mergeRanges sorts and unions overlapping or adjacent ranges.
func mergeRanges(ranges []byteRange) []byteRange {
	if len(ranges) < 2 {
		return ranges
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.start > last.end {
			merged = append(merged, r)
			continue
		}
		if r.end > last.end {
			last.end = r.end
		}
	}
	return merged
}

// complete reports whether the union of received ranges covers [0, length).
func (r *reassembler) complete() bool {
	if !r.seeded {
		return false
	}
	if r.length == 0 {
		return len(r.covered) > 0
	}
	return len(r.covered) == 1 && r.covered[0].start == 0 && r.covered[0].end == r.length
}

// bodyIfComplete is pure: it never mutates the reassembler (spec §4.C).
func (r *reassembler) bodyIfComplete() ([]byte, bool) {
	if !r.complete() {
		return nil, false
	}
	body := make([]byte, len(r.buf))
	copy(body, r.buf)
	return body, true
}

// reset discards received data but retains type/length, so a re-received
// identical message re-completes exactly as before (spec §3, §4.C).
func (r *reassembler) reset() {
	r.covered = nil
	if r.seeded {
		r.buf = make([]byte, r.length)
	}
}

// inboundFlight is a seq -> reassembler table (spec §3's "Inbound flight
// table"). Two instances coexist in a Handshaker: current and previous.
type inboundFlight map[uint16]*reassembler

// getOrCreate looks up seq, creating a fresh reassembler bound by the
// fragment's own type/length when absent (spec §4.A: "look up (or create,
// bound by a fresh type/length)").
func (f inboundFlight) getOrCreate(seq uint16) *reassembler {
	r, ok := f[seq]
	if !ok {
		r = &reassembler{}
		f[seq] = r
	}
	return r
}

// resetAll clears every reassembler's received data in place, retaining
// type/length (used when a flight moves from current to previous, and
// after a full previous-flight re-reception triggers a resend).
func (f inboundFlight) resetAll() {
	for _, r := range f {
		r.reset()
	}
}

// allComplete reports whether every reassembler in the table has a
// complete body -- the "previous flight fully re-received" trigger of
// spec §4.A/§4.F. An empty table is vacuously not "a flight".
func (f inboundFlight) allComplete() bool {
	if len(f) == 0 {
		return false
	}
	for _, r := range f {
		if !r.complete() {
			return false
		}
	}
	return true
}
