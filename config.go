// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"time"

	"github.com/pion/logging"
)

// maxReceiveAheadDefault is the spec's MAX_RECEIVE_AHEAD constant: the
// number of future-seq reassemblers buffered beyond next_receive_seq.
const maxReceiveAheadDefault = 10

const (
	initialRetransmitIntervalDefault = time.Second
	maxRetransmitInterval            = 60 * time.Second
)

// Config configures a Handshaker. Only the subset of the teacher's
// (pion/dtls) Config relevant to the reliable-handshake layer survives
// here; cipher suites, certificates, PSK, and SRTP belong to the full TLS
// state machine above the core and are out of scope (spec §1).
//
// After a Config is passed to NewHandshaker it must not be modified.
type Config struct {
	// InitialRetransmitInterval is the starting read timeout for a
	// flight wait, doubled on each retransmit up to 60s (spec §4.D).
	// Defaults to one second.
	InitialRetransmitInterval time.Duration

	// DisableRetransmitBackoff disables the exponential-backoff
	// doubling, matching the teacher's identically named field.
	DisableRetransmitBackoff bool

	// MaxReceiveAhead bounds how far past next_receive_seq an inbound
	// reassembler may be created (spec constant MAX_RECEIVE_AHEAD = 10).
	// Zero means the default of 10.
	MaxReceiveAhead uint16

	// LoggerFactory supplies the leveled logger used for flight
	// transitions, drops, and retransmits. Defaults to a logger from
	// pion/logging's NewDefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

func (c *Config) initialRetransmitInterval() time.Duration {
	if c == nil || c.InitialRetransmitInterval <= 0 {
		return initialRetransmitIntervalDefault
	}
	return c.InitialRetransmitInterval
}

func (c *Config) maxReceiveAhead() uint16 {
	if c == nil || c.MaxReceiveAhead == 0 {
		return maxReceiveAheadDefault
	}
	return c.MaxReceiveAhead
}

func (c *Config) disableBackoff() bool {
	return c != nil && c.DisableRetransmitBackoff
}

func (c *Config) logger() logging.LeveledLogger {
	if c == nil || c.LoggerFactory == nil {
		return logging.NewDefaultLoggerFactory().NewLogger("dtls")
	}
	return c.LoggerFactory.NewLogger("dtls")
}
