// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"errors"

	"github.com/go-dtls/reliable/pkg/protocol"
	"github.com/go-dtls/reliable/pkg/protocol/alert"
)

// Typed errors, grounded on the teacher's flat errors.go convention of one
// package-level var per failure mode rather than ad-hoc fmt.Errorf calls.
var (
	errRecordTooShort = &protocol.TemporaryError{Err: errors.New("record shorter than the 12-byte handshake header")}
	errSeqTooFarAhead = &protocol.TemporaryError{Err: errors.New("message_seq is beyond the receive-ahead window")}

	errRecordSizeMismatch = &protocol.TemporaryError{
		Err: errors.New("record size does not match declared fragment_length"),
	}
	errFragmentOutOfBounds = &protocol.TemporaryError{
		Err: errors.New("fragment_offset + fragment_length exceeds declared length"),
	}
)

// fatalAlertError is a FatalError paired with the alert that must be sent
// to the peer before tearing the association down (spec §7.1).
type fatalAlertError struct {
	*protocol.FatalError
	Alert alert.Alert
}

func newSendLimitTooSmallErr() *fatalAlertError {
	return &fatalAlertError{
		FatalError: &protocol.FatalError{Err: errors.New("record layer send limit cannot carry even a 1-byte fragment")},
		Alert:      alert.Alert{Level: alert.Fatal, Description: alert.InternalError},
	}
}
