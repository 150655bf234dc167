// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"errors"

	"github.com/go-dtls/reliable/pkg/protocol"
)

// Typed errors.
var (
	errHeaderTooShort = &protocol.TemporaryError{Err: errors.New("handshake header shorter than 12 bytes")}
)
