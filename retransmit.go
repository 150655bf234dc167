// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "time"

// retransmitController holds read_timeout_ms (spec §4.D). It only grows:
// it is doubled on every retransmit trigger (timeout, or a full
// re-reception of the previous inbound flight) and capped at 60s. Nothing
// in this core ever reduces it -- see spec §9's open question on when a
// reset would be appropriate.
type retransmitController struct {
	interval       time.Duration
	disableBackoff bool
}

func newRetransmitController(initial time.Duration, disableBackoff bool) *retransmitController {
	return &retransmitController{interval: initial, disableBackoff: disableBackoff}
}

// backoff doubles the timeout, capped at maxRetransmitInterval, unless
// backoff is disabled by configuration.
func (c *retransmitController) backoff() {
	if c.disableBackoff {
		return
	}
	c.interval *= 2
	if c.interval > maxRetransmitInterval {
		c.interval = maxRetransmitInterval
	}
}

func (c *retransmitController) timeoutMS() int {
	return int(c.interval / time.Millisecond)
}
