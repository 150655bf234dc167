// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "sync"

// fakeRecordLayer is a scripted RecordLayer double used to drive the
// end-to-end scenarios of spec §8 deterministically. It generalizes the
// teacher's flight1TestMockFlightConn (flight1handler_test.go) from a
// single no-op mock into a transport double whose inbox a test script
// fully controls, so retransmit/timeout behavior is exercised without any
// real wall-clock waiting.
type fakeRecordLayer struct {
	mu sync.Mutex

	sendLimit int
	recvLimit int

	inbox [][]byte
	sent  [][]byte

	epoch         uint16
	lastSentEpoch uint16
	epochOfSent   []uint16

	hook RetransmitHook
}

func newFakeRecordLayer(limit int) *fakeRecordLayer {
	return &fakeRecordLayer{sendLimit: limit, recvLimit: limit}
}

func (f *fakeRecordLayer) GetSendLimit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendLimit
}

func (f *fakeRecordLayer) GetReceiveLimit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recvLimit
}

func (f *fakeRecordLayer) Send(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), buf...)
	f.sent = append(f.sent, cp)
	f.epochOfSent = append(f.epochOfSent, f.epoch)
	f.lastSentEpoch = f.epoch
	return nil
}

// Receive pops the next scripted record, if any; otherwise it reports a
// timeout immediately (timeoutMS is ignored: the fake never blocks, since
// tests script the inbox directly instead of racing real time).
func (f *fakeRecordLayer) Receive(buf []byte, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbox) == 0 {
		return -1, nil
	}
	rec := f.inbox[0]
	f.inbox = f.inbox[1:]
	return copy(buf, rec), nil
}

func (f *fakeRecordLayer) ResetWriteEpoch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epoch = f.lastSentEpoch
}

func (f *fakeRecordLayer) HandshakeSuccessful(hook RetransmitHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

func (f *fakeRecordLayer) deliver(records ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, records...)
}

func (f *fakeRecordLayer) takeSent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

func (f *fakeRecordLayer) installedHook() RetransmitHook {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hook
}
