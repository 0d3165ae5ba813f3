// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"sync"
)

// Recorder is an in-memory [Mailer] for tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent sends return err. Pass nil to recover.
func (recorder *Recorder) FailWith(err error) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.err = err
}

// Send implements [Mailer].
func (recorder *Recorder) Send(_ context.Context, message Message) error {
	if err := message.validate(); err != nil {
		return err
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	if recorder.err != nil {
		return recorder.err
	}
	recorder.messages = append(recorder.messages, message)
	return nil
}

// Messages returns a copy of everything sent so far.
func (recorder *Recorder) Messages() []Message {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	out := make([]Message, len(recorder.messages))
	copy(out, recorder.messages)
	return out
}

// Last returns the most recent message to address.
func (recorder *Recorder) Last(address string) (Message, bool) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	for i := len(recorder.messages) - 1; i >= 0; i-- {
		if recorder.messages[i].To == address {
			return recorder.messages[i], true
		}
	}
	return Message{}, false
}
