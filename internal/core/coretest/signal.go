// Package coretest holds test doubles for core interfaces.
package coretest

import (
	"errors"
	"sync"

	"github.com/dkeye/farmrelay/internal/core"
)

var ErrRefused = errors.New("refused")

// Signal records every frame it accepts.
type Signal struct {
	mu     sync.Mutex
	frames []core.Frame
	refuse bool
	closed bool
}

func NewSignal() *Signal { return &Signal{} }

// Refusing returns a Signal whose TrySend always fails.
func Refusing() *Signal { return &Signal{refuse: true} }

func (s *Signal) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse || s.closed {
		return ErrRefused
	}
	s.frames = append(s.frames, append(core.Frame(nil), f...))
	return nil
}

func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Signal) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Envelopes decodes every recorded frame.
func (s *Signal) Envelopes() []core.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Envelope, 0, len(s.frames))
	for _, f := range s.frames {
		env, err := core.DecodeEnvelope(f)
		if err != nil {
			continue
		}
		out = append(out, env)
	}
	return out
}

// Events returns the recorded envelopes named event.
func (s *Signal) Events(event string) []core.Envelope {
	var out []core.Envelope
	for _, env := range s.Envelopes() {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}
