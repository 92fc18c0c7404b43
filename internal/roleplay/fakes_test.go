package roleplay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/flowenci/interview-coach/internal/events"
	"github.com/flowenci/interview-coach/internal/interviewer"
	"github.com/flowenci/interview-coach/internal/store"
)

// fakeConn replays scripted client messages, then reports EOF
type fakeConn struct {
	in     chan []byte
	closed chan struct{}

	mu        sync.Mutex
	out       []Outbound
	closeCode int
	closeOnce sync.Once
}

func newFakeConn(msgs ...string) *fakeConn {
	c := &fakeConn{in: make(chan []byte, len(msgs)), closed: make(chan struct{})}
	for _, m := range msgs {
		c.in <- []byte(m)
	}
	close(c.in)
	return c
}

// newBlockingConn never delivers a client message
func newBlockingConn() *fakeConn {
	return &fakeConn{in: make(chan []byte), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m, ok := <-c.in:
		if !ok {
			return nil, io.EOF
		}
		return m, nil
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var msg Outbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, msg)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) messages() []Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outbound(nil), c.out...)
}

func (c *fakeConn) code() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

// fakeResponder answers "Q1", "Q2", ... and fails on the configured call
type fakeResponder struct {
	mu     sync.Mutex
	calls  []interviewer.TurnRequest
	failAt int
}

func (f *fakeResponder) Respond(ctx context.Context, req interviewer.TurnRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.History = append(req.History[:0:0], req.History...)
	f.calls = append(f.calls, req)
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return "", errors.New("model unavailable")
	}
	return fmt.Sprintf("Q%d", len(f.calls)), nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	finished map[string]store.SessionFinish
}

func (f *fakeSessionStore) FinishInterviewSession(ctx context.Context, id string, fin store.SessionFinish) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished == nil {
		f.finished = map[string]store.SessionFinish{}
	}
	f.finished[id] = fin
	return nil
}

func (f *fakeSessionStore) get(id string) (store.SessionFinish, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fin, ok := f.finished[id]
	return fin, ok
}

type fakePublisher struct {
	mu    sync.Mutex
	ended []events.SessionEnded
}

func (f *fakePublisher) PublishSessionEnded(ctx context.Context, e events.SessionEnded) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, e)
	return nil
}
