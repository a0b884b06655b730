// Package sse implements a Server-Sent Events broker for snapshot rebuild notifications.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeBuilt  = "snapshot.built"
	TypeFailed = "snapshot.failed"
)

// DefaultKeepAlive is how often an idle stream receives a comment line so
// proxies do not close it.
const DefaultKeepAlive = 30 * time.Second

// Event is one message to broadcast.
type Event struct {
	Type string
	Data any
}

// BuildEvent is the payload of snapshot.built and snapshot.failed events.
type BuildEvent struct {
	Trigger  string `json:"trigger"`
	Path     string `json:"path,omitempty"`
	Files    int    `json:"files"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Broker fans events out to SSE clients.
//
// A single goroutine owns the client set, the event sequence and the last
// build frame; public methods talk to it over channels. New subscribers get
// the last build frame first, so a client connecting between rebuilds still
// learns the current snapshot state. Slow clients miss frames rather than
// stall the loop.
type Broker struct {
	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event

	clients   atomic.Int64
	keepAlive time.Duration
	buffer    int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the idle comment interval. Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// WithClientBuffer sets how many frames a client may lag behind.
func WithClientBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// NewBroker starts a broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		keepAlive:     DefaultKeepAlive,
		buffer:        64,
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq       uint64
		lastBuild []byte
	)

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			b.clients.Store(0)
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			b.clients.Store(int64(len(clients)))
			if lastBuild != nil {
				ch <- lastBuild
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
				b.clients.Store(int64(len(clients)))
			}

		case ev := <-b.publishCh:
			seq++
			frame, err := encode(seq, ev)
			if err != nil {
				continue
			}
			if ev.Type == TypeBuilt || ev.Type == TypeFailed {
				lastBuild = frame
			}
			for ch := range clients {
				select {
				case ch <- frame:
				default:
				}
			}
		}
	}
}

// encode renders ev in text/event-stream framing.
func encode(id uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", ev.Type, err)
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed by
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, b.buffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	return int(b.clients.Load())
}

// Publish queues ev for broadcast. It is a no-op after Close.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishBuild publishes snapshot.built, or snapshot.failed when ev carries an error.
func (b *Broker) PublishBuild(ev BuildEvent) {
	typ := TypeBuilt
	if ev.Error != "" {
		typ = TypeFailed
	}
	b.Publish(Event{Type: typ, Data: ev})
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
