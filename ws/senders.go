package ws

import "sync"

// sendFunc implementations are bound to one connection's handler and
// perform the actual I/O before returning.
type sendFunc func(opCode DataOpCode, payload []byte, maxFrameSize int) SendResult
type closeFunc func(code uint16, reason string) SendResult
type pingPongFunc func(payload []byte) SendResult

// sendersImpl is the shared slot behind every copy of a Senders value.
// A nil *sendersImpl (the zero value of Senders) means the upgrade
// never produced an implementation at all; a non-nil impl whose
// callables have been cleared by close() means the connection has
// since closed. This mirrors the asymmetry between the upstream
// SendersImpl (shared_ptr, nullable) and ReceiversImpl (always
// constructed) — see DESIGN.md.
type sendersImpl struct {
	mu   sync.Mutex
	data sendFunc
	cls  closeFunc
	ping pingPongFunc
	pong pingPongFunc
}

func newSendersImpl(data sendFunc, cls closeFunc, ping, pong pingPongFunc) *sendersImpl {
	return &sendersImpl{data: data, cls: cls, ping: ping, pong: pong}
}

func (s *sendersImpl) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data, s.cls, s.ping, s.pong = nil, nil, nil, nil
}

// Senders is the thread-safe, clonable handle a caller uses to write
// to a WebSocket connection. Copies share the same underlying impl
// slot (reference semantics) so that the engine can disable sending
// for every outstanding copy at once.
type Senders struct {
	d *sendersImpl
}

// NewSenders is used internally by the WS handler to bind its four
// send primitives into a caller-facing value.
func NewSenders(data sendFunc, cls closeFunc, ping, pong pingPongFunc) Senders {
	return Senders{d: newSendersImpl(data, cls, ping, pong)}
}

// Close clears every callable in the shared slot; subsequent sends
// through any copy of this Senders return SendClosed.
func (s Senders) Close() {
	if s.d != nil {
		s.d.close()
	}
}

// SendData sends a text or binary message, optionally fragmenting it
// if maxFrameSize is non-zero and shorter than the payload.
func (s Senders) SendData(opCode DataOpCode, message []byte, maxFrameSize int) Future {
	if s.d == nil {
		return newResolvedFuture(SendNoImplementation)
	}
	s.d.mu.Lock()
	fn := s.d.data
	s.d.mu.Unlock()
	if fn == nil {
		return newResolvedFuture(SendClosed)
	}
	return newResolvedFuture(fn(opCode, message, maxFrameSize))
}

// SendClose sends a Close frame with the given protocol status code
// and reason.
func (s Senders) SendClose(code uint16, reason string) Future {
	if s.d == nil {
		return newResolvedFuture(SendNoImplementation)
	}
	s.d.mu.Lock()
	fn := s.d.cls
	s.d.mu.Unlock()
	if fn == nil {
		return newResolvedFuture(SendClosed)
	}
	return newResolvedFuture(fn(code, reason))
}

// SendPing sends a Ping control frame with the given payload.
func (s Senders) SendPing(payload []byte) Future {
	if s.d == nil {
		return newResolvedFuture(SendNoImplementation)
	}
	s.d.mu.Lock()
	fn := s.d.ping
	s.d.mu.Unlock()
	if fn == nil {
		return newResolvedFuture(SendClosed)
	}
	return newResolvedFuture(fn(payload))
}

// SendPong sends a Pong control frame with the given payload.
func (s Senders) SendPong(payload []byte) Future {
	if s.d == nil {
		return newResolvedFuture(SendNoImplementation)
	}
	s.d.mu.Lock()
	fn := s.d.pong
	s.d.mu.Unlock()
	if fn == nil {
		return newResolvedFuture(SendClosed)
	}
	return newResolvedFuture(fn(payload))
}
