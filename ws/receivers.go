package ws

import "sync"

// DataReceiver is invoked for each complete Text message: a final Text
// frame, or a fragmented one once its final Continuation frame arrives.
type DataReceiver func(connID uint64, opCode DataOpCode, message []byte)

// ControlReceiver is invoked for Close/Ping/Pong control frames.
type ControlReceiver func(connID uint64, opCode byte, payload []byte)

// receiversImpl is always constructed once a Receivers value exists —
// unlike sendersImpl there is no "no implementation" state, only
// "stopped" (callables cleared). Grounded on
// original_source/src/ws/ReceiversImpl.h.
type receiversImpl struct {
	mu   sync.Mutex
	data DataReceiver
	ctrl ControlReceiver
}

// Receivers is the thread-safe, clonable handle a caller uses to
// register callbacks for incoming WebSocket messages.
type Receivers struct {
	d *receiversImpl
}

// NewReceivers constructs a Receivers bound to the given callables.
// Either may be left nil, in which case Receive{Data,Control} for that
// kind returns false without invoking anything, the same as after
// StopReceiving.
func NewReceivers(data DataReceiver, ctrl ControlReceiver) Receivers {
	return Receivers{d: &receiversImpl{data: data, ctrl: ctrl}}
}

// StopReceiving clears both callables. Intended for the holder (the
// request maker) to disable callbacks whose captured state is no
// longer valid.
func (r Receivers) StopReceiving() {
	if r.d == nil {
		return
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	r.d.data, r.d.ctrl = nil, nil
}

// ReceiveData invokes the data receiver, if still active. Returns
// false without invoking anything if stopped.
func (r Receivers) ReceiveData(connID uint64, opCode DataOpCode, message []byte) bool {
	if r.d == nil {
		return false
	}
	r.d.mu.Lock()
	fn := r.d.data
	r.d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(connID, opCode, message)
	return true
}

// ReceiveControl invokes the control receiver, if still active.
func (r Receivers) ReceiveControl(connID uint64, opCode byte, payload []byte) bool {
	if r.d == nil {
		return false
	}
	r.d.mu.Lock()
	fn := r.d.ctrl
	r.d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(connID, opCode, payload)
	return true
}
