package ws

import (
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/urlreq/core"
)

const (
	readChunkSize   = 256
	maxReadsPerTick = 64
	writeDeadline   = 5 * time.Second
	closeRetryLimit = 3
)

type closeHandshakeState int

const (
	closeNone closeHandshakeState = iota
	closeClientInitiated
	closeServerInitiated
	closeComplete
)

var nextConnID atomic.Uint64

// Handler drives one persisting WebSocket connection after the 101
// upgrade: frame assembly, the close handshake, ping/pong bookkeeping,
// and routing of user sends. Go has no recursive mutex, so Handler's
// state is touched only while mu is held, by "Locked" methods; wrapper
// methods (Update, Close, and the unexported send functions bound into
// Senders) acquire mu before delegating to them — Update's internal
// echo-close path calls writeCloseFrameLocked directly, without a
// second lock acquisition.
type Handler struct {
	conn   net.Conn
	connID uint64

	receivers    Receivers
	senders      Senders
	closeTimeout time.Duration
	logger       *log.Logger

	mu sync.Mutex

	closeHandshake    closeHandshakeState
	closeSentTime     time.Time
	closeRetries      int
	serverCloseCode   uint16
	serverCloseReason string
	awaitingPong      bool

	fragmenting     bool
	fragmentOpcode  DataOpCode
	receivedMessage []byte

	readAccum       []byte
	transportFailed bool

	sendObserver func(SendResult)
}

// SetSendObserver registers fn to be called with the SendResult of
// every send attempted through this handler's Senders (data, close,
// ping, pong), after the send completes. Intended for optional
// external instrumentation such as the engine's Prometheus counters;
// a nil fn disables observation, which is also the zero value.
func (h *Handler) SetSendObserver(fn func(SendResult)) {
	h.mu.Lock()
	h.sendObserver = fn
	h.mu.Unlock()
}

func (h *Handler) observeSend(r SendResult) {
	h.mu.Lock()
	fn := h.sendObserver
	h.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

// Respond constructs a Handler from the outcome of the initial upgrade
// attempt, mirroring the upstream respond()'s exact dispatch: a non-101
// status or an upgrade error is always Failure/Finished; 101 with no
// error builds live Senders and returns Persisting; any other
// combination is Failure/Finished.
func Respond(statusCode int, upgradeErr error, conn net.Conn, req Request, logger *log.Logger) (*Handler, core.ResponseCode, Response, core.HandlerStatus) {
	if logger == nil {
		logger = log.Default()
	}
	if upgradeErr != nil || statusCode != 101 {
		if conn != nil {
			_ = conn.Close()
		}
		return nil, core.ResponseFailure, Response{}, core.HandlerFinished
	}

	closeTimeout := req.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = DefaultCloseTimeout
	}

	h := &Handler{
		conn:         conn,
		connID:       nextConnID.Add(1),
		receivers:    req.Receivers,
		closeTimeout: closeTimeout,
		closeRetries: closeRetryLimit,
		logger:       logger,
	}
	h.senders = NewSenders(h.sendData, h.sendClose, h.sendPing, h.sendPong)

	return h, core.ResponseSuccess, Response{ConnectionID: h.connID, Senders: h.senders}, core.HandlerPersisting
}

// ConnectionID returns this handler's connection identifier.
func (h *Handler) ConnectionID() uint64 { return h.connID }

// Update performs one poll tick's worth of work: close-timeout and
// close-retry bookkeeping, a bounded non-blocking frame-read loop, and
// frame dispatch. It returns false once the handler should be torn
// down (close complete, timed out, or an unrecoverable transport
// error).
func (h *Handler) Update() bool {
	h.mu.Lock()
	result := h.updateLocked()
	advanced := h.closeHandshake != closeNone || h.transportFailed
	h.mu.Unlock()

	if advanced {
		// Disabling Senders must happen after releasing the handler
		// mutex to respect the documented lock order
		// (persistingMu > handler.mu > senders.mu).
		h.senders.Close()
	}
	return result
}

func (h *Handler) updateLocked() bool {
	// 1. Close timeout check.
	if h.closeHandshake == closeClientInitiated && time.Since(h.closeSentTime) > h.closeTimeout {
		return false
	}

	// 2. Close retry.
	if h.closeHandshake == closeServerInitiated {
		if h.writeCloseFrameLocked(h.serverCloseCode, h.serverCloseReason) == SendSuccess {
			h.closeHandshake = closeComplete
		} else {
			h.closeRetries--
			if h.closeRetries <= 0 {
				h.logger.Printf("ws: connection %d close retries exhausted, forcing teardown", h.connID)
				return false
			}
		}
	}

	// 3. Frame read loop.
	buf := make([]byte, readChunkSize)
	for i := 0; i < maxReadsPerTick; i++ {
		// A deadline of exactly now fails every Read before it looks for
		// data, so allow a millisecond for bytes that are already waiting.
		_ = h.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
		n, err := h.conn.Read(buf)
		if n > 0 {
			h.readAccum = append(h.readAccum, buf[:n]...)
		}
		if err != nil {
			if isNoDataNow(err) {
				break
			}
			if err != io.EOF {
				h.transportFailed = true
			}
			return false
		}
		if n < readChunkSize {
			break
		}
	}

	// 4. Process every complete frame accumulated so far.
	for {
		frame, consumed, err := DecodeFrameFromBytes(h.readAccum)
		if err != nil {
			h.transportFailed = true
			return false
		}
		if frame == nil {
			break
		}
		h.readAccum = h.readAccum[consumed:]
		h.processFrameLocked(frame)
	}

	// 6. Continue polling until the close handshake completes.
	return h.closeHandshake != closeComplete
}

func isNoDataNow(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// processFrameLocked dispatches one decoded frame per its opcode.
func (h *Handler) processFrameLocked(frame *Frame) {
	switch frame.Opcode {
	case OpcodeText:
		if frame.IsFinal {
			h.receivers.ReceiveData(h.connID, DataText, frame.Payload)
		} else {
			h.fragmenting = true
			h.fragmentOpcode = DataText
			h.receivedMessage = append(h.receivedMessage[:0], frame.Payload...)
		}

	case OpcodeBinary:
		// Receiving binary data is not supported; refuse per the
		// connection-level protocol rather than silently dropping it.
		h.sendCloseLocked(CloseUnacceptableData, "Cannot send binary data (yet).")

	case OpcodeContinuation:
		if h.fragmenting {
			h.receivedMessage = append(h.receivedMessage, frame.Payload...)
			if frame.IsFinal {
				h.receivers.ReceiveData(h.connID, h.fragmentOpcode, h.receivedMessage)
				h.fragmenting = false
				h.receivedMessage = nil
			}
		}

	case OpcodeClose:
		code, reason := DecodeClosePayload(frame.Payload)
		h.receivers.ReceiveControl(h.connID, OpcodeClose, frame.Payload)
		switch h.closeHandshake {
		case closeNone:
			h.serverCloseCode, h.serverCloseReason = code, reason
			if h.writeCloseFrameLocked(code, reason) == SendSuccess {
				h.closeHandshake = closeComplete
			} else {
				h.closeHandshake = closeServerInitiated
			}
		case closeClientInitiated:
			h.closeHandshake = closeComplete
		case closeServerInitiated, closeComplete:
			// Already mid-handshake; ignore further Close frames.
		}

	case OpcodePing:
		h.receivers.ReceiveControl(h.connID, OpcodePing, frame.Payload)
		h.sendPongLocked(frame.Payload)

	case OpcodePong:
		if h.awaitingPong {
			h.receivers.ReceiveControl(h.connID, OpcodePong, frame.Payload)
			h.awaitingPong = false
		} else {
			h.logger.Printf("ws: unsolicited pong on connection %d", h.connID)
		}
	}
}

// Close is invoked by the engine during shutdown to begin a graceful
// close if one is not already in flight.
func (h *Handler) Close() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closeHandshake == closeNone {
		h.sendCloseLocked(CloseGoingAway, "Client shutdown")
	}
	return true
}

func (h *Handler) writeFrameLocked(final bool, opcode byte, payload []byte) SendResult {
	data, err := EncodeFrame(final, opcode, payload, true)
	if err != nil {
		return SendFailure
	}
	_ = h.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if _, err := h.conn.Write(data); err != nil {
		return SendFailure
	}
	return SendSuccess
}

// writeCloseFrameLocked writes a Close frame without touching
// closeHandshake state; callers decide the resulting transition
// (sendCloseLocked for client-initiated closes, the Close-frame
// dispatch/retry paths for echoing a peer-initiated close).
func (h *Handler) writeCloseFrameLocked(code uint16, reason string) SendResult {
	return h.writeFrameLocked(true, OpcodeClose, EncodeClosePayload(code, reason))
}

func (h *Handler) sendCloseLocked(code uint16, reason string) SendResult {
	if h.closeHandshake != closeNone {
		return SendClosed
	}
	res := h.writeCloseFrameLocked(code, reason)
	if res == SendSuccess {
		h.closeSentTime = time.Now()
		h.closeHandshake = closeClientInitiated
	}
	return res
}

func (h *Handler) sendClose(code uint16, reason string) SendResult {
	h.mu.Lock()
	res := h.sendCloseLocked(code, reason)
	h.mu.Unlock()
	h.observeSend(res)
	return res
}

func (h *Handler) sendPingLocked(payload []byte) SendResult {
	if h.closeHandshake != closeNone {
		return SendClosed
	}
	res := h.writeFrameLocked(true, OpcodePing, payload)
	if res == SendSuccess {
		h.awaitingPong = true
	}
	return res
}

func (h *Handler) sendPing(payload []byte) SendResult {
	h.mu.Lock()
	res := h.sendPingLocked(payload)
	h.mu.Unlock()
	h.observeSend(res)
	return res
}

func (h *Handler) sendPongLocked(payload []byte) SendResult {
	if h.closeHandshake != closeNone {
		return SendClosed
	}
	return h.writeFrameLocked(true, OpcodePong, payload)
}

func (h *Handler) sendPong(payload []byte) SendResult {
	h.mu.Lock()
	res := h.sendPongLocked(payload)
	h.mu.Unlock()
	h.observeSend(res)
	return res
}

// sendData implements fragmented and unfragmented sends. A finite
// maxFrameSize splits the payload into a first frame with the data
// opcode and FIN=0, zero or more Continuation frames with FIN=0, and a
// final Continuation frame with FIN=1 — per RFC 6455 and spec.md's
// explicit instruction to implement this correctly rather than refuse it.
func (h *Handler) sendData(opCode DataOpCode, payload []byte, maxFrameSize int) SendResult {
	res := h.sendDataImpl(opCode, payload, maxFrameSize)
	h.observeSend(res)
	return res
}

// sendDataImpl acquires the lock itself, unlike the *Locked helpers in
// this file, and holds it across every writeFrameLocked call so all
// frames of a fragmented send go out within one critical section.
func (h *Handler) sendDataImpl(opCode DataOpCode, payload []byte, maxFrameSize int) SendResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closeHandshake != closeNone {
		return SendClosed
	}

	wireOpcode := OpcodeText
	if opCode == DataBinary {
		wireOpcode = OpcodeBinary
	}

	if maxFrameSize == UnlimitedFrameSize || len(payload) <= maxFrameSize || len(payload) == 0 {
		return h.writeFrameLocked(true, wireOpcode, payload)
	}

	offset := 0
	opcode := wireOpcode
	for offset < len(payload) {
		end := offset + maxFrameSize
		final := false
		if end >= len(payload) {
			end = len(payload)
			final = true
		}
		res := h.writeFrameLocked(final, opcode, payload[offset:end])
		if res != SendSuccess {
			return res
		}
		offset = end
		opcode = OpcodeContinuation
	}
	return SendSuccess
}
