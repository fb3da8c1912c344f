package engine

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/urlreq/affinity"
	"github.com/momentics/urlreq/core"
	"github.com/momentics/urlreq/http"
	"github.com/momentics/urlreq/transport"
	"github.com/momentics/urlreq/version"
	"github.com/momentics/urlreq/ws"
)

// Engine owns the poller goroutine and the three pieces of state
// RequestEngine manages in the original: a pending queue, an active
// transfer map, and a persisting-connection map. One goroutine, started
// by New, runs the four-step poll loop until Shutdown.
type Engine struct {
	cfg Config

	pendingMu sync.Mutex
	pending   *queue.Queue

	// active is touched only by the poll-loop goroutine, per the
	// "engine goroutine is sole mutator" invariant.
	active map[transferID]*pendingRequest

	persistingMu sync.Mutex
	persisting   map[transferID]*ws.Handler

	doneCh chan doneResult

	running atomic.Bool
	done    chan struct{}

	metrics *metrics

	// poller and connFD implement the epoll-backed early wake-up
	// described on transport.Poller: when a persisting
	// connection's fd is registered, step 2 of run's loop wakes as soon
	// as epoll reports it readable instead of waiting the full
	// PollTimeout. updatePersisting's full scan remains the correctness
	// source of truth regardless, so a missed or spurious wake-up never
	// drops data — it only changes latency.
	poller transport.Poller
	connFD map[transferID]uintptr
}

// New starts the engine's poller goroutine and returns immediately.
// A nil cfg uses DefaultConfig.
func New(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.ShutdownPollInterval <= 0 {
		c.ShutdownPollInterval = c.PollTimeout
	}

	transport.GlobalInit()

	e := &Engine{
		cfg:        c,
		pending:    queue.New(),
		active:     make(map[transferID]*pendingRequest),
		persisting: make(map[transferID]*ws.Handler),
		doneCh:     make(chan doneResult, 64),
		done:       make(chan struct{}),
		connFD:     make(map[transferID]uintptr),
	}
	if c.EnableMetrics {
		e.metrics = newMetrics()
	}
	if p, err := transport.NewPoller(); err != nil {
		c.Logger.Printf("engine: poller unavailable, falling back to fixed-interval poll: %v", err)
	} else {
		e.poller = p
	}
	e.running.Store(true)

	go e.run()
	return e
}

// GlobalInitOK reports whether the package-level transport
// initialization succeeded. Grounded on
// Requester::wasGlobalInitSuccessful.
func GlobalInitOK() bool { return transport.GlobalInitOK() }

// TransportVersion reports the version string of the underlying
// transport, the Go analogue of the original's getCurlVersion().
func TransportVersion() string { return version.TransportVersion() }

// SubmitHTTP enqueues an HTTP request. completion is invoked exactly
// once, on the engine goroutine. Go has no overloading, hence the
// SubmitHTTP/SubmitWS split standing in for the original's two
// makeRequest overloads.
func (e *Engine) SubmitHTTP(req http.Request, completion http.Completion) error {
	if !e.running.Load() {
		return &Error{Op: "SubmitHTTP", Err: ErrEngineClosed}
	}
	item := &pendingRequest{id: newTransferID(), kind: kindHTTP, httpReq: req, httpComplete: completion}
	return e.enqueue(item)
}

// SubmitWS enqueues a WebSocket upgrade request.
func (e *Engine) SubmitWS(req ws.Request, completion ws.Completion) error {
	if !e.running.Load() {
		return &Error{Op: "SubmitWS", Err: ErrEngineClosed}
	}
	item := &pendingRequest{id: newTransferID(), kind: kindWS, wsReq: req, wsComplete: completion}
	return e.enqueue(item)
}

func (e *Engine) enqueue(item *pendingRequest) error {
	if e.cfg.SubmitRateLimit != nil && !e.cfg.SubmitRateLimit.Allow() {
		return &Error{Op: "Submit", Err: ErrQueueFull}
	}

	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	if e.cfg.QueueCapacity > 0 && e.pending.Length() >= e.cfg.QueueCapacity {
		return &Error{Op: "Submit", Err: ErrQueueFull}
	}
	e.pending.Add(item)
	if e.metrics != nil {
		e.metrics.submitted.WithLabelValues(kindLabel(item.kind)).Inc()
	}
	return nil
}

func kindLabel(k transferKind) string {
	if k == kindHTTP {
		return "http"
	}
	return "ws"
}

func (e *Engine) run() {
	defer close(e.done)

	if e.cfg.CPUAffinity {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := affinity.SetAffinity(e.cfg.CPUCore); err != nil {
			e.cfg.Logger.Printf("engine: affinity pin failed: %v", err)
		}
	}

	for e.running.Load() {
		// 1. Add any new requests and dispatch them immediately onto
		// their own goroutine, the Go analogue of curl_multi_perform
		// kicking off newly added easy handles.
		e.dispatchPending()

		// 2. Wait for dispatch results, bounded by PollTimeout — the
		// fan-in channel replacement for curl_multi_poll. A registered
		// Poller can wake this early when a persisting connection's
		// socket becomes readable instead of waiting out the full
		// timeout.
		wakeCh := e.pollerWait(e.cfg.PollTimeout)
		timer := time.NewTimer(e.cfg.PollTimeout)
		select {
		case result := <-e.doneCh:
			e.processResult(result)
		case <-wakeCh:
		case <-timer.C:
		}
		timer.Stop()

		// 3. Drain any further results already queued up without
		// blocking, analogous to draining curl_multi_info_read.
		e.drainResults()

		// 4. Update persisting connections, unaffected by the above.
		e.updatePersisting()
	}

	// Abort any requests that are still not complete.
	for id, req := range e.active {
		e.completeAborted(req)
		delete(e.active, id)
	}

	if e.poller != nil {
		_ = e.poller.Close()
	}
}

// pollerWait returns a channel that fires once a registered Poller
// reports at least one ready fd, bounded by timeout. If no Poller is
// registered it returns a channel that never fires, leaving the
// caller's own timer as the only wake source.
func (e *Engine) pollerWait(timeout time.Duration) <-chan struct{} {
	ch := make(chan struct{}, 1)
	if e.poller == nil {
		return ch
	}
	go func() {
		events := make([]transport.Event, 16)
		n, err := e.poller.Wait(events, int(timeout/time.Millisecond))
		if err == nil && n > 0 {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch
}

func (e *Engine) dispatchPending() {
	e.pendingMu.Lock()
	var items []*pendingRequest
	for e.pending.Length() > 0 {
		items = append(items, e.pending.Remove().(*pendingRequest))
	}
	e.pendingMu.Unlock()

	for _, item := range items {
		e.active[item.id] = item
		go e.dispatch(item)
	}
}

func (e *Engine) dispatch(item *pendingRequest) {
	switch item.kind {
	case kindHTTP:
		e.dispatchHTTP(item)
	case kindWS:
		e.dispatchWS(item)
	}
}

func (e *Engine) dispatchHTTP(item *pendingRequest) {
	h, err := http.NewHandler(item.httpReq)
	if err != nil {
		// NewHandler fails before any I/O is attempted (invalid verb),
		// the analogue of the original's "could not attach to the multi
		// handle".
		e.postDone(doneResult{id: item.id, rc: core.ResponseSendFailure})
		return
	}

	code, content, execErr := transport.ExecuteHTTP(h.Verb(), h.URL(), h.Body(), h.ContentType(), h.Headers())

	// With rc Success, Respond queries the transport for the final
	// status code per HttpHandler::respond (see http.Handler.Respond's
	// doc comment); a transport-level failure reports ok=false so
	// Respond forces ResponseFailure.
	rc, resp := h.Respond(core.ResponseSuccess, func() (int, []byte, bool) {
		if execErr != nil {
			return 0, nil, false
		}
		return code, content, true
	})
	e.postDone(doneResult{id: item.id, rc: rc, httpCode: resp.Code, httpContent: resp.Content})
}

func (e *Engine) dispatchWS(item *pendingRequest) {
	conn, status, err := transport.WebSocketUpgrade(item.wsReq.URL, nil)
	if err != nil {
		// A malformed address fails before any dial is attempted, the
		// same "could not attach" situation as dispatchHTTP's
		// NewHandler branch; a dial or handshake failure is a genuine
		// transport-level ResponseFailure.
		rc := core.ResponseFailure
		if errors.Is(err, transport.ErrMalformedAddress) {
			rc = core.ResponseSendFailure
		}
		e.postDone(doneResult{id: item.id, rc: rc, wsStatusCode: status})
		return
	}
	e.postDone(doneResult{id: item.id, rc: core.ResponseSuccess, wsConn: conn, wsStatusCode: status})
}

func (e *Engine) postDone(r doneResult) {
	select {
	case e.doneCh <- r:
	case <-e.done:
	}
}

func (e *Engine) drainResults() {
	for {
		select {
		case result := <-e.doneCh:
			e.processResult(result)
		default:
			return
		}
	}
}

func (e *Engine) processResult(result doneResult) {
	req, ok := e.active[result.id]
	if !ok {
		e.cfg.Logger.Printf("engine: result for unknown transfer %s", result.id)
		return
	}
	delete(e.active, result.id)

	switch req.kind {
	case kindHTTP:
		e.completeHTTP(req, result)
	case kindWS:
		e.completeWS(req, result)
	}
}

func (e *Engine) completeHTTP(req *pendingRequest, result doneResult) {
	if e.metrics != nil {
		e.metrics.completed.WithLabelValues("http", result.rc.String()).Inc()
	}
	req.httpComplete(result.rc, http.Response{Code: result.httpCode, Content: result.httpContent})
}

func (e *Engine) completeWS(req *pendingRequest, result doneResult) {
	handler, rc, resp, status := ws.Respond(result.wsStatusCode, wsUpgradeErr(result.rc), result.wsConn, req.wsReq, e.cfg.Logger)

	if status == core.HandlerPersisting {
		if e.metrics != nil {
			handler.SetSendObserver(func(r ws.SendResult) {
				e.metrics.sendResults.WithLabelValues(r.String()).Inc()
			})
		}
		e.persistingMu.Lock()
		e.persisting[req.id] = handler
		if e.poller != nil {
			if nc, ok := transport.NewNetConn(result.wsConn); ok {
				fd := uintptr(nc.FD())
				if err := e.poller.Register(fd, fd); err == nil {
					e.connFD[req.id] = fd
				}
			}
		}
		if e.metrics != nil {
			e.metrics.persisting.Set(float64(len(e.persisting)))
		}
		e.persistingMu.Unlock()
	}
	if e.metrics != nil {
		e.metrics.completed.WithLabelValues("ws", rc.String()).Inc()
	}
	req.wsComplete(rc, resp)
}

// wsUpgradeErr translates the dispatch goroutine's ResponseCode back
// into the error-or-nil shape ws.Respond expects, since the transport
// layer already folded dial/handshake failures into ResponseFailure.
func wsUpgradeErr(rc core.ResponseCode) error {
	if rc == core.ResponseSuccess {
		return nil
	}
	return ErrTransportInitFailed
}

func (e *Engine) updatePersisting() {
	e.persistingMu.Lock()
	defer e.persistingMu.Unlock()

	for id, handler := range e.persisting {
		if !handler.Update() {
			delete(e.persisting, id)
			if fd, ok := e.connFD[id]; ok {
				if e.poller != nil {
					_ = e.poller.Unregister(fd)
				}
				delete(e.connFD, id)
			}
		}
	}
	if e.metrics != nil {
		e.metrics.persisting.Set(float64(len(e.persisting)))
	}
}

func (e *Engine) completeAborted(req *pendingRequest) {
	switch req.kind {
	case kindHTTP:
		req.httpComplete(core.ResponseAborted, http.Response{})
	case kindWS:
		req.wsComplete(core.ResponseAborted, ws.Response{})
	}
}

// Shutdown begins a graceful close of every persisting connection, then
// waits (bounded by ctx) for them to drain before stopping the poll
// loop. Directly grounded on Requester::Private's destructor sequence:
// broadcast close, spin-wait on the persisting map, stop the thread,
// then abort whatever active work remains.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.persistingMu.Lock()
	for _, handler := range e.persisting {
		handler.Close()
	}
	e.persistingMu.Unlock()

	ticker := time.NewTicker(e.cfg.ShutdownPollInterval)
	defer ticker.Stop()
	for e.stillPersisting() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			e.running.Store(false)
			<-e.done
			return ctx.Err()
		}
	}

	e.running.Store(false)
	<-e.done
	return nil
}

func (e *Engine) stillPersisting() bool {
	e.persistingMu.Lock()
	defer e.persistingMu.Unlock()
	return len(e.persisting) > 0
}
