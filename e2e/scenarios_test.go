package e2e

import (
	"context"
	"fmt"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/momentics/urlreq/core"
	"github.com/momentics/urlreq/engine"
	httpreq "github.com/momentics/urlreq/http"
	"github.com/momentics/urlreq/internal/mockserver"
	"github.com/momentics/urlreq/mimepart"
	"github.com/momentics/urlreq/ws"
)

// zeroReader streams n '0' bytes without ever holding them all in
// memory, the same streaming shape mimepart's own test uses.
type zeroReader struct {
	remaining int64
	pos       int64
}

func (z *zeroReader) read(buf []byte) (int, error) {
	if z.remaining <= 0 {
		return 0, io.EOF
	}
	n := int64(len(buf))
	if n > z.remaining {
		n = z.remaining
	}
	for i := int64(0); i < n; i++ {
		buf[i] = '0'
	}
	z.remaining -= n
	z.pos += n
	return int(n), nil
}

func (z *zeroReader) seek(offset int64, whence int) (int64, error) {
	return z.pos, nil
}

var _ = Describe("urlreq end-to-end scenarios", func() {
	var (
		mock *mockserver.Server
		eng  *engine.Engine
	)

	BeforeEach(func() {
		mock = mockserver.New()
		cfg := engine.DefaultConfig()
		cfg.PollTimeout = 10 * time.Millisecond
		cfg.ShutdownPollInterval = 10 * time.Millisecond
		eng = engine.New(cfg)
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		eng.Shutdown(ctx)
		mock.Close()
	})

	It("returns 200 and the expected body for a plain GET", func() {
		done := make(chan httpreq.Response, 1)
		err := eng.SubmitHTTP(httpreq.Request{
			Method: httpreq.MethodGet,
			URL:    mock.URL() + "/test/url/http/get200",
		}, func(rc core.ResponseCode, resp httpreq.Response) {
			Expect(rc).To(Equal(core.ResponseSuccess))
			done <- resp
		})
		Expect(err).NotTo(HaveOccurred())

		var resp httpreq.Response
		Eventually(done, 2*time.Second).Should(Receive(&resp))
		Expect(resp.Code).To(Equal(200))
		Expect(string(resp.Content)).To(Equal("GET test response SUCCESS"))
	})

	It("delivers a body containing embedded NUL bytes byte-exact", func() {
		done := make(chan httpreq.Response, 1)
		err := eng.SubmitHTTP(httpreq.Request{
			Method: httpreq.MethodGet,
			URL:    mock.URL() + "/test/url/http/get/containsnull",
		}, func(rc core.ResponseCode, resp httpreq.Response) {
			done <- resp
		})
		Expect(err).NotTo(HaveOccurred())

		var resp httpreq.Response
		Eventually(done, 2*time.Second).Should(Receive(&resp))
		Expect(resp.Content).To(HaveLen(34))
		Expect(string(resp.Content)).To(Equal("GET test response contains \x00 and \x00"))
	})

	It("round-trips an unencoded form POST", func() {
		done := make(chan httpreq.Response, 1)
		err := eng.SubmitHTTP(httpreq.Request{
			Method:               httpreq.MethodPost,
			URL:                  mock.URL() + "/test/url/http/post/form/no-encoding",
			PostUrlEncodedValues: "name=Paul&handle=LinuxBrickie",
		}, func(rc core.ResponseCode, resp httpreq.Response) {
			done <- resp
		})
		Expect(err).NotTo(HaveOccurred())

		var resp httpreq.Response
		Eventually(done, 2*time.Second).Should(Receive(&resp))
		Expect(string(resp.Content)).To(Equal("LinuxBrickie, your real name is Paul!"))
	})

	It("streams a large MIME part without buffering it whole", func() {
		// Scaled down from the full-scenario size (1,000,000,000 bytes)
		// to keep this suite fast; the streaming path exercised here
		// (mimepart.DataReader, never materializing the part in memory)
		// is identical at either size.
		const total = 1 << 20

		zr := &zeroReader{remaining: total}
		done := make(chan httpreq.Response, 1)
		err := eng.SubmitHTTP(httpreq.Request{
			Method: httpreq.MethodPost,
			URL:    mock.URL() + "/test/url/http/post/mime/form/large",
			MimePost: mimepart.Mime{Parts: []mimepart.Part{{
				Name: "large",
				Reader: mimepart.DataReader{
					Read:          zr.read,
					Seek:          zr.seek,
					TotalNumBytes: total,
				},
			}}},
		}, func(rc core.ResponseCode, resp httpreq.Response) {
			done <- resp
		})
		Expect(err).NotTo(HaveOccurred())

		var resp httpreq.Response
		Eventually(done, 10*time.Second).Should(Receive(&resp))
		Expect(string(resp.Content)).To(Equal(fmt.Sprintf("Processed %d bytes of data from MIME part", total)))
	})

	It("completes the hello challenge/response and close handshake", func() {
		textCh := make(chan string, 4)
		ctrlCh := make(chan byte, 4)
		recv := ws.NewReceivers(
			func(connID uint64, opCode ws.DataOpCode, message []byte) { textCh <- string(message) },
			func(connID uint64, opCode byte, payload []byte) { ctrlCh <- opCode },
		)

		respCh := make(chan ws.Response, 1)
		err := eng.SubmitWS(ws.Request{
			URL:       fmt.Sprintf("ws://%s/test/url/ws/hello", mock.Addr()),
			Receivers: recv,
		}, func(rc core.ResponseCode, resp ws.Response) {
			Expect(rc).To(Equal(core.ResponseSuccess))
			respCh <- resp
		})
		Expect(err).NotTo(HaveOccurred())

		var resp ws.Response
		Eventually(respCh, 2*time.Second).Should(Receive(&resp))
		Expect(resp.ConnectionID).NotTo(BeZero())

		sendRes, ok := resp.Senders.SendData(ws.DataText, []byte("Hello world!"), 0).Poll()
		Expect(ok).To(BeTrue())
		Expect(sendRes).To(Equal(ws.SendSuccess))

		var reply string
		Eventually(textCh, 2*time.Second).Should(Receive(&reply))
		Expect(reply).To(Equal("Hi there!"))

		closeRes, ok := resp.Senders.SendClose(ws.CloseNormal, "Client initiating close").Poll()
		Expect(ok).To(BeTrue())
		Expect(closeRes).To(Equal(ws.SendSuccess))

		var ctrlOp byte
		Eventually(ctrlCh, 2*time.Second).Should(Receive(&ctrlOp))
		Expect(ctrlOp).To(Equal(ws.OpcodeClose))

		Eventually(func() ws.SendResult {
			res, ok := resp.Senders.SendData(ws.DataText, []byte("too late"), 0).Poll()
			if !ok {
				return -1
			}
			return res
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(ws.SendClosed))
	})

	It("tears down on a server-initiated close", func() {
		ctrlCh := make(chan struct {
			op      byte
			payload []byte
		}, 4)
		recv := ws.NewReceivers(nil, func(connID uint64, opCode byte, payload []byte) {
			ctrlCh <- struct {
				op      byte
				payload []byte
			}{opCode, payload}
		})

		respCh := make(chan ws.Response, 1)
		err := eng.SubmitWS(ws.Request{
			URL:       fmt.Sprintf("ws://%s/test/url/ws/goodbye", mock.Addr()),
			Receivers: recv,
		}, func(rc core.ResponseCode, resp ws.Response) {
			respCh <- resp
		})
		Expect(err).NotTo(HaveOccurred())

		var resp ws.Response
		Eventually(respCh, 2*time.Second).Should(Receive(&resp))

		sendRes, ok := resp.Senders.SendData(ws.DataText, []byte("SEND BACK CONTROL CLOSE"), 0).Poll()
		Expect(ok).To(BeTrue())
		Expect(sendRes).To(Equal(ws.SendSuccess))

		var ev struct {
			op      byte
			payload []byte
		}
		Eventually(ctrlCh, 2*time.Second).Should(Receive(&ev))
		Expect(ev.op).To(Equal(ws.OpcodeClose))
		code, reason := ws.DecodeClosePayload(ev.payload)
		Expect(code).To(Equal(ws.CloseNormal))
		Expect(reason).To(Equal("Server initiating close"))

		Eventually(func() ws.SendResult {
			res, ok := resp.Senders.SendData(ws.DataText, []byte("too late"), 0).Poll()
			if !ok {
				return -1
			}
			return res
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(ws.SendClosed))
	})

	It("forcibly tears down a persisting connection when the engine shuts down mid-flight", func() {
		cfg := engine.DefaultConfig()
		cfg.PollTimeout = 200 * time.Millisecond
		raceEngine := engine.New(cfg)

		respCh := make(chan ws.Response, 1)
		err := raceEngine.SubmitWS(ws.Request{
			URL:          fmt.Sprintf("ws://%s/test/url/ws/hello", mock.Addr()),
			CloseTimeout: time.Millisecond,
		}, func(rc core.ResponseCode, resp ws.Response) {
			respCh <- resp
		})
		Expect(err).NotTo(HaveOccurred())

		// No assertion on whether the server-side echo was observed:
		// only that shutdown completes and does not hang.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		shutdownErr := raceEngine.Shutdown(ctx)
		Expect(shutdownErr).NotTo(HaveOccurred())
	})
})
