package ws

import "testing"

func TestSendersZeroValueIsNoImplementation(t *testing.T) {
	var s Senders
	res, ok := s.SendData(DataText, []byte("x"), 0).Poll()
	if !ok || res != SendNoImplementation {
		t.Fatalf("zero-value Senders.SendData: got (%v, %v), want (SendNoImplementation, true)", res, ok)
	}
	if res, _ := s.SendClose(CloseNormal, "").Poll(); res != SendNoImplementation {
		t.Errorf("zero-value Senders.SendClose: got %v, want SendNoImplementation", res)
	}
	if res, _ := s.SendPing(nil).Poll(); res != SendNoImplementation {
		t.Errorf("zero-value Senders.SendPing: got %v, want SendNoImplementation", res)
	}
	if res, _ := s.SendPong(nil).Poll(); res != SendNoImplementation {
		t.Errorf("zero-value Senders.SendPong: got %v, want SendNoImplementation", res)
	}
	// Close on the zero value must not panic.
	s.Close()
}

func TestSendersClosedDistinctFromNoImplementation(t *testing.T) {
	calls := 0
	s := NewSenders(
		func(DataOpCode, []byte, int) SendResult { calls++; return SendSuccess },
		func(uint16, string) SendResult { calls++; return SendSuccess },
		func([]byte) SendResult { calls++; return SendSuccess },
		func([]byte) SendResult { calls++; return SendSuccess },
	)

	if res, _ := s.SendData(DataText, []byte("hi"), 0).Poll(); res != SendSuccess {
		t.Fatalf("expected SendSuccess before Close, got %v", res)
	}

	s.Close()

	if res, _ := s.SendData(DataText, []byte("hi"), 0).Poll(); res != SendClosed {
		t.Errorf("post-Close SendData: got %v, want SendClosed", res)
	}
	if res, _ := s.SendClose(CloseNormal, "").Poll(); res != SendClosed {
		t.Errorf("post-Close SendClose: got %v, want SendClosed", res)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call to have reached the bound funcs before Close, got %d", calls)
	}
}

func TestSendersCopiesShareImpl(t *testing.T) {
	s := NewSenders(
		func(DataOpCode, []byte, int) SendResult { return SendSuccess },
		func(uint16, string) SendResult { return SendSuccess },
		func([]byte) SendResult { return SendSuccess },
		func([]byte) SendResult { return SendSuccess },
	)
	copyOfS := s
	s.Close()

	if res, _ := copyOfS.SendData(DataText, []byte("hi"), 0).Poll(); res != SendClosed {
		t.Errorf("a copy of a closed Senders should also observe SendClosed, got %v", res)
	}
}
