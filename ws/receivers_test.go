package ws

import "testing"

func TestReceiversDispatch(t *testing.T) {
	var gotData []byte
	var gotCtrl byte

	r := NewReceivers(
		func(connID uint64, op DataOpCode, msg []byte) { gotData = msg },
		func(connID uint64, op byte, payload []byte) { gotCtrl = op },
	)

	if ok := r.ReceiveData(1, DataText, []byte("hello")); !ok {
		t.Fatal("ReceiveData returned false for an active Receivers")
	}
	if string(gotData) != "hello" {
		t.Errorf("got %q, want %q", gotData, "hello")
	}
	if ok := r.ReceiveControl(1, OpcodePing, nil); !ok {
		t.Fatal("ReceiveControl returned false for an active Receivers")
	}
	if gotCtrl != OpcodePing {
		t.Errorf("got %v, want OpcodePing", gotCtrl)
	}
}

func TestReceiversStopReceiving(t *testing.T) {
	calls := 0
	r := NewReceivers(
		func(uint64, DataOpCode, []byte) { calls++ },
		func(uint64, byte, []byte) { calls++ },
	)
	r.StopReceiving()

	if ok := r.ReceiveData(1, DataText, []byte("x")); ok {
		t.Error("ReceiveData should return false after StopReceiving")
	}
	if ok := r.ReceiveControl(1, OpcodePing, nil); ok {
		t.Error("ReceiveControl should return false after StopReceiving")
	}
	if calls != 0 {
		t.Errorf("expected no callbacks invoked after StopReceiving, got %d", calls)
	}
}

func TestReceiversNilCallablesReturnFalse(t *testing.T) {
	r := NewReceivers(nil, nil)
	if ok := r.ReceiveData(1, DataText, []byte("x")); ok {
		t.Error("ReceiveData with a nil callable should return false")
	}
	if ok := r.ReceiveControl(1, OpcodePing, nil); ok {
		t.Error("ReceiveControl with a nil callable should return false")
	}
}

func TestReceiversZeroValue(t *testing.T) {
	var r Receivers
	if ok := r.ReceiveData(1, DataText, []byte("x")); ok {
		t.Error("zero-value Receivers.ReceiveData should return false")
	}
	r.StopReceiving() // must not panic
}
