package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonListenRequest)
	if Reason(err) != ReasonListenRequest {
		t.Fatalf("expected reason %s, got %s", ReasonListenRequest, Reason(err))
	}
	if !HasReason(err, ReasonListenRequest) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonMicPermission)
	second := Wrap(first, ReasonTransportSend)
	if Reason(second) != ReasonMicPermission {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ReasonPlayback) != nil {
		t.Fatalf("expected nil for nil error")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
