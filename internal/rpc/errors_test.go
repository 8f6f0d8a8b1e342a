package rpc

import (
	"errors"
	"testing"

	"banker/internal/bankerrors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapUnwrapErrorRoundTrip(t *testing.T) {
	original := &bankerrors.StaleSync{
		Account:   "campaign:strategy",
		ShadowID:  "bidder-1",
		MasterSeq: 4,
		ClientSeq: 2,
	}

	wrapped := wrapError(original)
	st, ok := status.FromError(wrapped)
	if !ok {
		t.Fatalf("wrapError did not produce a gRPC status")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("status code = %v, want FailedPrecondition", st.Code())
	}

	got := unwrapError(wrapped)
	if !bankerrors.IsStaleSync(got) {
		t.Fatalf("unwrapError(%v) = %v, want a stale-sync failure", wrapped, got)
	}
	if got.Error() != original.Error() {
		t.Fatalf("unwrapError message = %q, want %q", got.Error(), original.Error())
	}
}

func TestWrapErrorPassesThroughUnrecognizedErrors(t *testing.T) {
	plain := errors.New("boom")
	if wrapError(plain) != plain {
		t.Fatalf("wrapError should pass through an error bankerrors does not recognize")
	}
}

func TestUnwrapErrorPassesThroughTransportFailures(t *testing.T) {
	transportErr := status.Error(codes.Unavailable, "connection refused")
	if unwrapError(transportErr) != transportErr {
		t.Fatalf("unwrapError should not touch a non-FailedPrecondition status")
	}
}

func TestUnwrapErrorNil(t *testing.T) {
	if unwrapError(nil) != nil {
		t.Fatalf("unwrapError(nil) should be nil")
	}
}
