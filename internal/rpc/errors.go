package rpc

import (
	"encoding/json"

	"banker/internal/bankerrors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// wrapError converts a bankerrors failure into a gRPC status whose
// message is the JSON encoding of an ErrorResponse, so unwrapError on
// the other end can recover the failure's kind. Errors bankerrors
// does not recognize (context cancellation, transport failures) pass
// through status.FromError's usual codes.Unknown handling untouched.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	kind := bankerrors.Kind(err)
	if kind == "" {
		return err
	}
	body, marshalErr := json.Marshal(ErrorResponse{Kind: kind, Message: err.Error()})
	if marshalErr != nil {
		return err
	}
	return status.Error(codes.FailedPrecondition, string(body))
}

// unwrapError recovers a bankerrors.RemoteError from a status produced
// by wrapError. Errors that never went through wrapError (dial
// failures, deadline exceeded, a raw status from a non-Banker
// endpoint) are returned unchanged.
func unwrapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.FailedPrecondition {
		return err
	}
	var resp ErrorResponse
	if jsonErr := json.Unmarshal([]byte(st.Message()), &resp); jsonErr != nil {
		return err
	}
	return &bankerrors.RemoteError{KindName: resp.Kind, Message: resp.Message}
}
