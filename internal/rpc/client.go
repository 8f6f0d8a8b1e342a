package rpc

import (
	"context"
	"time"

	"banker/internal/account"
	"banker/internal/shadow"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Client implements shadow.MasterClient over gRPC, so a bidder process
// can run the same sync protocol against a remote master that
// internal/ledger.Accounts satisfies in-process. The transport is
// assumed reliable but not synchronous, so Client supplies its own
// retries; the master itself assumes an idempotent, already-retried
// caller.
type Client struct {
	conn *grpc.ClientConn

	// maxRetries bounds the retry loop for transient failures
	// (Unavailable, DeadlineExceeded, ResourceExhausted). A stale-sync failure is never
	// retried here: recovering from it requires a SyncFrom the caller
	// must drive itself, and it surfaces as a *bankerrors.RemoteError
	// rather than the *bankerrors.StaleSync an in-process caller sees.
	maxRetries int
	backoff    time.Duration
}

// Dial connects to a master's rpc.Server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, maxRetries: 3, backoff: 50 * time.Millisecond}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		lastErr = c.conn.Invoke(ctx, serviceName+"/"+method, req, resp)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return unwrapError(lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
	return unwrapError(lastErr)
}

func isRetryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// GetAccount implements shadow.MasterClient.
func (c *Client) GetAccount(ctx context.Context, key account.Key) (*account.Account, error) {
	req := &GetAccountRequest{Key: key.String()}
	resp := &GetAccountResponse{}
	if err := c.invoke(ctx, "GetAccount", req, resp); err != nil {
		return nil, err
	}
	return resp.Account, nil
}

// ApplyDelta implements shadow.MasterClient. A StaleSync response is
// returned to the caller untouched: retrying it here would only
// repeat the same rejected sequence number.
func (c *Client) ApplyDelta(ctx context.Context, key account.Key, shadowID string, seq int64, delta shadow.Delta) (*account.Account, int64, error) {
	req := &ApplyDeltaRequest{Key: key.String(), ShadowID: shadowID, Seq: seq, Delta: delta}
	resp := &ApplyDeltaResponse{}
	if err := c.invoke(ctx, "ApplyDelta", req, resp); err != nil {
		return nil, 0, err
	}
	return resp.Account, resp.NextSeq, nil
}

// Recuperate sweeps key's available funds back up to its parent on
// the master.
func (c *Client) Recuperate(ctx context.Context, key account.Key) error {
	req := &RecuperateRequest{Key: key.String()}
	resp := &RecuperateResponse{}
	return c.invoke(ctx, "Recuperate", req, resp)
}

var _ shadow.MasterClient = (*Client)(nil)
