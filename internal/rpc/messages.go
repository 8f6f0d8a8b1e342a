package rpc

import (
	"banker/internal/account"
	"banker/internal/ledger"
	"banker/internal/money"
	"banker/internal/shadow"
)

// GetAccountRequest and its response implement the GetAccount RPC used
// by both ShadowAccounts.ActivateAccount/SyncFrom and by
// administrative tooling.
type GetAccountRequest struct {
	Key string `json:"key"`
}

type GetAccountResponse struct {
	Account *account.Account `json:"account"`
}

// ApplyDeltaRequest and its response carry a shadow's syncTo delta and
// the master's resulting snapshot plus next expected sequence.
type ApplyDeltaRequest struct {
	Key      string       `json:"key"`
	ShadowID string       `json:"shadowId"`
	Seq      int64        `json:"seq"`
	Delta    shadow.Delta `json:"delta"`
}

type ApplyDeltaResponse struct {
	Account *account.Account `json:"account"`
	NextSeq int64            `json:"nextSeq"`
}

// SetBudgetRequest carries a root account's target budget.
type SetBudgetRequest struct {
	Key    string       `json:"key"`
	Amount money.Amount `json:"amount"`
}

type SetBudgetResponse struct{}

// SetAvailableRequest carries a target available balance and recycle
// mode for a nested account.
type SetAvailableRequest struct {
	Key    string       `json:"key"`
	Amount money.Amount `json:"amount"`
	Mode   string       `json:"mode"`
}

type SetAvailableResponse struct{}

// CreateAccountRequest creates a Budget or Spend account at Key.
type CreateAccountRequest struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

type CreateAccountResponse struct{}

// RecuperateRequest sweeps an account's available funds back up to
// its parent.
type RecuperateRequest struct {
	Key string `json:"key"`
}

type RecuperateResponse struct{}

// GetAccountSummaryRequest/-Response expose the subtree aggregation
// operation over RPC.
type GetAccountSummaryRequest struct {
	Key string `json:"key"`
}

type GetAccountSummaryResponse struct {
	Summary *ledger.AccountSummary `json:"summary"`
}

// ErrorResponse carries a typed bankerrors failure back to the caller
// when a handler returns one. It is JSON-encoded into the gRPC status
// message rather than sent as a normal response message, so it rides
// along even on the error path that never reaches Unmarshal.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
