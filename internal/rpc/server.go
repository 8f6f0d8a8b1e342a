package rpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"banker/internal/account"
	"banker/internal/bankerrors"
	"banker/internal/ledger"
	"banker/internal/observability"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server adapts a *ledger.Accounts to the BankerServer RPC surface and
// hosts it on a gRPC listener, mirroring the master's original gRPC
// wiring: a plain grpc.Server plus the standard health service and
// context-driven graceful shutdown.
type Server struct {
	accounts *ledger.Accounts
	logger   zerolog.Logger
	metrics  *observability.Metrics

	grpcServer *grpc.Server
	health     *health.Server
	addr       string
}

// NewServer builds a Server that will listen on addr once Serve is
// called. metrics may be nil, in which case RPC handling records
// nothing.
func NewServer(addr string, accounts *ledger.Accounts, logger zerolog.Logger, metrics *observability.Metrics) *Server {
	grpcServer := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	healthServer := health.NewServer()

	s := &Server{
		accounts:   accounts,
		logger:     logger.With().Str("component", "rpc").Logger(),
		metrics:    metrics,
		grpcServer: grpcServer,
		health:     healthServer,
		addr:       addr,
	}

	RegisterBankerServer(grpcServer, s)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	return s
}

// Serve listens on s.addr and blocks until ctx is cancelled, then
// gracefully stops.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc: listen on %s: %w", s.addr, err)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("rpc server shutting down")
		s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
		s.grpcServer.GracefulStop()
	}()

	s.logger.Info().Str("addr", s.addr).Msg("rpc server listening")
	return s.grpcServer.Serve(lis)
}

// record instruments a handler call with its method name, result and
// latency. Call it via defer with a named err return.
func (s *Server) record(method string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.RPCRequests.WithLabelValues(method, result).Inc()
	s.metrics.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (s *Server) GetAccount(ctx context.Context, req *GetAccountRequest) (resp *GetAccountResponse, err error) {
	defer func(start time.Time) { s.record("GetAccount", start, err) }(time.Now())
	acc, err := s.accounts.GetAccount(ctx, account.ParseKey(req.Key))
	if err != nil {
		return nil, wrapError(err)
	}
	return &GetAccountResponse{Account: acc}, nil
}

func (s *Server) ApplyDelta(ctx context.Context, req *ApplyDeltaRequest) (resp *ApplyDeltaResponse, err error) {
	defer func(start time.Time) { s.record("ApplyDelta", start, err) }(time.Now())
	acc, newSeq, err := s.accounts.ApplyDelta(ctx, account.ParseKey(req.Key), req.ShadowID, req.Seq, req.Delta)
	if err != nil {
		return nil, wrapError(err)
	}
	return &ApplyDeltaResponse{Account: acc, NextSeq: newSeq}, nil
}

func (s *Server) SetBudget(ctx context.Context, req *SetBudgetRequest) (resp *SetBudgetResponse, err error) {
	defer func(start time.Time) { s.record("SetBudget", start, err) }(time.Now())
	if err = s.accounts.SetBudget(account.ParseKey(req.Key), req.Amount); err != nil {
		return nil, wrapError(err)
	}
	return &SetBudgetResponse{}, nil
}

func (s *Server) SetAvailable(ctx context.Context, req *SetAvailableRequest) (resp *SetAvailableResponse, err error) {
	defer func(start time.Time) { s.record("SetAvailable", start, err) }(time.Now())
	mode := ledger.ParseRecycleMode(req.Mode)
	if err = s.accounts.SetAvailable(account.ParseKey(req.Key), req.Amount, mode); err != nil {
		return nil, wrapError(err)
	}
	return &SetAvailableResponse{}, nil
}

func (s *Server) CreateAccount(ctx context.Context, req *CreateAccountRequest) (resp *CreateAccountResponse, err error) {
	defer func(start time.Time) { s.record("CreateAccount", start, err) }(time.Now())
	key := account.ParseKey(req.Key)
	switch req.Type {
	case "budget":
		err = s.accounts.CreateBudgetAccount(key)
	case "spend":
		err = s.accounts.CreateSpendAccount(key)
	default:
		err = &bankerrors.TypeMismatch{Key: req.Key, ExpectedType: "budget or spend", ActualType: req.Type}
		return nil, wrapError(err)
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return &CreateAccountResponse{}, nil
}

func (s *Server) Recuperate(ctx context.Context, req *RecuperateRequest) (resp *RecuperateResponse, err error) {
	defer func(start time.Time) { s.record("Recuperate", start, err) }(time.Now())
	if err = s.accounts.Recuperate(account.ParseKey(req.Key)); err != nil {
		return nil, wrapError(err)
	}
	return &RecuperateResponse{}, nil
}

func (s *Server) GetAccountSummary(ctx context.Context, req *GetAccountSummaryRequest) (resp *GetAccountSummaryResponse, err error) {
	defer func(start time.Time) { s.record("GetAccountSummary", start, err) }(time.Now())
	summary, err := s.accounts.GetAccountSummary(account.ParseKey(req.Key))
	if err != nil {
		return nil, wrapError(err)
	}
	return &GetAccountSummaryResponse{Summary: summary}, nil
}
