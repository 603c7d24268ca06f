// Package api serves the HTTP interface: token and governance queries
// answered straight from chain state, transfer history from the PostgreSQL
// projection, and message submission.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mshankarrao/Investment-dao/contract/governor"
	"github.com/mshankarrao/Investment-dao/contract/token"
	"github.com/mshankarrao/Investment-dao/internal/chain"
	"github.com/mshankarrao/Investment-dao/internal/storage"
)

// Chain is the slice of the dev chain the API serves.
type Chain interface {
	Height() uint64
	LastBlockTime() time.Time
	Metadata() token.Metadata
	TotalSupply() *big.Int
	BalanceOf(account common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int
	HolderBalances() (map[common.Address]*big.Int, uint64, time.Time)
	Proposal(id uint32) (governor.Proposal, error)
	Proposals() []governor.Proposal
	Tally(id uint32) (governor.Tally, error)
	GovernorParams() governor.Params
	TreasuryAddress() common.Address
	TreasuryBalance() *big.Int
	EventsSince(since uint64, limit int) []chain.Record
	Submit(from common.Address, msg chain.Msg) (*chain.Receipt, error)
}

// ProjectionStore is the slice of the storage layer the API reads.
type ProjectionStore interface {
	Transfers(ctx context.Context, account string, limit int) ([]storage.TransferRow, error)
	LatestSnapshots(ctx context.Context) ([]storage.SnapshotRow, error)
}

// Server routes HTTP requests to the chain and the projection store.
type Server struct {
	chain    Chain
	store    ProjectionStore
	decimals uint8
	logger   *slog.Logger
	router   chi.Router
}

// NewServer wires the router. healthHandler serves GET /health; everything
// else lives under /v1.
func NewServer(c Chain, store ProjectionStore, healthHandler http.HandlerFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		chain:    c,
		store:    store,
		decimals: c.Metadata().Decimals,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", healthHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/token", s.handleToken)
		r.Get("/holders", s.handleHolders)
		r.Get("/balances/{account}", s.handleBalance)
		r.Get("/allowances/{owner}/{spender}", s.handleAllowance)
		r.Get("/proposals", s.handleProposals)
		r.Get("/proposals/{id}", s.handleProposal)
		r.Get("/transfers", s.handleTransfers)
		r.Get("/snapshots", s.handleSnapshots)
		r.Get("/events", s.handleEvents)
		r.Post("/txs", s.handleSubmit)
	})

	s.router = r
	return s
}

// Router returns the configured handler for mounting on an http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
