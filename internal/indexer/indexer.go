// Package indexer projects the chain's record log into PostgreSQL.
//
// Records arrive on the event bus, which delivers them on the submitter's
// goroutine while the chain still holds its write lock. The subscriber only
// enqueues onto a buffered channel; a background loop batches rows and
// writes them with pgx. When the buffer fills, enqueue blocks and the chain
// absorbs the backpressure. Writes are at-least-once: a failed flush keeps
// its records pending and retries on the next tick, and a run that replays
// the log converges through the proposal and vote upserts.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/mshankarrao/Investment-dao/contract"
	"github.com/mshankarrao/Investment-dao/internal/chain"
	"github.com/mshankarrao/Investment-dao/internal/events"
	"github.com/mshankarrao/Investment-dao/internal/storage"
)

// Store is the slice of the PostgreSQL layer the indexer writes through.
type Store interface {
	BatchInsertTransfers(ctx context.Context, rows []storage.TransferRow) error
	BatchInsertApprovals(ctx context.Context, rows []storage.ApprovalRow) error
	BatchInsertSnapshots(ctx context.Context, rows []storage.SnapshotRow) error
	UpsertProposal(ctx context.Context, row storage.ProposalRow) error
	InsertVote(ctx context.Context, row storage.VoteRow) error
	MarkProposalExecuted(ctx context.Context, id uint32) error
}

// BalanceSource yields the holder set for a balance snapshot.
type BalanceSource interface {
	HolderBalances() (map[common.Address]*big.Int, uint64, time.Time)
}

// Options tunes the indexer's batching. Zero values pick the defaults.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	Buffer        int
	Clock         clockwork.Clock
	Logger        *slog.Logger
}

const (
	defaultBatchSize     = 64
	defaultFlushInterval = 2 * time.Second
	defaultBuffer        = 1024
)

// Indexer consumes chain records and writes projection rows.
type Indexer struct {
	store         Store
	decimals      uint8
	clock         clockwork.Clock
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	buf      chan chain.Record
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates an indexer writing through store. decimals is the token's
// display precision, used to derive human-unit row columns.
func New(store Store, decimals uint8, opts Options) *Indexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Indexer{
		store:         store,
		decimals:      decimals,
		clock:         opts.Clock,
		logger:        opts.Logger,
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
		buf:           make(chan chain.Record, opts.Buffer),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start subscribes to the bus and launches the flush loop. Call before the
// chain is constructed so genesis records are captured.
func (ix *Indexer) Start(ctx context.Context, bus *events.Bus) {
	events.SubscribeSync(bus, ix.enqueue)
	go ix.run(ctx)
}

// Stop terminates the flush loop after draining buffered records. Safe to
// call more than once.
func (ix *Indexer) Stop() {
	ix.stopOnce.Do(func() { close(ix.stop) })
	<-ix.done
}

// enqueue hands a record to the flush loop. It runs under the chain's write
// lock, so it never calls back into the chain or the store.
func (ix *Indexer) enqueue(rec chain.Record) {
	select {
	case ix.buf <- rec:
	default:
		ix.logger.Warn("indexer buffer full, blocking submitter", "seq", rec.Seq)
		ix.buf <- rec
	}
}

func (ix *Indexer) run(ctx context.Context) {
	defer close(ix.done)

	ticker := time.NewTicker(ix.flushInterval)
	defer ticker.Stop()

	var pending []chain.Record

	flush := func(flushCtx context.Context) {
		if len(pending) == 0 {
			return
		}
		if err := ix.apply(flushCtx, pending); err != nil {
			ix.logger.Error("projection flush failed, retrying next tick",
				"pending", len(pending),
				"error", err)
			return
		}
		ix.logger.Debug("projection flushed", "records", len(pending))
		pending = pending[:0]
	}

	for {
		select {
		case rec := <-ix.buf:
			pending = append(pending, rec)
			if len(pending) >= ix.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			ix.finalFlush(pending)
			return
		case <-ix.stop:
			ix.finalFlush(pending)
			return
		}
	}
}

// finalFlush drains the buffer and attempts one last write on a fresh
// context, since the caller's may already be canceled during shutdown.
func (ix *Indexer) finalFlush(pending []chain.Record) {
	for {
		select {
		case rec := <-ix.buf:
			pending = append(pending, rec)
		default:
			if len(pending) == 0 {
				return
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ix.apply(flushCtx, pending); err != nil {
				ix.logger.Error("final projection flush failed, dropping records",
					"pending", len(pending),
					"error", err)
			}
			return
		}
	}
}

// apply groups one batch of records into rows and writes them. Proposals go
// in before votes so the foreign key holds, and executed flags after both.
func (ix *Indexer) apply(ctx context.Context, records []chain.Record) error {
	var (
		transfers []storage.TransferRow
		approvals []storage.ApprovalRow
		proposals []storage.ProposalRow
		votes     []storage.VoteRow
		executed  []uint32
	)

	for _, rec := range records {
		switch ev := rec.Event.(type) {
		case contract.TransferEvent:
			transfers = append(transfers, storage.TransferRow{
				Seq:         rec.Seq,
				Height:      rec.Height,
				OccurredAt:  rec.Time,
				MsgType:     rec.MsgType,
				Sender:      rec.From.Hex(),
				FromAccount: ev.From.Hex(),
				ToAccount:   ev.To.Hex(),
				RawAmount:   storage.RawDecimal(ev.Amount),
				Amount:      storage.HumanDecimal(ev.Amount, ix.decimals),
			})
		case contract.ApprovalEvent:
			approvals = append(approvals, storage.ApprovalRow{
				Seq:        rec.Seq,
				Height:     rec.Height,
				OccurredAt: rec.Time,
				Owner:      ev.Owner.Hex(),
				Spender:    ev.Spender.Hex(),
				RawAmount:  storage.RawDecimal(ev.Amount),
				Amount:     storage.HumanDecimal(ev.Amount, ix.decimals),
			})
		case contract.ProposalCreatedEvent:
			proposals = append(proposals, storage.ProposalRow{
				ID:        ev.ID,
				Proposer:  ev.Proposer.Hex(),
				Recipient: ev.Recipient.Hex(),
				RawAmount: storage.RawDecimal(ev.Amount),
				Amount:    storage.HumanDecimal(ev.Amount, ix.decimals),
				VoteStart: ev.VoteStart,
				VoteEnd:   ev.VoteEnd,
			})
		case contract.VoteCastEvent:
			votes = append(votes, storage.VoteRow{
				ProposalID: ev.ID,
				Voter:      ev.Voter.Hex(),
				Choice:     ev.Choice,
				RawWeight:  storage.RawDecimal(ev.Weight),
				Weight:     storage.HumanDecimal(ev.Weight, ix.decimals),
				Height:     rec.Height,
				OccurredAt: rec.Time,
			})
		case contract.ProposalExecutedEvent:
			executed = append(executed, ev.ID)
		default:
			ix.logger.Warn("skipping unrecognized event",
				"type", fmt.Sprintf("%T", rec.Event),
				"seq", rec.Seq)
		}
	}

	for _, row := range proposals {
		if err := ix.store.UpsertProposal(ctx, row); err != nil {
			return err
		}
	}
	for _, row := range votes {
		if err := ix.store.InsertVote(ctx, row); err != nil {
			return err
		}
	}
	for _, id := range executed {
		if err := ix.store.MarkProposalExecuted(ctx, id); err != nil {
			return err
		}
	}
	if err := ix.store.BatchInsertTransfers(ctx, transfers); err != nil {
		return err
	}
	return ix.store.BatchInsertApprovals(ctx, approvals)
}

// Snapshot captures every holder's balance at the chain's current height.
// Rows are written in address order so runs diff cleanly.
func (ix *Indexer) Snapshot(ctx context.Context, src BalanceSource) error {
	balances, height, _ := src.HolderBalances()

	accounts := make([]common.Address, 0, len(balances))
	for acct := range balances {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Cmp(accounts[j]) < 0
	})

	takenAt := ix.clock.Now().UTC()
	rows := make([]storage.SnapshotRow, 0, len(accounts))
	for _, acct := range accounts {
		bal := balances[acct]
		rows = append(rows, storage.SnapshotRow{
			TakenAt:    takenAt,
			Height:     height,
			Account:    acct.Hex(),
			RawBalance: storage.RawDecimal(bal),
			Balance:    storage.HumanDecimal(bal, ix.decimals),
		})
	}

	if err := ix.store.BatchInsertSnapshots(ctx, rows); err != nil {
		return fmt.Errorf("snapshot at height %d: %w", height, err)
	}
	ix.logger.Info("balance snapshot stored", "height", height, "holders", len(rows))
	return nil
}
