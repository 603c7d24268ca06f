// Package chain hosts the token ledger and governor contracts inside the
// process, playing the role a blockchain node would: it authenticates
// senders, serializes state-changing calls, stamps each with a block height
// and timestamp, and publishes the resulting events as an append-only,
// globally ordered record log.
package chain

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/mshankarrao/Investment-dao/contract"
	"github.com/mshankarrao/Investment-dao/contract/governor"
	"github.com/mshankarrao/Investment-dao/contract/token"
	"github.com/mshankarrao/Investment-dao/internal/events"
)

// Receipt statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Host-level submission errors. Contract-level rejections are returned
// alongside a failed receipt instead.
var (
	ErrNilMessage         = errors.New("nil message")
	ErrInvalidFrom        = errors.New("from must not be the zero address")
	ErrUnsupportedMessage = errors.New("unsupported message")
)

// Genesis describes the chain's initial state: the token ledger to create
// and the governor that will manage the treasury account.
type Genesis struct {
	Token    token.Config
	Governor governor.Params
	Treasury common.Address
}

// Record is one event with its chain coordinates. Records are appended to
// the chain log and published on the event bus in sequence order; Seq starts
// at 1 and never repeats within a chain.
type Record struct {
	Seq     uint64
	Height  uint64
	Time    time.Time
	From    common.Address
	MsgType string
	Event   contract.Event
}

// Receipt reports the outcome of one submission. Failed submissions still
// mint a block but carry no events.
type Receipt struct {
	Height     uint64
	Time       time.Time
	From       common.Address
	Type       string
	Status     string
	Err        string
	Events     []contract.Event
	ProposalID uint32
}

// Failed reports whether the submission was rejected by a contract.
func (r *Receipt) Failed() bool { return r.Status == StatusFailed }

// collector buffers the events one contract call emits so the chain can
// stamp and publish them after the call returns.
type collector struct {
	events []contract.Event
}

func (c *collector) Emit(e contract.Event) { c.events = append(c.events, e) }

func (c *collector) drain() []contract.Event {
	evs := c.events
	c.events = nil
	return evs
}

// Chain is the in-process contract host. One write lock serializes all
// submissions; reads run concurrently under the read lock. Time comes from
// the injected clock so simulations can drive voting periods deterministically.
type Chain struct {
	mu     sync.RWMutex
	clock  clockwork.Clock
	bus    *events.Bus
	logger *slog.Logger

	ledger   *token.Ledger
	governor *governor.Governor

	height   uint64
	lastTime time.Time
	seq      uint64
	log      []Record

	collector *collector
}

// New builds the chain from its genesis: constructs the ledger and the
// governor, stamps the genesis distribution as height-0 records and
// publishes them on the bus. Subscribers that must see genesis records have
// to be attached to the bus before New runs.
func New(gen Genesis, clock clockwork.Clock, bus *events.Bus, logger *slog.Logger) (*Chain, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}

	col := &collector{}
	ledger, err := token.New(gen.Token, col)
	if err != nil {
		return nil, fmt.Errorf("create token ledger: %w", err)
	}
	gov, err := governor.New(gen.Governor, gen.Treasury, ledger, col)
	if err != nil {
		return nil, fmt.Errorf("create governor: %w", err)
	}

	c := &Chain{
		clock:     clock,
		bus:       bus,
		logger:    logger,
		ledger:    ledger,
		governor:  gov,
		lastTime:  clock.Now().UTC(),
		collector: col,
	}

	for _, ev := range col.drain() {
		c.seq++
		rec := Record{
			Seq:     c.seq,
			Height:  0,
			Time:    c.lastTime,
			From:    contract.ZeroAddress,
			MsgType: MsgTypeGenesis,
			Event:   ev,
		}
		c.log = append(c.log, rec)
		c.bus.Publish(rec)
	}

	logger.Debug("chain initialized",
		"supply", ledger.TotalSupply().String(),
		"holders", len(ledger.Holders()),
		"treasury", gen.Treasury.Hex(),
		"genesis_records", c.seq)
	return c, nil
}

// Submit authenticates from as the caller, dispatches the message to the
// owning contract and mints a block. Contract rejections return a failed
// receipt together with the contract's error; the block is minted either
// way so rejected submissions remain visible in the chain's history.
//
// Bus subscribers run on the submitter's goroutine while the chain lock is
// held, so they must not call back into the chain.
func (c *Chain) Submit(from common.Address, msg Msg) (*Receipt, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	if from == contract.ZeroAddress {
		return nil, ErrInvalidFrom
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now().UTC()
	height := c.height + 1
	env := contract.Env{Caller: from, Height: height, Time: now}

	var (
		err        error
		proposalID uint32
	)
	switch m := msg.(type) {
	case TransferMsg:
		err = c.ledger.Transfer(env, m.To, m.Amount)
	case ApproveMsg:
		err = c.ledger.Approve(env, m.Spender, m.Amount)
	case IncreaseAllowanceMsg:
		err = c.ledger.IncreaseAllowance(env, m.Spender, m.Amount)
	case DecreaseAllowanceMsg:
		err = c.ledger.DecreaseAllowance(env, m.Spender, m.Amount)
	case TransferFromMsg:
		err = c.ledger.TransferFrom(env, m.Owner, m.To, m.Amount)
	case MintMsg:
		err = c.ledger.Mint(env, m.To, m.Amount)
	case BurnMsg:
		err = c.ledger.Burn(env, m.Amount)
	case ProposeMsg:
		proposalID, err = c.governor.Propose(env, m.Recipient, m.Amount, m.Period)
	case VoteMsg:
		err = c.governor.Vote(env, m.ProposalID, m.Choice)
	case ExecuteMsg:
		err = c.governor.Execute(env, m.ProposalID)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}

	emitted := c.collector.drain()
	c.height = height
	c.lastTime = now

	rcpt := &Receipt{
		Height:     height,
		Time:       now,
		From:       from,
		Type:       msg.Type(),
		ProposalID: proposalID,
	}
	if err != nil {
		rcpt.Status = StatusFailed
		rcpt.Err = err.Error()
		c.logger.Debug("submission rejected",
			"type", msg.Type(), "from", from.Hex(), "height", height, "error", err)
		return rcpt, err
	}

	rcpt.Status = StatusOK
	rcpt.Events = emitted
	for _, ev := range emitted {
		c.seq++
		rec := Record{
			Seq:     c.seq,
			Height:  height,
			Time:    now,
			From:    from,
			MsgType: msg.Type(),
			Event:   ev,
		}
		c.log = append(c.log, rec)
		c.bus.Publish(rec)
	}
	c.logger.Debug("submission applied",
		"type", msg.Type(), "from", from.Hex(), "height", height, "events", len(emitted))
	return rcpt, nil
}

// Height returns the number of blocks minted so far; genesis is height 0.
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// LastBlockTime returns the timestamp of the most recent block, or the
// genesis time when nothing has been submitted yet.
func (c *Chain) LastBlockTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastTime
}

// Metadata returns the token's name, symbol and decimals.
func (c *Chain) Metadata() token.Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Metadata()
}

// TotalSupply returns the token's current total supply.
func (c *Chain) TotalSupply() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.TotalSupply()
}

// BalanceOf returns account's token balance.
func (c *Chain) BalanceOf(account common.Address) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.BalanceOf(account)
}

// Allowance returns what spender may still transfer on owner's behalf.
func (c *Chain) Allowance(owner, spender common.Address) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Allowance(owner, spender)
}

// Holders returns every account with a non-zero balance, sorted by address.
func (c *Chain) Holders() []common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Holders()
}

// HolderBalances returns the full balance table together with the height
// and block time it was read at, for consistent snapshots.
func (c *Chain) HolderBalances() (map[common.Address]*big.Int, uint64, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Balances(), c.height, c.lastTime
}

// Proposal returns the proposal with the given id.
func (c *Chain) Proposal(id uint32) (governor.Proposal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor.Proposal(id)
}

// Proposals returns all proposals, ordered by id.
func (c *Chain) Proposals() []governor.Proposal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor.Proposals()
}

// Tally returns the running vote totals for the given proposal.
func (c *Chain) Tally(id uint32) (governor.Tally, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor.Tally(id)
}

// HasVoted reports whether voter has cast a ballot on the proposal.
func (c *Chain) HasVoted(id uint32, voter common.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor.HasVoted(id, voter)
}

// NextProposalID returns the id the next proposal will receive.
func (c *Chain) NextProposalID() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor.NextProposalID()
}

// GovernorParams returns the governor's voting parameters.
func (c *Chain) GovernorParams() governor.Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor.Params()
}

// TreasuryAddress returns the token account proposals are paid from.
func (c *Chain) TreasuryAddress() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor.TreasuryAddress()
}

// TreasuryBalance returns the treasury's current token balance.
func (c *Chain) TreasuryBalance() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor.TreasuryBalance()
}

// EventsSince returns up to limit records with Seq greater than since, in
// sequence order. A non-positive limit returns everything. since=0 replays
// the log from genesis.
func (c *Chain) EventsSince(since uint64, limit int) []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// The log is append-only and seq is dense from 1, so the first record
	// with Seq > since sits at index since.
	if since >= uint64(len(c.log)) {
		return nil
	}
	rest := c.log[since:]
	if limit > 0 && limit < len(rest) {
		rest = rest[:limit]
	}
	out := make([]Record, len(rest))
	copy(out, rest)
	return out
}
