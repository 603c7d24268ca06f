// Package governor implements the investment DAO treasury contract paired
// with the governance token: token holders propose paying an amount from the
// treasury to a recipient, vote For or Against with weight equal to their
// token balance, and execute accepted proposals once the voting period has
// closed. Like the token ledger, the governor owns its state exclusively and
// relies on the host runtime for caller authentication and call
// serialization.
package governor

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mshankarrao/Investment-dao/contract"
)

// DefaultApprovalPercent is the share of cast votes that must be For when
// Params.ApprovalPercent is left unset: a simple majority.
const DefaultApprovalPercent = 50

// TokenLedger is the slice of the governance token the governor depends on:
// balances weight votes, total supply anchors the quorum, and Transfer pays
// proposals out of the treasury account.
type TokenLedger interface {
	Transfer(env contract.Env, to common.Address, amount *big.Int) error
	BalanceOf(account common.Address) *big.Int
	TotalSupply() *big.Int
}

// Params are the governor's immutable voting rules.
//
// QuorumPercent is the minimum participation for a proposal to be decided:
// cast votes (For plus Against) must reach this percentage of the token's
// total supply. ApprovalPercent is the share of cast votes that must be For.
// Voting periods requested by proposers must fall within
// [MinVotingPeriod, MaxVotingPeriod].
type Params struct {
	QuorumPercent   uint8
	ApprovalPercent uint8
	MinVotingPeriod time.Duration
	MaxVotingPeriod time.Duration
}

// VoteChoice is a ballot: against or for.
type VoteChoice uint8

const (
	VoteAgainst VoteChoice = iota
	VoteFor
)

// String returns the lowercase wire name of the choice.
func (v VoteChoice) String() string {
	if v == VoteFor {
		return "for"
	}
	return "against"
}

// ParseVoteChoice parses "for" or "against", case-insensitively.
func ParseVoteChoice(s string) (VoteChoice, error) {
	switch strings.ToLower(s) {
	case "for":
		return VoteFor, nil
	case "against":
		return VoteAgainst, nil
	default:
		return VoteAgainst, fmt.Errorf("invalid vote choice %q (want \"for\" or \"against\")", s)
	}
}

// Proposal is a request to pay Amount from the treasury to Recipient,
// decided by token holders during [VoteStart, VoteEnd).
type Proposal struct {
	ID        uint32
	Proposer  common.Address
	Recipient common.Address
	Amount    *big.Int
	VoteStart time.Time
	VoteEnd   time.Time
	Executed  bool
}

// Tally holds the balance-weighted vote totals of one proposal.
type Tally struct {
	ForVotes     *big.Int
	AgainstVotes *big.Int
}

type voteKey struct {
	id    uint32
	voter common.Address
}

// Governor owns the proposal book: proposals, their tallies, the
// per-(proposal, voter) ballot records, and the treasury account it pays
// from. The treasury is an ordinary token account held by the contract; its
// funds move only through executed proposals.
type Governor struct {
	params   Params
	treasury common.Address
	token    TokenLedger

	proposals map[uint32]*Proposal
	tallies   map[uint32]*Tally
	voted     map[voteKey]struct{}
	nextID    uint32

	events contract.Sink
}

// New constructs a governor bound to the token ledger and the treasury
// account. It fails when the ledger is missing, the treasury is the zero
// address, or the voting rules are out of range. A zero ApprovalPercent
// defaults to a simple majority.
func New(params Params, treasury common.Address, token TokenLedger, sink contract.Sink) (*Governor, error) {
	if token == nil {
		return nil, ErrNoLedger
	}
	if treasury == contract.ZeroAddress {
		return nil, ErrInvalidTreasury
	}
	if params.QuorumPercent == 0 || params.QuorumPercent > 100 {
		return nil, fmt.Errorf("%w: quorum %d%%", ErrInvalidQuorum, params.QuorumPercent)
	}
	if params.ApprovalPercent == 0 {
		params.ApprovalPercent = DefaultApprovalPercent
	}
	if params.ApprovalPercent > 100 {
		return nil, fmt.Errorf("%w: approval %d%%", ErrInvalidApproval, params.ApprovalPercent)
	}
	if params.MinVotingPeriod <= 0 || params.MaxVotingPeriod < params.MinVotingPeriod {
		return nil, fmt.Errorf("%w: min %s, max %s",
			ErrInvalidPeriodBounds, params.MinVotingPeriod, params.MaxVotingPeriod)
	}
	if sink == nil {
		sink = contract.NopSink{}
	}

	return &Governor{
		params:    params,
		treasury:  treasury,
		token:     token,
		proposals: make(map[uint32]*Proposal),
		tallies:   make(map[uint32]*Tally),
		voted:     make(map[voteKey]struct{}),
		nextID:    1,
		events:    sink,
	}, nil
}

// Params returns the voting rules the governor was constructed with.
func (g *Governor) Params() Params { return g.params }

// TreasuryAddress returns the token account proposals are paid from.
func (g *Governor) TreasuryAddress() common.Address { return g.treasury }

// TreasuryBalance returns the treasury's current token balance.
func (g *Governor) TreasuryBalance() *big.Int { return g.token.BalanceOf(g.treasury) }

// NextProposalID returns the identifier the next proposal will receive.
// Identifiers are assigned sequentially starting at 1.
func (g *Governor) NextProposalID() uint32 { return g.nextID }

// Proposal returns a copy of the proposal with the given id.
func (g *Governor) Proposal(id uint32) (Proposal, error) {
	p, ok := g.proposals[id]
	if !ok {
		return Proposal{}, fmt.Errorf("%w: id %d", ErrProposalNotFound, id)
	}
	out := *p
	out.Amount = new(big.Int).Set(p.Amount)
	return out, nil
}

// Proposals returns copies of all proposals, ordered by id.
func (g *Governor) Proposals() []Proposal {
	out := make([]Proposal, 0, len(g.proposals))
	for id := uint32(1); id < g.nextID; id++ {
		if p, ok := g.proposals[id]; ok {
			c := *p
			c.Amount = new(big.Int).Set(p.Amount)
			out = append(out, c)
		}
	}
	return out
}

// Tally returns a copy of the vote totals for the given proposal.
func (g *Governor) Tally(id uint32) (Tally, error) {
	t, ok := g.tallies[id]
	if !ok {
		return Tally{}, fmt.Errorf("%w: id %d", ErrProposalNotFound, id)
	}
	return Tally{
		ForVotes:     new(big.Int).Set(t.ForVotes),
		AgainstVotes: new(big.Int).Set(t.AgainstVotes),
	}, nil
}

// HasVoted reports whether voter has already cast a ballot on the proposal.
func (g *Governor) HasVoted(id uint32, voter common.Address) bool {
	_, ok := g.voted[voteKey{id: id, voter: voter}]
	return ok
}
