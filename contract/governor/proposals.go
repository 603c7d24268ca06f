package governor

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mshankarrao/Investment-dao/contract"
)

// Propose opens a new proposal to pay amount from the treasury to recipient,
// voteable for the given period starting at the call's block time. The
// proposer must hold at least one base unit of the governance token. Returns
// the assigned proposal id.
func (g *Governor) Propose(env contract.Env, recipient common.Address, amount *big.Int, period time.Duration) (uint32, error) {
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrZeroAmount
	}
	if recipient == contract.ZeroAddress {
		return 0, ErrInvalidRecipient
	}
	if period < g.params.MinVotingPeriod || period > g.params.MaxVotingPeriod {
		return 0, fmt.Errorf("%w: %s not in [%s, %s]",
			ErrInvalidPeriod, period, g.params.MinVotingPeriod, g.params.MaxVotingPeriod)
	}
	if g.token.BalanceOf(env.Caller).Sign() == 0 {
		return 0, fmt.Errorf("%w: proposer %s", ErrNoVotingPower, env.Caller)
	}

	id := g.nextID
	g.nextID++
	p := &Proposal{
		ID:        id,
		Proposer:  env.Caller,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
		VoteStart: env.Time,
		VoteEnd:   env.Time.Add(period),
	}
	g.proposals[id] = p
	g.tallies[id] = &Tally{ForVotes: new(big.Int), AgainstVotes: new(big.Int)}

	g.events.Emit(contract.ProposalCreatedEvent{
		ID:        id,
		Proposer:  p.Proposer,
		Recipient: p.Recipient,
		Amount:    new(big.Int).Set(p.Amount),
		VoteStart: p.VoteStart,
		VoteEnd:   p.VoteEnd,
	})
	return id, nil
}

// Vote casts the caller's ballot on an open proposal. The ballot's weight is
// the caller's token balance at the moment the vote is cast; each account
// votes at most once per proposal.
func (g *Governor) Vote(env contract.Env, id uint32, choice VoteChoice) error {
	p, ok := g.proposals[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrProposalNotFound, id)
	}
	if p.Executed {
		return fmt.Errorf("%w: id %d", ErrAlreadyExecuted, id)
	}
	if !env.Time.Before(p.VoteEnd) {
		return fmt.Errorf("%w: id %d closed at %s", ErrVotingClosed, id, p.VoteEnd.Format(time.RFC3339))
	}
	if g.HasVoted(id, env.Caller) {
		return fmt.Errorf("%w: id %d, voter %s", ErrAlreadyVoted, id, env.Caller)
	}
	weight := g.token.BalanceOf(env.Caller)
	if weight.Sign() == 0 {
		return fmt.Errorf("%w: voter %s", ErrNoVotingPower, env.Caller)
	}

	g.voted[voteKey{id: id, voter: env.Caller}] = struct{}{}
	t := g.tallies[id]
	if choice == VoteFor {
		t.ForVotes.Add(t.ForVotes, weight)
	} else {
		t.AgainstVotes.Add(t.AgainstVotes, weight)
	}

	g.events.Emit(contract.VoteCastEvent{
		ID:     id,
		Voter:  env.Caller,
		Choice: choice.String(),
		Weight: weight,
	})
	return nil
}

// Execute settles a decided proposal: once the voting period has ended, any
// caller may trigger it. Participation must reach the quorum share of the
// token's total supply and For votes must reach the approval share of the
// cast votes; the payout then moves from the treasury to the recipient
// through the token ledger. A failed payout leaves the proposal unexecuted.
func (g *Governor) Execute(env contract.Env, id uint32) error {
	p, ok := g.proposals[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrProposalNotFound, id)
	}
	if p.Executed {
		return fmt.Errorf("%w: id %d", ErrAlreadyExecuted, id)
	}
	if env.Time.Before(p.VoteEnd) {
		return fmt.Errorf("%w: id %d open until %s", ErrVotingOpen, id, p.VoteEnd.Format(time.RFC3339))
	}

	t := g.tallies[id]
	participation := new(big.Int).Add(t.ForVotes, t.AgainstVotes)
	supply := g.token.TotalSupply()

	// participation/supply >= quorum/100, in integer arithmetic.
	lhs := new(big.Int).Mul(participation, big.NewInt(100))
	rhs := new(big.Int).Mul(supply, big.NewInt(int64(g.params.QuorumPercent)))
	if lhs.Cmp(rhs) < 0 {
		return fmt.Errorf("%w: id %d, %s of %s supply voted, need %d%%",
			ErrQuorumNotReached, id, participation, supply, g.params.QuorumPercent)
	}

	// for/participation >= approval/100.
	lhs = new(big.Int).Mul(t.ForVotes, big.NewInt(100))
	rhs = new(big.Int).Mul(participation, big.NewInt(int64(g.params.ApprovalPercent)))
	if lhs.Cmp(rhs) < 0 {
		return fmt.Errorf("%w: id %d, %s for / %s against, need %d%% approval",
			ErrRejected, id, t.ForVotes, t.AgainstVotes, g.params.ApprovalPercent)
	}

	// The payout is the last fallible step: the treasury pays as an ordinary
	// token account, so an underfunded treasury aborts with the proposal
	// still executable later.
	payEnv := contract.Env{Caller: g.treasury, Height: env.Height, Time: env.Time}
	if err := g.token.Transfer(payEnv, p.Recipient, p.Amount); err != nil {
		return fmt.Errorf("treasury payout for proposal %d: %w", id, err)
	}
	p.Executed = true

	g.events.Emit(contract.ProposalExecutedEvent{
		ID:        id,
		Recipient: p.Recipient,
		Amount:    new(big.Int).Set(p.Amount),
	})
	return nil
}
