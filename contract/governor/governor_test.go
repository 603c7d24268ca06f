package governor

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshankarrao/Investment-dao/contract"
	"github.com/mshankarrao/Investment-dao/contract/token"
)

var (
	alice    = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
	charlie  = common.HexToAddress("0x000000000000000000000000000000000C4A611E")
	django   = common.HexToAddress("0x0000000000000000000000000000000000D1A960")
	treasury = common.HexToAddress("0x0000000000000000000000000000000000000DA0")
)

var epoch = time.Unix(1700000000, 0).UTC()

// recorder keeps every emitted event for assertions.
type recorder struct {
	events []contract.Event
}

func (r *recorder) Emit(e contract.Event) { r.events = append(r.events, e) }

func (r *recorder) reset() { r.events = nil }

func envAt(caller common.Address, t time.Time) contract.Env {
	return contract.Env{Caller: caller, Height: 1, Time: t}
}

func testParams() Params {
	return Params{
		QuorumPercent:   30,
		ApprovalPercent: 50,
		MinVotingPeriod: time.Minute,
		MaxVotingPeriod: 24 * time.Hour,
	}
}

// newFixture builds a 1000-unit ledger (alice 300, bob 200, treasury 500)
// and a governor with 30% quorum and simple-majority approval.
func newFixture(t *testing.T) (*Governor, *token.Ledger, *recorder) {
	t.Helper()
	rec := &recorder{}
	l, err := token.New(token.Config{
		Metadata:    token.Metadata{Name: "Investment DAO Token", Symbol: "IDAO", Decimals: 18},
		TotalSupply: big.NewInt(1000),
		Distribution: []token.Grant{
			{Account: alice, Amount: big.NewInt(300)},
			{Account: bob, Amount: big.NewInt(200)},
			{Account: treasury, Amount: big.NewInt(500)},
		},
	}, rec)
	require.NoError(t, err)

	g, err := New(testParams(), treasury, l, rec)
	require.NoError(t, err)
	rec.reset()
	return g, l, rec
}

func sumBalances(l *token.Ledger) *big.Int {
	total := new(big.Int)
	for _, b := range l.Balances() {
		total.Add(total, b)
	}
	return total
}

func TestNew(t *testing.T) {
	_, l, _ := newFixture(t)

	tests := []struct {
		name     string
		params   Params
		treasury common.Address
		ledger   TokenLedger
		wantErr  error
	}{
		{
			name:     "valid",
			params:   testParams(),
			treasury: treasury,
			ledger:   l,
		},
		{
			name:     "nil ledger",
			params:   testParams(),
			treasury: treasury,
			wantErr:  ErrNoLedger,
		},
		{
			name:     "zero treasury",
			params:   testParams(),
			treasury: contract.ZeroAddress,
			ledger:   l,
			wantErr:  ErrInvalidTreasury,
		},
		{
			name:     "zero quorum",
			params:   Params{QuorumPercent: 0, MinVotingPeriod: time.Minute, MaxVotingPeriod: time.Hour},
			treasury: treasury,
			ledger:   l,
			wantErr:  ErrInvalidQuorum,
		},
		{
			name:     "quorum above 100",
			params:   Params{QuorumPercent: 101, MinVotingPeriod: time.Minute, MaxVotingPeriod: time.Hour},
			treasury: treasury,
			ledger:   l,
			wantErr:  ErrInvalidQuorum,
		},
		{
			name:     "approval above 100",
			params:   Params{QuorumPercent: 30, ApprovalPercent: 101, MinVotingPeriod: time.Minute, MaxVotingPeriod: time.Hour},
			treasury: treasury,
			ledger:   l,
			wantErr:  ErrInvalidApproval,
		},
		{
			name:     "zero min period",
			params:   Params{QuorumPercent: 30, MinVotingPeriod: 0, MaxVotingPeriod: time.Hour},
			treasury: treasury,
			ledger:   l,
			wantErr:  ErrInvalidPeriodBounds,
		},
		{
			name:     "max below min",
			params:   Params{QuorumPercent: 30, MinVotingPeriod: time.Hour, MaxVotingPeriod: time.Minute},
			treasury: treasury,
			ledger:   l,
			wantErr:  ErrInvalidPeriodBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.params, tt.treasury, tt.ledger, nil)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint32(1), g.NextProposalID())
		})
	}
}

func TestNewDefaultsApproval(t *testing.T) {
	_, l, _ := newFixture(t)
	g, err := New(Params{
		QuorumPercent:   30,
		MinVotingPeriod: time.Minute,
		MaxVotingPeriod: time.Hour,
	}, treasury, l, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(DefaultApprovalPercent), g.Params().ApprovalPercent)
}

func TestPropose(t *testing.T) {
	tests := []struct {
		name      string
		caller    common.Address
		recipient common.Address
		amount    *big.Int
		period    time.Duration
		wantErr   error
	}{
		{
			name:      "valid",
			caller:    alice,
			recipient: django,
			amount:    big.NewInt(100),
			period:    2 * time.Minute,
		},
		{
			name:      "zero amount",
			caller:    alice,
			recipient: django,
			amount:    big.NewInt(0),
			period:    2 * time.Minute,
			wantErr:   ErrZeroAmount,
		},
		{
			name:      "nil amount",
			caller:    alice,
			recipient: django,
			period:    2 * time.Minute,
			wantErr:   ErrZeroAmount,
		},
		{
			name:      "zero recipient",
			caller:    alice,
			recipient: contract.ZeroAddress,
			amount:    big.NewInt(100),
			period:    2 * time.Minute,
			wantErr:   ErrInvalidRecipient,
		},
		{
			name:      "period below minimum",
			caller:    alice,
			recipient: django,
			amount:    big.NewInt(100),
			period:    30 * time.Second,
			wantErr:   ErrInvalidPeriod,
		},
		{
			name:      "period above maximum",
			caller:    alice,
			recipient: django,
			amount:    big.NewInt(100),
			period:    48 * time.Hour,
			wantErr:   ErrInvalidPeriod,
		},
		{
			name:      "proposer without tokens",
			caller:    charlie,
			recipient: django,
			amount:    big.NewInt(100),
			period:    2 * time.Minute,
			wantErr:   ErrNoVotingPower,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, rec := newFixture(t)
			id, err := g.Propose(envAt(tt.caller, epoch), tt.recipient, tt.amount, tt.period)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, rec.events)
				assert.Equal(t, uint32(1), g.NextProposalID())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint32(1), id)
			assert.Equal(t, uint32(2), g.NextProposalID())

			p, err := g.Proposal(id)
			require.NoError(t, err)
			assert.Equal(t, tt.caller, p.Proposer)
			assert.Equal(t, tt.recipient, p.Recipient)
			assert.Equal(t, tt.amount.String(), p.Amount.String())
			assert.Equal(t, epoch, p.VoteStart)
			assert.Equal(t, epoch.Add(tt.period), p.VoteEnd)
			assert.False(t, p.Executed)

			require.Len(t, rec.events, 1)
			ev, ok := rec.events[0].(contract.ProposalCreatedEvent)
			require.True(t, ok)
			assert.Equal(t, id, ev.ID)
			assert.Equal(t, epoch.Add(tt.period), ev.VoteEnd)
		})
	}
}

func TestProposeAssignsSequentialIDs(t *testing.T) {
	g, _, _ := newFixture(t)

	for want := uint32(1); want <= 3; want++ {
		id, err := g.Propose(envAt(alice, epoch), django, big.NewInt(10), time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Len(t, g.Proposals(), 3)
}

func TestVote(t *testing.T) {
	g, _, rec := newFixture(t)
	id, err := g.Propose(envAt(alice, epoch), django, big.NewInt(100), 2*time.Minute)
	require.NoError(t, err)
	rec.reset()

	t.Run("unknown proposal", func(t *testing.T) {
		err := g.Vote(envAt(alice, epoch), 99, VoteFor)
		assert.ErrorIs(t, err, ErrProposalNotFound)
	})

	t.Run("no voting power", func(t *testing.T) {
		err := g.Vote(envAt(charlie, epoch), id, VoteFor)
		assert.ErrorIs(t, err, ErrNoVotingPower)
		assert.False(t, g.HasVoted(id, charlie))
	})

	t.Run("weight equals balance at vote time", func(t *testing.T) {
		require.NoError(t, g.Vote(envAt(alice, epoch.Add(time.Minute)), id, VoteFor))
		assert.True(t, g.HasVoted(id, alice))

		tally, err := g.Tally(id)
		require.NoError(t, err)
		assert.Equal(t, "300", tally.ForVotes.String())
		assert.Equal(t, "0", tally.AgainstVotes.String())

		require.Len(t, rec.events, 1)
		ev, ok := rec.events[0].(contract.VoteCastEvent)
		require.True(t, ok)
		assert.Equal(t, alice, ev.Voter)
		assert.Equal(t, "for", ev.Choice)
		assert.Equal(t, "300", ev.Weight.String())
	})

	t.Run("double vote rejected", func(t *testing.T) {
		err := g.Vote(envAt(alice, epoch.Add(time.Minute)), id, VoteAgainst)
		assert.ErrorIs(t, err, ErrAlreadyVoted)

		tally, err := g.Tally(id)
		require.NoError(t, err)
		assert.Equal(t, "300", tally.ForVotes.String())
		assert.Equal(t, "0", tally.AgainstVotes.String())
	})

	t.Run("closed at vote end", func(t *testing.T) {
		err := g.Vote(envAt(bob, epoch.Add(2*time.Minute)), id, VoteFor)
		assert.ErrorIs(t, err, ErrVotingClosed)
	})
}

func TestExecuteLifecycle(t *testing.T) {
	g, l, rec := newFixture(t)
	id, err := g.Propose(envAt(alice, epoch), django, big.NewInt(100), 2*time.Minute)
	require.NoError(t, err)

	t.Run("execute before vote end", func(t *testing.T) {
		err := g.Execute(envAt(alice, epoch.Add(time.Minute)), id)
		assert.ErrorIs(t, err, ErrVotingOpen)
	})

	require.NoError(t, g.Vote(envAt(alice, epoch.Add(time.Minute)), id, VoteFor))
	rec.reset()

	t.Run("permissionless execute pays the recipient", func(t *testing.T) {
		// charlie holds no tokens and never voted; execution is open to all.
		require.NoError(t, g.Execute(envAt(charlie, epoch.Add(2*time.Minute)), id))

		assert.Equal(t, "400", l.BalanceOf(treasury).String())
		assert.Equal(t, "100", l.BalanceOf(django).String())
		assert.Equal(t, "1000", sumBalances(l).String())
		assert.Equal(t, "400", g.TreasuryBalance().String())

		p, err := g.Proposal(id)
		require.NoError(t, err)
		assert.True(t, p.Executed)

		// The token payout event precedes the execution event.
		require.Len(t, rec.events, 2)
		transfer, ok := rec.events[0].(contract.TransferEvent)
		require.True(t, ok)
		assert.Equal(t, treasury, transfer.From)
		assert.Equal(t, django, transfer.To)
		assert.Equal(t, "100", transfer.Amount.String())
		executed, ok := rec.events[1].(contract.ProposalExecutedEvent)
		require.True(t, ok)
		assert.Equal(t, id, executed.ID)
	})

	t.Run("second execute rejected", func(t *testing.T) {
		err := g.Execute(envAt(alice, epoch.Add(3*time.Minute)), id)
		assert.ErrorIs(t, err, ErrAlreadyExecuted)
		assert.Equal(t, "400", l.BalanceOf(treasury).String())
	})

	t.Run("vote after execution rejected", func(t *testing.T) {
		// The period is over anyway, but the executed check fires first.
		err := g.Vote(envAt(bob, epoch.Add(time.Minute)), id, VoteFor)
		assert.ErrorIs(t, err, ErrAlreadyExecuted)
	})
}

func TestExecuteQuorum(t *testing.T) {
	t.Run("below quorum", func(t *testing.T) {
		g, _, _ := newFixture(t)
		// bob's 200 of 1000 is 20%, below the 30% quorum.
		id, err := g.Propose(envAt(bob, epoch), django, big.NewInt(50), time.Minute)
		require.NoError(t, err)
		require.NoError(t, g.Vote(envAt(bob, epoch), id, VoteFor))

		err = g.Execute(envAt(bob, epoch.Add(time.Minute)), id)
		assert.ErrorIs(t, err, ErrQuorumNotReached)

		p, perr := g.Proposal(id)
		require.NoError(t, perr)
		assert.False(t, p.Executed)
	})

	t.Run("exactly at quorum", func(t *testing.T) {
		g, _, _ := newFixture(t)
		// alice's 300 of 1000 is exactly the 30% quorum.
		id, err := g.Propose(envAt(alice, epoch), django, big.NewInt(50), time.Minute)
		require.NoError(t, err)
		require.NoError(t, g.Vote(envAt(alice, epoch), id, VoteFor))

		assert.NoError(t, g.Execute(envAt(alice, epoch.Add(time.Minute)), id))
	})
}

func TestExecuteApproval(t *testing.T) {
	t.Run("against majority rejects", func(t *testing.T) {
		g, _, _ := newFixture(t)
		id, err := g.Propose(envAt(alice, epoch), django, big.NewInt(50), time.Minute)
		require.NoError(t, err)
		require.NoError(t, g.Vote(envAt(alice, epoch), id, VoteAgainst))
		require.NoError(t, g.Vote(envAt(bob, epoch), id, VoteFor))

		// 200 for of 500 cast is 40%, short of the 50% approval bar.
		err = g.Execute(envAt(alice, epoch.Add(time.Minute)), id)
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("exact tie passes at simple majority", func(t *testing.T) {
		g, l, _ := newFixture(t)
		// Even the stakes: alice hands bob 50 so both hold 250.
		require.NoError(t, l.Transfer(envAt(alice, epoch), bob, big.NewInt(50)))

		id, err := g.Propose(envAt(alice, epoch), django, big.NewInt(50), time.Minute)
		require.NoError(t, err)
		require.NoError(t, g.Vote(envAt(alice, epoch), id, VoteFor))
		require.NoError(t, g.Vote(envAt(bob, epoch), id, VoteAgainst))

		// 250 for of 500 cast is exactly 50%.
		assert.NoError(t, g.Execute(envAt(alice, epoch.Add(time.Minute)), id))
	})
}

func TestExecuteUnderfundedTreasury(t *testing.T) {
	g, l, _ := newFixture(t)
	// Ask for more than the treasury's 500.
	id, err := g.Propose(envAt(alice, epoch), django, big.NewInt(600), time.Minute)
	require.NoError(t, err)
	require.NoError(t, g.Vote(envAt(alice, epoch), id, VoteFor))
	require.NoError(t, g.Vote(envAt(bob, epoch), id, VoteFor))

	err = g.Execute(envAt(alice, epoch.Add(time.Minute)), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)

	// Nothing moved and the proposal stays executable.
	assert.Equal(t, "500", l.BalanceOf(treasury).String())
	assert.Equal(t, "0", l.BalanceOf(django).String())
	p, perr := g.Proposal(id)
	require.NoError(t, perr)
	assert.False(t, p.Executed)

	// Funding the treasury makes the same proposal pass.
	require.NoError(t, l.Transfer(envAt(alice, epoch), treasury, big.NewInt(150)))
	require.NoError(t, g.Execute(envAt(alice, epoch.Add(time.Minute)), id))
	assert.Equal(t, "600", l.BalanceOf(django).String())
	assert.Equal(t, "1000", sumBalances(l).String())
}

func TestQueriesReturnCopies(t *testing.T) {
	g, _, _ := newFixture(t)
	id, err := g.Propose(envAt(alice, epoch), django, big.NewInt(100), time.Minute)
	require.NoError(t, err)
	require.NoError(t, g.Vote(envAt(alice, epoch), id, VoteFor))

	p, err := g.Proposal(id)
	require.NoError(t, err)
	p.Amount.SetInt64(7)
	p2, err := g.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, "100", p2.Amount.String())

	tally, err := g.Tally(id)
	require.NoError(t, err)
	tally.ForVotes.SetInt64(7)
	tally2, err := g.Tally(id)
	require.NoError(t, err)
	assert.Equal(t, "300", tally2.ForVotes.String())
}

func TestParseVoteChoice(t *testing.T) {
	tests := []struct {
		in      string
		want    VoteChoice
		wantErr bool
	}{
		{in: "for", want: VoteFor},
		{in: "FOR", want: VoteFor},
		{in: "against", want: VoteAgainst},
		{in: "Against", want: VoteAgainst},
		{in: "abstain", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVoteChoice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
