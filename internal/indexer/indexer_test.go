package indexer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshankarrao/Investment-dao/contract"
	"github.com/mshankarrao/Investment-dao/internal/chain"
	"github.com/mshankarrao/Investment-dao/internal/events"
	"github.com/mshankarrao/Investment-dao/internal/storage"
)

var (
	alice    = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
	charlie  = common.HexToAddress("0x000000000000000000000000000000000C4A611E")
	treasury = common.HexToAddress("0x0000000000000000000000000000000000000DA0")
)

var indexTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu        sync.Mutex
	failures  int
	calls     []string
	transfers []storage.TransferRow
	approvals []storage.ApprovalRow
	snapshots []storage.SnapshotRow
	proposals []storage.ProposalRow
	votes     []storage.VoteRow
	executed  []uint32
}

func (f *fakeStore) failing(name string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("store unavailable")
	}
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeStore) BatchInsertTransfers(_ context.Context, rows []storage.TransferRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}
	if err := f.failing("transfers"); err != nil {
		return err
	}
	f.transfers = append(f.transfers, rows...)
	return nil
}

func (f *fakeStore) BatchInsertApprovals(_ context.Context, rows []storage.ApprovalRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}
	if err := f.failing("approvals"); err != nil {
		return err
	}
	f.approvals = append(f.approvals, rows...)
	return nil
}

func (f *fakeStore) BatchInsertSnapshots(_ context.Context, rows []storage.SnapshotRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("snapshots"); err != nil {
		return err
	}
	f.snapshots = append(f.snapshots, rows...)
	return nil
}

func (f *fakeStore) UpsertProposal(_ context.Context, row storage.ProposalRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("proposal"); err != nil {
		return err
	}
	f.proposals = append(f.proposals, row)
	return nil
}

func (f *fakeStore) InsertVote(_ context.Context, row storage.VoteRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("vote"); err != nil {
		return err
	}
	f.votes = append(f.votes, row)
	return nil
}

func (f *fakeStore) MarkProposalExecuted(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("executed"); err != nil {
		return err
	}
	f.executed = append(f.executed, id)
	return nil
}

func (f *fakeStore) transferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transfers)
}

func record(seq, height uint64, from common.Address, msgType string, ev contract.Event) chain.Record {
	return chain.Record{
		Seq:     seq,
		Height:  height,
		Time:    indexTime,
		From:    from,
		MsgType: msgType,
		Event:   ev,
	}
}

func TestApplyGroupsRecords(t *testing.T) {
	store := &fakeStore{}
	ix := New(store, 18, Options{})

	voteEnd := indexTime.Add(10 * time.Minute)
	records := []chain.Record{
		record(1, 0, contract.ZeroAddress, "genesis", contract.TransferEvent{
			From: contract.ZeroAddress, To: alice, Amount: big.NewInt(3e18),
		}),
		record(2, 1, bob, "transfer_from", contract.TransferEvent{
			From: alice, To: charlie, Amount: big.NewInt(1e18),
		}),
		record(3, 1, bob, "transfer_from", contract.ApprovalEvent{
			Owner: alice, Spender: bob, Amount: big.NewInt(5e17),
		}),
		record(4, 2, alice, "propose", contract.ProposalCreatedEvent{
			ID: 1, Proposer: alice, Recipient: charlie,
			Amount: big.NewInt(2e18), VoteStart: indexTime, VoteEnd: voteEnd,
		}),
		record(5, 3, bob, "vote", contract.VoteCastEvent{
			ID: 1, Voter: bob, Choice: "for", Weight: big.NewInt(2e18),
		}),
		record(6, 4, charlie, "execute", contract.ProposalExecutedEvent{
			ID: 1, Recipient: charlie, Amount: big.NewInt(2e18),
		}),
	}

	require.NoError(t, ix.apply(context.Background(), records))

	require.Len(t, store.transfers, 2)
	mint := store.transfers[0]
	assert.Equal(t, uint64(1), mint.Seq)
	assert.Equal(t, "genesis", mint.MsgType)
	assert.Equal(t, contract.ZeroAddress.Hex(), mint.FromAccount)
	assert.Equal(t, alice.Hex(), mint.ToAccount)
	assert.Equal(t, "3000000000000000000", mint.RawAmount.String())
	assert.Equal(t, "3", mint.Amount.String())

	delegated := store.transfers[1]
	assert.Equal(t, bob.Hex(), delegated.Sender)
	assert.Equal(t, alice.Hex(), delegated.FromAccount)
	assert.Equal(t, charlie.Hex(), delegated.ToAccount)

	require.Len(t, store.approvals, 1)
	assert.Equal(t, alice.Hex(), store.approvals[0].Owner)
	assert.Equal(t, "0.5", store.approvals[0].Amount.String())

	require.Len(t, store.proposals, 1)
	assert.Equal(t, uint32(1), store.proposals[0].ID)
	assert.Equal(t, voteEnd, store.proposals[0].VoteEnd)
	assert.False(t, store.proposals[0].Executed)

	require.Len(t, store.votes, 1)
	assert.Equal(t, "for", store.votes[0].Choice)
	assert.Equal(t, "2", store.votes[0].Weight.String())
	assert.Equal(t, uint64(3), store.votes[0].Height)

	assert.Equal(t, []uint32{1}, store.executed)

	// Proposal rows land before their votes, executed flags after both, and
	// the event batches last.
	assert.Equal(t, []string{"proposal", "vote", "executed", "transfers", "approvals"}, store.calls)
}

type oddEvent struct{}

func (oddEvent) EventName() string { return "Odd" }

func TestApplySkipsUnknownEvents(t *testing.T) {
	store := &fakeStore{}
	ix := New(store, 18, Options{})

	records := []chain.Record{
		record(1, 1, alice, "transfer", oddEvent{}),
		record(2, 1, alice, "transfer", contract.TransferEvent{
			From: alice, To: bob, Amount: big.NewInt(1),
		}),
	}

	require.NoError(t, ix.apply(context.Background(), records))
	assert.Equal(t, 1, store.transferCount())
}

func TestStartFlushesFromBus(t *testing.T) {
	store := &fakeStore{}
	ix := New(store, 18, Options{BatchSize: 2, FlushInterval: 10 * time.Millisecond})

	bus := events.NewBus(nil)
	ix.Start(context.Background(), bus)
	defer ix.Stop()

	bus.Publish(record(1, 1, alice, "transfer", contract.TransferEvent{
		From: alice, To: bob, Amount: big.NewInt(10),
	}))
	bus.Publish(record(2, 2, bob, "transfer", contract.TransferEvent{
		From: bob, To: charlie, Amount: big.NewInt(4),
	}))

	require.Eventually(t, func() bool {
		return store.transferCount() == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStopDrainsBuffer(t *testing.T) {
	store := &fakeStore{}
	// Batch size and interval far beyond the test so only Stop can flush.
	ix := New(store, 18, Options{BatchSize: 1000, FlushInterval: time.Hour})

	bus := events.NewBus(nil)
	ix.Start(context.Background(), bus)

	for i := uint64(1); i <= 5; i++ {
		bus.Publish(record(i, i, alice, "transfer", contract.TransferEvent{
			From: alice, To: bob, Amount: big.NewInt(int64(i)),
		}))
	}

	ix.Stop()
	assert.Equal(t, 5, store.transferCount())
}

func TestFlushRetriesAfterStoreError(t *testing.T) {
	store := &fakeStore{failures: 1}
	ix := New(store, 18, Options{BatchSize: 1, FlushInterval: 10 * time.Millisecond})

	bus := events.NewBus(nil)
	ix.Start(context.Background(), bus)
	defer ix.Stop()

	bus.Publish(record(1, 1, alice, "transfer", contract.TransferEvent{
		From: alice, To: bob, Amount: big.NewInt(7),
	}))

	require.Eventually(t, func() bool {
		return store.transferCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

type stubBalances struct {
	balances map[common.Address]*big.Int
	height   uint64
	at       time.Time
}

func (s stubBalances) HolderBalances() (map[common.Address]*big.Int, uint64, time.Time) {
	return s.balances, s.height, s.at
}

func TestSnapshot(t *testing.T) {
	store := &fakeStore{}
	clock := clockwork.NewFakeClockAt(indexTime)
	ix := New(store, 18, Options{Clock: clock})

	src := stubBalances{
		balances: map[common.Address]*big.Int{
			treasury: big.NewInt(5e17),
			alice:    big.NewInt(3e18),
			bob:      big.NewInt(2e18),
		},
		height: 9,
		at:     indexTime.Add(-time.Minute),
	}

	require.NoError(t, ix.Snapshot(context.Background(), src))
	require.Len(t, store.snapshots, 3)

	// Address order, not map order.
	assert.Equal(t, bob.Hex(), store.snapshots[0].Account)
	assert.Equal(t, treasury.Hex(), store.snapshots[1].Account)
	assert.Equal(t, alice.Hex(), store.snapshots[2].Account)

	for _, row := range store.snapshots {
		assert.Equal(t, uint64(9), row.Height)
		assert.Equal(t, indexTime, row.TakenAt)
	}
	assert.Equal(t, "3", store.snapshots[2].Balance.String())
	assert.Equal(t, "3000000000000000000", store.snapshots[2].RawBalance.String())
}

func TestSnapshotPropagatesStoreError(t *testing.T) {
	store := &fakeStore{failures: 1}
	ix := New(store, 18, Options{})

	src := stubBalances{
		balances: map[common.Address]*big.Int{alice: big.NewInt(1)},
		height:   3,
	}

	err := ix.Snapshot(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "height 3")
}
