package contract

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Canonical ERC-20 event signature hashes. The token ledger is not an EVM
// contract, but its event stream keeps the canonical topics so off-the-shelf
// ERC-20 tooling can classify indexed rows.
var (
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	ApprovalTopic = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
)

// TransferEvent records a balance movement. Mints carry the zero address as
// From, burns carry it as To.
type TransferEvent struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (TransferEvent) EventName() string { return "Transfer" }

// ApprovalEvent records the new absolute allowance granted by Owner to
// Spender, including the post-decrement value after a TransferFrom.
type ApprovalEvent struct {
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
}

func (ApprovalEvent) EventName() string { return "Approval" }

// ProposalCreatedEvent records a new treasury proposal and its voting window.
type ProposalCreatedEvent struct {
	ID        uint32
	Proposer  common.Address
	Recipient common.Address
	Amount    *big.Int
	VoteStart time.Time
	VoteEnd   time.Time
}

func (ProposalCreatedEvent) EventName() string { return "ProposalCreated" }

// VoteCastEvent records a single ballot and the balance weight it carried.
type VoteCastEvent struct {
	ID     uint32
	Voter  common.Address
	Choice string
	Weight *big.Int
}

func (VoteCastEvent) EventName() string { return "VoteCast" }

// ProposalExecutedEvent records a successful treasury payout.
type ProposalExecutedEvent struct {
	ID        uint32
	Recipient common.Address
	Amount    *big.Int
}

func (ProposalExecutedEvent) EventName() string { return "ProposalExecuted" }

// Topic returns the canonical signature hash for events that have one.
func Topic(e Event) (common.Hash, bool) {
	switch e.(type) {
	case TransferEvent:
		return TransferTopic, true
	case ApprovalEvent:
		return ApprovalTopic, true
	default:
		return common.Hash{}, false
	}
}
