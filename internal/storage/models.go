package storage

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Rows carry every amount twice: RawAmount in base units (NUMERIC(78,0),
// wide enough for uint256) and Amount shifted into human units for ad-hoc
// SQL. Addresses are stored as 0x-prefixed hex text.

// TransferRow is one indexed Transfer event. Sender is the account that
// submitted the message, so a delegated transfer records the spender even
// though FromAccount is the owner.
type TransferRow struct {
	Seq         uint64
	Height      uint64
	OccurredAt  time.Time
	MsgType     string
	Sender      string
	FromAccount string
	ToAccount   string
	RawAmount   decimal.Decimal
	Amount      decimal.Decimal
}

// ApprovalRow is one indexed Approval event carrying the new absolute
// allowance, including the post-decrement value after a delegated transfer.
type ApprovalRow struct {
	Seq        uint64
	Height     uint64
	OccurredAt time.Time
	Owner      string
	Spender    string
	RawAmount  decimal.Decimal
	Amount     decimal.Decimal
}

// ProposalRow mirrors a treasury proposal. Rows are upserted so replays
// after a restart converge on the same state.
type ProposalRow struct {
	ID        uint32
	Proposer  string
	Recipient string
	RawAmount decimal.Decimal
	Amount    decimal.Decimal
	VoteStart time.Time
	VoteEnd   time.Time
	Executed  bool
}

// VoteRow is one ballot with the balance weight it carried.
type VoteRow struct {
	ProposalID uint32
	Voter      string
	Choice     string
	RawWeight  decimal.Decimal
	Weight     decimal.Decimal
	Height     uint64
	OccurredAt time.Time
}

// SnapshotRow is one holder's balance captured by a scheduled snapshot run.
type SnapshotRow struct {
	TakenAt    time.Time
	Height     uint64
	Account    string
	RawBalance decimal.Decimal
	Balance    decimal.Decimal
}

// RawDecimal wraps a base-unit amount for NUMERIC storage.
func RawDecimal(amount *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(amount, 0)
}

// HumanDecimal shifts a base-unit amount into human units.
func HumanDecimal(amount *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -int32(decimals))
}
