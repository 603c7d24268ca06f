package chain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mshankarrao/Investment-dao/contract"
	"github.com/mshankarrao/Investment-dao/contract/governor"
)

// Message type tags. Every record published by the chain carries the tag of
// the message that produced it; genesis records carry MsgTypeGenesis.
const (
	MsgTypeTransfer          = "transfer"
	MsgTypeApprove           = "approve"
	MsgTypeIncreaseAllowance = "increase_allowance"
	MsgTypeDecreaseAllowance = "decrease_allowance"
	MsgTypeTransferFrom      = "transfer_from"
	MsgTypeMint              = "mint"
	MsgTypeBurn              = "burn"
	MsgTypePropose           = "propose"
	MsgTypeVote              = "vote"
	MsgTypeExecute           = "execute"
	MsgTypeGenesis           = "genesis"
)

// Msg is a state-changing instruction submitted to the chain. The concrete
// type selects the contract operation; Submit authenticates the sender and
// dispatches.
type Msg interface {
	Type() string
}

// TransferMsg moves tokens from the sender to To.
type TransferMsg struct {
	To     common.Address
	Amount *big.Int
}

// ApproveMsg sets the allowance of Spender over the sender's tokens to
// exactly Amount.
type ApproveMsg struct {
	Spender common.Address
	Amount  *big.Int
}

// IncreaseAllowanceMsg raises the allowance of Spender by Amount.
type IncreaseAllowanceMsg struct {
	Spender common.Address
	Amount  *big.Int
}

// DecreaseAllowanceMsg lowers the allowance of Spender by Amount.
type DecreaseAllowanceMsg struct {
	Spender common.Address
	Amount  *big.Int
}

// TransferFromMsg spends the sender's allowance to move Owner's tokens to To.
type TransferFromMsg struct {
	Owner  common.Address
	To     common.Address
	Amount *big.Int
}

// MintMsg creates Amount new tokens for To. Only the configured minter may
// send it.
type MintMsg struct {
	To     common.Address
	Amount *big.Int
}

// BurnMsg destroys Amount tokens from the sender's balance.
type BurnMsg struct {
	Amount *big.Int
}

// ProposeMsg opens a treasury-spend proposal paying Amount to Recipient,
// with voting open for Period.
type ProposeMsg struct {
	Recipient common.Address
	Amount    *big.Int
	Period    time.Duration
}

// VoteMsg casts the sender's ballot on a proposal, weighted by their
// current token balance.
type VoteMsg struct {
	ProposalID uint32
	Choice     governor.VoteChoice
}

// ExecuteMsg settles a proposal whose voting period has ended.
type ExecuteMsg struct {
	ProposalID uint32
}

func (TransferMsg) Type() string          { return MsgTypeTransfer }
func (ApproveMsg) Type() string           { return MsgTypeApprove }
func (IncreaseAllowanceMsg) Type() string { return MsgTypeIncreaseAllowance }
func (DecreaseAllowanceMsg) Type() string { return MsgTypeDecreaseAllowance }
func (TransferFromMsg) Type() string      { return MsgTypeTransferFrom }
func (MintMsg) Type() string              { return MsgTypeMint }
func (BurnMsg) Type() string              { return MsgTypeBurn }
func (ProposeMsg) Type() string           { return MsgTypePropose }
func (VoteMsg) Type() string              { return MsgTypeVote }
func (ExecuteMsg) Type() string           { return MsgTypeExecute }

// Envelope is the wire form of a submission: one flat JSON object whose
// "type" field selects the message and whose remaining fields fill it in.
// Amounts are base-unit decimal strings, addresses are 0x-prefixed hex, and
// periods use Go duration syntax ("90m", "24h").
type Envelope struct {
	Type       string `json:"type"`
	From       string `json:"from"`
	To         string `json:"to,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Spender    string `json:"spender,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Choice     string `json:"choice,omitempty"`
	Period     string `json:"period,omitempty"`
	ProposalID uint32 `json:"proposal_id,omitempty"`
}

// Message validates the envelope and converts it into a sender address and a
// typed message ready for Submit. All errors are malformed-submission
// errors; contract-level rejections surface later, from Submit.
func (e Envelope) Message() (common.Address, Msg, error) {
	from, err := parseAddr("from", e.From)
	if err != nil {
		return common.Address{}, nil, err
	}
	if from == contract.ZeroAddress {
		return common.Address{}, nil, fmt.Errorf("from must not be the zero address")
	}

	switch e.Type {
	case MsgTypeTransfer:
		to, err := parseAddr("to", e.To)
		if err != nil {
			return common.Address{}, nil, err
		}
		amount, err := parseAmount(e.Amount)
		if err != nil {
			return common.Address{}, nil, err
		}
		return from, TransferMsg{To: to, Amount: amount}, nil

	case MsgTypeApprove, MsgTypeIncreaseAllowance, MsgTypeDecreaseAllowance:
		spender, err := parseAddr("spender", e.Spender)
		if err != nil {
			return common.Address{}, nil, err
		}
		amount, err := parseAmount(e.Amount)
		if err != nil {
			return common.Address{}, nil, err
		}
		switch e.Type {
		case MsgTypeIncreaseAllowance:
			return from, IncreaseAllowanceMsg{Spender: spender, Amount: amount}, nil
		case MsgTypeDecreaseAllowance:
			return from, DecreaseAllowanceMsg{Spender: spender, Amount: amount}, nil
		default:
			return from, ApproveMsg{Spender: spender, Amount: amount}, nil
		}

	case MsgTypeTransferFrom:
		owner, err := parseAddr("owner", e.Owner)
		if err != nil {
			return common.Address{}, nil, err
		}
		to, err := parseAddr("to", e.To)
		if err != nil {
			return common.Address{}, nil, err
		}
		amount, err := parseAmount(e.Amount)
		if err != nil {
			return common.Address{}, nil, err
		}
		return from, TransferFromMsg{Owner: owner, To: to, Amount: amount}, nil

	case MsgTypeMint:
		to, err := parseAddr("to", e.To)
		if err != nil {
			return common.Address{}, nil, err
		}
		amount, err := parseAmount(e.Amount)
		if err != nil {
			return common.Address{}, nil, err
		}
		return from, MintMsg{To: to, Amount: amount}, nil

	case MsgTypeBurn:
		amount, err := parseAmount(e.Amount)
		if err != nil {
			return common.Address{}, nil, err
		}
		return from, BurnMsg{Amount: amount}, nil

	case MsgTypePropose:
		recipient, err := parseAddr("recipient", e.Recipient)
		if err != nil {
			return common.Address{}, nil, err
		}
		amount, err := parseAmount(e.Amount)
		if err != nil {
			return common.Address{}, nil, err
		}
		if e.Period == "" {
			return common.Address{}, nil, fmt.Errorf("period is required")
		}
		period, err := time.ParseDuration(e.Period)
		if err != nil {
			return common.Address{}, nil, fmt.Errorf("invalid period %q: %w", e.Period, err)
		}
		return from, ProposeMsg{Recipient: recipient, Amount: amount, Period: period}, nil

	case MsgTypeVote:
		if e.ProposalID == 0 {
			return common.Address{}, nil, fmt.Errorf("proposal_id is required")
		}
		choice, err := governor.ParseVoteChoice(e.Choice)
		if err != nil {
			return common.Address{}, nil, err
		}
		return from, VoteMsg{ProposalID: e.ProposalID, Choice: choice}, nil

	case MsgTypeExecute:
		if e.ProposalID == 0 {
			return common.Address{}, nil, fmt.Errorf("proposal_id is required")
		}
		return from, ExecuteMsg{ProposalID: e.ProposalID}, nil

	case "":
		return common.Address{}, nil, fmt.Errorf("type is required")

	default:
		return common.Address{}, nil, fmt.Errorf("unknown message type %q", e.Type)
	}
}

func parseAddr(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, fmt.Errorf("%s is required", field)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", field, s)
	}
	return common.HexToAddress(s), nil
}

// parseAmount accepts base-10 base-unit integers. Zero is syntactically
// valid here; contracts that forbid it reject it themselves.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("amount is required")
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative, got %s", s)
	}
	return n, nil
}
