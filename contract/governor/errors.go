package governor

import "errors"

// Runtime errors. Every mutating operation either fully applies or returns
// one of these with the proposal book untouched.
var (
	ErrZeroAmount       = errors.New("proposal amount must be greater than zero")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrInvalidPeriod    = errors.New("voting period out of bounds")
	ErrNoVotingPower    = errors.New("caller holds no governance tokens")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrAlreadyVoted     = errors.New("caller already voted on this proposal")
	ErrAlreadyExecuted  = errors.New("proposal already executed")
	ErrVotingClosed     = errors.New("voting period has ended")
	ErrVotingOpen       = errors.New("voting period is still open")
	ErrQuorumNotReached = errors.New("quorum not reached")
	ErrRejected         = errors.New("proposal was not accepted")
)

// Construction errors, fatal at deployment time.
var (
	ErrNoLedger            = errors.New("governance token ledger is required")
	ErrInvalidTreasury     = errors.New("treasury must be a non-zero account")
	ErrInvalidQuorum       = errors.New("quorum percent must be between 1 and 100")
	ErrInvalidApproval     = errors.New("approval percent must be between 1 and 100")
	ErrInvalidPeriodBounds = errors.New("voting period bounds are invalid")
)
