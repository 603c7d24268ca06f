package token

import "errors"

// Runtime errors. Every mutating operation either fully applies or returns
// one of these with the ledger untouched.
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidRecipient      = errors.New("invalid recipient")
	ErrInvalidAmount         = errors.New("amount must be a non-negative integer")
	ErrOverflow              = errors.New("amount exceeds uint256 range")
	ErrUnauthorized          = errors.New("caller is not the minter")
	ErrMintingDisabled       = errors.New("minting is disabled")
)

// Construction errors. These are fatal at deployment time and cannot occur
// once the ledger is operating.
var (
	ErrInvalidMetadata = errors.New("token name and symbol are required")
	ErrInvalidSupply   = errors.New("total supply must be a non-negative integer")
	ErrDuplicateGrant  = errors.New("duplicate account in initial distribution")
	ErrSupplyMismatch  = errors.New("initial distribution does not sum to total supply")
)
