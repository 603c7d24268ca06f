// Package token implements the DAO's governance token: a fungible-token
// ledger with balances, allowances, immutable metadata and a
// Transfer/Approval event stream. The ledger owns its state exclusively;
// the host runtime authenticates callers and serializes calls, so no
// locking happens here.
package token

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mshankarrao/Investment-dao/contract"
)

// UnlimitedAllowance is the sentinel allowance (2^256-1) that TransferFrom
// leaves undecremented, matching the ERC-20 convention for "infinite"
// approvals.
var UnlimitedAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Metadata holds the token's immutable descriptive fields. They are set at
// construction and never change.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Grant credits one account in the genesis distribution.
type Grant struct {
	Account common.Address
	Amount  *big.Int
}

// Config describes a ledger to be constructed. Distribution must sum
// exactly to TotalSupply. A zero Minter address disables minting and fixes
// the supply.
type Config struct {
	Metadata     Metadata
	TotalSupply  *big.Int
	Distribution []Grant
	Minter       common.Address
}

// Ledger is the token's entire state: per-account balances, per-(owner,
// spender) allowances and the running total supply. The sum of balances
// equals the total supply after every operation.
type Ledger struct {
	meta   Metadata
	minter common.Address

	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	events contract.Sink
}

// New constructs a ledger from cfg, crediting the genesis distribution and
// emitting one Transfer from the zero address per grant. It fails when the
// metadata is incomplete, a grant names the zero address or a negative
// amount, an account appears twice, or the distribution does not reconcile
// with the declared total supply.
func New(cfg Config, sink contract.Sink) (*Ledger, error) {
	if cfg.Metadata.Name == "" || cfg.Metadata.Symbol == "" {
		return nil, ErrInvalidMetadata
	}
	if cfg.TotalSupply == nil || cfg.TotalSupply.Sign() < 0 {
		return nil, ErrInvalidSupply
	}
	if cfg.TotalSupply.Cmp(UnlimitedAllowance) > 0 {
		return nil, fmt.Errorf("total supply: %w", ErrOverflow)
	}
	if sink == nil {
		sink = contract.NopSink{}
	}

	l := &Ledger{
		meta:       cfg.Metadata,
		minter:     cfg.Minter,
		supply:     new(big.Int).Set(cfg.TotalSupply),
		balances:   make(map[common.Address]*big.Int, len(cfg.Distribution)),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		events:     sink,
	}

	distributed := new(big.Int)
	for _, g := range cfg.Distribution {
		if g.Account == contract.ZeroAddress {
			return nil, fmt.Errorf("grant to zero address: %w", ErrInvalidRecipient)
		}
		if g.Amount == nil || g.Amount.Sign() < 0 {
			return nil, fmt.Errorf("grant to %s: %w", g.Account, ErrInvalidAmount)
		}
		if _, ok := l.balances[g.Account]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGrant, g.Account)
		}
		if g.Amount.Sign() > 0 {
			l.balances[g.Account] = new(big.Int).Set(g.Amount)
		}
		distributed.Add(distributed, g.Amount)
	}
	if distributed.Cmp(cfg.TotalSupply) != 0 {
		return nil, fmt.Errorf("%w: declared %s, distributed %s",
			ErrSupplyMismatch, cfg.TotalSupply, distributed)
	}

	for _, g := range cfg.Distribution {
		l.events.Emit(contract.TransferEvent{
			From:   contract.ZeroAddress,
			To:     g.Account,
			Amount: new(big.Int).Set(g.Amount),
		})
	}

	return l, nil
}

// Metadata returns the immutable construction-time metadata.
func (l *Ledger) Metadata() Metadata { return l.meta }

// Name returns the token name.
func (l *Ledger) Name() string { return l.meta.Name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.meta.Symbol }

// Decimals returns the token's decimal precision.
func (l *Ledger) Decimals() uint8 { return l.meta.Decimals }

// TotalSupply returns the current total supply. The result is a copy.
func (l *Ledger) TotalSupply() *big.Int { return new(big.Int).Set(l.supply) }

// BalanceOf returns the balance of account. Unknown accounts hold zero;
// absence is not an error. The result is a copy.
func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Allowance returns what spender may still transfer on owner's behalf.
// Unset pairs hold zero. The result is a copy.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	if a, ok := l.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// Holders returns every account with a non-zero balance, sorted by address
// for deterministic iteration. Enumerability is a property of the embedded
// ledger that host tooling (snapshots, the read API) depends on.
func (l *Ledger) Holders() []common.Address {
	hs := make([]common.Address, 0, len(l.balances))
	for a := range l.balances {
		hs = append(hs, a)
	}
	sort.Slice(hs, func(i, j int) bool {
		return hs[i].Cmp(hs[j]) < 0
	})
	return hs
}

// Balances returns a copy of the full balance table.
func (l *Ledger) Balances() map[common.Address]*big.Int {
	out := make(map[common.Address]*big.Int, len(l.balances))
	for a, b := range l.balances {
		out[a] = new(big.Int).Set(b)
	}
	return out
}

// checkAmount rejects nil, negative and out-of-range amounts before any
// state is touched.
func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(UnlimitedAllowance) > 0 {
		return ErrOverflow
	}
	return nil
}

// credit adds amount to account, creating the entry as needed.
func (l *Ledger) credit(account common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	if b, ok := l.balances[account]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[account] = new(big.Int).Set(amount)
}

// debit removes amount from account. The caller has already checked the
// balance; a zero result drops the entry so Holders stays tidy.
func (l *Ledger) debit(account common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	b := l.balances[account]
	b.Sub(b, amount)
	if b.Sign() == 0 {
		delete(l.balances, account)
	}
}
