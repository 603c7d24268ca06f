package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mshankarrao/Investment-dao/contract"
)

// Approve sets the caller's allowance for spender to exactly amount
// (absolute set, not additive). Callers that need to avoid the
// set-then-race window should use IncreaseAllowance and DecreaseAllowance
// instead. An explicit zero is stored, not deleted.
func (l *Ledger) Approve(env contract.Env, spender common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if spender == contract.ZeroAddress {
		return ErrInvalidRecipient
	}

	l.setAllowance(env.Caller, spender, new(big.Int).Set(amount))

	l.events.Emit(contract.ApprovalEvent{
		Owner:   env.Caller,
		Spender: spender,
		Amount:  new(big.Int).Set(amount),
	})
	return nil
}

// IncreaseAllowance raises the caller's allowance for spender by delta.
func (l *Ledger) IncreaseAllowance(env contract.Env, spender common.Address, delta *big.Int) error {
	if err := checkAmount(delta); err != nil {
		return err
	}
	if spender == contract.ZeroAddress {
		return ErrInvalidRecipient
	}

	next := new(big.Int).Add(l.Allowance(env.Caller, spender), delta)
	if next.Cmp(UnlimitedAllowance) > 0 {
		return fmt.Errorf("allowance for %s: %w", spender, ErrOverflow)
	}
	l.setAllowance(env.Caller, spender, next)

	l.events.Emit(contract.ApprovalEvent{
		Owner:   env.Caller,
		Spender: spender,
		Amount:  new(big.Int).Set(next),
	})
	return nil
}

// DecreaseAllowance lowers the caller's allowance for spender by delta. It
// fails, leaving the allowance unchanged, when delta exceeds the current
// allowance.
func (l *Ledger) DecreaseAllowance(env contract.Env, spender common.Address, delta *big.Int) error {
	if err := checkAmount(delta); err != nil {
		return err
	}
	if spender == contract.ZeroAddress {
		return ErrInvalidRecipient
	}

	current := l.Allowance(env.Caller, spender)
	if current.Cmp(delta) < 0 {
		return fmt.Errorf("%w: allowance for %s is %s, decrease by %s",
			ErrInsufficientAllowance, spender, current, delta)
	}
	next := new(big.Int).Sub(current, delta)
	l.setAllowance(env.Caller, spender, next)

	l.events.Emit(contract.ApprovalEvent{
		Owner:   env.Caller,
		Spender: spender,
		Amount:  new(big.Int).Set(next),
	})
	return nil
}

// setAllowance stores an owner/spender allowance, creating the inner table
// on first use. The value is stored as given; callers pass fresh copies.
func (l *Ledger) setAllowance(owner, spender common.Address, amount *big.Int) {
	inner, ok := l.allowances[owner]
	if !ok {
		inner = make(map[common.Address]*big.Int)
		l.allowances[owner] = inner
	}
	inner[spender] = amount
}
