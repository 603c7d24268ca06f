package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mshankarrao/Investment-dao/contract"
)

// Transfer moves amount from the caller to `to`. Zero-amount transfers are
// legal and still emit an event. The operation is atomic: every check runs
// before the first write.
func (l *Ledger) Transfer(env contract.Env, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == contract.ZeroAddress {
		return ErrInvalidRecipient
	}
	if l.BalanceOf(env.Caller).Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s holds %s, needs %s",
			ErrInsufficientBalance, env.Caller, l.BalanceOf(env.Caller), amount)
	}

	l.debit(env.Caller, amount)
	l.credit(to, amount)

	l.events.Emit(contract.TransferEvent{
		From:   env.Caller,
		To:     to,
		Amount: new(big.Int).Set(amount),
	})
	return nil
}

// TransferFrom spends the caller's allowance to move amount from `from` to
// `to`. The allowance is checked before the balance, decremented after the
// move unless it is the unlimited sentinel, and re-announced with an
// Approval event whenever it changed.
func (l *Ledger) TransferFrom(env contract.Env, from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == contract.ZeroAddress {
		return ErrInvalidRecipient
	}

	allowance := l.Allowance(from, env.Caller)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s approved %s for %s, needs %s",
			ErrInsufficientAllowance, from, allowance, env.Caller, amount)
	}
	if l.BalanceOf(from).Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s holds %s, needs %s",
			ErrInsufficientBalance, from, l.BalanceOf(from), amount)
	}

	unlimited := allowance.Cmp(UnlimitedAllowance) == 0
	if !unlimited {
		l.setAllowance(from, env.Caller, new(big.Int).Sub(allowance, amount))
	}
	l.debit(from, amount)
	l.credit(to, amount)

	l.events.Emit(contract.TransferEvent{
		From:   from,
		To:     to,
		Amount: new(big.Int).Set(amount),
	})
	if !unlimited {
		l.events.Emit(contract.ApprovalEvent{
			Owner:   from,
			Spender: env.Caller,
			Amount:  l.Allowance(from, env.Caller),
		})
	}
	return nil
}

// Mint creates amount new tokens for `to`, growing the supply. Only the
// configured minter may call it; a ledger constructed without a minter has
// a fixed supply.
func (l *Ledger) Mint(env contract.Env, to common.Address, amount *big.Int) error {
	if l.minter == contract.ZeroAddress {
		return ErrMintingDisabled
	}
	if env.Caller != l.minter {
		return ErrUnauthorized
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == contract.ZeroAddress {
		return ErrInvalidRecipient
	}
	if new(big.Int).Add(l.supply, amount).Cmp(UnlimitedAllowance) > 0 {
		return fmt.Errorf("minting %s: %w", amount, ErrOverflow)
	}

	l.supply.Add(l.supply, amount)
	l.credit(to, amount)

	l.events.Emit(contract.TransferEvent{
		From:   contract.ZeroAddress,
		To:     to,
		Amount: new(big.Int).Set(amount),
	})
	return nil
}

// Burn destroys amount tokens from the caller's balance, shrinking the
// supply.
func (l *Ledger) Burn(env contract.Env, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if l.BalanceOf(env.Caller).Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s holds %s, burns %s",
			ErrInsufficientBalance, env.Caller, l.BalanceOf(env.Caller), amount)
	}

	l.debit(env.Caller, amount)
	l.supply.Sub(l.supply, amount)

	l.events.Emit(contract.TransferEvent{
		From:   env.Caller,
		To:     contract.ZeroAddress,
		Amount: new(big.Int).Set(amount),
	})
	return nil
}
