package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshankarrao/Investment-dao/contract"
)

func TestApprove(t *testing.T) {
	t.Run("sets absolute allowance", func(t *testing.T) {
		l := newLedger(t, nil)

		require.NoError(t, l.Approve(env(alice), bob, big.NewInt(100)))
		require.NoError(t, l.Approve(env(alice), bob, big.NewInt(40)))

		// Absolute set, not additive.
		assert.Equal(t, "40", l.Allowance(alice, bob).String())
	})

	t.Run("allowance may exceed balance", func(t *testing.T) {
		l := newLedger(t, nil)

		require.NoError(t, l.Approve(env(alice), bob, big.NewInt(1000000)))
		assert.Equal(t, "1000000", l.Allowance(alice, bob).String())
	})

	t.Run("explicit zero is stored", func(t *testing.T) {
		rec := &recorder{}
		l := newLedger(t, rec)
		require.NoError(t, l.Approve(env(alice), bob, big.NewInt(100)))
		rec.reset()

		require.NoError(t, l.Approve(env(alice), bob, big.NewInt(0)))
		assert.Equal(t, "0", l.Allowance(alice, bob).String())

		require.Len(t, rec.events, 1)
		ev, ok := rec.events[0].(contract.ApprovalEvent)
		require.True(t, ok)
		assert.Equal(t, "0", ev.Amount.String())
	})

	t.Run("zero address spender", func(t *testing.T) {
		l := newLedger(t, nil)

		err := l.Approve(env(alice), contract.ZeroAddress, big.NewInt(10))
		assert.ErrorIs(t, err, ErrInvalidRecipient)
	})

	t.Run("negative amount", func(t *testing.T) {
		l := newLedger(t, nil)

		err := l.Approve(env(alice), bob, big.NewInt(-1))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestApproveEmitsEvent(t *testing.T) {
	rec := &recorder{}
	l := newLedger(t, rec)
	rec.reset()

	require.NoError(t, l.Approve(env(alice), bob, big.NewInt(77)))

	require.Len(t, rec.events, 1)
	ev, ok := rec.events[0].(contract.ApprovalEvent)
	require.True(t, ok)
	assert.Equal(t, alice, ev.Owner)
	assert.Equal(t, bob, ev.Spender)
	assert.Equal(t, "77", ev.Amount.String())
}

func TestIncreaseAllowance(t *testing.T) {
	t.Run("accumulates", func(t *testing.T) {
		l := newLedger(t, nil)

		require.NoError(t, l.IncreaseAllowance(env(alice), bob, big.NewInt(100)))
		require.NoError(t, l.IncreaseAllowance(env(alice), bob, big.NewInt(50)))

		assert.Equal(t, "150", l.Allowance(alice, bob).String())
	})

	t.Run("overflow above uint256", func(t *testing.T) {
		l := newLedger(t, nil)
		require.NoError(t, l.Approve(env(alice), bob, new(big.Int).Set(UnlimitedAllowance)))

		err := l.IncreaseAllowance(env(alice), bob, big.NewInt(1))
		require.ErrorIs(t, err, ErrOverflow)
		assert.Equal(t, UnlimitedAllowance.String(), l.Allowance(alice, bob).String())
	})

	t.Run("event carries the new total", func(t *testing.T) {
		rec := &recorder{}
		l := newLedger(t, rec)
		require.NoError(t, l.IncreaseAllowance(env(alice), bob, big.NewInt(100)))
		rec.reset()

		require.NoError(t, l.IncreaseAllowance(env(alice), bob, big.NewInt(50)))

		require.Len(t, rec.events, 1)
		ev, ok := rec.events[0].(contract.ApprovalEvent)
		require.True(t, ok)
		assert.Equal(t, "150", ev.Amount.String())
	})
}

func TestDecreaseAllowance(t *testing.T) {
	t.Run("subtracts", func(t *testing.T) {
		l := newLedger(t, nil)
		require.NoError(t, l.Approve(env(alice), bob, big.NewInt(100)))

		require.NoError(t, l.DecreaseAllowance(env(alice), bob, big.NewInt(30)))
		assert.Equal(t, "70", l.Allowance(alice, bob).String())
	})

	t.Run("to exactly zero", func(t *testing.T) {
		l := newLedger(t, nil)
		require.NoError(t, l.Approve(env(alice), bob, big.NewInt(100)))

		require.NoError(t, l.DecreaseAllowance(env(alice), bob, big.NewInt(100)))
		assert.Equal(t, "0", l.Allowance(alice, bob).String())
	})

	t.Run("below zero fails and leaves the allowance", func(t *testing.T) {
		l := newLedger(t, nil)
		require.NoError(t, l.Approve(env(alice), bob, big.NewInt(100)))

		err := l.DecreaseAllowance(env(alice), bob, big.NewInt(101))
		require.ErrorIs(t, err, ErrInsufficientAllowance)
		assert.Equal(t, "100", l.Allowance(alice, bob).String())
	})

	t.Run("from an unset pair", func(t *testing.T) {
		l := newLedger(t, nil)

		err := l.DecreaseAllowance(env(alice), bob, big.NewInt(1))
		assert.ErrorIs(t, err, ErrInsufficientAllowance)
	})
}
