package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	tok := newTestToken(t)

	t.Run("Moves balance", func(t *testing.T) {
		err := tok.Transfer(admin, alice, 5_000)
		assert.NoError(t, err)
		assert.Equal(t, uint64(95_000), tok.BalanceOf(admin))
		assert.Equal(t, uint64(5_000), tok.BalanceOf(alice))
		assertSupplyInvariant(t, tok)
	})

	t.Run("Insufficient balance", func(t *testing.T) {
		err := tok.Transfer(alice, bob, 5_001)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, uint64(5_000), tok.BalanceOf(alice))
		assert.Equal(t, uint64(0), tok.BalanceOf(bob))
		assertSupplyInvariant(t, tok)
	})

	t.Run("Rejects zero recipient", func(t *testing.T) {
		err := tok.Transfer(alice, common.Address{}, 100)
		assert.ErrorIs(t, err, ErrZeroAddress)
	})

	t.Run("Rejects zero amount", func(t *testing.T) {
		err := tok.Transfer(alice, bob, 0)
		assert.ErrorIs(t, err, ErrZeroAmount)
	})

	t.Run("Emits transfer event", func(t *testing.T) {
		require.NoError(t, tok.Transfer(alice, bob, 1_000))
		events := tok.EventsByType(EventTransfer)
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, alice, last.From)
		assert.Equal(t, bob, last.To)
		assert.Equal(t, uint64(1_000), last.Amount)
	})

	t.Run("Account can spend its full balance", func(t *testing.T) {
		balance := tok.BalanceOf(bob)
		require.NoError(t, tok.Transfer(bob, carol, balance))
		assert.Equal(t, uint64(0), tok.BalanceOf(bob))
		assert.Equal(t, balance, tok.BalanceOf(carol))
		assertSupplyInvariant(t, tok)
	})
}
