package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurn(t *testing.T) {
	tok := newTestToken(t)
	require.NoError(t, tok.Transfer(admin, alice, 10_000))

	t.Run("Reduces balance and supply together", func(t *testing.T) {
		supplyBefore := tok.TotalSupply()
		err := tok.Burn(alice, 4_000)
		assert.NoError(t, err)
		assert.Equal(t, uint64(6_000), tok.BalanceOf(alice))
		assert.Equal(t, supplyBefore-4_000, tok.TotalSupply())
		assertSupplyInvariant(t, tok)
	})

	t.Run("Insufficient balance", func(t *testing.T) {
		err := tok.Burn(alice, 6_001)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, uint64(6_000), tok.BalanceOf(alice))
	})

	t.Run("Rejects zero amount", func(t *testing.T) {
		assert.ErrorIs(t, tok.Burn(alice, 0), ErrZeroAmount)
	})

	t.Run("Burn frees supply headroom", func(t *testing.T) {
		remainingBefore := tok.RemainingSupply()
		require.NoError(t, tok.Burn(alice, 1_000))
		assert.Equal(t, remainingBefore+1_000, tok.RemainingSupply())
	})

	t.Run("Emits burn event", func(t *testing.T) {
		events := tok.EventsByType(EventBurn)
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, alice, last.From)
		assert.Equal(t, uint64(1_000), last.Amount)
	})
}
