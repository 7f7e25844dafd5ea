package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildhall-studio/guildcoin/core/access"
)

func TestUpdateMaxSupply(t *testing.T) {
	tok := newTestToken(t)

	t.Run("Requires admin", func(t *testing.T) {
		assert.ErrorIs(t, tok.UpdateMaxSupply(minter, 2_000_000), access.ErrUnauthorized)
		assert.Equal(t, uint64(1_000_000), tok.MaxSupply())
	})

	t.Run("Cannot decrease", func(t *testing.T) {
		err := tok.UpdateMaxSupply(admin, tok.MaxSupply()-1)
		assert.ErrorIs(t, err, ErrMaxSupplyDecrease)
		assert.Equal(t, uint64(1_000_000), tok.MaxSupply())
	})

	t.Run("Raising is visible to the next mint", func(t *testing.T) {
		require.NoError(t, tok.UpdateMintingCap(admin, 0)) // lift the per-call quota
		require.NoError(t, tok.Mint(minter, alice, tok.RemainingSupply()))
		assert.ErrorIs(t, tok.Mint(minter, alice, 1), ErrExceedsMaxSupply)

		require.NoError(t, tok.UpdateMaxSupply(admin, tok.MaxSupply()+500))
		assert.NoError(t, tok.Mint(minter, alice, 500))
		assertSupplyInvariant(t, tok)
	})

	t.Run("Cannot drop below issued amount", func(t *testing.T) {
		// An unlimited ceiling can only be fixed at or above what is
		// already issued.
		acl := access.NewRegistry(admin, nil)
		require.NoError(t, acl.GrantRole(admin, access.RoleMinter, minter))
		unlimited, err := New(Config{
			Name: "GuildCoin", Symbol: "GLD", Admin: admin,
		}, acl, nil)
		require.NoError(t, err)
		require.NoError(t, unlimited.Mint(minter, alice, 500))

		assert.ErrorIs(t, unlimited.UpdateMaxSupply(admin, 400), ErrMaxSupplyBelowIssued)
		assert.NoError(t, unlimited.UpdateMaxSupply(admin, 500))
	})

	t.Run("Update carries old and new values", func(t *testing.T) {
		oldMax := tok.MaxSupply()
		require.NoError(t, tok.UpdateMaxSupply(admin, oldMax+1_000))

		events := tok.EventsByType(EventMaxSupplyUpdate)
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, oldMax, last.Metadata["old_max_supply"])
		assert.Equal(t, oldMax+1_000, last.Metadata["new_max_supply"])
	})
}

func TestUpdateMintingCap(t *testing.T) {
	tok := newTestToken(t)

	t.Run("Requires admin", func(t *testing.T) {
		assert.ErrorIs(t, tok.UpdateMintingCap(minter, 1), access.ErrUnauthorized)
		assert.Equal(t, uint64(10_000), tok.MintingCap())
	})

	t.Run("Unconditional for admin", func(t *testing.T) {
		assert.NoError(t, tok.UpdateMintingCap(admin, 5))
		assert.Equal(t, uint64(5), tok.MintingCap())

		assert.ErrorIs(t, tok.Mint(minter, alice, 6), ErrExceedsMintingCap)
		assert.NoError(t, tok.Mint(minter, alice, 5))
	})
}

func TestRemainingSupply(t *testing.T) {
	tok := newTestToken(t)
	assert.Equal(t, uint64(900_000), tok.RemainingSupply())

	require.NoError(t, tok.Mint(minter, alice, 10_000))
	assert.Equal(t, uint64(890_000), tok.RemainingSupply())

	require.NoError(t, tok.Burn(alice, 10_000))
	assert.Equal(t, uint64(900_000), tok.RemainingSupply())

	// Read-only: calling it twice changes nothing.
	assert.Equal(t, tok.RemainingSupply(), tok.RemainingSupply())
}
