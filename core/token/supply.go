package token

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guildhall-studio/guildcoin/core/access"
)

// MaxSupply returns the current supply ceiling (0 = unlimited).
func (t *Token) MaxSupply() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxSupply
}

// MintingCap returns the largest amount a single mint call may add
// (0 = unlimited).
func (t *Token) MintingCap() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mintingCap
}

// RemainingSupply returns how much can still be issued under the ceiling.
func (t *Token) RemainingSupply() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.maxSupply == 0 {
		return ^uint64(0) - t.totalSupply
	}
	return t.maxSupply - t.totalSupply
}

// UpdateMaxSupply raises the supply ceiling. The ceiling is monotone: a
// value below the current ceiling or below the issued amount is rejected.
// Admin only. The change is visible to the next mint check immediately.
func (t *Token) UpdateMaxSupply(caller common.Address, newMax uint64) error {
	if err := t.acl.Require(caller, access.RoleAdmin); err != nil {
		t.log.Warn("max supply update rejected", zap.String("caller", caller.Hex()), zap.Error(err))
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if newMax < t.maxSupply {
		t.log.Warn("max supply update rejected",
			zap.Uint64("current", t.maxSupply),
			zap.Uint64("proposed", newMax))
		return ErrMaxSupplyDecrease
	}
	if newMax < t.totalSupply {
		return ErrMaxSupplyBelowIssued
	}

	oldMax := t.maxSupply
	t.maxSupply = newMax

	t.emitEvent(Event{
		Type:   EventMaxSupplyUpdate,
		From:   caller,
		Amount: newMax,
		TxHash: t.generateTxHash("max_supply", caller.Hex(), newMax),
		Metadata: map[string]interface{}{
			"old_max_supply": oldMax,
			"new_max_supply": newMax,
		},
	})

	t.log.Info("max supply updated",
		zap.String("admin", caller.Hex()),
		zap.Uint64("old", oldMax),
		zap.Uint64("new", newMax))
	return nil
}

// UpdateMintingCap sets the per-call mint quota. Admin only.
func (t *Token) UpdateMintingCap(caller common.Address, newCap uint64) error {
	if err := t.acl.Require(caller, access.RoleAdmin); err != nil {
		t.log.Warn("minting cap update rejected", zap.String("caller", caller.Hex()), zap.Error(err))
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	oldCap := t.mintingCap
	t.mintingCap = newCap

	t.emitEvent(Event{
		Type:   EventMintingCapUpdate,
		From:   caller,
		Amount: newCap,
		TxHash: t.generateTxHash("minting_cap", caller.Hex(), newCap),
		Metadata: map[string]interface{}{
			"old_minting_cap": oldCap,
			"new_minting_cap": newCap,
		},
	})

	t.log.Info("minting cap updated",
		zap.String("admin", caller.Hex()),
		zap.Uint64("old", oldCap),
		zap.Uint64("new", newCap))
	return nil
}
