package token

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Burn destroys amount from the caller's own balance, reducing total supply
// symmetrically to mint.
func (t *Token) Burn(caller common.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.burn(caller, caller, amount)
}

// BurnFrom destroys amount from the owner's balance on the caller's
// authority, consuming the caller's allowance exactly like TransferFrom.
func (t *Token) BurnFrom(caller, owner common.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireNotPaused(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if t.allowances[owner] == nil || t.allowances[owner][caller] < amount {
		t.log.Warn("burnFrom rejected",
			zap.String("caller", caller.Hex()),
			zap.Uint64("allowance", t.allowances[owner][caller]),
			zap.Uint64("requested", amount))
		return ErrInsufficientAllowance
	}
	if err := t.burn(caller, owner, amount); err != nil {
		return err
	}
	t.allowances[owner][caller] -= amount
	return nil
}

// burn applies the shared burn gate chain and mutation. Callers must hold
// t.mu and have verified any allowance precondition.
func (t *Token) burn(caller, from common.Address, amount uint64) error {
	if err := t.requireNotPaused(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := t.requireNotBlacklisted(from); err != nil {
		t.log.Warn("burn rejected", zap.String("from", from.Hex()))
		return err
	}
	if t.balances[from] < amount {
		t.log.Warn("burn rejected",
			zap.String("from", from.Hex()),
			zap.Uint64("balance", t.balances[from]),
			zap.Uint64("requested", amount))
		return ErrInsufficientBalance
	}

	oldBalance := t.balances[from]
	oldTotalSupply := t.totalSupply

	t.balances[from] -= amount
	t.totalSupply -= amount

	t.emitEvent(Event{
		Type:   EventBurn,
		From:   from,
		Amount: amount,
		TxHash: t.generateTxHash("burn", from.Hex(), amount),
		Metadata: map[string]interface{}{
			"caller":           caller.Hex(),
			"old_balance":      oldBalance,
			"new_balance":      t.balances[from],
			"old_total_supply": oldTotalSupply,
			"new_total_supply": t.totalSupply,
		},
	})

	t.log.Info("burn",
		zap.String("from", from.Hex()),
		zap.Uint64("amount", amount),
		zap.Uint64("total_supply", t.totalSupply))
	return nil
}
