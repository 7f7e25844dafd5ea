package token

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Approve sets the spender's allowance against the owner. Re-approval
// overwrites the previous allowance, it does not add to it.
func (t *Token) Approve(owner, spender common.Address, amount uint64) error {
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]uint64)
	}
	oldAllowance := t.allowances[owner][spender]
	t.allowances[owner][spender] = amount

	t.emitEvent(Event{
		Type:   EventApproval,
		From:   owner,
		To:     spender,
		Amount: amount,
		TxHash: t.generateTxHash("approval", owner.Hex()+":"+spender.Hex(), amount),
		Metadata: map[string]interface{}{
			"old_allowance": oldAllowance,
			"new_allowance": amount,
		},
	})

	t.log.Info("approval",
		zap.String("owner", owner.Hex()),
		zap.String("spender", spender.Hex()),
		zap.Uint64("amount", amount))
	return nil
}

// Allowance returns the amount the spender may still move on the owner's
// behalf.
func (t *Token) Allowance(owner, spender common.Address) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.allowances[owner] == nil {
		return 0
	}
	return t.allowances[owner][spender]
}

// TransferFrom moves amount from owner to recipient on the spender's
// authority. The allowance and both balances change together or not at all;
// every precondition is checked before the first write.
func (t *Token) TransferFrom(spender, owner, to common.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireNotPaused(); err != nil {
		t.log.Warn("transferFrom rejected", zap.String("spender", spender.Hex()), zap.Error(err))
		return err
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := t.requireNotBlacklisted(owner, to); err != nil {
		t.log.Warn("transferFrom rejected",
			zap.String("owner", owner.Hex()),
			zap.String("to", to.Hex()),
			zap.Error(err))
		return err
	}
	if t.allowances[owner] == nil || t.allowances[owner][spender] < amount {
		t.log.Warn("transferFrom rejected",
			zap.String("spender", spender.Hex()),
			zap.Uint64("allowance", t.allowances[owner][spender]),
			zap.Uint64("requested", amount))
		return ErrInsufficientAllowance
	}
	if t.balances[owner] < amount {
		return ErrInsufficientBalance
	}
	if t.balances[to] > ^uint64(0)-amount {
		return ErrOverflow
	}

	oldOwnerBalance := t.balances[owner]
	oldToBalance := t.balances[to]
	oldAllowance := t.allowances[owner][spender]

	t.balances[owner] -= amount
	t.balances[to] += amount
	t.allowances[owner][spender] -= amount

	t.emitEvent(Event{
		Type:   EventTransfer,
		From:   owner,
		To:     to,
		Amount: amount,
		TxHash: t.generateTxHash("transferFrom", owner.Hex()+":"+to.Hex(), amount),
		Metadata: map[string]interface{}{
			"spender":           spender.Hex(),
			"owner_old_balance": oldOwnerBalance,
			"owner_new_balance": t.balances[owner],
			"to_old_balance":    oldToBalance,
			"to_new_balance":    t.balances[to],
			"old_allowance":     oldAllowance,
			"new_allowance":     t.allowances[owner][spender],
			"transfer_type":     "delegated",
		},
	})

	t.log.Info("transferFrom",
		zap.String("spender", spender.Hex()),
		zap.String("owner", owner.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("amount", amount))
	return nil
}
