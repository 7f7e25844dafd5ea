package token

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Transfer moves amount from the sender to the recipient. The gate chain
// (pause, blacklist on both parties, balance sufficiency) is evaluated to
// completion before any balance changes.
func (t *Token) Transfer(from, to common.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireNotPaused(); err != nil {
		t.log.Warn("transfer rejected", zap.String("from", from.Hex()), zap.Error(err))
		return err
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := t.requireNotBlacklisted(from, to); err != nil {
		t.log.Warn("transfer rejected", zap.String("from", from.Hex()), zap.String("to", to.Hex()), zap.Error(err))
		return err
	}
	if t.balances[from] < amount {
		t.log.Warn("transfer rejected",
			zap.String("from", from.Hex()),
			zap.Uint64("balance", t.balances[from]),
			zap.Uint64("requested", amount))
		return ErrInsufficientBalance
	}
	// Overflow protection for recipient
	if t.balances[to] > ^uint64(0)-amount {
		return ErrOverflow
	}

	oldFromBalance := t.balances[from]
	oldToBalance := t.balances[to]

	t.balances[from] -= amount
	t.balances[to] += amount

	t.emitEvent(Event{
		Type:   EventTransfer,
		From:   from,
		To:     to,
		Amount: amount,
		TxHash: t.generateTxHash("transfer", from.Hex()+":"+to.Hex(), amount),
		Metadata: map[string]interface{}{
			"from_old_balance": oldFromBalance,
			"from_new_balance": t.balances[from],
			"to_old_balance":   oldToBalance,
			"to_new_balance":   t.balances[to],
			"total_supply":     t.totalSupply,
		},
	})

	t.log.Info("transfer",
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("amount", amount))
	return nil
}
