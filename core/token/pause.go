package token

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guildhall-studio/guildcoin/core/access"
)

// Pause blocks every balance-mutating operation until Unpause. Read queries
// and role, blacklist and supply administration stay available. Pausing an
// already-paused ledger is a no-op success.
func (t *Token) Pause(caller common.Address) error {
	return t.setPaused(caller, true)
}

// Unpause lifts the pause gate. Unpausing an already-running ledger is a
// no-op success.
func (t *Token) Unpause(caller common.Address) error {
	return t.setPaused(caller, false)
}

// Paused reports whether the global pause gate is closed.
func (t *Token) Paused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

func (t *Token) setPaused(caller common.Address, paused bool) error {
	if err := t.acl.Require(caller, access.RolePauser); err != nil {
		t.log.Warn("pause change rejected", zap.String("caller", caller.Hex()), zap.Error(err))
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.paused == paused {
		return nil
	}
	t.paused = paused

	t.emitEvent(Event{
		Type:   EventPauseUpdate,
		From:   caller,
		TxHash: t.generateTxHash("pause", caller.Hex(), 0),
		Metadata: map[string]interface{}{
			"paused": paused,
		},
	})

	t.log.Info("pause state changed",
		zap.String("pauser", caller.Hex()),
		zap.Bool("paused", paused))
	return nil
}
