package token

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guildhall-studio/guildcoin/core/access"
)

// Mint issues amount to the recipient. Caller must hold RoleMinter. A cap
// or max-supply value of zero means unlimited.
func (t *Token) Mint(caller, to common.Address, amount uint64) error {
	if err := t.acl.Require(caller, access.RoleMinter); err != nil {
		t.log.Warn("mint rejected", zap.String("caller", caller.Hex()), zap.Error(err))
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireNotPaused(); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := t.requireNotBlacklisted(to); err != nil {
		return err
	}
	if t.mintingCap > 0 && amount > t.mintingCap {
		t.log.Warn("mint rejected",
			zap.Uint64("amount", amount),
			zap.Uint64("minting_cap", t.mintingCap))
		return ErrExceedsMintingCap
	}
	if err := t.checkSupplyHeadroom(amount); err != nil {
		return err
	}
	if t.balances[to] > ^uint64(0)-amount {
		return ErrOverflow
	}

	t.balances[to] += amount
	t.totalSupply += amount

	t.emitEvent(Event{
		Type:   EventMint,
		To:     to,
		Amount: amount,
		TxHash: t.generateTxHash("mint", to.Hex(), amount),
		Metadata: map[string]interface{}{
			"minter":       caller.Hex(),
			"new_balance":  t.balances[to],
			"total_supply": t.totalSupply,
			"max_supply":   t.maxSupply,
		},
	})

	t.log.Info("mint",
		zap.String("minter", caller.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("amount", amount),
		zap.Uint64("total_supply", t.totalSupply))
	return nil
}

// BatchMint issues to several recipients in one call. Entries whose
// recipient is the zero account or whose amount is zero are skipped; every
// remaining entry is validated (blacklist, per-call cap, aggregate ceiling)
// before anything is committed, so the batch applies entirely or not at all.
func (t *Token) BatchMint(caller common.Address, recipients []common.Address, amounts []uint64) error {
	if err := t.acl.Require(caller, access.RoleMinter); err != nil {
		t.log.Warn("batch mint rejected", zap.String("caller", caller.Hex()), zap.Error(err))
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireNotPaused(); err != nil {
		return err
	}
	if len(recipients) != len(amounts) {
		return ErrLengthMismatch
	}

	// First pass: filter degenerate entries, validate the rest against the
	// per-call cap and the aggregate remaining ceiling.
	var total uint64
	commit := make([]int, 0, len(recipients))
	for i, to := range recipients {
		if to == (common.Address{}) || amounts[i] == 0 {
			continue
		}
		if err := t.requireNotBlacklisted(to); err != nil {
			return err
		}
		if t.mintingCap > 0 && amounts[i] > t.mintingCap {
			return ErrExceedsMintingCap
		}
		if t.balances[to] > ^uint64(0)-amounts[i] {
			return ErrOverflow
		}
		if total > ^uint64(0)-amounts[i] {
			return ErrOverflow
		}
		total += amounts[i]
		commit = append(commit, i)
	}
	if err := t.checkSupplyHeadroom(total); err != nil {
		return err
	}

	// Second pass: commit every validated entry.
	for _, i := range commit {
		t.balances[recipients[i]] += amounts[i]
	}
	t.totalSupply += total

	recipientHexes := make([]string, len(recipients))
	for i, to := range recipients {
		recipientHexes[i] = to.Hex()
	}
	t.emitEvent(Event{
		Type:   EventBatchMint,
		Amount: total,
		TxHash: t.generateTxHash("batch_mint", caller.Hex(), total),
		Metadata: map[string]interface{}{
			"minter":       caller.Hex(),
			"recipients":   recipientHexes,
			"amounts":      amounts,
			"minted":       len(commit),
			"skipped":      len(recipients) - len(commit),
			"total_supply": t.totalSupply,
		},
	})

	t.log.Info("batch mint",
		zap.String("minter", caller.Hex()),
		zap.Int("entries", len(recipients)),
		zap.Int("minted", len(commit)),
		zap.Uint64("total", total))
	return nil
}

// BindSaleModule designates the one account allowed to mint through the
// sale path. Admin only.
func (t *Token) BindSaleModule(caller, module common.Address) error {
	if err := t.acl.Require(caller, access.RoleAdmin); err != nil {
		return err
	}
	if module == (common.Address{}) {
		return ErrZeroAddress
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.saleModule = module
	t.log.Info("sale module bound",
		zap.String("admin", caller.Hex()),
		zap.String("module", module.Hex()))
	return nil
}

// SaleModule returns the account bound as the internal sale minter.
func (t *Token) SaleModule() common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.saleModule
}

// SaleMint issues tokens through the purchase path. It bypasses the public
// minter-role gate (only the bound sale module may call it) but remains
// subject to the pause gate, the blacklist and the max-supply ceiling. The
// per-call minting cap does not apply: it is a quota on the public minter
// role, not on purchases.
func (t *Token) SaleMint(module, to common.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if module == (common.Address{}) || module != t.saleModule {
		t.log.Warn("sale mint rejected", zap.String("caller", module.Hex()))
		return ErrSaleModuleOnly
	}
	if err := t.requireNotPaused(); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := t.requireNotBlacklisted(to); err != nil {
		return err
	}
	if err := t.checkSupplyHeadroom(amount); err != nil {
		return err
	}
	if t.balances[to] > ^uint64(0)-amount {
		return ErrOverflow
	}

	t.balances[to] += amount
	t.totalSupply += amount

	t.emitEvent(Event{
		Type:   EventMint,
		To:     to,
		Amount: amount,
		TxHash: t.generateTxHash("sale_mint", to.Hex(), amount),
		Metadata: map[string]interface{}{
			"sale_module":  module.Hex(),
			"new_balance":  t.balances[to],
			"total_supply": t.totalSupply,
		},
	})

	t.log.Info("sale mint",
		zap.String("to", to.Hex()),
		zap.Uint64("amount", amount),
		zap.Uint64("total_supply", t.totalSupply))
	return nil
}

// checkSupplyHeadroom verifies amount fits under the max-supply ceiling.
// Callers must hold t.mu.
func (t *Token) checkSupplyHeadroom(amount uint64) error {
	if t.totalSupply > ^uint64(0)-amount {
		return ErrOverflow
	}
	if t.maxSupply > 0 && t.totalSupply+amount > t.maxSupply {
		t.log.Warn("supply ceiling hit",
			zap.Uint64("total_supply", t.totalSupply),
			zap.Uint64("requested", amount),
			zap.Uint64("max_supply", t.maxSupply))
		return ErrExceedsMaxSupply
	}
	return nil
}
