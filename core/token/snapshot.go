package token

import (
	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is a full copy of the ledger state, used by the persistence
// layer to survive restarts.
type Snapshot struct {
	TotalSupply uint64                                       `json:"total_supply"`
	MaxSupply   uint64                                       `json:"max_supply"`
	MintingCap  uint64                                       `json:"minting_cap"`
	Paused      bool                                         `json:"paused"`
	SaleModule  common.Address                               `json:"sale_module"`
	Balances    map[common.Address]uint64                    `json:"balances"`
	Allowances  map[common.Address]map[common.Address]uint64 `json:"allowances"`
	Blacklist   []common.Address                             `json:"blacklist"`
}

// Snapshot returns a deep copy of the current state.
func (t *Token) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		TotalSupply: t.totalSupply,
		MaxSupply:   t.maxSupply,
		MintingCap:  t.mintingCap,
		Paused:      t.paused,
		SaleModule:  t.saleModule,
		Balances:    make(map[common.Address]uint64, len(t.balances)),
		Allowances:  make(map[common.Address]map[common.Address]uint64, len(t.allowances)),
		Blacklist:   make([]common.Address, 0, len(t.blacklist)),
	}
	for addr, balance := range t.balances {
		snap.Balances[addr] = balance
	}
	for owner, spenders := range t.allowances {
		inner := make(map[common.Address]uint64, len(spenders))
		for spender, amount := range spenders {
			inner[spender] = amount
		}
		snap.Allowances[owner] = inner
	}
	for addr := range t.blacklist {
		snap.Blacklist = append(snap.Blacklist, addr)
	}
	return snap
}

// Restore replaces the ledger state with the snapshot. Intended for loading
// persisted state at startup, before the instance is shared. The event log
// is reset: events recorded before the restore (the constructor's genesis
// mint included) describe a state this instance no longer holds.
func (t *Token) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = []Event{}
	t.totalSupply = snap.TotalSupply
	t.maxSupply = snap.MaxSupply
	t.mintingCap = snap.MintingCap
	t.paused = snap.Paused
	t.saleModule = snap.SaleModule

	t.balances = make(map[common.Address]uint64, len(snap.Balances))
	for addr, balance := range snap.Balances {
		if balance > 0 {
			t.balances[addr] = balance
		}
	}
	t.allowances = make(map[common.Address]map[common.Address]uint64, len(snap.Allowances))
	for owner, spenders := range snap.Allowances {
		inner := make(map[common.Address]uint64, len(spenders))
		for spender, amount := range spenders {
			inner[spender] = amount
		}
		t.allowances[owner] = inner
	}
	t.blacklist = make(map[common.Address]bool, len(snap.Blacklist))
	for _, addr := range snap.Blacklist {
		t.blacklist[addr] = true
	}
}
