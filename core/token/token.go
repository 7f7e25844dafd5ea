// Package token implements the guild ledger core: a role-gated,
// supply-capped fungible-asset ledger with pause control and an account
// blacklist. All state (balances, allowances, supply counters, pause flag,
// blacklist) lives on a single Token aggregate so independent instances can
// coexist in one process. Every mutating operation validates the full gate
// chain (pause → blacklist → funds → supply) before touching any state.
package token

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guildhall-studio/guildcoin/core/access"
)

// Config carries the immutable parameters the ledger is created with.
type Config struct {
	Name          string
	Symbol        string
	Decimals      uint8
	MaxSupply     uint64
	MintingCap    uint64
	InitialSupply uint64
	Admin         common.Address
}

type Token struct {
	Name     string
	Symbol   string
	Decimals uint8

	totalSupply uint64
	maxSupply   uint64
	mintingCap  uint64

	balances   map[common.Address]uint64
	allowances map[common.Address]map[common.Address]uint64
	blacklist  map[common.Address]bool
	paused     bool
	saleModule common.Address

	acl      *access.Registry
	events   []Event
	handlers []EventHandler
	mu       sync.RWMutex
	log      *zap.Logger
}

// New creates a ledger with the initial supply credited to the admin
// account. The admin address must be non-zero and the initial supply must
// fit under the max-supply ceiling.
func New(cfg Config, acl *access.Registry, logger *zap.Logger) (*Token, error) {
	if cfg.Admin == (common.Address{}) {
		return nil, fmt.Errorf("admin: %w", ErrZeroAddress)
	}
	if cfg.InitialSupply > cfg.MaxSupply {
		return nil, fmt.Errorf("initial supply %d: %w", cfg.InitialSupply, ErrExceedsMaxSupply)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Token{
		Name:       cfg.Name,
		Symbol:     cfg.Symbol,
		Decimals:   cfg.Decimals,
		maxSupply:  cfg.MaxSupply,
		mintingCap: cfg.MintingCap,
		balances:   make(map[common.Address]uint64),
		allowances: make(map[common.Address]map[common.Address]uint64),
		blacklist:  make(map[common.Address]bool),
		events:     []Event{},
		acl:        acl,
		log:        logger,
	}

	if cfg.InitialSupply > 0 {
		t.balances[cfg.Admin] = cfg.InitialSupply
		t.totalSupply = cfg.InitialSupply
		t.emitEvent(Event{
			Type:   EventMint,
			To:     cfg.Admin,
			Amount: cfg.InitialSupply,
			TxHash: t.generateTxHash("genesis", cfg.Admin.Hex(), cfg.InitialSupply),
			Metadata: map[string]interface{}{
				"genesis":      true,
				"total_supply": t.totalSupply,
			},
		})
	}

	logger.Info("ledger initialized",
		zap.String("name", cfg.Name),
		zap.String("symbol", cfg.Symbol),
		zap.Uint64("initial_supply", cfg.InitialSupply),
		zap.Uint64("max_supply", cfg.MaxSupply),
		zap.Uint64("minting_cap", cfg.MintingCap))
	return t, nil
}

// Access returns the access-control registry this ledger is gated by.
func (t *Token) Access() *access.Registry {
	return t.acl
}

func (t *Token) BalanceOf(address common.Address) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[address]
}

func (t *Token) TotalSupply() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply
}

// generateTxHash generates a unique transaction hash for events.
func (t *Token) generateTxHash(operation, subject string, amount uint64) string {
	data := fmt.Sprintf("%s_%s_%s_%d_%d",
		t.Symbol, operation, subject, amount, time.Now().UnixNano())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("0x%x", hash[:8])
}

// Status returns a snapshot of the ledger configuration and counters.
func (t *Token) Status() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return map[string]interface{}{
		"name":         t.Name,
		"symbol":       t.Symbol,
		"decimals":     t.Decimals,
		"total_supply": t.totalSupply,
		"max_supply":   t.maxSupply,
		"minting_cap":  t.mintingCap,
		"paused":       t.paused,
		"blacklisted":  len(t.blacklist),
		"holders":      len(t.balances),
	}
}

// requireNotPaused rejects balance-mutating operations while paused.
// Callers must hold t.mu.
func (t *Token) requireNotPaused() error {
	if t.paused {
		return ErrPaused
	}
	return nil
}

// requireNotBlacklisted rejects any party currently flagged. Callers must
// hold t.mu.
func (t *Token) requireNotBlacklisted(parties ...common.Address) error {
	for _, party := range parties {
		if t.blacklist[party] {
			return fmt.Errorf("%w: %s", ErrBlacklisted, party.Hex())
		}
	}
	return nil
}
