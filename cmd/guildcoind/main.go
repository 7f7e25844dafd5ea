// guildcoind hosts the guild ledger core behind a small HTTP/WebSocket API
// for the purchase UI. All state is kept in the in-process ledger and
// snapshotted to a bbolt database so it survives restarts.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/guildhall-studio/guildcoin/core/access"
	"github.com/guildhall-studio/guildcoin/core/crowdsale"
	"github.com/guildhall-studio/guildcoin/core/storage"
	"github.com/guildhall-studio/guildcoin/core/token"
	"github.com/guildhall-studio/guildcoin/feed"
)

type Config struct {
	ListenAddr    string `env:"GUILDCOIN_LISTEN" envDefault:":8545"`
	DBPath        string `env:"GUILDCOIN_DB" envDefault:"guildcoin.db"`
	TokenName     string `env:"GUILDCOIN_NAME" envDefault:"GuildCoin"`
	TokenSymbol   string `env:"GUILDCOIN_SYMBOL" envDefault:"GLD"`
	Decimals      uint8  `env:"GUILDCOIN_DECIMALS" envDefault:"18"`
	MaxSupply     uint64 `env:"GUILDCOIN_MAX_SUPPLY" envDefault:"1000000000"`
	MintingCap    uint64 `env:"GUILDCOIN_MINTING_CAP" envDefault:"1000000"`
	InitialSupply uint64 `env:"GUILDCOIN_INITIAL_SUPPLY" envDefault:"100000000"`
	ExchangeRate  uint64 `env:"GUILDCOIN_EXCHANGE_RATE" envDefault:"30"`
	Admin         string `env:"GUILDCOIN_ADMIN" envDefault:"0x0000000000000000000000000000000000000A01"`
	Treasury      string `env:"GUILDCOIN_TREASURY" envDefault:"0x0000000000000000000000000000000000000A02"`
	SaleModule    string `env:"GUILDCOIN_SALE_MODULE" envDefault:"0x0000000000000000000000000000000000000A03"`
	PaymentSymbol string `env:"GUILDCOIN_PAYMENT_SYMBOL" envDefault:"SUSD"`
	PaymentSupply uint64 `env:"GUILDCOIN_PAYMENT_SUPPLY" envDefault:"1000000000"`
}

// tokenPaymentAsset adapts a second in-process ledger to the crowdsale's
// payment collaborator interface.
type tokenPaymentAsset struct {
	ledger *token.Token
}

func (p tokenPaymentAsset) TransferFrom(spender, owner, to common.Address, amount uint64) error {
	return p.ledger.TransferFrom(spender, owner, to, amount)
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	admin := common.HexToAddress(cfg.Admin)
	treasury := common.HexToAddress(cfg.Treasury)
	saleModule := common.HexToAddress(cfg.SaleModule)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	acl := access.NewRegistry(admin, logger.Named("access"))
	if roles, err := store.LoadRoles(); err != nil {
		log.Fatalf("Failed to load roles: %v", err)
	} else if len(roles) > 0 {
		acl.Restore(roles)
	}

	gld, err := token.New(token.Config{
		Name:          cfg.TokenName,
		Symbol:        cfg.TokenSymbol,
		Decimals:      cfg.Decimals,
		MaxSupply:     cfg.MaxSupply,
		MintingCap:    cfg.MintingCap,
		InitialSupply: cfg.InitialSupply,
		Admin:         admin,
	}, acl, logger.Named("ledger"))
	if err != nil {
		log.Fatalf("Failed to create ledger: %v", err)
	}

	if snap, found, err := store.LoadLedger(); err != nil {
		log.Fatalf("Failed to load ledger: %v", err)
	} else if found {
		gld.Restore(snap)
		logger.Info("ledger state restored", zap.Uint64("total_supply", gld.TotalSupply()))
	} else {
		if err := gld.BindSaleModule(admin, saleModule); err != nil {
			log.Fatalf("Failed to bind sale module: %v", err)
		}
	}

	// The payment stable asset is an external collaborator in production;
	// the daemon hosts a second ledger in its place so the full purchase
	// flow works out of the box.
	payment, err := token.New(token.Config{
		Name:          cfg.PaymentSymbol,
		Symbol:        cfg.PaymentSymbol,
		Decimals:      cfg.Decimals,
		MaxSupply:     cfg.PaymentSupply,
		InitialSupply: cfg.PaymentSupply,
		Admin:         admin,
	}, acl, logger.Named("payment"))
	if err != nil {
		log.Fatalf("Failed to create payment ledger: %v", err)
	}

	sale, err := crowdsale.New(crowdsale.Config{
		Rate:     cfg.ExchangeRate,
		Treasury: treasury,
		Module:   saleModule,
	}, gld, tokenPaymentAsset{ledger: payment}, logger.Named("crowdsale"))
	if err != nil {
		log.Fatalf("Failed to create crowdsale: %v", err)
	}

	hub := feed.NewHub(logrus.New())
	saveSignal := make(chan struct{}, 1)
	gld.RegisterEventHandler(func(e token.Event) {
		hub.Broadcast(e)
		requestSave(saveSignal)
	})
	go persistLoop(store, gld, acl, saveSignal, logger)

	registry := map[string]*token.Token{
		cfg.TokenSymbol:   gld,
		cfg.PaymentSymbol: payment,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, gld.Status())
	})
	mux.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		ledger, ok := lookupToken(w, r, registry, cfg.TokenSymbol)
		if !ok {
			return
		}
		addr := common.HexToAddress(r.URL.Query().Get("address"))
		writeJSON(w, map[string]interface{}{
			"address": addr.Hex(),
			"balance": ledger.BalanceOf(addr),
		})
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, gld.Events())
	})
	mux.HandleFunc("/purchases", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sale.Purchases())
	})
	mux.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Symbol string `json:"symbol"`
			From   string `json:"from"`
			To     string `json:"to"`
			Amount uint64 `json:"amount"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		ledger, ok := registry[req.Symbol]
		if !ok {
			ledger = gld
		}
		err := ledger.Transfer(common.HexToAddress(req.From), common.HexToAddress(req.To), req.Amount)
		writeResult(w, err)
	})
	mux.HandleFunc("/approve", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Symbol  string `json:"symbol"`
			Owner   string `json:"owner"`
			Spender string `json:"spender"`
			Amount  uint64 `json:"amount"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		ledger, ok := registry[req.Symbol]
		if !ok {
			ledger = gld
		}
		err := ledger.Approve(common.HexToAddress(req.Owner), common.HexToAddress(req.Spender), req.Amount)
		writeResult(w, err)
	})
	mux.HandleFunc("/buy", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Buyer  string `json:"buyer"`
			Amount uint64 `json:"amount"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		purchase, err := sale.Buy(common.HexToAddress(req.Buyer), req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, purchase)
	})
	mux.HandleFunc("/ws", hub.HandleWS)

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		color.Green("✅ guildcoind listening on %s", cfg.ListenAddr)
		color.Cyan("   token=%s max_supply=%d minting_cap=%d rate=%d:1",
			cfg.TokenSymbol, cfg.MaxSupply, cfg.MintingCap, cfg.ExchangeRate)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	color.Yellow("Shutting down, saving ledger state...")
	if err := store.SaveLedger(gld.Snapshot()); err != nil {
		logger.Error("final snapshot save failed", zap.Error(err))
	}
	if err := store.SaveRoles(acl.Snapshot()); err != nil {
		logger.Error("final roles save failed", zap.Error(err))
	}
	hub.Close()
	server.Close()
}

// requestSave coalesces save requests: the persister takes a fresh snapshot
// when it runs, so collapsing a burst of events into one save loses nothing.
func requestSave(signal chan<- struct{}) {
	select {
	case signal <- struct{}{}:
	default:
	}
}

// persistLoop writes snapshots one at a time. Event handlers run on their
// own goroutines, so saving from each handler directly could let an older
// snapshot land after a newer one; a single writer taking the snapshot at
// save time keeps persisted state monotone.
func persistLoop(store *storage.Store, gld *token.Token, acl *access.Registry, signal <-chan struct{}, logger *zap.Logger) {
	for range signal {
		if err := store.SaveLedger(gld.Snapshot()); err != nil {
			logger.Error("snapshot save failed", zap.Error(err))
		}
		if err := store.SaveRoles(acl.Snapshot()); err != nil {
			logger.Error("roles save failed", zap.Error(err))
		}
	}
}

func lookupToken(w http.ResponseWriter, r *http.Request, registry map[string]*token.Token, fallback string) (*token.Token, bool) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = fallback
	}
	ledger, ok := registry[symbol]
	if !ok {
		http.Error(w, "unknown token symbol", http.StatusNotFound)
		return nil, false
	}
	return ledger, true
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
