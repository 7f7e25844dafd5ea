// Package storage persists the ledger core across restarts in a bbolt
// database: one bucket per entity set, fixed-width binary records for
// balances and allowances, a JSON record for the scalar supply metadata.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.etcd.io/bbolt"

	"github.com/guildhall-studio/guildcoin/core/access"
	"github.com/guildhall-studio/guildcoin/core/token"
)

var (
	bucketMeta       = []byte("meta")
	bucketBalances   = []byte("balances")
	bucketAllowances = []byte("allowances")
	bucketBlacklist  = []byte("blacklist")
	bucketRoles      = []byte("roles")

	keyLedgerMeta = []byte("ledger")
)

type ledgerMeta struct {
	TotalSupply uint64         `json:"total_supply"`
	MaxSupply   uint64         `json:"max_supply"`
	MintingCap  uint64         `json:"minting_cap"`
	Paused      bool           `json:"paused"`
	SaleModule  common.Address `json:"sale_module"`
	SavedAt     time.Time      `json:"saved_at"`
}

type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database and its buckets.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketBalances, bucketAllowances, bucketBlacklist, bucketRoles} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveLedger replaces the persisted ledger state with the snapshot.
func (s *Store) SaveLedger(snap token.Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := json.Marshal(ledgerMeta{
			TotalSupply: snap.TotalSupply,
			MaxSupply:   snap.MaxSupply,
			MintingCap:  snap.MintingCap,
			Paused:      snap.Paused,
			SaleModule:  snap.SaleModule,
			SavedAt:     time.Now(),
		})
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketMeta).Put(keyLedgerMeta, meta); err != nil {
			return err
		}

		if err := resetBucket(tx, bucketBalances); err != nil {
			return err
		}
		balances := tx.Bucket(bucketBalances)
		for addr, balance := range snap.Balances {
			if err := balances.Put(addr.Bytes(), be64(balance)); err != nil {
				return err
			}
		}

		if err := resetBucket(tx, bucketAllowances); err != nil {
			return err
		}
		allowances := tx.Bucket(bucketAllowances)
		for owner, spenders := range snap.Allowances {
			for spender, amount := range spenders {
				key := append(owner.Bytes(), spender.Bytes()...)
				if err := allowances.Put(key, be64(amount)); err != nil {
					return err
				}
			}
		}

		if err := resetBucket(tx, bucketBlacklist); err != nil {
			return err
		}
		blacklist := tx.Bucket(bucketBlacklist)
		for _, addr := range snap.Blacklist {
			if err := blacklist.Put(addr.Bytes(), []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadLedger returns the persisted ledger state. The second return value is
// false when the database has never been saved to.
func (s *Store) LoadLedger() (token.Snapshot, bool, error) {
	var snap token.Snapshot
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(keyLedgerMeta)
		if raw == nil {
			return nil
		}
		found = true

		var meta ledgerMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("decode ledger meta: %w", err)
		}
		snap.TotalSupply = meta.TotalSupply
		snap.MaxSupply = meta.MaxSupply
		snap.MintingCap = meta.MintingCap
		snap.Paused = meta.Paused
		snap.SaleModule = meta.SaleModule

		snap.Balances = make(map[common.Address]uint64)
		err := tx.Bucket(bucketBalances).ForEach(func(k, v []byte) error {
			snap.Balances[common.BytesToAddress(k)] = binary.BigEndian.Uint64(v)
			return nil
		})
		if err != nil {
			return err
		}

		snap.Allowances = make(map[common.Address]map[common.Address]uint64)
		err = tx.Bucket(bucketAllowances).ForEach(func(k, v []byte) error {
			if len(k) != 2*common.AddressLength {
				return fmt.Errorf("malformed allowance key of length %d", len(k))
			}
			owner := common.BytesToAddress(k[:common.AddressLength])
			spender := common.BytesToAddress(k[common.AddressLength:])
			if snap.Allowances[owner] == nil {
				snap.Allowances[owner] = make(map[common.Address]uint64)
			}
			snap.Allowances[owner][spender] = binary.BigEndian.Uint64(v)
			return nil
		})
		if err != nil {
			return err
		}

		snap.Blacklist = nil
		return tx.Bucket(bucketBlacklist).ForEach(func(k, v []byte) error {
			snap.Blacklist = append(snap.Blacklist, common.BytesToAddress(k))
			return nil
		})
	})
	if err != nil {
		return token.Snapshot{}, false, err
	}
	return snap, found, nil
}

// SaveRoles replaces the persisted role assignments.
func (s *Store) SaveRoles(roles map[common.Address]access.Role) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := resetBucket(tx, bucketRoles); err != nil {
			return err
		}
		bucket := tx.Bucket(bucketRoles)
		for addr, rs := range roles {
			if err := bucket.Put(addr.Bytes(), []byte{byte(rs)}); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadRoles returns the persisted role assignments.
func (s *Store) LoadRoles() (map[common.Address]access.Role, error) {
	roles := make(map[common.Address]access.Role)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRoles).ForEach(func(k, v []byte) error {
			if len(v) != 1 {
				return fmt.Errorf("malformed role record of length %d", len(v))
			}
			roles[common.BytesToAddress(k)] = access.Role(v[0])
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func resetBucket(tx *bbolt.Tx, name []byte) error {
	if err := tx.DeleteBucket(name); err != nil {
		return err
	}
	_, err := tx.CreateBucket(name)
	return err
}

func be64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
