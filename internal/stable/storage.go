package stable

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

const storageKey = "stable"
const storageSubKey = "accounts"

type cacheUpdate struct {
	a        *state.Holding
	modified bool // true when modified since last write to storage.
	lock     sync.Mutex
}

var cache map[account.ID]*cacheUpdate
var cacheLock sync.Mutex

// Save puts a single stable account in cache. Storage is updated when
//   WriteCache is called.
func Save(ctx context.Context, a *state.Holding) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[account.ID]*cacheUpdate)
	}

	cu, exists := cache[a.Address]
	if exists {
		cu.lock.Lock()
		cu.a = a
		cu.modified = true
		cu.lock.Unlock()
	} else {
		cache[a.Address] = &cacheUpdate{a: a, modified: true}
	}
}

// Fetch a single stable account from cache or storage. The returned account
//   is a copy. Changes to it are not observable until Save is called.
func Fetch(ctx context.Context, dbConn *db.DB, address account.ID) (*state.Holding, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[account.ID]*cacheUpdate)
	}

	cu, exists := cache[address]
	if exists {
		cu.lock.Lock()
		defer cu.lock.Unlock()
		return copyAccount(cu.a), nil
	}

	key := buildStoragePath(address)

	b, err := dbConn.Fetch(ctx, key)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "Failed to fetch stable account")
	}

	readResult := state.Holding{}
	if err := json.Unmarshal(b, &readResult); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal stable account")
	}

	cache[address] = &cacheUpdate{a: &readResult, modified: false}

	return copyAccount(&readResult), nil
}

func copyAccount(a *state.Holding) *state.Holding {
	result := *a
	if a.Allowances != nil {
		result.Allowances = make(map[account.ID]uint64, len(a.Allowances))
		for key, val := range a.Allowances {
			result.Allowances[key] = val
		}
	}
	return &result
}

// List provides a list of the storage paths of all stable accounts.
func List(ctx context.Context, dbConn *db.DB) ([]string, error) {
	path := fmt.Sprintf("%s/%s", storageKey, storageSubKey)

	return dbConn.List(ctx, path)
}

func Reset(ctx context.Context) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	cache = nil
}

// WriteCache writes all modified stable accounts in the cache to storage.
func WriteCache(ctx context.Context, dbConn *db.DB) error {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		return nil
	}

	for _, cu := range cache {
		cu.lock.Lock()
		if cu.modified {
			data, err := json.Marshal(cu.a)
			if err != nil {
				cu.lock.Unlock()
				return errors.Wrap(err, "Failed to marshal stable account")
			}
			if err := dbConn.Put(ctx, buildStoragePath(cu.a.Address), data); err != nil {
				cu.lock.Unlock()
				return err
			}
			cu.modified = false
		}
		cu.lock.Unlock()
	}
	return nil
}

// Returns the storage path prefix for a given identifier.
func buildStoragePath(address account.ID) string {
	return fmt.Sprintf("%s/%s/%s", storageKey, storageSubKey, address.String())
}
