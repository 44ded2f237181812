package assetledger

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

const storageKey = "ledger/state"

// ErrNotFound abstracts the standard not found error.
var ErrNotFound = errors.New("Ledger not found")

var (
	cache     *cacheUpdate
	cacheLock sync.Mutex
)

type cacheUpdate struct {
	led      *state.Ledger
	modified bool
	lock     sync.Mutex
}

// Save puts the ledger singleton in cache to be written to storage later.
func Save(ctx context.Context, led *state.Ledger) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache != nil {
		cache.lock.Lock()
		cache.led = copyLedger(led)
		cache.modified = true
		cache.lock.Unlock()
		return
	}

	cache = &cacheUpdate{led: copyLedger(led), modified: true}
}

// Fetch returns a copy of the ledger singleton, from cache when available.
func Fetch(ctx context.Context, dbConn *db.DB) (*state.Ledger, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache != nil {
		cache.lock.Lock()
		defer cache.lock.Unlock()
		return copyLedger(cache.led), nil
	}

	b, err := dbConn.Fetch(ctx, storageKey)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "Failed to fetch ledger")
	}

	led := state.Ledger{}
	if err := json.Unmarshal(b, &led); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal ledger")
	}

	cache = &cacheUpdate{led: &led, modified: false}
	return copyLedger(&led), nil
}

func copyLedger(led *state.Ledger) *state.Ledger {
	result := *led
	if led.Roles != nil {
		result.Roles = make(map[account.ID]state.Role, len(led.Roles))
		for holder, role := range led.Roles {
			result.Roles[holder] = role
		}
	}
	return &result
}

// Reset clears the cache. Used by tests.
func Reset(ctx context.Context) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	cache = nil
}

// WriteCache writes the ledger to storage if it has been modified since the
// last write.
func WriteCache(ctx context.Context, dbConn *db.DB) error {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		return nil
	}

	cache.lock.Lock()
	defer cache.lock.Unlock()

	if !cache.modified {
		return nil
	}

	b, err := json.Marshal(cache.led)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal ledger")
	}

	if err := dbConn.Put(ctx, storageKey, b); err != nil {
		return errors.Wrap(err, "Failed to put ledger")
	}

	cache.modified = false
	return nil
}
