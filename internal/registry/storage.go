package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

const storageKey = "registry/state"

// ErrNotFound abstracts the standard not found error.
var ErrNotFound = errors.New("Registry not found")

var (
	cache     *cacheUpdate
	cacheLock sync.Mutex
)

type cacheUpdate struct {
	reg      *state.Registry
	modified bool
	lock     sync.Mutex
}

// Save puts the registry singleton in cache to be written to storage later.
func Save(ctx context.Context, reg *state.Registry) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache != nil {
		cache.lock.Lock()
		cache.reg = copyRegistry(reg)
		cache.modified = true
		cache.lock.Unlock()
		return
	}

	cache = &cacheUpdate{reg: copyRegistry(reg), modified: true}
}

// Fetch returns a copy of the registry singleton, from cache when available.
func Fetch(ctx context.Context, dbConn *db.DB) (*state.Registry, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache != nil {
		cache.lock.Lock()
		defer cache.lock.Unlock()
		return copyRegistry(cache.reg), nil
	}

	b, err := dbConn.Fetch(ctx, storageKey)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "Failed to fetch registry")
	}

	reg := state.Registry{}
	if err := json.Unmarshal(b, &reg); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal registry")
	}

	cache = &cacheUpdate{reg: &reg, modified: false}
	return copyRegistry(&reg), nil
}

func copyRegistry(reg *state.Registry) *state.Registry {
	result := *reg
	if reg.Roles != nil {
		result.Roles = make(map[account.ID]state.Role, len(reg.Roles))
		for holder, role := range reg.Roles {
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

// WriteCache writes the registry to storage if it has been modified since
// the last write.
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

	b, err := json.Marshal(cache.reg)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal registry")
	}

	if err := dbConn.Put(ctx, storageKey, b); err != nil {
		return errors.Wrap(err, "Failed to put registry")
	}

	cache.modified = false
	return nil
}
