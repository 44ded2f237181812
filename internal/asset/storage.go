package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"

	"github.com/pkg/errors"
)

const storageKey = "ledger"
const storageSubKey = "assets"

type cacheUpdate struct {
	a        *state.Asset
	modified bool // true when modified since last write to storage.
	lock     sync.Mutex
}

var cache map[string]*cacheUpdate
var cacheLock sync.Mutex

// Save puts a single asset in cache. Storage is updated when WriteCache is
//   called.
func Save(ctx context.Context, a *state.Asset) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[string]*cacheUpdate)
	}

	cu, exists := cache[a.AssetID]
	if exists {
		cu.lock.Lock()
		cu.a = a
		cu.modified = true
		cu.lock.Unlock()
	} else {
		cache[a.AssetID] = &cacheUpdate{a: a, modified: true}
	}
}

// Fetch a single asset from cache or storage. The returned asset is a copy.
//   Changes to it are not observable until Save is called.
func Fetch(ctx context.Context, dbConn *db.DB, assetID string) (*state.Asset, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[string]*cacheUpdate)
	}

	cu, exists := cache[assetID]
	if exists {
		cu.lock.Lock()
		defer cu.lock.Unlock()
		result := *cu.a
		return &result, nil
	}

	key := buildStoragePath(assetID)

	b, err := dbConn.Fetch(ctx, key)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "Failed to fetch asset")
	}

	readResult := state.Asset{}
	if err := json.Unmarshal(b, &readResult); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal asset")
	}

	cache[assetID] = &cacheUpdate{a: &readResult, modified: false}

	result := readResult
	return &result, nil
}

// List provides a list of the storage paths of all assets.
func List(ctx context.Context, dbConn *db.DB) ([]string, error) {
	path := fmt.Sprintf("%s/%s", storageKey, storageSubKey)

	return dbConn.List(ctx, path)
}

func Reset(ctx context.Context) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	cache = nil
}

// WriteCache writes all modified assets in the cache to storage.
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
				return errors.Wrap(err, "Failed to marshal asset")
			}
			if err := dbConn.Put(ctx, buildStoragePath(cu.a.AssetID), data); err != nil {
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
func buildStoragePath(assetID string) string {
	return fmt.Sprintf("%s/%s/%s", storageKey, storageSubKey, assetID)
}
