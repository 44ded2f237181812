package treasury

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"

	"github.com/pkg/errors"
)

const storageKey = "registry/treasury"

var (
	// ErrNotFound abstracts the standard not found error.
	ErrNotFound = errors.New("Treasury not found")
)

type cacheUpdate struct {
	t        *state.Treasury
	modified bool // true when modified since last write to storage.
	lock     sync.Mutex
}

var cache *cacheUpdate
var cacheLock sync.Mutex

// Save puts the treasury in cache. Storage is updated when WriteCache is
//   called.
func Save(ctx context.Context, t *state.Treasury) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache != nil {
		cache.lock.Lock()
		cache.t = t
		cache.modified = true
		cache.lock.Unlock()
	} else {
		cache = &cacheUpdate{t: t, modified: true}
	}
}

// Fetch the treasury from cache or storage. The returned treasury is a copy.
//   Changes to it are not observable until Save is called.
func Fetch(ctx context.Context, dbConn *db.DB) (*state.Treasury, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache != nil {
		cache.lock.Lock()
		defer cache.lock.Unlock()
		result := *cache.t
		return &result, nil
	}

	b, err := dbConn.Fetch(ctx, storageKey)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "Failed to fetch treasury")
	}

	readResult := state.Treasury{}
	if err := json.Unmarshal(b, &readResult); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal treasury")
	}

	cache = &cacheUpdate{t: &readResult, modified: false}

	result := readResult
	return &result, nil
}

func Reset(ctx context.Context) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	cache = nil
}

// WriteCache writes the treasury to storage if it has been modified since the
//   last write.
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

	data, err := json.Marshal(cache.t)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal treasury")
	}
	if err := dbConn.Put(ctx, storageKey, data); err != nil {
		return err
	}

	cache.modified = false
	return nil
}
