package holdings

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
)

var (
	ErrNotInCache = errors.New("Not in cache")
)

const storageKey = "ledger"
const storageSubKey = "holdings"

type cacheUpdate struct {
	h        *state.Holding
	modified bool // true when modified since last write to storage.
	lock     sync.Mutex
}

var cache map[account.ID]*cacheUpdate
var cacheLock sync.Mutex

// Save puts a single holding in cache. A CacheItem is returned and should be
//   put in a CacheChannel to be written to storage asynchronously, or be
//   synchronously written to storage by immediately calling Write.
func Save(ctx context.Context, h *state.Holding) *CacheItem {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[account.ID]*cacheUpdate)
	}

	cu, exists := cache[h.Address]
	if exists {
		cu.lock.Lock()
		cu.h = h
		cu.modified = true
		cu.lock.Unlock()
	} else {
		cache[h.Address] = &cacheUpdate{h: h, modified: true}
	}

	return NewCacheItem(h.Address)
}

// List provides a list of the storage paths of all holdings.
func List(ctx context.Context, dbConn *db.DB) ([]string, error) {
	path := fmt.Sprintf("%s/%s", storageKey, storageSubKey)

	return dbConn.List(ctx, path)
}

// Fetch fetches a single holding from storage and places it in the cache. The
//   returned holding is a copy. Changes to it are not observable until Save is
//   called.
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
		return copyHolding(cu.h), nil
	}

	key := buildStoragePath(address)

	b, err := dbConn.Fetch(ctx, key)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "Failed to fetch holding")
	}

	readResult, err := deserializeHolding(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to deserialize holding")
	}

	cache[address] = &cacheUpdate{h: readResult, modified: false}

	return copyHolding(readResult), nil
}

func copyHolding(h *state.Holding) *state.Holding {
	result := *h
	if h.Allowances != nil {
		result.Allowances = make(map[account.ID]uint64, len(h.Allowances))
		for key, val := range h.Allowances {
			result.Allowances[key] = val
		}
	}
	return &result
}

func Reset(ctx context.Context) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	cache = nil
}

// WriteCache writes all modified holdings in the cache to storage.
func WriteCache(ctx context.Context, dbConn *db.DB) error {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		return nil
	}

	for _, cu := range cache {
		cu.lock.Lock()
		if cu.modified {
			if err := write(ctx, dbConn, cu.h); err != nil {
				cu.lock.Unlock()
				return err
			}
			cu.modified = false
		}
		cu.lock.Unlock()
	}
	return nil
}

// WriteCacheUpdate updates storage for an item from the cache if it has been
//   modified since the last write.
func WriteCacheUpdate(ctx context.Context, dbConn *db.DB, address account.ID) error {
	cacheLock.Lock()
	cu, exists := cache[address]
	cacheLock.Unlock()

	if !exists {
		return ErrNotInCache
	}

	cu.lock.Lock()
	defer cu.lock.Unlock()

	if !cu.modified {
		return nil
	}

	if err := write(ctx, dbConn, cu.h); err != nil {
		return err
	}

	cu.modified = false
	return nil
}

func write(ctx context.Context, dbConn *db.DB, h *state.Holding) error {
	data, err := serializeHolding(h)
	if err != nil {
		return errors.Wrap(err, "Failed to serialize holding")
	}

	if err := dbConn.Put(ctx, buildStoragePath(h.Address), data); err != nil {
		return err
	}

	return nil
}

// Returns the storage path prefix for a given identifier.
func buildStoragePath(address account.ID) string {
	return fmt.Sprintf("%s/%s/%s", storageKey, storageSubKey, address.String())
}

func serializeHolding(h *state.Holding) ([]byte, error) {
	var buf bytes.Buffer

	// Version
	if err := binary.Write(&buf, binary.LittleEndian, uint8(0)); err != nil {
		return nil, err
	}

	if err := h.Address.Serialize(&buf); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.LittleEndian, h.Balance); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(h.Allowances))); err != nil {
		return nil, err
	}

	for spender, amount := range h.Allowances {
		if err := spender.Serialize(&buf); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, amount); err != nil {
			return nil, err
		}
	}

	if err := h.CreatedAt.Serialize(&buf); err != nil {
		return nil, err
	}
	if err := h.UpdatedAt.Serialize(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func deserializeHolding(buf *bytes.Reader) (*state.Holding, error) {
	var result state.Holding

	// Version
	var version uint8
	if err := binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return &result, err
	}
	if version != 0 {
		return &result, fmt.Errorf("Unknown version : %d", version)
	}

	var err error
	result.Address, err = account.DeserializeID(buf)
	if err != nil {
		return &result, err
	}

	if err := binary.Read(buf, binary.LittleEndian, &result.Balance); err != nil {
		return &result, err
	}

	var length uint32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return &result, err
	}
	if length > 0 {
		result.Allowances = make(map[account.ID]uint64, length)
	}
	for i := 0; i < int(length); i++ {
		spender, err := account.DeserializeID(buf)
		if err != nil {
			return &result, err
		}
		var amount uint64
		if err := binary.Read(buf, binary.LittleEndian, &amount); err != nil {
			return &result, err
		}
		result.Allowances[spender] = amount
	}

	result.CreatedAt, err = state.DeserializeTimestamp(buf)
	if err != nil {
		return &result, err
	}
	result.UpdatedAt, err = state.DeserializeTimestamp(buf)
	if err != nil {
		return &result, err
	}

	return &result, nil
}
