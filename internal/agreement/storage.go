package agreement

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

const storageKey = "registry"
const storageSubKey = "agreements"
const indexSubKey = "indexes"
const purchaseSubKey = "purchases"

// IndexKind selects which participation index an address is listed in. An
// address can appear in both when it pledges and invests.
type IndexKind string

const (
	// IndexClient lists the agreements an address pledged as client.
	IndexClient IndexKind = "clients"

	// IndexInvestor lists the agreements an address bought into.
	IndexInvestor IndexKind = "investors"
)

type cacheUpdate struct {
	a        *state.Agreement
	modified bool // true when modified since last write to storage.
	lock     sync.Mutex
}

type indexUpdate struct {
	index    *state.AgreementIndex
	modified bool
	lock     sync.Mutex
}

type referenceUpdate struct {
	agreementID string
	modified    bool
	lock        sync.Mutex
}

// purchaseReference is the stored form of a purchase ID lookup.
type purchaseReference struct {
	PurchaseID  string `json:"PurchaseID"`
	AgreementID string `json:"AgreementID"`
}

var cache map[string]*cacheUpdate
var indexCache map[string]*indexUpdate // keyed by storage path
var referenceCache map[string]*referenceUpdate
var cacheLock sync.Mutex

// Save puts a single agreement in cache. Storage is updated when WriteCache
//   is called.
func Save(ctx context.Context, a *state.Agreement) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[string]*cacheUpdate)
	}

	cu, exists := cache[a.AgreementID]
	if exists {
		cu.lock.Lock()
		cu.a = a
		cu.modified = true
		cu.lock.Unlock()
	} else {
		cache[a.AgreementID] = &cacheUpdate{a: a, modified: true}
	}
}

// Fetch a single agreement from cache or storage. The returned agreement is a
//   copy. Changes to it are not observable until Save is called.
func Fetch(ctx context.Context, dbConn *db.DB, agreementID string) (*state.Agreement, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[string]*cacheUpdate)
	}

	cu, exists := cache[agreementID]
	if exists {
		cu.lock.Lock()
		defer cu.lock.Unlock()
		return copyAgreement(cu.a), nil
	}

	key := buildStoragePath(agreementID)

	b, err := dbConn.Fetch(ctx, key)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "Failed to fetch agreement")
	}

	readResult := state.Agreement{}
	if err := json.Unmarshal(b, &readResult); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal agreement")
	}

	cache[agreementID] = &cacheUpdate{a: &readResult, modified: false}

	return copyAgreement(&readResult), nil
}

func copyAgreement(a *state.Agreement) *state.Agreement {
	result := *a
	if a.Purchases != nil {
		result.Purchases = make([]*state.Purchase, 0, len(a.Purchases))
		for _, p := range a.Purchases {
			cp := *p
			result.Purchases = append(result.Purchases, &cp)
		}
	}
	return &result
}

// SaveIndex puts a participation index in cache.
func SaveIndex(ctx context.Context, kind IndexKind, index *state.AgreementIndex) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if indexCache == nil {
		indexCache = make(map[string]*indexUpdate)
	}

	key := buildIndexPath(kind, index.Address)

	iu, exists := indexCache[key]
	if exists {
		iu.lock.Lock()
		iu.index = index
		iu.modified = true
		iu.lock.Unlock()
	} else {
		indexCache[key] = &indexUpdate{index: index, modified: true}
	}
}

// FetchIndex fetches a participation index from cache or storage. The
//   returned index is a copy.
func FetchIndex(ctx context.Context, dbConn *db.DB, kind IndexKind,
	address account.ID) (*state.AgreementIndex, error) {

	cacheLock.Lock()
	defer cacheLock.Unlock()

	if indexCache == nil {
		indexCache = make(map[string]*indexUpdate)
	}

	key := buildIndexPath(kind, address)

	iu, exists := indexCache[key]
	if exists {
		iu.lock.Lock()
		defer iu.lock.Unlock()
		return copyIndex(iu.index), nil
	}

	b, err := dbConn.Fetch(ctx, key)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "Failed to fetch agreement index")
	}

	readResult := state.AgreementIndex{}
	if err := json.Unmarshal(b, &readResult); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal agreement index")
	}

	indexCache[key] = &indexUpdate{index: &readResult, modified: false}

	return copyIndex(&readResult), nil
}

func copyIndex(index *state.AgreementIndex) *state.AgreementIndex {
	result := *index
	if index.AgreementIDs != nil {
		result.AgreementIDs = make([]string, len(index.AgreementIDs))
		copy(result.AgreementIDs, index.AgreementIDs)
	}
	return &result
}

// SaveReference puts a purchase ID reference in cache.
func SaveReference(ctx context.Context, purchaseID, agreementID string) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if referenceCache == nil {
		referenceCache = make(map[string]*referenceUpdate)
	}

	ru, exists := referenceCache[purchaseID]
	if exists {
		ru.lock.Lock()
		ru.agreementID = agreementID
		ru.modified = true
		ru.lock.Unlock()
	} else {
		referenceCache[purchaseID] = &referenceUpdate{agreementID: agreementID, modified: true}
	}
}

// FetchReference resolves a purchase ID to its agreement ID.
func FetchReference(ctx context.Context, dbConn *db.DB, purchaseID string) (string, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if referenceCache == nil {
		referenceCache = make(map[string]*referenceUpdate)
	}

	ru, exists := referenceCache[purchaseID]
	if exists {
		ru.lock.Lock()
		defer ru.lock.Unlock()
		return ru.agreementID, nil
	}

	key := buildReferencePath(purchaseID)

	b, err := dbConn.Fetch(ctx, key)
	if err != nil {
		if err == db.ErrNotFound {
			return "", ErrPurchaseNotFound
		}

		return "", errors.Wrap(err, "Failed to fetch purchase reference")
	}

	readResult := purchaseReference{}
	if err := json.Unmarshal(b, &readResult); err != nil {
		return "", errors.Wrap(err, "Failed to unmarshal purchase reference")
	}

	referenceCache[purchaseID] = &referenceUpdate{agreementID: readResult.AgreementID, modified: false}

	return readResult.AgreementID, nil
}

// List provides a list of the storage paths of all agreements.
func List(ctx context.Context, dbConn *db.DB) ([]string, error) {
	path := fmt.Sprintf("%s/%s", storageKey, storageSubKey)

	return dbConn.List(ctx, path)
}

func Reset(ctx context.Context) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	cache = nil
	indexCache = nil
	referenceCache = nil
}

// WriteCache writes all modified agreements, indexes and purchase references
//   in the cache to storage.
func WriteCache(ctx context.Context, dbConn *db.DB) error {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	for _, cu := range cache {
		cu.lock.Lock()
		if cu.modified {
			data, err := json.Marshal(cu.a)
			if err != nil {
				cu.lock.Unlock()
				return errors.Wrap(err, "Failed to marshal agreement")
			}
			if err := dbConn.Put(ctx, buildStoragePath(cu.a.AgreementID), data); err != nil {
				cu.lock.Unlock()
				return err
			}
			cu.modified = false
		}
		cu.lock.Unlock()
	}

	for path, iu := range indexCache {
		iu.lock.Lock()
		if iu.modified {
			data, err := json.Marshal(iu.index)
			if err != nil {
				iu.lock.Unlock()
				return errors.Wrap(err, "Failed to marshal agreement index")
			}
			if err := dbConn.Put(ctx, path, data); err != nil {
				iu.lock.Unlock()
				return err
			}
			iu.modified = false
		}
		iu.lock.Unlock()
	}

	for purchaseID, ru := range referenceCache {
		ru.lock.Lock()
		if ru.modified {
			data, err := json.Marshal(&purchaseReference{
				PurchaseID:  purchaseID,
				AgreementID: ru.agreementID,
			})
			if err != nil {
				ru.lock.Unlock()
				return errors.Wrap(err, "Failed to marshal purchase reference")
			}
			if err := dbConn.Put(ctx, buildReferencePath(purchaseID), data); err != nil {
				ru.lock.Unlock()
				return err
			}
			ru.modified = false
		}
		ru.lock.Unlock()
	}

	return nil
}

// Returns the storage path prefix for a given identifier.
func buildStoragePath(agreementID string) string {
	return fmt.Sprintf("%s/%s/%s", storageKey, storageSubKey, agreementID)
}

func buildIndexPath(kind IndexKind, address account.ID) string {
	return fmt.Sprintf("%s/%s/%s/%s", storageKey, indexSubKey, kind, address.String())
}

func buildReferencePath(purchaseID string) string {
	return fmt.Sprintf("%s/%s/%s", storageKey, purchaseSubKey, purchaseID)
}
