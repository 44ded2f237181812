package tests

import (
	"encoding/hex"
	"math/rand"

	"github.com/rwaledger/pledge-core/pkg/account"
)

var testHelperRand = rand.New(rand.NewSource(42))

func randomHex(size int) string {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(testHelperRand.Intn(256))
	}
	return hex.EncodeToString(data)
}

// RandomAssetID returns an external asset identifier for test records.
func RandomAssetID() string {
	return "ASSET-" + randomHex(8)
}

// RandomAgreementID returns an external agreement identifier for test records.
func RandomAgreementID() string {
	return "PLG-" + randomHex(8)
}

// RandomPurchaseID returns an external purchase identifier for test records.
func RandomPurchaseID() string {
	return "BUY-" + randomHex(8)
}

// RandomAccount returns an account identifier not derived from any key.
func RandomAccount() account.ID {
	data := make([]byte, account.Size)
	for i := range data {
		data[i] = byte(testHelperRand.Intn(256))
	}
	id, _ := account.FromBytes(data)
	return id
}
