package account

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
)

// Key pairs a secp256k1 private key with the account identifier derived from
// its public key. The platform never signs with these keys itself; they exist
// so tooling and tests can mint identities the same way the custodial signer
// does.
type Key struct {
	PrivateKey *btcec.PrivateKey
	PublicKey  *btcec.PublicKey
	ID         ID
}

// NewKey generates a fresh key pair and its account identifier.
func NewKey() (*Key, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "generate private key")
	}

	return KeyFromPrivate(priv), nil
}

// KeyFromPrivate builds the Key for an existing private key.
func KeyFromPrivate(priv *btcec.PrivateKey) *Key {
	pub := priv.PubKey()
	return &Key{
		PrivateKey: priv,
		PublicKey:  pub,
		ID:         FromPublicKey(pub.SerializeCompressed()),
	}
}

// KeyFromPrivateBytes builds the Key for a serialized private key.
func KeyFromPrivateBytes(b []byte) (*Key, error) {
	if len(b) != 32 {
		return nil, errors.New("Wrong private key length")
	}

	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), b)
	return KeyFromPrivate(priv), nil
}
