package account

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ripemd160"
)

// Size is the width of an account identifier in bytes.
const Size = 20

// versionByte prefixes the base58 check encoding of account identifiers.
const versionByte = byte(0x37)

var (
	// ErrBadLength occurs when raw identifier data is not Size bytes.
	ErrBadLength = errors.New("Wrong account id length")

	// ErrBadVersion occurs when encoded text carries the wrong version byte.
	ErrBadVersion = errors.New("Wrong account id version")
)

// ID is a fixed-width account identifier. It is the hash160 of a secp256k1
// public key, the same construction the execution environment uses for caller
// attestation.
type ID [Size]byte

// FromPublicKey returns the account identifier for a serialized public key.
func FromPublicKey(pubKey []byte) ID {
	var id ID
	copy(id[:], Hash160(pubKey))
	return id
}

// FromBytes returns the account identifier contained in b.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, ErrBadLength
	}
	copy(id[:], b)
	return id, nil
}

// FromString decodes the base58 check text form of an account identifier.
func FromString(s string) (ID, error) {
	var id ID
	b, version, err := base58.CheckDecode(s)
	if err != nil {
		return id, errors.Wrap(err, "base58 check decode")
	}
	if version != versionByte {
		return id, ErrBadVersion
	}
	return FromBytes(b)
}

// Bytes returns the raw identifier data.
func (id ID) Bytes() []byte {
	return id[:]
}

// String returns the base58 check text form of the identifier.
func (id ID) String() string {
	return base58.CheckEncode(id[:], versionByte)
}

// Equal returns true if the parameter has the same value.
func (id ID) Equal(o ID) bool {
	return bytes.Equal(id[:], o[:])
}

// IsZero returns true for the zero value identifier, which is never a valid
// party to an operation.
func (id ID) IsZero() bool {
	var zero ID
	return bytes.Equal(id[:], zero[:])
}

// Serialize writes the identifier to w.
func (id ID) Serialize(w io.Writer) error {
	_, err := w.Write(id[:])
	return err
}

// DeserializeID reads an identifier from r.
func DeserializeID(r io.Reader) (ID, error) {
	var id ID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return id, err
	}
	return id, nil
}

// MarshalJSON converts to json.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", id.String())), nil
}

// UnmarshalJSON converts from json.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("Account id json is not a string")
	}

	decoded, err := FromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}

	*id = decoded
	return nil
}

// MarshalText converts to the base58 check text form.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText converts from the base58 check text form.
func (id *ID) UnmarshalText(text []byte) error {
	decoded, err := FromString(string(text))
	if err != nil {
		return err
	}

	*id = decoded
	return nil
}

// Hash160 returns the ripemd160 hash of the sha256 hash of b.
func Hash160(b []byte) []byte {
	first := sha256.Sum256(b)
	hasher := ripemd160.New()
	hasher.Write(first[:])
	return hasher.Sum(nil)
}
