package hdwallet

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// Errors returned by address derivation.
var (
	ErrInvalidKey      = errors.New("invalid extended public key")
	ErrNegativeIndex   = errors.New("derivation index must be non-negative")
	ErrPrivateKeyGiven = errors.New("extended key is private, expected public")
)

const serializedKeyLen = 78 // 4 version + 1 depth + 4 fingerprint + 4 child + 32 chain code + 33 key

// NormalizeXPub rewrites ypub/zpub (BIP49/BIP84) version bytes to the plain
// BIP32 xpub version so the key can be parsed uniformly. Anything that does
// not decode as an extended key is returned unchanged.
func NormalizeXPub(extended string) string {
	payload := base58.Decode(extended)
	if len(payload) != serializedKeyLen+4 {
		return extended
	}
	data := payload[:serializedKeyLen]
	if !checksumValid(payload) {
		return extended
	}

	version := binary.BigEndian.Uint32(data[:4])
	want := binary.BigEndian.Uint32(chaincfg.MainNetParams.HDPublicKeyID[:])
	if version == want {
		return extended
	}

	rewritten := make([]byte, serializedKeyLen)
	copy(rewritten, data)
	binary.BigEndian.PutUint32(rewritten[:4], want)
	return encodeWithChecksum(rewritten)
}

// DeriveAddress derives the P2WPKH address at path m/0/index under the
// given extended public key.
func DeriveAddress(extended string, index uint32) (string, error) {
	key, err := hdkeychain.NewKeyFromString(NormalizeXPub(extended))
	if err != nil {
		return "", ErrInvalidKey
	}
	if key.IsPrivate() {
		return "", ErrPrivateKeyGiven
	}

	branch, err := key.Derive(0)
	if err != nil {
		return "", err
	}
	child, err := branch.Derive(index)
	if err != nil {
		return "", err
	}

	pub, err := child.ECPubKey()
	if err != nil {
		return "", err
	}

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pub.SerializeCompressed()), &chaincfg.MainNetParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

func checksumValid(payload []byte) bool {
	data := payload[:len(payload)-4]
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if payload[len(data)+i] != second[i] {
			return false
		}
	}
	return true
}

func encodeWithChecksum(data []byte) string {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(data, second[:4]...))
}
