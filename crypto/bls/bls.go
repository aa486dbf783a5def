// Package bls implements BLS12-381 signatures in the minimal-pubkey-size
// configuration: public keys on G1 (48 bytes compressed), signatures on G2
// (96 bytes compressed). Signatures over the same message can be aggregated
// into a single signature verifiable against the aggregated public key of
// the signers.
package bls

import (
	"crypto/rand"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

const (
	// PubKeyLen is the size of a compressed BLS public key in bytes.
	PubKeyLen = 48

	// SignatureLen is the size of a compressed BLS signature in bytes.
	SignatureLen = 96

	// KeyGenSeedMinLen is the minimum seed length for deterministic key generation.
	KeyGenSeedMinLen = 32
)

// domain separation tag for the hash-to-curve of signed messages
var dst = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// KeyPair holds a BLS private/public key pair.
type KeyPair struct {
	secret *blst.SecretKey
	public *blst.P1Affine
}

// GenerateKeyPair creates a new key pair from a cryptographically secure
// random seed.
func GenerateKeyPair() (*KeyPair, error) {
	var ikm [KeyGenSeedMinLen]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, fmt.Errorf("could not read random seed: %w", err)
	}
	return KeyPairFromSeed(ikm[:])
}

// KeyPairFromSeed deterministically derives a key pair from the given seed.
// The seed must be at least KeyGenSeedMinLen bytes.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) < KeyGenSeedMinLen {
		return nil, fmt.Errorf("seed must be at least %d bytes, got %d", KeyGenSeedMinLen, len(seed))
	}
	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, fmt.Errorf("could not generate secret key from seed")
	}
	return &KeyPair{
		secret: secret,
		public: new(blst.P1Affine).From(secret),
	}, nil
}

// Sign signs the message and returns the compressed signature.
func (k *KeyPair) Sign(message []byte) []byte {
	sig := new(blst.P2Affine).Sign(k.secret, message, dst)
	return sig.Compress()
}

// PublicKey returns the compressed public key bytes.
func (k *KeyPair) PublicKey() []byte {
	return k.public.Compress()
}

// Verify checks a single signature over message under the given public key.
func Verify(publicKey, message, signature []byte) bool {
	if len(signature) != SignatureLen || len(publicKey) != PubKeyLen {
		return false
	}
	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}
	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}
	return sig.Verify(true, pk, true, message, dst)
}

// AggregateSignatures combines the given signatures into a single compressed
// signature. All signatures must be over the same message.
func AggregateSignatures(signatures [][]byte) ([]byte, error) {
	if len(signatures) == 0 {
		return nil, fmt.Errorf("no signatures to aggregate")
	}
	sigs := make([]*blst.P2Affine, len(signatures))
	for i, raw := range signatures {
		if len(raw) != SignatureLen {
			return nil, fmt.Errorf("invalid signature length at index %d: expected %d, got %d", i, SignatureLen, len(raw))
		}
		sig := new(blst.P2Affine).Uncompress(raw)
		if sig == nil {
			return nil, fmt.Errorf("malformed signature at index %d", i)
		}
		sigs[i] = sig
	}
	agg := new(blst.P2Aggregate)
	if !agg.Aggregate(sigs, true) {
		return nil, fmt.Errorf("signature aggregation failed")
	}
	return agg.ToAffine().Compress(), nil
}

// VerifyAggregate checks an aggregated signature over a single message
// against the set of public keys of the signers.
func VerifyAggregate(publicKeys [][]byte, message, signature []byte) bool {
	if len(signature) != SignatureLen || len(publicKeys) == 0 {
		return false
	}
	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}
	pks := make([]*blst.P1Affine, len(publicKeys))
	for i, raw := range publicKeys {
		if len(raw) != PubKeyLen {
			return false
		}
		pk := new(blst.P1Affine).Uncompress(raw)
		if pk == nil {
			return false
		}
		pks[i] = pk
	}
	aggPk := new(blst.P1Aggregate)
	if !aggPk.Aggregate(pks, true) {
		return false
	}
	return sig.Verify(true, aggPk.ToAffine(), true, message, dst)
}
