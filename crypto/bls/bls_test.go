package bls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	key, err := GenerateKeyPair()
	require.NoError(t, err)

	message := []byte("certify me")
	sig := key.Sign(message)
	require.Len(t, sig, SignatureLen)
	require.Len(t, key.PublicKey(), PubKeyLen)

	assert.True(t, Verify(key.PublicKey(), message, sig))
	assert.False(t, Verify(key.PublicKey(), []byte("other message"), sig))

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, Verify(other.PublicKey(), message, sig))
}

func TestKeyPairFromSeed(t *testing.T) {
	seed := make([]byte, KeyGenSeedMinLen)
	for i := range seed {
		seed[i] = byte(i)
	}

	first, err := KeyPairFromSeed(seed)
	require.NoError(t, err)
	second, err := KeyPairFromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey(), second.PublicKey())

	_, err = KeyPairFromSeed(seed[:KeyGenSeedMinLen-1])
	assert.Error(t, err)
}

func TestAggregateVerify(t *testing.T) {
	message := []byte("same message for all signers")

	var keys [][]byte
	var sigs [][]byte
	for i := 0; i < 5; i++ {
		key, err := GenerateKeyPair()
		require.NoError(t, err)
		keys = append(keys, key.PublicKey())
		sigs = append(sigs, key.Sign(message))
	}

	aggregated, err := AggregateSignatures(sigs)
	require.NoError(t, err)
	require.Len(t, aggregated, SignatureLen)

	assert.True(t, VerifyAggregate(keys, message, aggregated))
	assert.False(t, VerifyAggregate(keys, []byte("tampered"), aggregated))
	assert.False(t, VerifyAggregate(keys[:4], message, aggregated), "missing key must fail")

	// one corrupted signature poisons the aggregate
	sigs[2] = sigs[3]
	corrupted, err := AggregateSignatures(sigs)
	require.NoError(t, err)
	assert.False(t, VerifyAggregate(keys, message, corrupted))

	_, err = AggregateSignatures(nil)
	assert.Error(t, err)
}
