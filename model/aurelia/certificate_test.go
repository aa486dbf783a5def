package aurelia_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/utils/unittest"
)

func TestCertificateVerify(t *testing.T) {
	committee, keys := unittest.CommitteeFixture(t, 2, 4)
	txID := unittest.IdentifierFixture()
	cert := unittest.CertificateFixture(t, committee, keys, txID, txID)

	t.Run("valid certificate", func(t *testing.T) {
		require.NoError(t, cert.Verify(committee))
		assert.True(t, committee.HasQuorum(cert.SignedWeight(committee)))
	})

	t.Run("rejects wrong epoch", func(t *testing.T) {
		other, err := aurelia.NewCommittee(3, committee.Members())
		require.NoError(t, err)
		assert.Error(t, cert.Verify(other))
	})

	t.Run("rejects tampered result digest", func(t *testing.T) {
		tampered := *cert
		tampered.ResultDigest = unittest.IdentifierFixture()
		assert.Error(t, tampered.Verify(committee))
	})

	t.Run("rejects foreign signer", func(t *testing.T) {
		tampered := *cert
		tampered.SignerIDs = append([]aurelia.Identifier{}, cert.SignerIDs...)
		tampered.SignerIDs[0] = unittest.IdentifierFixture()
		assert.Error(t, tampered.Verify(committee))
	})

	t.Run("rejects duplicate signer", func(t *testing.T) {
		tampered := *cert
		tampered.SignerIDs = append([]aurelia.Identifier{}, cert.SignerIDs...)
		tampered.SignerIDs[1] = tampered.SignerIDs[0]
		assert.Error(t, tampered.Verify(committee))
	})

	t.Run("rejects sub-quorum signer set", func(t *testing.T) {
		tampered := *cert
		tampered.SignerIDs = cert.SignerIDs[:1]
		assert.Error(t, tampered.Verify(committee))
	})

	t.Run("rejects empty signer set", func(t *testing.T) {
		tampered := *cert
		tampered.SignerIDs = nil
		assert.Error(t, tampered.Verify(committee))
	})
}

func TestCertificateVerifyHandover(t *testing.T) {
	prior, keys := unittest.CommitteeFixture(t, 0, 4)
	next, _ := unittest.CommitteeFixture(t, 1, 4)
	cert := unittest.HandoverCertificateFixture(t, prior, keys, next)

	require.NoError(t, cert.VerifyHandover(prior))

	// a handover certificate is not a valid transaction certificate
	assert.Error(t, cert.Verify(prior))

	// and must not verify against a committee with a different fingerprint
	tampered := *cert
	tampered.TransactionID = unittest.IdentifierFixture()
	assert.Error(t, tampered.VerifyHandover(prior))
}
