package aurelia

// Transaction is the unit submitted to the committee for certification.
// The payload is opaque to the certification engine; only its digest matters
// for quorum accounting.
type Transaction struct {
	// Sender identifies the account submitting the transaction.
	Sender Identifier
	// Nonce orders transactions of one sender.
	Nonce uint64
	// Payload is the opaque transaction body.
	Payload []byte
}

// ID returns the canonical digest of the transaction.
func (tx *Transaction) ID() Identifier {
	return MakeID(tx)
}
