package store

// Provider tags the funding channel of a credit transaction. The set is
// append-only: historical rows keep their value forever, so variants are added
// alongside an additive migration and never removed or renamed in place.
type Provider string

const (
	// ProviderBase is an LTAI token transfer on Base.
	ProviderBase Provider = "base"
	// ProviderLTAIBase is an LTAI payment through the Base payment processor.
	ProviderLTAIBase Provider = "ltai_base"
	// ProviderSolana is a legacy Solana token transfer.
	ProviderSolana Provider = "solana"
	// ProviderLTAISolana is an LTAI payment through the Solana payment processor.
	ProviderLTAISolana Provider = "ltai_solana"
	// ProviderSOLSolana is a native-SOL payment through the Solana payment processor.
	ProviderSOLSolana Provider = "sol_solana"
	// ProviderThirdweb is a card/crypto on-ramp purchase reported by webhook.
	ProviderThirdweb Provider = "thirdweb"
	// ProviderVoucher is a manually issued credit grant with no on-chain anchor.
	ProviderVoucher Provider = "voucher"
)

// OnChain reports whether transactions from this provider carry a block number.
func (p Provider) OnChain() bool {
	switch p {
	case ProviderBase, ProviderLTAIBase, ProviderSolana, ProviderLTAISolana, ProviderSOLSolana:
		return true
	}
	return false
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderBase, ProviderLTAIBase, ProviderSolana, ProviderLTAISolana, ProviderSOLSolana, ProviderThirdweb, ProviderVoucher:
		return true
	}
	return false
}

// TransactionStatus tracks webhook-sourced settlement: thirdweb purchases may
// sit in pending until chain finality is confirmed, chain events land completed.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusError     TransactionStatus = "error"
)
