package config

import "time"

type SolanaConfig struct {
	Enabled bool
	RPCURL  string
	// PaymentProgram is the LTAI payment processor program id.
	PaymentProgram string
	SignatureLimit int
	PollInterval   time.Duration
	PollTimeout    time.Duration
}

func loadSolana() SolanaConfig {
	return SolanaConfig{
		Enabled:        boolenv("SOLANA_POLLER_ENABLED", true),
		RPCURL:         getenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		PaymentProgram: mustenv("LTAI_PAYMENT_PROCESSOR_CONTRACT_SOLANA"),
		SignatureLimit: intEnv("SOLANA_SIGNATURE_LIMIT", 50),
		PollInterval:   durationEnvSeconds("SOLANA_POLL_INTERVAL", 100*time.Second),
		PollTimeout:    durationEnvSeconds("SOLANA_POLL_TIMEOUT", 60*time.Second),
	}
}
