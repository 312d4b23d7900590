package config

import "time"

type BaseChainConfig struct {
	Enabled bool
	RPCURL  string
	// PaymentProcessor is the LTAI payment processor contract on Base.
	PaymentProcessor string
	ColdStartWindow  uint64
	ReorgOffset      uint64
	PollInterval     time.Duration
	PollTimeout      time.Duration
}

func loadBaseChain() BaseChainConfig {
	return BaseChainConfig{
		Enabled:          boolenv("BASE_POLLER_ENABLED", true),
		RPCURL:           getenv("BASE_RPC_URL", "https://mainnet.base.org"),
		PaymentProcessor: mustenv("LTAI_PAYMENT_PROCESSOR_CONTRACT_BASE"),
		ColdStartWindow:  u64env("BASE_COLD_START_WINDOW", 1_000),
		ReorgOffset:      u64env("BASE_REORG_OFFSET", 25),
		PollInterval:     durationEnvSeconds("BASE_POLL_INTERVAL", 60*time.Second),
		PollTimeout:      durationEnvSeconds("BASE_POLL_TIMEOUT", 45*time.Second),
	}
}
