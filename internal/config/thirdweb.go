package config

type ThirdwebConfig struct {
	WebhookSecret string
	// PaymentProcessor is the receiver on-ramp purchases must settle to; the
	// same contract the Base poller watches.
	PaymentProcessor    string
	ExpectedTokenSymbol string
	ExpectedChainID     uint64
}

func loadThirdweb() ThirdwebConfig {
	return ThirdwebConfig{
		WebhookSecret:       mustenv("THIRDWEB_WEBHOOK_SECRET"),
		PaymentProcessor:    mustenv("LTAI_PAYMENT_PROCESSOR_CONTRACT_BASE"),
		ExpectedTokenSymbol: getenv("THIRDWEB_EXPECTED_TOKEN", "USDC"),
		ExpectedChainID:     u64env("THIRDWEB_EXPECTED_CHAIN_ID", 8453),
	}
}
