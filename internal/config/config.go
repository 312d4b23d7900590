package config

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Base     BaseChainConfig
	Solana   SolanaConfig
	Thirdweb ThirdwebConfig
	Pricing  PricingConfig
	Credits  CreditsConfig
}

func Load() Config {
	ensureEnvLoaded()
	return Config{
		Server:   loadServer(),
		Database: loadDatabase(),
		Auth:     loadAuth(),
		Base:     loadBaseChain(),
		Solana:   loadSolana(),
		Thirdweb: loadThirdweb(),
		Pricing:  loadPricing(),
		Credits:  loadCredits(),
	}
}
