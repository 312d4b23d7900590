package config

import "time"

type CreditsConfig struct {
	// SolPaymentBonus multiplies the USD value of native-SOL payments before
	// crediting, e.g. 1.2 for a 20% bonus. 0 disables the bonus.
	SolPaymentBonus float64
	// VoucherPasswords guard the voucher administration endpoints.
	VoucherPasswords []string
	SweepInterval    time.Duration
}

func loadCredits() CreditsConfig {
	return CreditsConfig{
		SolPaymentBonus:  floatEnv("SOL_PAYMENT_BONUS", 0),
		VoucherPasswords: listEnv("VOUCHERS_PASSWORDS"),
		SweepInterval:    durationEnvSeconds("CREDITS_SWEEP_INTERVAL", time.Hour),
	}
}
