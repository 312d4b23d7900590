package config

// DatabaseConfig points at the SQLite file backing the credits ledger.
type DatabaseConfig struct {
	SQLiteDSN string
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		SQLiteDSN: getenv("SQLITE_DSN", "./data/credits.db"),
	}
}
