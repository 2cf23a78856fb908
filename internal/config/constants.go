package config

const (
	// DefaultDatabasePath is the default path for the sqlite catalog database
	DefaultDatabasePath = "./bookstack.db"

	// DefaultEnvFile is loaded on startup when present
	DefaultEnvFile = ".env"
)
