package config

import "os"

// Config holds process-level settings for the shell and the catalog
// import utility.
type Config struct {
	DatabasePath    string
	DefaultPassword string
	Env             string
}

// Load reads the configuration from the environment, falling back to
// development defaults.
func Load() Config {
	return Config{
		DatabasePath:    getEnv("LIBRARY_DB_PATH", "library.db"),
		DefaultPassword: getEnv("LIBRARY_DEFAULT_PASSWORD", "biblioteca"),
		Env:             getEnv("LIBRARY_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
