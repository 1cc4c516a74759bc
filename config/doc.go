// Package config loads service configuration from YAML files, .env files and
// environment variables using viper and godotenv.
//
// Files are searched next to the binary's cmd directory first
// (./cmd/<service>/config.yml) and then in shared config locations.
// Environment variables override file values; nested keys use underscores,
// so ADDRESSES_DATABASESERVICE sets addresses.databaseservice and
// RESILIENCE_MAX_RETRY_COUNT sets resilience.max_retry_count.
//
//	var cfg Config
//	loader, err := config.NewLoader("mutable-service", config.WithConfigFile(path))
//	err = loader.Unmarshal(&cfg)
//	loader.Watch(func() { _ = loader.Unmarshal(&cfg) })
package config
