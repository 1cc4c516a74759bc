// Package logger provides structured logging on top of zerolog.
//
// Loggers are plain values passed to the components that use them; a
// process-wide default exists for code that runs before configuration is
// loaded.
//
//	log := logger.New(&cfg, "mutable-service").WithComponent("discovery.cache")
//	log.Info("endpoints refreshed", logger.Fields("entries", 15))
package logger
