package config

// Default values for environment-driven settings
const (
	DefaultPort                = 8080
	DefaultWorkerCount         = 5
	DefaultMaxAttempts         = 4
	DefaultBackoffBaseMS       = 250
	DefaultBackoffMaxMS        = 10000
	DefaultBackoffJitterMS     = 100
	DefaultRateLimitCooldownMS = 30000
)
