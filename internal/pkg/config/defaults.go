package config

import "time"

// Default values for configuration.
const (
	// Bot defaults
	DefaultPollTimeoutSeconds = 60
	DefaultSendRatePerSecond  = 25.0
	DefaultSendBurst          = 5
	DefaultSessionTTL         = 30 * time.Minute

	// Storage defaults
	DefaultDBPath        = "data/jeeves.db"
	DefaultBusyTimeoutMs = 5000
	DefaultBackupDir     = "backups"
	DefaultBackupKeep    = 7

	// Weather defaults
	DefaultCity = "Chernihiv"
	DefaultLat  = 51.4982
	DefaultLon  = 31.2893

	// Prices defaults
	DefaultATBLocation = "1158"

	// AI defaults
	DefaultAITimeout = 60 * time.Second

	// Schedule defaults
	DefaultTimezone     = "Europe/Kyiv"
	DefaultBriefingHour = 8
	DefaultBackupHour   = 3
	DefaultPollInterval = 30 * time.Second
	DefaultFireCooldown = 61 * time.Second

	// Server defaults
	DefaultServerHost      = "127.0.0.1"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 15 * time.Second

	// Cache defaults
	DefaultCacheCleanupInterval = 10 * time.Minute

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogFile   = "logs/app.log"
	DefaultLogKeep   = 7
)

// DefaultReportHours - часы планового системного отчета.
var DefaultReportHours = []int{0, 4, 8, 12, 16, 20}
