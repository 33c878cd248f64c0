// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (MDREGISTRY_*), configuration
// files, or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig
// covers ports, TLS, logging and CORS; everything registry-specific lives
// here and is passed to every lifecycle hook.
type AppConfig struct {
	// Storage
	StoreBackend  string // "mongo" or "memory"
	MongoURI      string // MongoDB connection string (replica set required for transactions)
	MongoDatabase string // Database name within MongoDB

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime
	DevLogin      bool          // Mount POST /login (sign in by email, no password)

	// Audit logging: 'all' (db+log), 'db', 'log', or 'off'
	AuditLogAdmin    string
	AuditLogSecurity string

	// Registry behavior
	OverviewCacheTTL   time.Duration // status-count cache lifetime; 0 disables
	DefaultPageSize    int           // item listing page size when "pp" is absent
	RegistryAdminEmail string        // promoted (or created) as registry admin on startup

	// Operation timeouts
	Timeouts struct {
		Ping, Short, Medium, Long time.Duration
	}
}
