// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/auditlog"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// Storage backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// appConfigKeys defines the configuration keys for the registry.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: MDREGISTRY_MONGO_URI, MDREGISTRY_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Storage backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017/?replicaSet=rs0", Desc: "MongoDB connection URI (replica set required)"},
	{Name: "mongo_database", Default: "mdregistry", Desc: "MongoDB database name"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "mdregistry-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime"},
	{Name: "dev_login", Default: false, Desc: "Enable POST /login by email only (development)"},

	// Audit logging settings
	{Name: "audit_log_admin", Default: auditlog.ModeAll, Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_security", Default: auditlog.ModeAll, Desc: "Security event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "overview_cache_ttl", Default: "30s", Desc: "How long workgroup status counts are cached (0 disables)"},
	{Name: "default_page_size", Default: 20, Desc: "Item listing page size when none is requested"},
	{Name: "registry_admin_email", Default: "", Desc: "Email of the registry administrator (promotes/creates on startup)"},

	{Name: "timeout_ping", Default: "2s", Desc: "Health-check timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "Listing timeout"},
	{Name: "timeout_long", Default: "30s", Desc: "Multi-document operation timeout"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, MDREGISTRY_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MDREGISTRY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:  appValues.String("store_backend"),
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),
		DevLogin:      appValues.Bool("dev_login"),

		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogSecurity: appValues.String("audit_log_security"),

		OverviewCacheTTL:   appValues.Duration("overview_cache_ttl", 30*time.Second),
		DefaultPageSize:    appValues.Int("default_page_size"),
		RegistryAdminEmail: appValues.String("registry_admin_email"),
	}
	appCfg.Timeouts.Ping = appValues.Duration("timeout_ping", 0)
	appCfg.Timeouts.Short = appValues.Duration("timeout_short", 0)
	appCfg.Timeouts.Medium = appValues.Duration("timeout_medium", 0)
	appCfg.Timeouts.Long = appValues.Duration("timeout_long", 0)

	// Every later hook (including ConnectDB) reads the shared timeouts.
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.Timeouts.Ping,
		Short:  appCfg.Timeouts.Short,
		Medium: appCfg.Timeouts.Medium,
		Long:   appCfg.Timeouts.Long,
	})

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The Mongo URI is only checked when the Mongo backend is selected, so the
// memory backend runs with no database configuration at all.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required")
		}
	case BackendMemory:
		logger.Warn("using in-memory storage; all data is lost on exit")
	default:
		return fmt.Errorf("unknown store_backend %q (want %q or %q)", appCfg.StoreBackend, BackendMongo, BackendMemory)
	}

	for name, mode := range map[string]string{
		"audit_log_admin":    appCfg.AuditLogAdmin,
		"audit_log_security": appCfg.AuditLogSecurity,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s: unknown mode %q", name, mode)
		}
	}
	if appCfg.DefaultPageSize < 0 {
		return fmt.Errorf("default_page_size must not be negative")
	}
	if appCfg.OverviewCacheTTL < 0 {
		return fmt.Errorf("overview_cache_ttl must not be negative")
	}
	if appCfg.DevLogin && coreCfg != nil && coreCfg.Env == "prod" {
		return fmt.Errorf("dev_login cannot be enabled in prod")
	}
	return nil
}
