// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/mdregistry/internal/app/system/auditlog"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// The registry uses it to make sure the configured administrator exists and
// holds the registry_admin capability.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	st := buildStorage(deps, logger)
	return ensureRegistryAdmin(ctx, st.users, st.auditLogger(appCfg, logger), appCfg.RegistryAdminEmail, logger)
}

// ensureRegistryAdmin promotes the account with the given email, creating it
// when missing. A blank email is a no-op.
func ensureRegistryAdmin(ctx context.Context, users userAccounts, audit *auditlog.Logger, email string, logger *zap.Logger) error {
	if email == "" {
		logger.Info("no registry_admin_email configured; skipping admin bootstrap")
		return nil
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "ensure registry admin")
	defer cancel()

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		u, err = users.Create(ctx, models.User{
			FullName:     "Registry Administrator",
			Email:        email,
			Capabilities: []string{models.CapRegistryAdmin},
		})
		if err != nil {
			return fmt.Errorf("create registry admin: %w", err)
		}
		logger.Info("created registry admin", zap.String("email", u.Email))
	case err != nil:
		return fmt.Errorf("look up registry admin: %w", err)
	case u.IsRegistryAdmin():
		return nil
	default:
		if err := users.GrantCapabilities(ctx, u.ID, models.CapRegistryAdmin); err != nil {
			return fmt.Errorf("promote registry admin: %w", err)
		}
		logger.Info("promoted registry admin", zap.String("email", u.Email))
	}

	audit.AdminBootstrapped(ctx, u.ID, u.Email)
	return nil
}
