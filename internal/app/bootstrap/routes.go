// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	healthfeature "github.com/dalemusser/mdregistry/internal/app/features/health"
	loginfeature "github.com/dalemusser/mdregistry/internal/app/features/login"
	logoutfeature "github.com/dalemusser/mdregistry/internal/app/features/logout"
	userinfofeature "github.com/dalemusser/mdregistry/internal/app/features/userinfo"
	workgroupsfeature "github.com/dalemusser/mdregistry/internal/app/features/workgroups"
	"github.com/dalemusser/mdregistry/internal/app/registry"
	userstore "github.com/dalemusser/mdregistry/internal/app/store/users"
	"github.com/dalemusser/mdregistry/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The registry builds its service once
// over the selected storage backend, applies session middleware and mounts
// the feature routers: health, workgroups, user info and sign-out (plus
// sign-in when dev_login is enabled).
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	st := buildStorage(deps, logger)

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request, so revoked capabilities and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(st.users))

	svc := registry.New(registry.Deps{
		Tx:              st.tx,
		Workgroups:      st.workgroups,
		Memberships:     st.memberships,
		Items:           st.items,
		Users:           st.users,
		Audit:           st.auditLogger(appCfg, logger),
		Events:          st.events,
		Logger:          logger,
		CountsTTL:       appCfg.OverviewCacheTTL,
		DefaultPageSize: appCfg.DefaultPageSize,
	})

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(st.ping, deps.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication. Sign-in normally belongs to an external identity
	// provider; dev_login mounts a local email-only form.
	if appCfg.DevLogin {
		logger.Warn("dev_login enabled: POST /login signs in by email without a password")
		loginHandler := loginfeature.NewHandler(st.users, sessionMgr, logger)
		r.Mount("/login", loginfeature.Routes(loginHandler))
	}

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

	// Workgroups, memberships and item listing
	wgHandler := workgroupsfeature.NewHandler(svc, appCfg.DefaultPageSize, logger)
	r.Mount("/workgroups", workgroupsfeature.Routes(wgHandler, sessionMgr))

	return r, nil
}
