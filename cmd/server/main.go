package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/bcnelson/gateway-address-manager/internal/api"
	"github.com/bcnelson/gateway-address-manager/internal/auth"
	"github.com/bcnelson/gateway-address-manager/internal/config"
	"github.com/bcnelson/gateway-address-manager/internal/service"
	sqlstore "github.com/bcnelson/gateway-address-manager/internal/storage/sql"
	"github.com/bcnelson/gateway-address-manager/internal/tailscale"
	"github.com/bcnelson/gateway-address-manager/internal/web"
)

var log = logrus.WithField("module", "main")

func main() {
	app := &cli.App{
		Name:  "gateway-address-manager",
		Usage: "edit gateway address lists and publish them to a tailnet policy",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and web UI",
				Action: serve,
			},
			{
				Name:   "render",
				Usage:  "print the hosts rendered from the stored gateways",
				Action: render,
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads configuration and opens the store. Callers close the store.
func setup() (*config.Config, *sqlstore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Log.ConfigureLogging(); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Database.Driver == "sqlite3" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	store, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing storage: %w", err)
	}
	return cfg, store, nil
}

// policyClient picks the real API, the file shim or nothing.
func policyClient(cfg *config.Config) (tailscale.PolicyClient, error) {
	switch {
	case cfg.UseFileShim():
		log.WithField("path", cfg.Tailscale.FileShim).Info("using file shim for tailscale api")
		return tailscale.NewFileShim(cfg.Tailscale.FileShim), nil
	case cfg.UseTailscaleAPI():
		client, err := tailscale.New(cfg.Tailscale.APIKey, cfg.Tailscale.Tailnet)
		if err != nil {
			return nil, fmt.Errorf("initializing tailscale client: %w", err)
		}
		return client, nil
	default:
		log.Warn("tailscale publishing disabled")
		return nil, nil
	}
}

func oidcComponents(ctx context.Context, cfg *config.Config) (*web.OIDCComponents, error) {
	if !cfg.OIDC.Enabled {
		return nil, nil
	}
	provider, err := auth.NewOIDCProvider(ctx, auth.ProviderConfig{
		IssuerURL:      cfg.OIDC.IssuerURL,
		ClientID:       cfg.OIDC.ClientID,
		ClientSecret:   cfg.OIDC.ClientSecret,
		RedirectURL:    cfg.OIDC.RedirectURL,
		Scopes:         cfg.OIDC.GetScopes(),
		AllowedDomains: cfg.OIDC.GetAllowedDomains(),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing oidc provider: %w", err)
	}
	log.WithField("issuer", cfg.OIDC.IssuerURL).Info("oidc login enabled")
	return &web.OIDCComponents{
		Provider:  provider,
		States:    auth.NewStateStore(cfg.Web.SecureCookies),
		LogoutURL: cfg.OIDC.LogoutURL,
	}, nil
}

func serve(c *cli.Context) error {
	cfg, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := policyClient(cfg)
	if err != nil {
		return err
	}

	syncService := service.NewSyncService(store, client, cfg.Sync.Debounce, cfg.Sync.AutoSync)
	defer syncService.Stop()

	oidc, err := oidcComponents(c.Context, cfg)
	if err != nil {
		return err
	}

	router := api.NewRouter(store, syncService, cfg.Sync.BootstrapAPIKey, web.Config{
		SessionDuration: cfg.Web.SessionDuration,
		SecureCookies:   cfg.Web.SecureCookies,
		DraftTTL:        cfg.Web.DraftTTL,
	}, oidc)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr()).Info("starting gateway address manager")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Publish edits that were still waiting out the debounce.
	if syncService.Pending() {
		if _, err := syncService.ForceSync(ctx); err != nil {
			log.WithError(err).Error("final policy sync failed")
		}
	}
	log.Info("server stopped")
	return nil
}

func render(c *cli.Context) error {
	_, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()

	syncService := service.NewSyncService(store, nil, 0, false)
	policy, err := syncService.GetMergedPolicy(c.Context)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(policy)
}
