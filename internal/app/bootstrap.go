package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"chatgate/internal/config"
	"chatgate/internal/gateway"
	"chatgate/internal/tools"
	"chatgate/internal/upstream"
	"chatgate/pkg/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// Config carries the command-line options into the bootstrap.
type Config struct {
	// Debug enables verbose logging.
	Debug bool
	// ConfigPath overrides the configuration directory.
	ConfigPath string
}

// NewConfig creates an application config from the serve command's flags.
func NewConfig(debug bool, configPath string) Config {
	return Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}

// Application bootstraps and runs the chatgate server: configuration,
// logging, the session manager, and the HTTP listener.
type Application struct {
	cfg        config.Config
	manager    *gateway.Manager
	httpServer *http.Server
}

// NewApplication loads configuration, initializes logging, and wires the
// credential resolver, upstream client, tool registry factory, and session
// manager together.
func NewApplication(appCfg Config) (*Application, error) {
	logLevel := logging.LevelInfo
	if appCfg.Debug {
		logLevel = logging.LevelDebug
	}
	logging.Init(logLevel, os.Stdout)

	cfg, err := config.LoadConfig(appCfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Upstream.RequestTimeout.Std()}

	cache := upstream.NewTokenCache()
	exchanger := upstream.NewExchanger(cfg.Upstream.TokenURL, upstream.WithHTTPClient(httpClient))
	resolver := gateway.NewCredentialResolver(cache, exchanger)

	baseClient := upstream.NewClient(cfg.Upstream.BaseURL, upstream.WithClientHTTPClient(httpClient))
	toolset := func(accessToken string) []mcpserver.ServerTool {
		client := baseClient.WithToken(context.Background(), accessToken)
		return tools.NewRegistry(client).ServerTools()
	}

	manager := gateway.NewManager(gateway.ManagerConfig{
		Name:        "chatgate",
		Version:     Version,
		Resolver:    resolver,
		Toolset:     toolset,
		GraceDelay:  cfg.Session.GraceDelay.Std(),
		IdleTimeout: cfg.Session.IdleTimeout.Std(),
		MaxSessions: cfg.Session.MaxSessions,
	})

	return &Application{
		cfg:     cfg,
		manager: manager,
		httpServer: &http.Server{
			Addr:    cfg.Server.Addr(),
			Handler: newRouter(manager),
		},
	}, nil
}

// Version is injected by the cmd package before the application starts.
var Version = "dev"

// newRouter mounts the MCP endpoint and the health probe.
func newRouter(manager *gateway.Manager) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle("/mcp", manager)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	return r
}

// Run starts the HTTP listener and blocks until the context is cancelled or
// the listener fails. Shutdown drains in-flight requests and tears down all
// sessions.
func (a *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("App", "chatgate listening on %s (MCP endpoint: /mcp)", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logging.Info("App", "Shutting down")
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("App", err, "Error shutting down HTTP server")
		}
		a.manager.Stop()
		return nil
	})

	return g.Wait()
}
