package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pinpoint-server/config"
	"pinpoint-server/handlers"
	"pinpoint-server/models"
	"pinpoint-server/services"
	"pinpoint-server/utils/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := connectBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, services.NewRedisRevocationList(b.redis))
	passwords := services.NewPasswordProvider(services.NewMongoUserRepository(ctx, b.db))
	providers := []services.IdentityProvider{passwords, services.NewTokenProvider(tokens)}

	geo := services.NewGeoService(cfg.OpenCageAPIKey,
		services.WithGeoBaseURL(cfg.GeocodeBaseURL),
		services.WithGeoHTTPClient(&http.Client{Timeout: cfg.GeocodeTimeout}),
		services.WithNameCache(services.NewRedisNameCache(b.redis), cfg.GeocodeCacheTTL),
	)
	store := services.NewMongoMarkerStore(ctx, b.db)
	shellCfg := services.ShellConfig{
		DefaultCenter: models.Coords(cfg.DefaultCenter),
		DefaultZoom:   cfg.DefaultZoom,
		PanZoom:       cfg.PanZoom,
		TileURL:       cfg.TileURL,
	}

	workspaces := services.NewWorkspaceService(func() *services.Shell {
		session := services.NewSessionState(tokens, providers, services.WithSignOutDelay(cfg.SignOutDelay))
		return services.NewShell(session, store, geo, shellCfg, services.WithSeedMarkers(cfg.SeedMarkers))
	}, cfg.MaxWorkspaces)
	defer workspaces.CloseAll()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Workspaces:     workspaces,
			Registrar:      passwords,
			PageSize:       cfg.PageSize,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Logger:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_starting", "addr", cfg.Addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
