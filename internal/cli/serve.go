package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/feedlens/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feed and post pages as a JSON API",
	Long: `Serve exposes the page controller over HTTP:

  GET    /api/feed?cursor=           feed page
  GET    /api/posts/:id?visible=     post detail for the assigned variant
  POST   /api/posts/:id/like|share|comment|back|profile-click
  POST   /api/posts/:id/visibility|scroll|unload   passive tracking signals
  GET    /api/variant                active variant
  PUT    /api/variant                set manual override ({"variant": null} clears)
  DELETE /api/variant                clear manual override
  GET    /metrics                    Prometheus metrics
  GET    /healthz                    liveness

Example:
  feedlens serve --addr :8080 --debug-controls`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().Bool("debug-controls", false, "expose the variant toggle in responses")
	serveCmd.Flags().String("api", "", "content API base URL")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("ui.show_debug_controls", serveCmd.Flags().Lookup("debug-controls"))
	_ = viper.BindPFlag("api.base_url", serveCmd.Flags().Lookup("api"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	state := a.resolver.State()
	logger.Info().
		Str("api", cfg.API.BaseURL).
		Str("variant", state.Variant.String()).
		Str("origin", string(state.Origin)).
		Strs("sinks", cfg.Telemetry.Sinks).
		Msg("starting feedlens")

	srv := server.New(a.ctrl,
		server.WithGatherer(a.registry),
		server.WithLogger(logger),
		server.WithVersion(Version),
	)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
