package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/figureshelf/apiclient"
	"github.com/s0up4200/figureshelf/web"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front end",
	Long: `Serve the figure pages, the create/edit/seal actions and the /api reverse proxy.

Requests carrying auth_token/refresh_token cookies are made on behalf of that user;
everything else uses the internal API key.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// User calls made by the server itself go straight to the backend, not back through our own proxy.
	endpoints := endpointsFor(cfg.API)
	endpoints.ProxyURL = apiclient.ResolveBaseURL(apiclient.ScopeService, endpoints)

	client, err := newAPIClient(cfg.API, endpoints)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	server, err := web.NewServer(web.Options{
		Client:        client,
		Filters:       filters,
		PageSize:      cfg.API.PageSize,
		SecureCookies: cfg.Server.SecureCookies,
		Thumbnails: web.ThumbnailOptions{
			Enabled:      cfg.Server.Thumbnails.Enabled,
			MaxWidth:     cfg.Server.Thumbnails.MaxWidth,
			CacheSize:    cfg.Server.Thumbnails.CacheSize,
			AllowedHosts: cfg.Server.Thumbnails.AllowedHosts,
		},
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	addr := listenAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, addr)
}
