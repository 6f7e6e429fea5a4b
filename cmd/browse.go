package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/figureshelf/browse"
	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/config"
	"github.com/s0up4200/figureshelf/feed"
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse figures in the terminal",
	Long: `Open an interactive figure list. More figures are loaded as the end of the list
comes into view; 's' toggles sealed figures and 'enter' shows details.`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	first := services.Figures.Paginated(ctx, catalog.PageQuery{Page: 1, Limit: cfg.API.PageSize})
	if !first.OK() {
		return errors.New(first.Message)
	}

	// The terminal belongs to the browser; keep logs off it unless they go elsewhere.
	browseLogger := logger
	if isTerminal(os.Stderr) {
		browseLogger = logger.Level(zerolog.Disabled)
	}

	return browse.Run(browse.Options{
		Context:   ctx,
		Feed:      feed.New(services.Figures, first.Data, cfg.API.PageSize, browseLogger),
		Details:   services.Figures,
		PrefsPath: config.ExpandHome(cfg.Browse.PrefsPath),
		Logger:    browseLogger,
	})
}
