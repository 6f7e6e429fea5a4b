package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/figureshelf/apiclient"
	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/config"
	"github.com/s0up4200/figureshelf/filter"
)

var (
	cfgFile   string
	cfg       *config.Config
	logger    zerolog.Logger
	apiClient *apiclient.Client
	services  *catalog.Services
	filters   *filter.Manager
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "figureshelf",
	Short: "Browse and manage a figure collection",
	Long: `figureshelf is the front end of a figure-collection catalog. It serves the web
pages, offers a terminal browser and lets you list, create, edit and seal
figures straight from the command line.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(testCmd)
}

// initializeApp initializes the configuration and clients
func initializeApp(cmd *cobra.Command, args []string) error {
	if err := initializeConfig(cmd, args); err != nil {
		return err
	}

	var err error
	apiClient, err = newAPIClient(cfg.API, endpointsFor(cfg.API))
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	var requester catalog.Requester = apiClient
	if cfg.API.HasUserTokens() {
		requester = apiClient.ForUser(apiclient.NewMemoryCredentials("cli", cfg.API.AccessToken, cfg.API.RefreshToken))
		logger.Debug().Msg("Using user credentials from config")
	}
	services = catalog.NewServices(requester, logger)

	filters = filter.NewManager(
		filter.WithCompiler(filter.NewExprCompiler(filter.WithCache(100), filter.WithLogger(logger))),
	)
	if err := filters.RegisterFilters(cfg.Filters); err != nil {
		return fmt.Errorf("invalid filter in config: %w", err)
	}

	return nil
}

// endpointsFor maps the API config onto client endpoints
func endpointsFor(c config.APIConfig) apiclient.Endpoints {
	return apiclient.Endpoints{
		Origin:         c.Origin,
		DeploymentHost: c.DeploymentHost,
		ProxyURL:       c.ProxyURL,
	}
}

func newAPIClient(c config.APIConfig, endpoints apiclient.Endpoints) (*apiclient.Client, error) {
	return apiclient.NewClient(endpoints, c.InternalKey, logger,
		apiclient.WithTimeout(c.Timeout),
		apiclient.WithUserAgent("figureshelf/"+appVersion),
	)
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig, out *os.File) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(out).With().Timestamp().Logger()
	}

	return zerolog.New(consoleWriter(out, cfg.Color && isTerminal(out))).With().Timestamp().Logger()
}

func consoleWriter(out io.Writer, color bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !color,
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to the figure backend",
	Long:  `Test the connection to the figure backend and display basic information.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Printf("Testing connection to %s (%s scope)...\n", apiClient.BaseURL(), apiClient.Scope())

	ctx := context.Background()
	first := services.Figures.Paginated(ctx, catalog.PageQuery{Page: 1, Limit: 1})
	if !first.OK() {
		return fmt.Errorf("connection failed: %s", first.Message)
	}
	fmt.Println("✓ Connection successful!")

	options := services.LoadFormOptions(ctx)

	fmt.Printf("\nCatalog Statistics:\n")
	fmt.Printf("- Total figures: %d\n", first.Data.Pagination.TotalCount)
	if options.OK() {
		fmt.Printf("- Characters: %d\n", len(options.Data.Characters))
		fmt.Printf("- Manufacturers: %d\n", len(options.Data.Manufacturers))
		fmt.Printf("- Figure types: %d\n", len(options.Data.Types))
	} else {
		fmt.Printf("- Reference data: %s\n", options.Message)
	}

	if names := filters.ListFilters(); len(names) > 0 {
		fmt.Printf("\nConfigured filters:\n")
		for _, name := range names {
			fmt.Printf("  • %s\n", name)
		}
	}

	scope := "Service (internal key)"
	if cfg.API.HasUserTokens() {
		scope = "User (bearer token)"
	}
	fmt.Printf("\nCredentials: %s\n", scope)

	return nil
}
