package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/s0up4200/figureshelf/config"
)

var (
	appVersion = "dev"
	appBuilt   = "unknown"

	checkOnly   bool
	forceUpdate bool
)

// SetVersion records the build information injected at link time
func SetVersion(version, buildTime string) {
	appVersion = version
	appBuilt = buildTime
	rootCmd.Version = version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No config or backend needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("figureshelf %s\n", appVersion)
		fmt.Printf("Built:    %s\n", appBuilt)
		fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// selfUpdateCmd represents the update command
var selfUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update figureshelf to the latest release",
	Long: `Check GitHub for a newer figureshelf release and replace the running binary with it.

Development builds have no comparable version and are only replaced with --force.`,
	PersistentPreRunE: initializeConfig,
	RunE:              runSelfUpdate,
}

func init() {
	rootCmd.AddCommand(versionCmd, selfUpdateCmd)

	selfUpdateCmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update is available")
	selfUpdateCmd.Flags().BoolVar(&forceUpdate, "force", false, "update even when the current version is not a release")
}

// initializeConfig loads the configuration and logger without creating any clients
func initializeConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger = setupLogger(cfg.Logging, os.Stderr)
	return nil
}

// currentVersion parses the running version, tolerating a leading v
func currentVersion(raw string) (semver.Version, error) {
	v, err := semver.ParseTolerant(raw)
	if err != nil {
		return semver.Version{}, fmt.Errorf("version %q is not a release version: %w", raw, err)
	}
	return v, nil
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	current, err := currentVersion(appVersion)
	if err != nil && !forceUpdate {
		return fmt.Errorf("%w (use --force to install the latest release anyway)", err)
	}

	repository := selfupdate.ParseSlug(cfg.Update.Repository)
	logger.Debug().Str("repository", cfg.Update.Repository).Msg("Checking for updates")

	latest, found, err := selfupdate.DetectLatest(ctx, repository)
	if err != nil {
		return fmt.Errorf("failed to detect latest release: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s/%s in %s", runtime.GOOS, runtime.GOARCH, cfg.Update.Repository)
	}

	if !forceUpdate && latest.LessOrEqual(current.String()) {
		fmt.Printf("✓ figureshelf %s is up to date\n", appVersion)
		return nil
	}

	fmt.Printf("New version available: %s (current %s)\n", latest.Version(), appVersion)
	if checkOnly {
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	logger.Info().Str("version", latest.Version()).Str("asset", latest.AssetName).Msg("Downloading release")
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	fmt.Printf("✓ Updated to %s\n", latest.Version())
	return nil
}
