package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/stable/internal/config"
	"github.com/andresmejia3/stable/internal/logging"
	"github.com/andresmejia3/stable/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// storeAnnotation marks commands that talk to the registry. The value is
// either "required" or the name of a bool flag that turns registry use on.
const storeAnnotation = "store"

var (
	// Cfg is the loaded configuration shared by subcommands
	Cfg = config.DefaultConfig()
	// Logger is the diagnostic logger; user-facing output goes to stdout/stderr directly
	Logger = zap.NewNop()
	// DB is the registry, opened only for commands that need it
	DB store.Store

	cfgPath string
	dbURL   string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:     "stable",
	Short:   "Mini horse stable: tune photos, save stat cards, race horses",
	Version: config.AppVersion, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath
		}

		var err error
		Cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if dbURL != "" {
			Cfg.Store.DSN = dbURL
		}
		if err := Cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}

		Logger, err = logging.New(Cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		Logger.Debug("config loaded", zap.String("path", path), zap.String("command", cmd.CommandPath()))

		if !needsStore(cmd) {
			return nil
		}
		// Use the command's context (which will be cancellable) for the connection
		return ensureStore(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to close the registry cleanly.
			DB.Close(context.Background())
		}
		_ = Logger.Sync()
	},
}

// ensureStore opens the registry once.
func ensureStore(ctx context.Context) error {
	if DB != nil {
		return nil
	}
	var err error
	DB, err = store.Open(ctx, Cfg.StoreDSN())
	if err != nil {
		DB = nil
		return fmt.Errorf("failed to open registry: %w", err)
	}
	Logger.Debug("registry opened", zap.String("dsn", redactDSN(Cfg.StoreDSN())))
	return nil
}

// redactDSN hides the password of a postgres:// DSN for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

// needsStore reports whether cmd should open the registry before running.
func needsStore(cmd *cobra.Command) bool {
	want, ok := cmd.Annotations[storeAnnotation]
	if !ok {
		return false
	}
	if want == "required" {
		return true
	}
	on, err := cmd.Flags().GetBool(want)
	return err == nil && on
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default: ./stable.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Registry DSN: postgres://... or sqlite://path (default: sqlite://~/.stable/stable.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
