// Package cli is the command-line driving adapter. Commands call the driving
// ports; the process wiring lives in cmd/marketlens.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marketlens/internal/core/ports/driving"
)

// Runner is a background component the worker command keeps alive.
type Runner interface {
	Start(ctx context.Context)
	Stop()
}

// Services are the ports the commands drive.
type Services struct {
	Query     driving.QueryService
	Market    driving.MarketDataService
	Macro     driving.MacroService
	Refresher Runner
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// BootstrapFunc builds the services for one invocation. The returned
// cleanup is run after the command finishes.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	services  *Services
	bootstrap BootstrapFunc
	cleanup   func()
	opts      Options
)

var rootCmd = &cobra.Command{
	Use:   "marketlens",
	Short: "Market data retrieval and query orchestration",
	Long: `marketlens loads district-level market data from a spreadsheet or local
files, tracks national indicators, and answers questions over both with a
generative model.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
}

// SetBootstrap installs the function that wires services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs ready-made services, bypassing bootstrap.
func SetServices(s *Services) {
	services = s
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	if services != nil || bootstrap == nil {
		return nil
	}
	s, done, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	services, cleanup = s, done
	return nil
}

var errNotConfigured = errors.New("service not configured")

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
