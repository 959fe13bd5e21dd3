package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/nupkg-tools/ensure"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "nupkg-ensure",
		Short: "Ensure the " + ensure.DefaultPackageID + " package is present in the local NuGet cache",
		Long: `nupkg-ensure checks the local NuGet package cache for the latest listed
stable version of ` + ensure.DefaultPackageID + ` and downloads it from nuget.org
when it is missing. Repeated runs with the package already cached download
nothing.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func run(ctx context.Context, debug bool) error {
	level := hclog.Info
	if debug {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "nupkg-ensure",
		Level:  level,
		Output: os.Stderr,
		Color:  hclog.AutoColor,
	})

	client, err := ensure.New(ensure.Config{}, ensure.WithLogger(ensure.NewHCLogLogger(logger)))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	result, err := client.EnsurePresent(ctx)
	if err != nil {
		logger.Error("ensure failed", "error", err)
		return err
	}

	switch {
	case result.AlreadyCached:
		logger.Info("package already present", "package", result.Identity.String())
	case result.UsedFallback:
		logger.Info("package installed after fallback", "package", result.Identity.String())
	default:
		logger.Info("package installed", "package", result.Identity.String())
	}

	return nil
}
