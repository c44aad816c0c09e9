package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AeyeOps/mgit-sub001/config"
	"github.com/AeyeOps/mgit-sub001/provider"
	"github.com/AeyeOps/mgit-sub001/provider/azdevops"
	"github.com/AeyeOps/mgit-sub001/provider/bitbucket"
	"github.com/AeyeOps/mgit-sub001/provider/github"
	"github.com/AeyeOps/mgit-sub001/resolve"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	verbose    bool
}

// exitError carries a specific process exit code through cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "mgit",
		Short: "Discover and bulk-sync repositories across hosting backends",
		Long: `mgit queries every configured hosting backend (GitHub, Bitbucket,
Azure DevOps) with a single org/project/repo pattern, merges the answers,
and synchronizes the matching repositories into one flat local directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"config file path (default: XDG config home, mgit/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"enable debug logging")

	cmd.AddCommand(
		newListCmd(flags),
		newSyncCmd(flags),
	)
	return cmd
}

// newLogger builds the console logger all commands share. Diagnostics go
// to stderr so stdout stays parseable.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// newRegistry wires the built-in backend kinds.
func newRegistry() (*provider.Registry, error) {
	registry := provider.NewRegistry()

	factories := map[string]provider.Factory{
		provider.KindGitHub:      github.New,
		provider.KindBitbucket:   bitbucket.New,
		provider.KindAzureDevOps: azdevops.New,
	}
	for kind, factory := range factories {
		if err := registry.Register(kind, factory); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// buildResolver loads the configuration and assembles the resolver over
// every configured backend, in file order.
func buildResolver(flags *rootFlags, logger zerolog.Logger) (*resolve.Resolver, *config.File, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}

	registry, err := newRegistry()
	if err != nil {
		return nil, nil, err
	}

	providers, err := registry.BuildAll(cfg.Descriptors())
	if err != nil {
		return nil, nil, err
	}

	resolver := resolve.New(resolve.Options{
		Providers: providers,
		Logger:    logger,
	})
	return resolver, cfg, nil
}
