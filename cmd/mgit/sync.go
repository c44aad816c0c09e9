package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AeyeOps/mgit-sub001/gitops"
	"github.com/AeyeOps/mgit-sub001/pattern"
	"github.com/AeyeOps/mgit-sub001/provider"
	"github.com/AeyeOps/mgit-sub001/syncer"
)

func newSyncCmd(flags *rootFlags) *cobra.Command {
	var (
		modeName string
		workers  int
		limit    int
		backend  string
		endpoint string
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "sync <pattern> [target]",
		Short: "Clone or update every repository matching a pattern",
		Long: `Sync resolves a pattern across the configured backends and brings a
flat local directory in line with the result: missing repositories are
cloned, existing ones are handled per --mode.

  --mode skip   clone missing, leave everything else untouched
  --mode pull   additionally fast-forward clean repositories
  --mode force  additionally delete and re-clone dirty or non-git paths

Force mode lists every directory it would delete and asks for one
confirmation before any work starts.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.verbose)

			query, err := pattern.Parse(args[0], backend, endpoint)
			if err != nil {
				return err
			}

			resolver, cfg, err := buildResolver(flags, logger)
			if err != nil {
				return err
			}

			if modeName == "" {
				modeName = cfg.Defaults.Mode
			}
			if modeName == "" {
				modeName = "pull"
			}
			mode, err := syncer.ParseMode(modeName)
			if err != nil {
				return err
			}

			if workers == 0 {
				workers = cfg.Defaults.Workers
			}

			target := cfg.Defaults.Target
			if len(args) == 2 {
				target = args[1]
			}
			if target == "" {
				return errors.New("no target directory: pass one or set defaults.target in the config")
			}
			target, err = expandTarget(target)
			if err != nil {
				return err
			}

			result, err := resolver.Resolve(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			for _, failure := range result.Failed {
				logger.Warn().
					Str("backend", failure.Backend).
					Err(failure.Err).
					Msg("backend unavailable, syncing partial result")
			}
			if len(result.Records) == 0 {
				logger.Info().Msg("no repositories matched")
				return nil
			}

			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating target %q: %w", target, err)
			}

			git, err := gitops.New(&gitops.Options{
				FS:   osfs.New(target),
				Auth: gitops.NewTokenAuth(cloneTokens(cfg.Descriptors())),
			})
			if err != nil {
				return err
			}

			confirm := promptConfirm(cmd.InOrStdin(), cmd.ErrOrStderr())
			if yes {
				confirm = func([]string) bool { return true }
			}

			scheduler, err := syncer.NewScheduler(&syncer.Options{
				Git:     git,
				Workers: workers,
				Mode:    mode,
				Confirm: confirm,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			tasks := syncer.BuildTasks(result.Records)
			logger.Info().
				Int("repos", len(tasks)).
				Str("target", target).
				Stringer("mode", mode).
				Msg("starting sync")

			report, err := scheduler.Run(cmd.Context(), tasks)
			if err != nil {
				return err
			}
			report.DuplicatesRemoved = result.DuplicatesRemoved
			report.FailedBackends = result.FailedBackendNames()

			printReport(logger, report)
			if code := report.ExitCode(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modeName, "mode", "", "sync mode: skip, pull, or force (default from config, else pull)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent sync workers (default from config, else 4)")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the repository count (applied after sorting)")
	cmd.Flags().StringVar(&backend, "provider", "", "query only the named backend")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "query only the backend configured with this API endpoint")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "auto-confirm force-mode deletions")
	return cmd
}

// promptConfirm asks for interactive approval of force-mode deletions.
func promptConfirm(in io.Reader, out io.Writer) syncer.ConfirmFunc {
	return func(paths []string) bool {
		fmt.Fprintln(out, "force mode will delete and re-clone the following directories:")
		for _, p := range paths {
			fmt.Fprintln(out, "  "+p)
		}
		fmt.Fprint(out, "proceed? [y/N]: ")

		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

// cloneTokens maps clone hosts to tokens from the backend descriptors.
// Custom endpoints use their own hostname; the public services use their
// well-known clone hosts. First configured backend wins per host.
func cloneTokens(descs []provider.Descriptor) map[string]string {
	tokens := make(map[string]string)
	for _, desc := range descs {
		if desc.Token == "" {
			continue
		}

		host := ""
		if desc.Endpoint != "" {
			if parsed, err := url.Parse(desc.Endpoint); err == nil {
				host = parsed.Hostname()
			}
		}
		if host == "" || strings.HasPrefix(host, "api.") {
			switch desc.Kind {
			case provider.KindGitHub:
				host = "github.com"
			case provider.KindBitbucket:
				host = "bitbucket.org"
			}
		}
		if host == "" {
			continue
		}
		if _, taken := tokens[host]; !taken {
			tokens[host] = desc.Token
		}
	}
	return tokens
}

// printReport logs the run summary and each failure.
func printReport(logger zerolog.Logger, report *syncer.Report) {
	for _, task := range report.Failures() {
		logger.Error().
			Str("repo", task.Record.Slug()).
			Str("path", task.Path).
			Int("attempts", task.Attempts).
			Str("reason", task.Reason).
			Msg("sync failed")
	}

	event := logger.Info().
		Str("run_id", report.RunID.String()).
		Int("total", report.Total()).
		Int("cloned", report.Count(syncer.OutcomeCloned)).
		Int("pulled", report.Count(syncer.OutcomePulled)).
		Int("skipped_clean", report.Count(syncer.OutcomeSkippedClean)).
		Int("skipped_dirty", report.Count(syncer.OutcomeSkippedDirty)).
		Int("skipped_non_git", report.Count(syncer.OutcomeSkippedNonGit)).
		Int("failed", report.Count(syncer.OutcomeFailed)).
		Int("cancelled", report.Count(syncer.OutcomeCancelled)).
		Int("duplicates_removed", report.DuplicatesRemoved).
		Dur("elapsed", report.Finished.Sub(report.Started))
	if len(report.FailedBackends) > 0 {
		event = event.Strs("failed_backends", report.FailedBackends)
	}
	if report.UserCancelled {
		event = event.Bool("cancelled_by_user", true)
	}
	event.Msg("sync complete")
}

// expandTarget resolves a leading ~ to the user home directory.
func expandTarget(target string) (string, error) {
	if target == "~" || strings.HasPrefix(target, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(target, "~")), nil
	}
	return filepath.Clean(target), nil
}
