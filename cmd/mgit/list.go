package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AeyeOps/mgit-sub001/pattern"
)

func newListCmd(flags *rootFlags) *cobra.Command {
	var (
		limit    int
		backend  string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "list <pattern>",
		Short: "List repositories matching a pattern across all backends",
		Long: `List queries the configured backends with an org/project/repo pattern
and prints the merged result. Examples:

  mgit list '*'                  every repository everywhere
  mgit list 'acme/*'             every repository under org acme
  mgit list 'acme/platform/api*' api-prefixed repos in one project`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.verbose)

			query, err := pattern.Parse(args[0], backend, endpoint)
			if err != nil {
				return err
			}

			resolver, _, err := buildResolver(flags, logger)
			if err != nil {
				return err
			}

			result, err := resolver.Resolve(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORG\tPROJECT\tNAME\tBACKEND\tCLONE URL")
			for _, rec := range result.Records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					rec.Org, rec.Project, rec.Name, rec.Backend, rec.CloneURL)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, failure := range result.Failed {
				logger.Warn().
					Str("backend", failure.Backend).
					Err(failure.Err).
					Msg("backend unavailable, results are partial")
			}
			logger.Info().
				Int("repos", len(result.Records)).
				Int("duplicates_removed", result.DuplicatesRemoved).
				Strs("succeeded", result.Succeeded).
				Msg("resolution complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "cap the result count (applied after sorting)")
	cmd.Flags().StringVar(&backend, "provider", "", "query only the named backend")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "query only the backend configured with this API endpoint")
	return cmd
}
