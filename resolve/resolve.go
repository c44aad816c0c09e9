// Package resolve fans a parsed query out to the configured backends,
// aggregates their answers, and produces a deterministic, deduplicated
// resolution result. Backend failures are tolerated and reported; the
// resolution fails as a whole only when nothing could answer.
package resolve

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/AeyeOps/mgit-sub001/pattern"
	"github.com/AeyeOps/mgit-sub001/provider"
)

// BackendFailure records one backend that could not answer a query.
type BackendFailure struct {
	// Backend is the descriptor name of the failing backend.
	Backend string

	// Err is the failure, wrapping a provider taxonomy sentinel.
	Err error
}

// Result is the outcome of one resolution. It is constructed once and never
// mutated afterwards; records are sorted by (organization, project, name)
// ascending, case-insensitive, independent of backend answer order.
type Result struct {
	// Records is the deduplicated, sorted repository set.
	Records []provider.Record

	// Succeeded lists the backends that answered, in configured order.
	Succeeded []string

	// Failed lists the backends that could not answer, with their errors.
	Failed []BackendFailure

	// DuplicatesRemoved counts records dropped because an earlier-configured
	// backend already reported the same identity key.
	DuplicatesRemoved int
}

// FailedBackendNames returns just the names from the failed set.
func (r *Result) FailedBackendNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Backend)
	}
	return names
}

// Options configures a Resolver.
type Options struct {
	// Providers is the configured backend set in precedence order.
	// Order determines deduplication: the first backend reporting an
	// identity key wins.
	Providers []provider.Provider

	// Logger receives per-backend diagnostics. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// Resolver executes federated queries against a fixed provider set.
type Resolver struct {
	providers []provider.Provider
	logger    zerolog.Logger
}

// New creates a Resolver. The provider set may be empty; Resolve reports
// ErrNoBackends in that case.
func New(opts Options) *Resolver {
	return &Resolver{
		providers: opts.Providers,
		logger:    opts.Logger,
	}
}

// Resolve runs the query and builds the Result. When the query is federated
// every configured backend is queried exactly once, concurrently; otherwise
// only the explicitly selected backend is queried. limit caps the record
// count after aggregation and sorting (never per-backend); zero means
// unlimited.
func (r *Resolver) Resolve(ctx context.Context, q *pattern.Query, limit int) (*Result, error) {
	targets, err := r.selectTargets(q)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoBackends
	}

	// answers is indexed by target position so aggregation order is the
	// configured order, independent of completion order.
	answers := make([][]provider.Record, len(targets))
	failures := make([]error, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range targets {
		g.Go(func() error {
			records, listErr := p.List(gctx, q)
			if listErr != nil {
				// Partial failure: recorded, not propagated. The group
				// error is reserved for context cancellation.
				failures[i] = provider.NewQueryError(p.Name(), listErr)
				r.logger.Warn().
					Str("backend", p.Name()).
					Err(listErr).
					Msg("backend query failed")
				return nil
			}
			answers[i] = records
			r.logger.Debug().
				Str("backend", p.Name()).
				Int("records", len(records)).
				Msg("backend answered")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := aggregate(targets, answers, failures)

	if len(result.Succeeded) == 0 {
		return nil, WrapError(ErrExhausted, describeFailures(result.Failed))
	}

	if limit > 0 && len(result.Records) > limit {
		result.Records = result.Records[:limit]
	}
	return result, nil
}

// selectTargets restricts the provider set for non-federated queries.
func (r *Resolver) selectTargets(q *pattern.Query) ([]provider.Provider, error) {
	if q.Federated() {
		return r.providers, nil
	}

	for _, p := range r.providers {
		if q.Backend != "" && p.Name() == q.Backend {
			return []provider.Provider{p}, nil
		}
		if q.Backend == "" && sameEndpoint(p.Endpoint(), q.Endpoint) {
			return []provider.Provider{p}, nil
		}
	}
	if q.Backend != "" {
		return nil, WrapErrorf(ErrUnknownBackend, "backend %q", q.Backend)
	}
	return nil, WrapErrorf(ErrUnknownBackend, "endpoint %q", q.Endpoint)
}

// sameEndpoint compares endpoint URLs ignoring case and trailing slashes.
func sameEndpoint(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(b, "/"))
}

// aggregate merges per-backend answers in configured order, deduplicating by
// identity key. It is a pure function of the full retrieved set: arrival
// timing cannot influence the outcome.
func aggregate(targets []provider.Provider, answers [][]provider.Record, failures []error) *Result {
	result := &Result{}

	seen := make(map[string]struct{})
	for i, p := range targets {
		if failures[i] != nil {
			result.Failed = append(result.Failed, BackendFailure{Backend: p.Name(), Err: failures[i]})
			continue
		}

		result.Succeeded = append(result.Succeeded, p.Name())
		for _, rec := range answers[i] {
			key := rec.Key()
			if _, dup := seen[key]; dup {
				result.DuplicatesRemoved++
				continue
			}
			seen[key] = struct{}{}
			result.Records = append(result.Records, rec)
		}
	}

	sortRecords(result.Records)
	return result
}

// sortRecords orders records by (organization, project, name) ascending,
// case-insensitive. Downstream collision resolution and test output depend
// on this ordering being deterministic.
func sortRecords(records []provider.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if c := strings.Compare(strings.ToLower(a.Org), strings.ToLower(b.Org)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(a.Project), strings.ToLower(b.Project)); c != 0 {
			return c < 0
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

// describeFailures renders the failed set for the exhaustion error message.
func describeFailures(failed []BackendFailure) string {
	parts := make([]string, 0, len(failed))
	for _, f := range failed {
		parts = append(parts, f.Backend)
	}
	return "all configured backends failed: " + strings.Join(parts, ", ")
}
