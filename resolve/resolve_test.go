package resolve

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AeyeOps/mgit-sub001/pattern"
	"github.com/AeyeOps/mgit-sub001/provider"
)

// stubBackend is a scripted provider for resolver tests.
type stubBackend struct {
	name     string
	endpoint string
	records  []provider.Record
	err      error
	delay    time.Duration
	calls    atomic.Int64
}

func (s *stubBackend) Name() string      { return s.name }
func (s *stubBackend) Kind() string      { return "stub" }
func (s *stubBackend) Endpoint() string  { return s.endpoint }
func (s *stubBackend) HasProjects() bool { return false }

func (s *stubBackend) List(ctx context.Context, q *pattern.Query) ([]provider.Record, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func rec(backend, org, name string) provider.Record {
	return provider.Record{
		Org:      org,
		Name:     name,
		CloneURL: "https://git.example/" + org + "/" + name + ".git",
		Backend:  backend,
	}
}

func mustParse(t *testing.T, raw string) *pattern.Query {
	t.Helper()
	q, err := pattern.Parse(raw, "", "")
	require.NoError(t, err)
	return q
}

func TestResolveFederatedFanOut(t *testing.T) {
	// Property: a federated query hits every configured backend exactly once.
	alpha := &stubBackend{name: "alpha"}
	beta := &stubBackend{name: "beta"}
	gamma := &stubBackend{name: "gamma"}

	r := New(Options{Providers: []provider.Provider{alpha, beta, gamma}})
	_, err := r.Resolve(context.Background(), mustParse(t, "*/*/*"), 0)
	require.NoError(t, err)

	assert.Equal(t, int64(1), alpha.calls.Load())
	assert.Equal(t, int64(1), beta.calls.Load())
	assert.Equal(t, int64(1), gamma.calls.Load())
}

func TestResolveExplicitBackend(t *testing.T) {
	alpha := &stubBackend{name: "alpha"}
	beta := &stubBackend{name: "beta"}
	r := New(Options{Providers: []provider.Provider{alpha, beta}})

	t.Run("queries only the named backend", func(t *testing.T) {
		q, err := pattern.Parse("*/*/*", "beta", "")
		require.NoError(t, err)

		_, err = r.Resolve(context.Background(), q, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), alpha.calls.Load())
		assert.Equal(t, int64(1), beta.calls.Load())
	})

	t.Run("unknown backend name is fatal", func(t *testing.T) {
		q, err := pattern.Parse("*/*/*", "nope", "")
		require.NoError(t, err)

		_, err = r.Resolve(context.Background(), q, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownBackend))
	})
}

func TestResolveExplicitEndpoint(t *testing.T) {
	alpha := &stubBackend{name: "alpha", endpoint: "https://api.alpha.example.com"}
	beta := &stubBackend{name: "beta", endpoint: "https://api.beta.example.com/"}
	r := New(Options{Providers: []provider.Provider{alpha, beta}})

	t.Run("queries only the backend configured with the endpoint", func(t *testing.T) {
		q, err := pattern.Parse("*/*/*", "", "https://API.beta.example.com")
		require.NoError(t, err)

		_, err = r.Resolve(context.Background(), q, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), alpha.calls.Load())
		assert.Equal(t, int64(1), beta.calls.Load())
	})

	t.Run("unconfigured endpoint is fatal", func(t *testing.T) {
		q, err := pattern.Parse("*/*/*", "", "https://api.gamma.example.com")
		require.NoError(t, err)

		_, err = r.Resolve(context.Background(), q, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownBackend))
	})
}

func TestResolveDeduplication(t *testing.T) {
	// Scenario from the design: Alpha has svc-a and svc-b, Beta has svc-a
	// and svc-c. The aggregate keeps three records, svc-a from Alpha.
	alpha := &stubBackend{name: "alpha", records: []provider.Record{
		rec("alpha", "acme", "svc-a"),
		rec("alpha", "acme", "svc-b"),
	}}
	beta := &stubBackend{name: "beta", records: []provider.Record{
		rec("beta", "acme", "svc-a"),
		rec("beta", "acme", "svc-c"),
	}}

	r := New(Options{Providers: []provider.Provider{alpha, beta}})
	res, err := r.Resolve(context.Background(), mustParse(t, "*/*/*"), 0)
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, 1, res.DuplicatesRemoved)

	names := []string{}
	for _, rc := range res.Records {
		names = append(names, rc.Name)
	}
	assert.Equal(t, []string{"svc-a", "svc-b", "svc-c"}, names)
	assert.Equal(t, "alpha", res.Records[0].Backend, "first configured backend wins the duplicate")
}

func TestResolveDeterministicOrder(t *testing.T) {
	// The slower backend answers last, but configured order and sorting keep
	// the result identical run to run.
	slow := &stubBackend{name: "alpha", delay: 30 * time.Millisecond, records: []provider.Record{
		rec("alpha", "acme", "zeta"),
		rec("alpha", "acme", "alpha-svc"),
	}}
	fast := &stubBackend{name: "beta", records: []provider.Record{
		rec("beta", "bravo", "middle"),
		rec("beta", "acme", "zeta"),
	}}

	r := New(Options{Providers: []provider.Provider{slow, fast}})

	first, err := r.Resolve(context.Background(), mustParse(t, "*/*/*"), 0)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), mustParse(t, "*/*/*"), 0)
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records, "resolution must be idempotent")
	assert.Equal(t, first.DuplicatesRemoved, second.DuplicatesRemoved)

	// Sorted (org, project, name): acme/alpha-svc, acme/zeta, bravo/middle.
	require.Len(t, first.Records, 3)
	assert.Equal(t, "alpha-svc", first.Records[0].Name)
	assert.Equal(t, "zeta", first.Records[1].Name)
	assert.Equal(t, "alpha", first.Records[1].Backend, "dedup winner is configuration order, not arrival order")
	assert.Equal(t, "middle", first.Records[2].Name)
}

func TestResolvePartialFailure(t *testing.T) {
	// A dead backend must not suppress matches from the surviving one.
	dead := &stubBackend{name: "alpha", err: provider.ErrNetwork}
	live := &stubBackend{name: "beta", records: []provider.Record{
		rec("beta", "acme", "one"),
		rec("beta", "acme", "two"),
		rec("beta", "acme", "three"),
	}}

	r := New(Options{Providers: []provider.Provider{dead, live}})
	res, err := r.Resolve(context.Background(), mustParse(t, "*/*/*"), 0)
	require.NoError(t, err)

	assert.Len(t, res.Records, 3)
	assert.Equal(t, []string{"beta"}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "alpha", res.Failed[0].Backend)
	assert.True(t, errors.Is(res.Failed[0].Err, provider.ErrNetwork))
	assert.Equal(t, []string{"alpha"}, res.FailedBackendNames())
}

func TestResolveFatalCases(t *testing.T) {
	t.Run("zero backends configured", func(t *testing.T) {
		r := New(Options{})
		_, err := r.Resolve(context.Background(), mustParse(t, "*/*/*"), 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoBackends))
	})

	t.Run("every backend failed", func(t *testing.T) {
		r := New(Options{Providers: []provider.Provider{
			&stubBackend{name: "alpha", err: provider.ErrAuth},
			&stubBackend{name: "beta", err: provider.ErrRateLimited},
		}})
		_, err := r.Resolve(context.Background(), mustParse(t, "*/*/*"), 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExhausted))
	})
}

func TestResolveLimit(t *testing.T) {
	// The cap applies after aggregation and sorting, so it cannot bias which
	// backends are represented: the lexicographically first records survive.
	alpha := &stubBackend{name: "alpha", records: []provider.Record{
		rec("alpha", "zz-org", "repo1"),
		rec("alpha", "zz-org", "repo2"),
	}}
	beta := &stubBackend{name: "beta", records: []provider.Record{
		rec("beta", "aa-org", "repo3"),
	}}

	r := New(Options{Providers: []provider.Provider{alpha, beta}})
	res, err := r.Resolve(context.Background(), mustParse(t, "*/*/*"), 2)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "aa-org", res.Records[0].Org)
	assert.Equal(t, "zz-org", res.Records[1].Org)
}

func TestResolveCancellation(t *testing.T) {
	slow := &stubBackend{name: "alpha", delay: 5 * time.Second}
	r := New(Options{Providers: []provider.Provider{slow}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Resolve(ctx, mustParse(t, "*/*/*"), 0)
	require.Error(t, err)
}
