package pattern

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse tests pattern parsing and segment classification
func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		backend  string
		endpoint string
		validate func(t *testing.T, q *Query, err error)
	}{
		{
			name: "full wildcard triple",
			raw:  "*/*/*",
			validate: func(t *testing.T, q *Query, err error) {
				require.NoError(t, err)
				require.Len(t, q.Segments(), 3)
				for _, s := range q.Segments() {
					assert.Equal(t, Any, s.Kind)
				}
				assert.True(t, q.Federated())
			},
		},
		{
			name: "exact triple is still federated without explicit backend",
			raw:  "acme/platform/billing",
			validate: func(t *testing.T, q *Query, err error) {
				require.NoError(t, err)
				assert.True(t, q.Federated(), "exact triple must fan out to all backends")
				triple := q.Triple(true)
				assert.Equal(t, Segment{Kind: Exact, Needle: "acme"}, triple[0])
				assert.Equal(t, Segment{Kind: Exact, Needle: "platform"}, triple[1])
				assert.Equal(t, Segment{Kind: Exact, Needle: "billing"}, triple[2])
			},
		},
		{
			name:    "explicit backend forces single-backend scope",
			raw:     "acme/*/*",
			backend: "work-ado",
			validate: func(t *testing.T, q *Query, err error) {
				require.NoError(t, err)
				assert.False(t, q.Federated())
				assert.Equal(t, "work-ado", q.Backend)
			},
		},
		{
			name:     "explicit endpoint forces single-backend scope",
			raw:      "*/*/*",
			endpoint: "https://dev.azure.com/acme",
			validate: func(t *testing.T, q *Query, err error) {
				require.NoError(t, err)
				assert.False(t, q.Federated())
			},
		},
		{
			name: "prefix suffix and contains classification",
			raw:  "svc-*/*-infra/*core*",
			validate: func(t *testing.T, q *Query, err error) {
				require.NoError(t, err)
				segs := q.Segments()
				assert.Equal(t, Segment{Kind: Prefix, Needle: "svc-"}, segs[0])
				assert.Equal(t, Segment{Kind: Suffix, Needle: "-infra"}, segs[1])
				assert.Equal(t, Segment{Kind: Contains, Needle: "core"}, segs[2])
			},
		},
		{
			name: "empty pattern is a syntax error",
			raw:  "",
			validate: func(t *testing.T, q *Query, err error) {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSyntax))
			},
		},
		{
			name: "more than three segments is a syntax error",
			raw:  "a/b/c/d",
			validate: func(t *testing.T, q *Query, err error) {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSyntax))
				var serr *SyntaxError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, "a/b/c/d", serr.Pattern)
			},
		},
		{
			name: "empty middle segment is a syntax error",
			raw:  "acme//billing",
			validate: func(t *testing.T, q *Query, err error) {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSyntax))
			},
		},
		{
			name: "disallowed characters are rejected",
			raw:  "acme/plat!form/*",
			validate: func(t *testing.T, q *Query, err error) {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSyntax))
			},
		},
		{
			name: "embedded wildcard is rejected",
			raw:  "ac*me",
			validate: func(t *testing.T, q *Query, err error) {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSyntax))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.raw, tt.backend, tt.endpoint)
			tt.validate(t, q, err)
		})
	}
}

// TestQueryTriple tests the segment-count expansion policy
func TestQueryTriple(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		hasProjects bool
		want        [3]Segment
	}{
		{
			name:        "single token is a repository-name filter",
			raw:         "payments",
			hasProjects: false,
			want:        [3]Segment{AnySegment, AnySegment, {Kind: Exact, Needle: "payments"}},
		},
		{
			name:        "single token against project backend expands the same way",
			raw:         "payments",
			hasProjects: true,
			want:        [3]Segment{AnySegment, AnySegment, {Kind: Exact, Needle: "payments"}},
		},
		{
			name:        "two tokens against project-less backend are org and repo",
			raw:         "acme/payments",
			hasProjects: false,
			want: [3]Segment{
				{Kind: Exact, Needle: "acme"},
				AnySegment,
				{Kind: Exact, Needle: "payments"},
			},
		},
		{
			name:        "two tokens against project backend are org and project",
			raw:         "acme/payments",
			hasProjects: true,
			want: [3]Segment{
				{Kind: Exact, Needle: "acme"},
				{Kind: Exact, Needle: "payments"},
				AnySegment,
			},
		},
		{
			name:        "three tokens are used as-is",
			raw:         "acme/platform/billing",
			hasProjects: false,
			want: [3]Segment{
				{Kind: Exact, Needle: "acme"},
				{Kind: Exact, Needle: "platform"},
				{Kind: Exact, Needle: "billing"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.raw, "", "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Triple(tt.hasProjects))
		})
	}
}

// TestSegmentMatch tests case-insensitive segment matching
func TestSegmentMatch(t *testing.T) {
	tests := []struct {
		name    string
		segment Segment
		value   string
		want    bool
	}{
		{"any matches anything", AnySegment, "whatever", true},
		{"any matches empty", AnySegment, "", true},
		{"exact is case-insensitive", Segment{Kind: Exact, Needle: "Billing"}, "billing", true},
		{"exact rejects different value", Segment{Kind: Exact, Needle: "billing"}, "billing2", false},
		{"prefix matches", Segment{Kind: Prefix, Needle: "svc-"}, "SVC-payments", true},
		{"prefix rejects", Segment{Kind: Prefix, Needle: "svc-"}, "payments-svc", false},
		{"suffix matches", Segment{Kind: Suffix, Needle: "-infra"}, "team-INFRA", true},
		{"contains matches", Segment{Kind: Contains, Needle: "core"}, "HardCOREService", true},
		{"contains rejects", Segment{Kind: Contains, Needle: "core"}, "shell", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.segment.Match(tt.value))
		})
	}
}

func TestQueryString(t *testing.T) {
	q, err := Parse("svc-*/*/billing", "", "")
	require.NoError(t, err)
	assert.Equal(t, "svc-*/*/billing", q.String())
}
