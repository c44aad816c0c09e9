// Package provider defines the uniform listing contract every hosting
// backend implements, along with the backend descriptor consumed from
// configuration and the repository record produced by queries. The core
// resolution engine talks to backends exclusively through this package.
package provider

import (
	"context"
	"strings"

	"github.com/AeyeOps/mgit-sub001/pattern"
)

// Known backend kinds. One Provider implementation exists per kind.
const (
	KindGitHub      = "github"
	KindBitbucket   = "bitbucket"
	KindAzureDevOps = "azuredevops"
)

// DefaultQueryConcurrency bounds concurrent listing requests to a single
// backend when a descriptor does not set its own limit.
const DefaultQueryConcurrency = 4

// Descriptor identifies one configured backend and its limits. Descriptors
// are immutable values for the duration of an invocation; the configuration
// collaborator supplies them in precedence order.
type Descriptor struct {
	// Name is the unique identity of this backend instance.
	Name string

	// Kind selects the protocol family (github, bitbucket, azuredevops).
	Kind string

	// Endpoint is the API base URL. Empty selects the kind's public default.
	Endpoint string

	// Token is the opaque credential passed through from configuration.
	// Credential acquisition is not this package's concern.
	Token string

	// QueryConcurrency bounds concurrent listing requests to this backend.
	QueryConcurrency int

	// RatePerSecond is the request rate ceiling for this backend.
	// Zero means unlimited.
	RatePerSecond float64
}

// Concurrency returns the effective query concurrency limit.
func (d Descriptor) Concurrency() int {
	if d.QueryConcurrency <= 0 {
		return DefaultQueryConcurrency
	}
	return d.QueryConcurrency
}

// Record is one repository as reported by a backend.
type Record struct {
	// Org is the organization (or workspace) owning the repository.
	Org string

	// Project is the project grouping; empty for project-less backends.
	Project string

	// Name is the repository name.
	Name string

	// CloneURL is the HTTPS clone endpoint.
	CloneURL string

	// DefaultBranch is the repository's default branch name.
	DefaultBranch string

	// Private reports the repository's visibility flag.
	Private bool

	// Backend is the name of the descriptor that produced this record.
	Backend string
}

// Key returns the normalized identity of the repository. Records with equal
// keys arriving from different backends describe the same repository and are
// deduplicated during aggregation.
func (r Record) Key() string {
	return strings.ToLower(r.Org) + "/" + strings.ToLower(r.Project) + "/" + strings.ToLower(r.Name)
}

// Slug returns the human-readable org/project/name path, omitting the
// project part when the backend has no project concept.
func (r Record) Slug() string {
	if r.Project == "" {
		return r.Org + "/" + r.Name
	}
	return r.Org + "/" + r.Project + "/" + r.Name
}

// Provider is the capability every hosting backend exposes to the resolver.
// Implementations translate the three-segment pattern into their native
// query mechanism where possible and post-filter the remainder client-side.
//
// List must be safe for concurrent use and must not share connection state
// between concurrent calls; each call acquires its own session.
type Provider interface {
	// Name returns the configured backend identity.
	Name() string

	// Kind returns the protocol family.
	Kind() string

	// Endpoint returns the effective API base URL this backend talks to,
	// after kind defaults are applied. Queries pinned to an endpoint are
	// matched against it.
	Endpoint() string

	// HasProjects reports whether this backend has a project hierarchy
	// between organization and repository. It selects which two-segment
	// pattern expansion applies.
	HasProjects() bool

	// List returns every repository visible to this backend that matches
	// the query. Failures carry the taxonomy sentinels of this package.
	List(ctx context.Context, q *pattern.Query) ([]Record, error)
}
