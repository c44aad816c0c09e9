// Package github implements the provider contract for GitHub and GitHub
// Enterprise. GitHub has no project hierarchy: the two-segment pattern form
// is interpreted as organization/repository.
package github

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AeyeOps/mgit-sub001/pattern"
	"github.com/AeyeOps/mgit-sub001/provider"
)

// DefaultEndpoint is the public GitHub API base URL.
const DefaultEndpoint = "https://api.github.com"

// pageSize is the per_page value used for list endpoints.
const pageSize = 100

// Provider lists repositories through the GitHub REST API.
type Provider struct {
	desc provider.Descriptor
}

// New builds a GitHub provider from a backend descriptor.
func New(desc provider.Descriptor) (provider.Provider, error) {
	if desc.Name == "" {
		return nil, fmt.Errorf("github: descriptor name is required")
	}
	if desc.Endpoint == "" {
		desc.Endpoint = DefaultEndpoint
	}
	return &Provider{desc: desc}, nil
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return p.desc.Name }

// Kind implements provider.Provider.
func (p *Provider) Kind() string { return provider.KindGitHub }

// Endpoint implements provider.Provider.
func (p *Provider) Endpoint() string { return p.desc.Endpoint }

// HasProjects implements provider.Provider. GitHub has no project concept.
func (p *Provider) HasProjects() bool { return false }

// orgJSON is the subset of the organization payload we consume.
type orgJSON struct {
	Login string `json:"login"`
}

// repoJSON is the subset of the repository payload we consume.
type repoJSON struct {
	Name          string `json:"name"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// List implements provider.Provider. An Exact organization segment takes the
// fast path of a single org listing; anything else enumerates the orgs
// visible to the token and filters client-side. Per-organization repository
// listings run concurrently, bounded by the descriptor's query concurrency.
func (p *Provider) List(ctx context.Context, q *pattern.Query) ([]provider.Record, error) {
	triple := q.Triple(false)
	orgSeg, repoSeg := triple[0], triple[2]

	session := provider.NewSession(p.desc, p.authorize)

	orgs, err := p.matchingOrgs(ctx, session, orgSeg)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		records []provider.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.desc.Concurrency())

	for _, org := range orgs {
		g.Go(func() error {
			// Isolated session per concurrent listing.
			repos, err := p.orgRepos(gctx, provider.NewSession(p.desc, p.authorize), org)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, r := range repos {
				if !repoSeg.Match(r.Name) {
					continue
				}
				records = append(records, provider.Record{
					Org:           r.Owner.Login,
					Name:          r.Name,
					CloneURL:      r.CloneURL,
					DefaultBranch: r.DefaultBranch,
					Private:       r.Private,
					Backend:       p.desc.Name,
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// matchingOrgs resolves the organization segment to concrete org names.
func (p *Provider) matchingOrgs(ctx context.Context, s *provider.Session, seg pattern.Segment) ([]string, error) {
	if seg.Kind == pattern.Exact {
		return []string{seg.Needle}, nil
	}

	var orgs []string
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/user/orgs?per_page=%d&page=%d", p.desc.Endpoint, pageSize, page)

		var batch []orgJSON
		if err := s.GetJSON(ctx, url, &batch); err != nil {
			return nil, err
		}

		for _, o := range batch {
			if seg.Match(o.Login) {
				orgs = append(orgs, o.Login)
			}
		}
		if len(batch) < pageSize {
			break
		}
	}
	return orgs, nil
}

// orgRepos pages through every repository of one organization.
func (p *Provider) orgRepos(ctx context.Context, s *provider.Session, org string) ([]repoJSON, error) {
	var repos []repoJSON
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d&page=%d", p.desc.Endpoint, org, pageSize, page)

		var batch []repoJSON
		if err := s.GetJSON(ctx, url, &batch); err != nil {
			return nil, err
		}

		repos = append(repos, batch...)
		if len(batch) < pageSize {
			break
		}
	}
	return repos, nil
}

// authorize attaches the token, when configured, as a bearer credential.
func (p *Provider) authorize(req *http.Request) {
	if p.desc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.desc.Token)
	}
}
