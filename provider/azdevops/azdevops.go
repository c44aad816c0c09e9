// Package azdevops implements the provider contract for Azure DevOps.
// An Azure DevOps endpoint is scoped to a single organization
// (https://dev.azure.com/{org}); repositories live under projects, so the
// two-segment pattern form is interpreted as organization/project.
package azdevops

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AeyeOps/mgit-sub001/pattern"
	"github.com/AeyeOps/mgit-sub001/provider"
)

// apiVersion is pinned so response shapes stay stable.
const apiVersion = "7.1"

// Provider lists repositories through the Azure DevOps REST API.
type Provider struct {
	desc provider.Descriptor
	org  string
}

// New builds an Azure DevOps provider from a backend descriptor. The
// descriptor endpoint is required and must name the organization,
// e.g. https://dev.azure.com/acme.
func New(desc provider.Descriptor) (provider.Provider, error) {
	if desc.Name == "" {
		return nil, fmt.Errorf("azdevops: descriptor name is required")
	}
	if desc.Endpoint == "" {
		return nil, fmt.Errorf("azdevops: endpoint is required (https://dev.azure.com/{organization})")
	}

	org, err := organizationFromEndpoint(desc.Endpoint)
	if err != nil {
		return nil, err
	}

	return &Provider{desc: desc, org: org}, nil
}

// organizationFromEndpoint extracts the organization from the endpoint path.
func organizationFromEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("azdevops: invalid endpoint %q: %w", endpoint, err)
	}

	org := strings.Trim(u.Path, "/")
	if org == "" || strings.Contains(org, "/") {
		return "", fmt.Errorf("azdevops: endpoint %q must end in exactly one organization segment", endpoint)
	}
	return org, nil
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return p.desc.Name }

// Kind implements provider.Provider.
func (p *Provider) Kind() string { return provider.KindAzureDevOps }

// Endpoint implements provider.Provider.
func (p *Provider) Endpoint() string { return p.desc.Endpoint }

// HasProjects implements provider.Provider.
func (p *Provider) HasProjects() bool { return true }

// listPage is the envelope Azure DevOps wraps around list responses.
type listPage[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

type projectJSON struct {
	Name string `json:"name"`
}

type repoJSON struct {
	Name          string `json:"name"`
	RemoteURL     string `json:"remoteUrl"`
	DefaultBranch string `json:"defaultBranch"`
	Project       struct {
		Name       string `json:"name"`
		Visibility string `json:"visibility"`
	} `json:"project"`
}

// List implements provider.Provider. The organization segment is matched
// against this endpoint's organization; a non-matching segment yields an
// empty result without touching the network. Per-project repository
// listings run concurrently, bounded by the descriptor's query concurrency.
func (p *Provider) List(ctx context.Context, q *pattern.Query) ([]provider.Record, error) {
	triple := q.Triple(true)
	orgSeg, projSeg, repoSeg := triple[0], triple[1], triple[2]

	if !orgSeg.Match(p.org) {
		return nil, nil
	}

	session := provider.NewSession(p.desc, p.authorize)

	projects, err := p.matchingProjects(ctx, session, projSeg)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		records []provider.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.desc.Concurrency())

	for _, proj := range projects {
		g.Go(func() error {
			repos, err := p.projectRepos(gctx, provider.NewSession(p.desc, p.authorize), proj)
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
					Org:           p.org,
					Project:       r.Project.Name,
					Name:          r.Name,
					CloneURL:      r.RemoteURL,
					DefaultBranch: shortBranch(r.DefaultBranch),
					Private:       r.Project.Visibility != "public",
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

// matchingProjects resolves the project segment to concrete project names.
func (p *Provider) matchingProjects(ctx context.Context, s *provider.Session, seg pattern.Segment) ([]string, error) {
	if seg.Kind == pattern.Exact {
		return []string{seg.Needle}, nil
	}

	listURL := fmt.Sprintf("%s/_apis/projects?api-version=%s", strings.TrimSuffix(p.desc.Endpoint, "/"), apiVersion)

	var page listPage[projectJSON]
	if err := s.GetJSON(ctx, listURL, &page); err != nil {
		return nil, err
	}

	var projects []string
	for _, proj := range page.Value {
		if seg.Match(proj.Name) {
			projects = append(projects, proj.Name)
		}
	}
	return projects, nil
}

// projectRepos lists every git repository of one project.
func (p *Provider) projectRepos(ctx context.Context, s *provider.Session, project string) ([]repoJSON, error) {
	listURL := fmt.Sprintf("%s/%s/_apis/git/repositories?api-version=%s",
		strings.TrimSuffix(p.desc.Endpoint, "/"), url.PathEscape(project), apiVersion)

	var page listPage[repoJSON]
	if err := s.GetJSON(ctx, listURL, &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// shortBranch strips the refs/heads/ prefix Azure DevOps reports.
func shortBranch(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// authorize attaches the PAT, when configured, using basic auth with an
// empty username as the API expects.
func (p *Provider) authorize(req *http.Request) {
	if p.desc.Token != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(":" + p.desc.Token))
		req.Header.Set("Authorization", "Basic "+cred)
	}
}
