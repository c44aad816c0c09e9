// Package bitbucket implements the provider contract for Bitbucket Cloud.
// Bitbucket groups repositories into projects within a workspace, so the
// two-segment pattern form is interpreted as workspace/project.
package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AeyeOps/mgit-sub001/pattern"
	"github.com/AeyeOps/mgit-sub001/provider"
)

// DefaultEndpoint is the Bitbucket Cloud API base URL.
const DefaultEndpoint = "https://api.bitbucket.org/2.0"

// pageLen is the pagelen value used for list endpoints.
const pageLen = 100

// Provider lists repositories through the Bitbucket Cloud REST API.
type Provider struct {
	desc provider.Descriptor
}

// New builds a Bitbucket provider from a backend descriptor.
func New(desc provider.Descriptor) (provider.Provider, error) {
	if desc.Name == "" {
		return nil, fmt.Errorf("bitbucket: descriptor name is required")
	}
	if desc.Endpoint == "" {
		desc.Endpoint = DefaultEndpoint
	}
	return &Provider{desc: desc}, nil
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return p.desc.Name }

// Kind implements provider.Provider.
func (p *Provider) Kind() string { return provider.KindBitbucket }

// Endpoint implements provider.Provider.
func (p *Provider) Endpoint() string { return p.desc.Endpoint }

// HasProjects implements provider.Provider.
func (p *Provider) HasProjects() bool { return true }

// workspacePage is one page of the workspace list endpoint.
type workspacePage struct {
	Values []struct {
		Slug string `json:"slug"`
	} `json:"values"`
	Next string `json:"next"`
}

// repoPage is one page of the repository list endpoint.
type repoPage struct {
	Values []repoJSON `json:"values"`
	Next   string     `json:"next"`
}

type repoJSON struct {
	Slug       string `json:"slug"`
	IsPrivate  bool   `json:"is_private"`
	MainBranch struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
	Project struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"project"`
	Links struct {
		Clone []struct {
			Name string `json:"name"`
			Href string `json:"href"`
		} `json:"clone"`
	} `json:"links"`
}

// List implements provider.Provider. An Exact workspace segment skips
// workspace discovery. Project and repository segments are filtered
// client-side; Bitbucket's q= filter language is deliberately not used so
// the match semantics stay identical across backends. Per-workspace listings
// run concurrently, bounded by the descriptor's query concurrency.
func (p *Provider) List(ctx context.Context, q *pattern.Query) ([]provider.Record, error) {
	triple := q.Triple(true)
	orgSeg, projSeg, repoSeg := triple[0], triple[1], triple[2]

	session := provider.NewSession(p.desc, p.authorize)

	workspaces, err := p.matchingWorkspaces(ctx, session, orgSeg)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		records []provider.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.desc.Concurrency())

	for _, ws := range workspaces {
		g.Go(func() error {
			repos, err := p.workspaceRepos(gctx, provider.NewSession(p.desc, p.authorize), ws)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, r := range repos {
				if !projSeg.Match(r.Project.Key) && !projSeg.Match(r.Project.Name) {
					continue
				}
				if !repoSeg.Match(r.Slug) {
					continue
				}
				records = append(records, provider.Record{
					Org:           ws,
					Project:       r.Project.Key,
					Name:          r.Slug,
					CloneURL:      httpsCloneLink(r),
					DefaultBranch: r.MainBranch.Name,
					Private:       r.IsPrivate,
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

// matchingWorkspaces resolves the workspace segment to concrete slugs.
func (p *Provider) matchingWorkspaces(ctx context.Context, s *provider.Session, seg pattern.Segment) ([]string, error) {
	if seg.Kind == pattern.Exact {
		return []string{seg.Needle}, nil
	}

	var slugs []string
	url := fmt.Sprintf("%s/workspaces?pagelen=%d", p.desc.Endpoint, pageLen)
	for url != "" {
		var page workspacePage
		if err := s.GetJSON(ctx, url, &page); err != nil {
			return nil, err
		}

		for _, ws := range page.Values {
			if seg.Match(ws.Slug) {
				slugs = append(slugs, ws.Slug)
			}
		}
		url = page.Next
	}
	return slugs, nil
}

// workspaceRepos pages through every repository of one workspace.
func (p *Provider) workspaceRepos(ctx context.Context, s *provider.Session, workspace string) ([]repoJSON, error) {
	var repos []repoJSON
	url := fmt.Sprintf("%s/repositories/%s?pagelen=%d", p.desc.Endpoint, workspace, pageLen)
	for url != "" {
		var page repoPage
		if err := s.GetJSON(ctx, url, &page); err != nil {
			return nil, err
		}

		repos = append(repos, page.Values...)
		url = page.Next
	}
	return repos, nil
}

// httpsCloneLink picks the https clone endpoint from the repository links.
func httpsCloneLink(r repoJSON) string {
	for _, link := range r.Links.Clone {
		if link.Name == "https" {
			return link.Href
		}
	}
	return ""
}

// authorize attaches the token, when configured, as a bearer credential.
func (p *Provider) authorize(req *http.Request) {
	if p.desc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.desc.Token)
	}
}
