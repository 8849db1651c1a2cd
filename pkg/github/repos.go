package github

import (
	"context"

	gh "github.com/google/go-github/v57/github"
)

// RepositoryRef is snapshot metadata for one repository visible to a token.
// It is fetched fresh on every request and never cached locally.
type RepositoryRef struct {
	FullName      string `json:"full_name"`
	Private       bool   `json:"private,omitempty"`
	Admin         bool   `json:"admin"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// Pager walks the authenticated user's repositories one provider page at a
// time. It is lazy and restartable: a fresh Pager always begins at the
// first page, and callers may stop between pages without penalty.
type Pager struct {
	client *gh.Client
	opts   gh.RepositoryListOptions
	done   bool
}

func NewRepoPager(client *gh.Client) *Pager {
	return &Pager{
		client: client,
		opts: gh.RepositoryListOptions{
			Visibility: "all",
			Sort:       "pushed",
			ListOptions: gh.ListOptions{
				PerPage: 100, // provider maximum
			},
		},
	}
}

// Next fetches the next page. done is true once the final page has been
// returned; further calls yield an empty page.
func (p *Pager) Next(ctx context.Context) (refs []RepositoryRef, done bool, err error) {
	if p.done {
		return nil, true, nil
	}
	pageRepos, resp, err := p.client.Repositories.List(ctx, "", &p.opts)
	if err != nil {
		return nil, false, wrapAPIError("list repositories", err)
	}
	refs = make([]RepositoryRef, 0, len(pageRepos))
	for _, r := range pageRepos {
		refs = append(refs, repoRef(r))
	}
	if resp.NextPage == 0 {
		p.done = true
	} else {
		p.opts.Page = resp.NextPage
	}
	return refs, p.done, nil
}

// ListAllRepos drains a fresh pager to completion.
func ListAllRepos(ctx context.Context, client *gh.Client) ([]RepositoryRef, error) {
	pager := NewRepoPager(client)
	var all []RepositoryRef
	for {
		refs, done, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, refs...)
		if done {
			return all, nil
		}
	}
}

// GetRepo fetches metadata for a single repository by owner/name.
func GetRepo(ctx context.Context, client *gh.Client, fullName string) (RepositoryRef, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return RepositoryRef{}, err
	}
	repo, _, err := client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return RepositoryRef{}, wrapAPIError("get repository", err)
	}
	return repoRef(repo), nil
}

func repoRef(r *gh.Repository) RepositoryRef {
	return RepositoryRef{
		FullName:      r.GetFullName(),
		Private:       r.GetPrivate(),
		Admin:         r.GetPermissions()["admin"],
		DefaultBranch: r.GetDefaultBranch(),
	}
}
